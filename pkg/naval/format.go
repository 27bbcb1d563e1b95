package naval

import (
	"fmt"
	"math"
	"strings"
)

// NormalizeBearing reduces degrees into [0, 360). The result is total: any
// finite input, including negatives and values past a full circle, maps into
// range.
func NormalizeBearing(degrees float64) float64 {
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// FormatCourse renders a course as the three-digit spoken form used in helm
// orders: zero-padded, each digit pronounced independently, single spaces
// between words. 9 → "zero zero niner", 180 → "one eight zero".
//
// Courses outside [0, 360) are normalized first, so FormatCourse is total.
func FormatCourse(degrees int) string {
	d := int(NormalizeBearing(float64(degrees)))
	padded := fmt.Sprintf("%03d", d)

	words := make([]string, 0, 3)
	for _, r := range padded {
		words = append(words, DigitWord(int(r-'0')))
	}
	return strings.Join(words, " ")
}

// CompassPoint returns the nearest of the 16 compass rose points for a
// bearing in degrees: round(degrees / 22.5) modulo 16. Bearings outside
// [0, 360) are normalized first.
func CompassPoint(degrees float64) string {
	d := NormalizeBearing(degrees)
	idx := int(math.Round(d/22.5)) % 16
	return compassPoints[idx]
}

// FormatRudder renders a rudder deflection as spoken helm phrasing, e.g.
// -20 → "left 20 degrees rudder", 0 → "rudder amidships".
func FormatRudder(degrees int) string {
	if degrees == 0 {
		return "rudder amidships"
	}
	direction := "right"
	magnitude := degrees
	if degrees < 0 {
		direction = "left"
		magnitude = -degrees
	}
	return fmt.Sprintf("%s %d degrees rudder", direction, magnitude)
}
