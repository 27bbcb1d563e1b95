// Package naval holds the static naval phraseology domain model: rudder
// angle vocabulary, engine-order speed tables, the 16-point compass rose,
// and the digit-by-digit pronunciation convention used over voice circuits.
//
// Everything in this package is pure lookup data plus total formatting
// functions — no I/O, no errors, safe for concurrent use.
package naval

// Rudder angle names and their deflection in degrees. A helm order names the
// deflection ("hard rudder") and a direction; the sign is applied by the
// interpreter (negative = left).
const (
	RudderHard     = 35
	RudderFull     = 30
	RudderStandard = 15
	RudderHalf     = 10
	RudderSlight   = 5

	// MaxRudderAngle is the physical rudder stop.
	MaxRudderAngle = 35
)

// rudderNames maps spoken rudder vocabulary to degrees of deflection.
var rudderNames = map[string]int{
	"hard":     RudderHard,
	"full":     RudderFull,
	"standard": RudderStandard,
	"half":     RudderHalf,
	"slight":   RudderSlight,
}

// RudderAngle returns the deflection in degrees for a spoken rudder name
// ("hard", "full", "standard", "half", "slight"). ok is false for unknown names.
func RudderAngle(name string) (degrees int, ok bool) {
	degrees, ok = rudderNames[name]
	return degrees, ok
}

// speedOrder pairs an engine-order name with its telegraph percentage.
type speedOrder struct {
	Name    string
	Percent int
}

// aheadSpeeds is the ahead engine-order table, descending by percentage.
// Order matters: SpeedName scans for the highest threshold not exceeding the
// requested magnitude.
var aheadSpeeds = []speedOrder{
	{"emergency flank", 110},
	{"ahead flank", 100},
	{"ahead full", 90},
	{"ahead standard", 75},
	{"ahead two thirds", 60},
	{"ahead one third", 30},
	{"all stop", 0},
}

// asternSpeeds is the astern engine-order table. Percentages are stored as
// magnitudes; astern speeds are negative in ship state.
var asternSpeeds = []speedOrder{
	{"back emergency full", 100},
	{"back full", 75},
	{"back two thirds", 60},
	{"back one third", 30},
	{"all stop", 0},
}

// SpeedName returns the canonical engine-order name for a speed percentage.
// Positive values use the ahead table, negative values the astern table; in
// both cases the bucket is the highest threshold less than or equal to the
// magnitude, so intermediate values round down to the nearest named order
// while exact threshold values name their own bucket.
func SpeedName(percent int) string {
	table := aheadSpeeds
	magnitude := percent
	if percent < 0 {
		table = asternSpeeds
		magnitude = -percent
	}
	for _, s := range table {
		if magnitude >= s.Percent {
			return s.Name
		}
	}
	return "all stop"
}

// SpeedValue returns the signed speed percentage for an engine-order name.
// astern orders return negative values. ok is false for unknown names.
func SpeedValue(name string) (percent int, ok bool) {
	for _, s := range aheadSpeeds {
		if s.Name == name {
			return s.Percent, true
		}
	}
	for _, s := range asternSpeeds {
		if s.Name == name {
			return -s.Percent, true
		}
	}
	return 0, false
}

// AheadSpeedNames returns the ahead engine-order vocabulary, fastest first.
func AheadSpeedNames() []string {
	return speedNames(aheadSpeeds)
}

// AsternSpeedNames returns the astern engine-order vocabulary, fastest first.
func AsternSpeedNames() []string {
	return speedNames(asternSpeeds)
}

func speedNames(table []speedOrder) []string {
	names := make([]string, len(table))
	for i, s := range table {
		names[i] = s.Name
	}
	return names
}

// compassPoints is the 16-point rose, 22.5 degrees apart starting at north.
var compassPoints = [16]string{
	"north", "north-northeast", "northeast", "east-northeast",
	"east", "east-southeast", "southeast", "south-southeast",
	"south", "south-southwest", "southwest", "west-southwest",
	"west", "west-northwest", "northwest", "north-northwest",
}

// CompassBearing returns the bearing in degrees for a compass point name.
// ok is false for unknown names.
func CompassBearing(point string) (degrees float64, ok bool) {
	for i, p := range compassPoints {
		if p == point {
			return float64(i) * 22.5, true
		}
	}
	return 0, false
}

// digitWords maps decimal digits to their radio pronunciation. "niner"
// distinguishes nine from the German "nein" and from five over a noisy circuit.
var digitWords = [10]string{
	"zero", "one", "two", "three", "four",
	"five", "six", "seven", "eight", "niner",
}

// DigitWord returns the radio pronunciation of a single digit 0–9.
// Out-of-range values are reduced modulo 10.
func DigitWord(d int) string {
	d %= 10
	if d < 0 {
		d += 10
	}
	return digitWords[d]
}
