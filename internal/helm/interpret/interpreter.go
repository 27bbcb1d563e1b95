// Package interpret implements the language-model command interpretation
// stage: a corrected helm command plus the current ship state in, a
// structured state delta plus readback text out.
//
// The model is asked for a single JSON object. Its output is treated as
// hostile until proven otherwise: the first balanced {...} is extracted from
// whatever prose surrounds it, unknown shapes are rejected, and any value
// outside the control ranges fails the whole command. Out-of-range values
// are never clamped — on a control surface, a rudder order of 90 degrees
// means the model misunderstood the command, and guessing "35 then" would
// silently steer the ship somewhere nobody ordered.
package interpret

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/MrWong99/helmsman/internal/helm"
	"github.com/MrWong99/helmsman/pkg/naval"
	llm "github.com/MrWong99/helmsman/pkg/provider/llm"
)

const defaultTemperature = 0.2

// systemPromptTemplate carries the standing orders vocabulary and the output
// contract. The current ship state is formatted in at call time.
const systemPromptTemplate = `You are the helmsman of a naval vessel. You receive spoken helm commands from the conning officer and respond with the resulting state change and a proper readback.

Current ship state:
%s

State fields and ranges:
- rudderAngleDegrees: integer, -35 to 35. Negative is left (port), positive is right (starboard). 0 is rudder amidships.
- courseDegrees: number, 0 to 359. The ordered compass course.
- speedPercent: integer, -100 to 110. Negative is astern (backing), positive is ahead.

Standing vocabulary:
- Rudder amounts: hard = 35, full = 30, standard = 15, half = 10, slight = 5. "Hard left rudder" means rudderAngleDegrees -35.
- Ahead bells: emergency flank = 110, flank = 100, full = 90, standard = 75, two thirds = 60, one third = 30, all stop = 0.
- Astern bells: back emergency full = -100, back full = -75, back two thirds = -60, back one third = -30.
- Courses are spoken digit by digit: "steer course zero niner zero" means courseDegrees 90.
- "Steady as she goes" means hold the current course: set courseDegrees to the current course and rudderAngleDegrees to 0.
- "Rudder amidships" means rudderAngleDegrees 0.

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{
  "stateUpdates": {
    "rudderAngleDegrees": <integer or null>,
    "courseDegrees": <number or null>,
    "speedPercent": <integer or null>
  },
  "response": "<readback in proper helm phrasing, e.g. 'my rudder is left fifteen degrees'>"
}

Use null for every field the command does not change. If the command is not a helm order or cannot be carried out, set all fields to null and explain in the response. Speak course digits in the readback individually, using "niner" for nine.`

// threeDigits matches a spoken-course candidate in readback text.
var threeDigits = regexp.MustCompile(`\b\d{3}\b`)

// llmReply is the JSON shape expected from the model. Pointer fields keep
// null distinguishable from an explicit zero.
type llmReply struct {
	StateUpdates *struct {
		RudderAngle *float64 `json:"rudderAngleDegrees"`
		Course      *float64 `json:"courseDegrees"`
		Speed       *float64 `json:"speedPercent"`
	} `json:"stateUpdates"`
	Response string `json:"response"`
}

// Option is a functional option for configuring an [Interpreter].
type Option func(*Interpreter)

// WithTemperature sets the LLM sampling temperature. Default: 0.2.
func WithTemperature(temp float64) Option {
	return func(i *Interpreter) {
		i.temperature = temp
	}
}

// Interpreter turns corrected helm commands into state deltas using an
// [llm.Provider]. It is safe for concurrent use.
type Interpreter struct {
	llm         llm.Provider
	temperature float64
}

var _ helm.Interpreter = (*Interpreter)(nil)

// New returns an [Interpreter] backed by the given [llm.Provider].
func New(provider llm.Provider, opts ...Option) *Interpreter {
	i := &Interpreter{
		llm:         provider,
		temperature: defaultTemperature,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Interpret sends command and the current state to the LLM and returns the
// validated [helm.Interpretation]. Transport failures are returned as-is;
// everything wrong with the model's answer — no JSON, missing fields,
// out-of-range values — is an error wrapping [helm.ErrInvalidInterpretation].
func (i *Interpreter) Interpret(ctx context.Context, command string, current helm.ShipState) (*helm.Interpretation, error) {
	stateJSON, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("interpret: marshal state: %w", err)
	}

	req := llm.CompletionRequest{
		SystemPrompt: fmt.Sprintf(systemPromptTemplate, stateJSON),
		Temperature:  i.temperature,
		Messages: []llm.Message{
			{Role: "user", Content: command},
		},
	}

	resp, err := i.llm.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("interpret: complete: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: model returned no completion", helm.ErrInvalidInterpretation)
	}

	return parseReply(resp.Content)
}

// parseReply extracts, decodes, and validates the model output.
func parseReply(content string) (*helm.Interpretation, error) {
	raw := extractObject(content)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in model output", helm.ErrInvalidInterpretation)
	}

	var reply llmReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", helm.ErrInvalidInterpretation, err)
	}

	if reply.StateUpdates == nil && strings.TrimSpace(reply.Response) == "" {
		return nil, fmt.Errorf("%w: neither stateUpdates nor response present", helm.ErrInvalidInterpretation)
	}

	interp := &helm.Interpretation{
		Confirmation: spellCourses(strings.TrimSpace(reply.Response)),
	}

	if reply.StateUpdates == nil {
		return interp, nil
	}

	u := reply.StateUpdates
	if u.RudderAngle != nil {
		v, err := toInt("rudderAngleDegrees", *u.RudderAngle, helm.MinRudderAngle, helm.MaxRudderAngle)
		if err != nil {
			return nil, err
		}
		interp.Delta.RudderAngle = &v
	}
	if u.Course != nil {
		c := *u.Course
		if c < 0 || c >= helm.MaxCourse {
			return nil, fmt.Errorf("%w: courseDegrees %v out of range [0, %d)",
				helm.ErrInvalidInterpretation, c, helm.MaxCourse)
		}
		interp.Delta.Course = &c
	}
	if u.Speed != nil {
		v, err := toInt("speedPercent", *u.Speed, helm.MinSpeed, helm.MaxSpeed)
		if err != nil {
			return nil, err
		}
		interp.Delta.Speed = &v
	}

	return interp, nil
}

// toInt validates that v is an integral value within [min, max] and returns
// it as an int.
func toInt(field string, v float64, min, max int) (int, error) {
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %s %v is not an integer", helm.ErrInvalidInterpretation, field, v)
	}
	n := int(v)
	if n < min || n > max {
		return 0, fmt.Errorf("%w: %s %d out of range [%d, %d]",
			helm.ErrInvalidInterpretation, field, n, min, max)
	}
	return n, nil
}

// spellCourses rewrites any bare three-digit course in readback text into
// spoken digits ("090" becomes "zero niner zero"). Values that cannot be a
// course are left alone. Models are told to spell digits out, but readbacks
// with raw digits slip through often enough that the TTS would otherwise say
// "ninety".
func spellCourses(text string) string {
	return threeDigits.ReplaceAllStringFunc(text, func(m string) string {
		n, err := strconv.Atoi(m)
		if err != nil || n >= helm.MaxCourse {
			return m
		}
		return naval.FormatCourse(n)
	})
}
