package interpret_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/helmsman/internal/helm"
	"github.com/MrWong99/helmsman/internal/helm/interpret"
	"github.com/MrWong99/helmsman/pkg/provider/llm"
	llmmock "github.com/MrWong99/helmsman/pkg/provider/llm/mock"
)

func reply(content string) *llmmock.Provider {
	return &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: content},
	}
}

func TestInterpreter_AppliesRudderOrder(t *testing.T) {
	t.Parallel()

	p := reply(`{"stateUpdates":{"rudderAngleDegrees":-20,"courseDegrees":null,"speedPercent":null},"response":"my rudder is left twenty degrees"}`)
	i := interpret.New(p)

	got, err := i.Interpret(context.Background(), "left 20 degrees rudder", helm.ShipState{})
	if err != nil {
		t.Fatalf("Interpret: unexpected error: %v", err)
	}
	if got.Delta.RudderAngle == nil || *got.Delta.RudderAngle != -20 {
		t.Errorf("Delta.RudderAngle = %v, want -20", got.Delta.RudderAngle)
	}
	if got.Delta.Course != nil || got.Delta.Speed != nil {
		t.Errorf("Delta = %+v, want course and speed unchanged", got.Delta)
	}
	if got.Confirmation != "my rudder is left twenty degrees" {
		t.Errorf("Confirmation = %q", got.Confirmation)
	}
}

func TestInterpreter_SendsStateAndCommand(t *testing.T) {
	t.Parallel()

	p := reply(`{"stateUpdates":{"rudderAngleDegrees":null,"courseDegrees":null,"speedPercent":90},"response":"all ahead full"}`)
	i := interpret.New(p)

	current := helm.ShipState{RudderAngle: 5, Course: 270, Speed: 30}
	if _, err := i.Interpret(context.Background(), "all ahead full", current); err != nil {
		t.Fatalf("Interpret: unexpected error: %v", err)
	}

	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("Complete called %d times, want 1", len(calls))
	}
	sys := calls[0].Req.SystemPrompt
	for _, fragment := range []string{`"rudderAngleDegrees":5`, `"courseDegrees":270`, `"speedPercent":30`} {
		if !strings.Contains(sys, fragment) {
			t.Errorf("system prompt missing current state fragment %q", fragment)
		}
	}
	if len(calls[0].Req.Messages) != 1 || calls[0].Req.Messages[0].Content != "all ahead full" {
		t.Errorf("messages = %+v, want single user message with the command", calls[0].Req.Messages)
	}
}

func TestInterpreter_ExtractsJSONFromProse(t *testing.T) {
	t.Parallel()

	content := "Aye. Here is the result:\n```json\n" +
		`{"stateUpdates":{"rudderAngleDegrees":null,"courseDegrees":90,"speedPercent":null},"response":"steer course zero niner zero, aye"}` +
		"\n```\nLet me know if you need anything else."
	i := interpret.New(reply(content))

	got, err := i.Interpret(context.Background(), "steer course zero niner zero", helm.ShipState{})
	if err != nil {
		t.Fatalf("Interpret: unexpected error: %v", err)
	}
	if got.Delta.Course == nil || *got.Delta.Course != 90 {
		t.Errorf("Delta.Course = %v, want 90", got.Delta.Course)
	}
}

func TestInterpreter_BracesInsideStringsIgnored(t *testing.T) {
	t.Parallel()

	content := `{"stateUpdates":{"rudderAngleDegrees":0,"courseDegrees":null,"speedPercent":null},"response":"rudder amidships {aye}"}`
	i := interpret.New(reply(content))

	got, err := i.Interpret(context.Background(), "rudder amidships", helm.ShipState{})
	if err != nil {
		t.Fatalf("Interpret: unexpected error: %v", err)
	}
	if got.Delta.RudderAngle == nil || *got.Delta.RudderAngle != 0 {
		t.Errorf("Delta.RudderAngle = %v, want explicit 0", got.Delta.RudderAngle)
	}
}

func TestInterpreter_RejectsOutOfRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "rudder beyond hard over",
			content: `{"stateUpdates":{"rudderAngleDegrees":90,"courseDegrees":null,"speedPercent":null},"response":"aye"}`,
		},
		{
			name:    "course 360",
			content: `{"stateUpdates":{"rudderAngleDegrees":null,"courseDegrees":360,"speedPercent":null},"response":"aye"}`,
		},
		{
			name:    "negative course",
			content: `{"stateUpdates":{"rudderAngleDegrees":null,"courseDegrees":-10,"speedPercent":null},"response":"aye"}`,
		},
		{
			name:    "speed beyond emergency flank",
			content: `{"stateUpdates":{"rudderAngleDegrees":null,"courseDegrees":null,"speedPercent":120},"response":"aye"}`,
		},
		{
			name:    "speed beyond back emergency full",
			content: `{"stateUpdates":{"rudderAngleDegrees":null,"courseDegrees":null,"speedPercent":-110},"response":"aye"}`,
		},
		{
			name:    "fractional rudder",
			content: `{"stateUpdates":{"rudderAngleDegrees":12.5,"courseDegrees":null,"speedPercent":null},"response":"aye"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			i := interpret.New(reply(tt.content))
			_, err := i.Interpret(context.Background(), "anything", helm.ShipState{})
			if !errors.Is(err, helm.ErrInvalidInterpretation) {
				t.Errorf("Interpret error = %v, want ErrInvalidInterpretation", err)
			}
		})
	}
}

func TestInterpreter_RejectsMalformedOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "no JSON at all", content: "aye aye, coming right to zero niner zero"},
		{name: "unbalanced object", content: `{"stateUpdates":{"rudderAngleDegrees":5`},
		{name: "wrong types", content: `{"stateUpdates":{"rudderAngleDegrees":"hard left"},"response":"aye"}`},
		{name: "empty object", content: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			i := interpret.New(reply(tt.content))
			_, err := i.Interpret(context.Background(), "anything", helm.ShipState{})
			if !errors.Is(err, helm.ErrInvalidInterpretation) {
				t.Errorf("Interpret error = %v, want ErrInvalidInterpretation", err)
			}
		})
	}
}

func TestInterpreter_ResponseOnlyIsValid(t *testing.T) {
	t.Parallel()

	// A refusal changes nothing but still carries a readback.
	content := `{"stateUpdates":{"rudderAngleDegrees":null,"courseDegrees":null,"speedPercent":null},"response":"unable, that is not a helm order"}`
	i := interpret.New(reply(content))

	got, err := i.Interpret(context.Background(), "make me a sandwich", helm.ShipState{})
	if err != nil {
		t.Fatalf("Interpret: unexpected error: %v", err)
	}
	if !got.Delta.IsZero() {
		t.Errorf("Delta = %+v, want zero delta", got.Delta)
	}
	if got.Confirmation == "" {
		t.Error("Confirmation empty, want refusal text")
	}
}

func TestInterpreter_SpellsOutDigitCourses(t *testing.T) {
	t.Parallel()

	content := `{"stateUpdates":{"rudderAngleDegrees":null,"courseDegrees":90,"speedPercent":null},"response":"steady on course 090"}`
	i := interpret.New(reply(content))

	got, err := i.Interpret(context.Background(), "steer course zero niner zero", helm.ShipState{})
	if err != nil {
		t.Fatalf("Interpret: unexpected error: %v", err)
	}
	if got.Confirmation != "steady on course zero niner zero" {
		t.Errorf("Confirmation = %q, want digits spelled out", got.Confirmation)
	}
}

func TestInterpreter_LeavesNonCourseNumbersAlone(t *testing.T) {
	t.Parallel()

	content := `{"stateUpdates":{"rudderAngleDegrees":null,"courseDegrees":null,"speedPercent":110},"response":"emergency flank, making 450 turns"}`
	i := interpret.New(reply(content))

	got, err := i.Interpret(context.Background(), "emergency flank", helm.ShipState{})
	if err != nil {
		t.Fatalf("Interpret: unexpected error: %v", err)
	}
	if !strings.Contains(got.Confirmation, "450") {
		t.Errorf("Confirmation = %q, 450 is not a course and must survive", got.Confirmation)
	}
}

func TestInterpreter_ProviderErrorPassedThrough(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{CompleteErr: errors.New("rate limited")}
	i := interpret.New(p)

	_, err := i.Interpret(context.Background(), "all stop", helm.ShipState{})
	if err == nil {
		t.Fatal("Interpret: expected error")
	}
	if errors.Is(err, helm.ErrInvalidInterpretation) {
		t.Errorf("transport error must not be ErrInvalidInterpretation: %v", err)
	}
}
