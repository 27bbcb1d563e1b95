// Package correct implements the language-model transcript correction stage
// of the helm command pipeline.
//
// Raw speech-to-text output is rarely a clean helm order: words get dropped,
// homophones slip in ("write" for "right", "coarse" for "course"), and
// numbers arrive half as digits and half as words. The [Corrector] sends the
// raw transcript to an [llm.Provider] with a conservative system prompt and
// receives back a single cleaned-up command line for the interpreter.
//
// Unlike a best-effort spell fixer, this stage is load-bearing: a garbled
// command that reaches the interpreter can move the ship the wrong way.
// When the model fails or returns nothing usable the corrector therefore
// surfaces [helm.ErrCorrectionUnavailable] instead of passing the raw
// transcript through.
package correct

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/helmsman/internal/helm"
	llm "github.com/MrWong99/helmsman/pkg/provider/llm"
)

const defaultTemperature = 0.1

// systemPrompt instructs the model to rewrite the transcript into the
// canonical helm order grammar without inventing or dropping command content.
const systemPrompt = `You are a transcript correction assistant for a ship's helm station.

You receive one raw speech-to-text transcript of a spoken helm command. Rewrite it as the canonical helm order the conning officer most plausibly said.

Canonical grammar, clauses comma-joined in this order, each clause optional:
"Helm, [<left|right> N degrees rudder][, steady on course <course digits>][, all <ahead|astern> <speed name>]"

Rules:
- Begin the command with "Helm," even when the speaker omitted it.
- Fix obvious mishearings of standing helm vocabulary: "ruder" -> "rudder", "write" -> "right", "coarse" -> "course", "amid ships" -> "amidships", "a stern" -> "astern", and the like.
- Put recognized clauses in the canonical order above, comma-joined. Never merge clauses or invent ones the speaker did not give.
- Speak course digits one word per digit through the naval table: 0 "zero", 1 "one", 2 "two", 3 "three", 4 "four", 5 "five", 6 "six", 7 "seven", 8 "eight", 9 "niner". "090" and "zero nine zero" both become "zero niner zero".
- Rudder angles and speed names keep the value as spoken. Never invent, drop, or alter an amount.
- Do NOT add command content the speaker did not say. Filler words ("uh", "um") may be removed.
- If the transcript already follows the grammar, return it unchanged.
- Respond with ONLY the corrected command text on a single line. No explanations, no quotes, no markdown.`

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithTemperature sets the LLM sampling temperature. Lower values produce
// more deterministic corrections. Default: 0.1.
func WithTemperature(temp float64) Option {
	return func(c *Corrector) {
		c.temperature = temp
	}
}

// Corrector cleans up raw helm command transcripts using an [llm.Provider].
// It is safe for concurrent use.
//
// Model selection follows the one-provider-per-model pattern: to use a
// specific model for correction, construct the [llm.Provider] with that
// model configured, rather than overriding per-request.
type Corrector struct {
	llm         llm.Provider
	temperature float64
}

// Ensure Corrector satisfies the pipeline collaborator interface.
var _ helm.Corrector = (*Corrector)(nil)

// New returns a [Corrector] backed by the given [llm.Provider].
func New(provider llm.Provider, opts ...Option) *Corrector {
	c := &Corrector{
		llm:         provider,
		temperature: defaultTemperature,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct sends transcript to the LLM and returns the cleaned-up command
// text. The result is the first non-empty line of the model output with
// markdown fences and surrounding whitespace stripped.
//
// Every failure mode — transport error, empty completion, output that
// reduces to nothing — is reported as an error wrapping
// [helm.ErrCorrectionUnavailable]. The raw transcript is never passed
// through as a substitute.
func (c *Corrector) Correct(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", helm.ErrEmptyTranscript
	}

	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Temperature:  c.temperature,
		Messages: []llm.Message{
			{Role: "user", Content: transcript},
		},
	}

	resp, err := c.llm.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: complete: %v", helm.ErrCorrectionUnavailable, err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: model returned no completion", helm.ErrCorrectionUnavailable)
	}

	corrected := firstLine(stripMarkdown(resp.Content))
	if corrected == "" {
		return "", fmt.Errorf("%w: model returned no usable text", helm.ErrCorrectionUnavailable)
	}

	return corrected, nil
}

// firstLine returns the first non-empty line of s, trimmed. Some models
// append commentary on later lines despite the single-line instruction.
func firstLine(s string) string {
	for line := range strings.Lines(s) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// stripMarkdown removes optional markdown code fences (```text ... ```) that
// some models wrap around plain output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```text", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
