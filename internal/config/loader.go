package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt": {"deepgram"},
	"tts": {"elevenlabs", "coqui"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.Correction.Name)
	validateProviderName("llm", cfg.Providers.Interpretation.Name)
	for _, entry := range cfg.Providers.InterpretationFallbacks {
		validateProviderName("llm", entry.Name)
	}
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	for _, entry := range cfg.Providers.TTSFallbacks {
		validateProviderName("tts", entry.Name)
	}

	// Provider availability
	if cfg.Providers.Interpretation.Name == "" {
		errs = append(errs, errors.New("providers.interpretation is required; commands cannot be interpreted without an LLM"))
	}
	if cfg.Providers.Correction.Name == "" {
		errs = append(errs, errors.New("providers.correction is required; raw transcripts must never reach the interpreter uncorrected"))
	}
	if cfg.Providers.TTS.Name == "" && !cfg.Helm.Muted {
		slog.Warn("providers.tts is empty and helm.muted is false; confirmations will not be spoken")
	}
	for i, entry := range cfg.Providers.InterpretationFallbacks {
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("providers.interpretation_fallbacks[%d].name is required", i))
		}
	}
	for i, entry := range cfg.Providers.TTSFallbacks {
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("providers.tts_fallbacks[%d].name is required", i))
		}
	}

	// Helm
	if cfg.Helm.CommandLogSize < 0 {
		errs = append(errs, fmt.Errorf("helm.command_log_size %d must not be negative", cfg.Helm.CommandLogSize))
	}
	if t := cfg.Helm.PhoneticThreshold; t != 0 && (t <= 0 || t > 1) {
		errs = append(errs, fmt.Errorf("helm.phonetic_threshold %.2f is out of range (0, 1]", t))
	}
	if t := cfg.Helm.FuzzyThreshold; t != 0 && (t <= 0 || t > 1) {
		errs = append(errs, fmt.Errorf("helm.fuzzy_threshold %.2f is out of range (0, 1]", t))
	}
	if r := cfg.Helm.Voice.Rate; r != 0 && (r < 0.5 || r > 2.0) {
		errs = append(errs, fmt.Errorf("helm.voice.rate %.2f is out of range [0.5, 2.0]", r))
	}
	if p := cfg.Helm.Voice.Pitch; p < -10 || p > 10 {
		errs = append(errs, fmt.Errorf("helm.voice.pitch %.2f is out of range [-10, 10]", p))
	}
	if d := cfg.Helm.Timeouts.Correction; d < 0 {
		errs = append(errs, fmt.Errorf("helm.timeouts.correction %s must not be negative", d))
	}
	if d := cfg.Helm.Timeouts.Interpretation; d < 0 {
		errs = append(errs, fmt.Errorf("helm.timeouts.interpretation %s must not be negative", d))
	}
	if d := cfg.Helm.Timeouts.Speech; d < 0 {
		errs = append(errs, fmt.Errorf("helm.timeouts.speech %s must not be negative", d))
	}
	for i, term := range cfg.Helm.ExtraTerms {
		if term == "" {
			errs = append(errs, fmt.Errorf("helm.extra_terms[%d] must not be empty", i))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
