// Package config provides the configuration schema, loader, and provider registry
// for the Helmsman voice command system.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "10s"
// or "1m30s". Plain integers are interpreted as nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
		return nil
	case int:
		*d = Duration(v)
		return nil
	default:
		return fmt.Errorf("invalid duration value %v (%T)", raw, raw)
	}
}

// Std returns d as a standard time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// LogLevel controls log verbosity for the Helmsman server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Helmsman.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Helm      HelmConfig      `yaml:"helm"`
}

// ServerConfig holds network and logging settings for the Helmsman server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	// Correction is the LLM used to clean up raw speech transcripts.
	Correction ProviderEntry `yaml:"correction"`

	// Interpretation is the LLM that turns corrected commands into state updates.
	Interpretation ProviderEntry `yaml:"interpretation"`

	// InterpretationFallbacks lists LLM providers tried in order when the
	// primary interpretation provider fails or its circuit opens.
	InterpretationFallbacks []ProviderEntry `yaml:"interpretation_fallbacks"`

	// STT is the speech-to-text provider capturing the helmsman's voice.
	STT ProviderEntry `yaml:"stt"`

	// TTS is the text-to-speech provider that speaks confirmations.
	TTS ProviderEntry `yaml:"tts"`

	// TTSFallbacks lists TTS providers tried in order when the primary fails.
	TTSFallbacks []ProviderEntry `yaml:"tts_fallbacks"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "deepgram").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o", "nova-2").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// HelmConfig tunes the command pipeline and the spoken feedback channel.
type HelmConfig struct {
	// Muted suppresses spoken confirmations at startup. Commands are still
	// interpreted and applied; only the audio readback is skipped.
	Muted bool `yaml:"muted"`

	// Voice selects the confirmation voice from the TTS provider's catalogue.
	Voice VoiceConfig `yaml:"voice"`

	// CommandLogSize bounds the in-memory log of recent commands.
	// Zero means the default size of 5.
	CommandLogSize int `yaml:"command_log_size"`

	// AuditLog is the path of the append-only JSONL audit trail.
	// Empty disables audit recording.
	AuditLog string `yaml:"audit_log"`

	// Timeouts bounds each pipeline stage.
	Timeouts TimeoutsConfig `yaml:"timeouts"`

	// PhoneticThreshold overrides the Double Metaphone similarity cutoff for
	// vocabulary normalization. Zero means the default of 0.70.
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`

	// FuzzyThreshold overrides the Jaro-Winkler cutoff. Zero means 0.85.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`

	// ExtraTerms extends the built-in helm vocabulary with additional
	// canonical terms for phonetic matching.
	ExtraTerms []string `yaml:"extra_terms"`
}

// VoiceConfig selects and shapes the TTS confirmation voice.
type VoiceConfig struct {
	// Name matches against voice names in the provider's catalogue.
	Name string `yaml:"name"`

	// ID is the provider-specific voice identifier. Takes precedence over Name.
	ID string `yaml:"id"`

	// Rate adjusts speaking rate in the range [0.5, 2.0]. 0 means default.
	Rate float64 `yaml:"rate"`

	// Pitch adjusts pitch in the range [-10, +10]. 0 means default.
	Pitch float64 `yaml:"pitch"`
}

// TimeoutsConfig bounds the individual pipeline stages. Zero values fall
// back to the pipeline defaults.
type TimeoutsConfig struct {
	Correction     Duration `yaml:"correction"`
	Interpretation Duration `yaml:"interpretation"`
	Speech         Duration `yaml:"speech"`
}
