package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider and
// server changes require a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	MutedChanged bool
	NewMuted     bool

	VoiceChanged bool
	NewVoice     VoiceConfig

	ThresholdsChanged    bool
	NewPhoneticThreshold float64
	NewFuzzyThreshold    float64
}

// HasChanges reports whether the diff carries any hot-reloadable change.
func (d ConfigDiff) HasChanges() bool {
	return d.LogLevelChanged || d.MutedChanged || d.VoiceChanged || d.ThresholdsChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Helm.Muted != new.Helm.Muted {
		d.MutedChanged = true
		d.NewMuted = new.Helm.Muted
	}

	if old.Helm.Voice != new.Helm.Voice {
		d.VoiceChanged = true
		d.NewVoice = new.Helm.Voice
	}

	if old.Helm.PhoneticThreshold != new.Helm.PhoneticThreshold ||
		old.Helm.FuzzyThreshold != new.Helm.FuzzyThreshold {
		d.ThresholdsChanged = true
		d.NewPhoneticThreshold = new.Helm.PhoneticThreshold
		d.NewFuzzyThreshold = new.Helm.FuzzyThreshold
	}

	return d
}
