package patchbay

import "time"

// Settings are the developer options of a Patchbay instance.
type Settings struct {
	// Server is prefixed to every url: track location.
	Server string `yaml:"server" json:"server"`
	// Scope is the id of the element sweeps are limited to; empty means the whole document.
	Scope     string `yaml:"scope" json:"scope"`
	Autosweep *bool  `yaml:"autosweep" json:"autosweep"`
	PlayText  string `yaml:"play_text" json:"play_text"`
	PauseText string `yaml:"pause_text" json:"pause_text"`

	// AutoAdvance loads the next swept inline player when a track ends.
	AutoAdvance *bool `yaml:"auto_advance" json:"auto_advance"`
	// Prefetch resolves every id: track found by a sweep in one batched lookup.
	Prefetch      bool          `yaml:"prefetch" json:"prefetch"`
	LookupTimeout time.Duration `yaml:"lookup_timeout" json:"lookup_timeout"`
}

// DefaultSettings returns the settings used for anything left unset.
func DefaultSettings() Settings {
	return Settings{
		Server:        "http://localhost:3000",
		Scope:         "",
		Autosweep:     Bool(true),
		PlayText:      "Play",
		PauseText:     "Pause",
		AutoAdvance:   Bool(true),
		LookupTimeout: 10 * time.Second,
	}
}

// Bool returns a pointer to b, for the tri-state fields of Settings.
func Bool(b bool) *bool {
	return &b
}

// Merge returns s with every unset field taken from base.
func (s Settings) Merge(base Settings) Settings {
	out := base
	if s.Server != "" {
		out.Server = s.Server
	}
	if s.Scope != "" {
		out.Scope = s.Scope
	}
	if s.Autosweep != nil {
		out.Autosweep = Bool(*s.Autosweep)
	}
	if s.PlayText != "" {
		out.PlayText = s.PlayText
	}
	if s.PauseText != "" {
		out.PauseText = s.PauseText
	}
	if s.AutoAdvance != nil {
		out.AutoAdvance = Bool(*s.AutoAdvance)
	}
	if s.Prefetch {
		out.Prefetch = true
	}
	if s.LookupTimeout > 0 {
		out.LookupTimeout = s.LookupTimeout
	}
	return out
}

func (s Settings) autosweep() bool {
	return s.Autosweep == nil || *s.Autosweep
}

func (s Settings) autoAdvance() bool {
	return s.AutoAdvance == nil || *s.AutoAdvance
}
