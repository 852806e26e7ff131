package runtimecfg

import "github.com/pcdogyu/tradecal/internal/config"

// Patch is a partial update for the settings a running server can change.
// Fields are pointers so "not set" can be distinguished from zero values.
type Patch struct {
	RefreshAt      *string `json:"refresh_at,omitempty"`
	RefreshEnabled *bool   `json:"refresh_enabled,omitempty"`

	LogLevel *string `json:"log_level,omitempty"`
}

func (p Patch) Apply(cfg *config.Config) {
	if p.RefreshAt != nil {
		cfg.Server.RefreshAt = *p.RefreshAt
	}
	if p.RefreshEnabled != nil {
		cfg.Server.RefreshEnabled = p.RefreshEnabled
	}
	if p.LogLevel != nil {
		cfg.Log.Level = *p.LogLevel
	}
}
