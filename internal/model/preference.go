package model

// PreferenceSetting is the singleton alert policy record: at most one row
// exists. Each flag holds the literal level name when alerts are enabled
// for that level, or the empty string when disabled.
type PreferenceSetting struct {
	UpdatedAt string
	Warn      string
	Error     string
	Critical  string
}

// EnabledLevels returns the set of non-empty policy flags.
func (p PreferenceSetting) EnabledLevels() []string {
	var levels []string
	for _, flag := range []string{p.Warn, p.Error, p.Critical} {
		if flag != "" {
			levels = append(levels, flag)
		}
	}
	return levels
}
