package graph

// Palette holds the stroke colors used by every styling policy.
type Palette struct {
	Neutral     string `toml:"neutral" json:"neutral"`
	Default     string `toml:"default" json:"default"`
	Warning     string `toml:"warning" json:"warning"`
	Highlight   string `toml:"highlight" json:"highlight"`
	OutcomeHigh string `toml:"outcome_high" json:"outcome_high"`
	OutcomeMid  string `toml:"outcome_mid" json:"outcome_mid"`
	OutcomeLow  string `toml:"outcome_low" json:"outcome_low"`
}

// DefaultPalette returns the stock dashboard colors.
func DefaultPalette() Palette {
	return Palette{
		Neutral:     "#ccc",
		Default:     "#555",
		Warning:     "#e53e3e",
		Highlight:   "#3182ce",
		OutcomeHigh: "#38a169",
		OutcomeMid:  "#718096",
		OutcomeLow:  "#e53e3e",
	}
}

// WithDefaults fills every empty entry from DefaultPalette.
func (p Palette) WithDefaults() Palette {
	d := DefaultPalette()
	fill := func(v *string, fallback string) {
		if *v == "" {
			*v = fallback
		}
	}
	fill(&p.Neutral, d.Neutral)
	fill(&p.Default, d.Default)
	fill(&p.Warning, d.Warning)
	fill(&p.Highlight, d.Highlight)
	fill(&p.OutcomeHigh, d.OutcomeHigh)
	fill(&p.OutcomeMid, d.OutcomeMid)
	fill(&p.OutcomeLow, d.OutcomeLow)
	return p
}
