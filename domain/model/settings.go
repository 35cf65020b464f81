package model

// Settings are operator-tunable runtime values.
type Settings struct {
	TierLimits        map[Tier]int `json:"tier_limits"`
	DefaultAIProvider string       `json:"default_ai_provider"`
	DefaultAIModel    string       `json:"default_ai_model"`
}

func DefaultSettings() Settings {
	return Settings{
		TierLimits: map[Tier]int{
			TierGuest: 3,
			TierFree:  20,
			TierPaid:  200,
		},
		DefaultAIProvider: "openai",
	}
}

// LimitFor returns the daily limit for a tier, falling back to the built-in default.
func (s Settings) LimitFor(t Tier) int {
	if v, ok := s.TierLimits[t]; ok {
		return v
	}
	return DefaultSettings().TierLimits[t]
}
