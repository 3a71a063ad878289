package core

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v2"
)

const FallbackAdvice = "See an agronomist for tailored advice."

// Pesticides is the reference list shown alongside every prediction.
var Pesticides = []string{
	"Copper Oxychloride",
	"Mancozeb",
	"Chlorothalonil",
	"Neem Oil",
	"Imidacloprid",
}

var defaultRecommendations = map[Label][]string{
	BacterialSpot: {
		"Remove and destroy infected leaves.",
		"Apply copper-based fungicide.",
		"Rotate crops annually.",
	},
	EarlyBlight: {
		"Apply recommended fungicide.",
		"Water at soil, not leaves.",
		"Remove plant debris at end of the season.",
	},
	Healthy: {
		"No disease detected. Keep monitoring.",
	},
}

// Recommendations maps labels to ordered advice. It is read-only once built.
type Recommendations struct {
	table map[Label][]string
}

func DefaultRecommendations() *Recommendations {
	table := make(map[Label][]string, len(defaultRecommendations))
	for label, advice := range defaultRecommendations {
		table[label] = append([]string(nil), advice...)
	}
	return &Recommendations{table: table}
}

// LoadRecommendations starts from the built-in table and applies the entries
// in the yaml file at path, replacing the advice for any label it names. An
// empty path returns the defaults.
func LoadRecommendations(path string) (*Recommendations, error) {
	recs := DefaultRecommendations()
	if path == "" {
		return recs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading recommendations file %s: %w", path, err)
	}

	var overrides map[string][]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("error parsing recommendations file %s: %w", path, err)
	}

	for name, advice := range overrides {
		label, ok := ParseLabel(name)
		if !ok {
			return nil, fmt.Errorf("recommendations file %s: unknown label %q", path, name)
		}
		if len(advice) == 0 {
			delete(recs.table, label)
			continue
		}
		recs.table[label] = advice
	}

	slog.Info("loaded recommendations", "path", path, "overrides", len(overrides))
	return recs, nil
}

// For returns the advice for label, or the generic fallback if none is mapped.
func (r *Recommendations) For(label Label) []string {
	if advice, ok := r.table[label]; ok {
		return advice
	}
	return []string{FallbackAdvice}
}
