package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendationsFallback(t *testing.T) {
	recs := DefaultRecommendations()

	assert.Equal(t, []string{"No disease detected. Keep monitoring."}, recs.For(Healthy))
	assert.Len(t, recs.For(BacterialSpot), 3)
	assert.Equal(t, []string{FallbackAdvice}, recs.For(TomatoMosaicVirus))
	assert.Equal(t, []string{FallbackAdvice}, recs.For(Label("Tomato___Unknown")))
}

func TestLoadRecommendations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recommendations.yaml")
	content := `
Tomato___Late_blight:
  - "Remove infected plants immediately."
  - "Apply a protectant fungicide before rain."
Tomato___Healthy: []
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	recs, err := LoadRecommendations(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Remove infected plants immediately.", "Apply a protectant fungicide before rain."}, recs.For(LateBlight))
	assert.Equal(t, []string{FallbackAdvice}, recs.For(Healthy))
	assert.Len(t, recs.For(EarlyBlight), 3)

	// Overrides must not leak into the built-in table.
	assert.Equal(t, []string{"No disease detected. Keep monitoring."}, DefaultRecommendations().For(Healthy))
}

func TestLoadRecommendationsUnknownLabel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recommendations.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Potato___Blight:\n  - nope\n"), 0644))

	_, err := LoadRecommendations(path)
	assert.ErrorContains(t, err, "unknown label")
}

func TestLoadRecommendationsEmptyPath(t *testing.T) {
	recs, err := LoadRecommendations("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRecommendations(), recs)
}
