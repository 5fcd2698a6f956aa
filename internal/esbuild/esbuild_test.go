package esbuild

import (
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngines(t *testing.T) {
	engines, err := Engines([]string{"chrome64", "Safari15.4", "firefox67"})
	require.NoError(t, err)

	assert.Equal(t, []api.Engine{
		{Name: api.EngineChrome, Version: "64"},
		{Name: api.EngineSafari, Version: "15.4"},
		{Name: api.EngineFirefox, Version: "67"},
	}, engines)
}

func TestEngines_Invalid(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"chrome", "invalid browser target"},
		{"64", "invalid browser target"},
		{"netscape4", "unknown browser engine"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			_, err := Engines([]string{tt.target})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestError(t *testing.T) {
	assert.NoError(t, Error(nil))

	err := Error([]api.Message{
		{Text: "Could not resolve \"lit\"", Location: &api.Location{File: "src/my-element.js", Line: 1, Column: 22}},
		{Text: "plugin failed"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `src/my-element.js:1:22: Could not resolve "lit"`)
	assert.Contains(t, err.Error(), "plugin failed")
}
