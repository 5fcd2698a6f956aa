package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPackage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"name": "my-element", "version": "1.4.0-beta.2"}`)

	pkg, err := ReadPackage(dir)
	require.NoError(t, err)

	assert.Equal(t, "my-element", pkg.Name)
	assert.Equal(t, "1.4.0-beta.2", pkg.Version)
	assert.Equal(t, uint64(4), pkg.Semver.Minor())
	assert.Equal(t, "beta.2", pkg.Semver.Prerelease())
}

func TestReadPackage_LenientVersion(t *testing.T) {
	tests := []struct {
		version string
		major   uint64 // 0 with semver false
		semver  bool
	}{
		{"1.0", 1, true},
		{"v1.2.3", 1, true},
		{"2024.01.15", 0, false},
		{"next", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "package.json", `{"name": "my-element", "version": "`+tt.version+`"}`)

			pkg, err := ReadPackage(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.version, pkg.Version, "the version is kept verbatim")
			if !tt.semver {
				assert.Nil(t, pkg.Semver)
				return
			}
			require.NotNil(t, pkg.Semver)
			assert.Equal(t, tt.major, pkg.Semver.Major())
		})
	}
}

func TestReadPackage_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string // empty means no package.json at all
		want    string
	}{
		{"missing file", "", "package.json not found"},
		{"not json", `{"version": `, "failed to parse package.json"},
		{"no version", `{"name": "my-element"}`, "no version field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.content != "" {
				writeFile(t, dir, "package.json", tt.content)
			}

			_, err := ReadPackage(dir)
			cliErr := requireConfigError(t, err)
			assert.Contains(t, cliErr.Message, tt.want)
		})
	}
}
