package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/brick/internal/model"
)

// PackageFile is the npm package metadata file of a project.
const PackageFile = "package.json"

// Package holds the subset of package.json brick cares about.
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version"`

	// Semver is the parsed Version, or nil when Version is not semver.
	Semver *semver.Version `json:"-"`
}

// ReadPackage reads and parses package.json in dir.
//
// Returns a CLIError with ExitConfigError if the file is missing, cannot
// be parsed, or has no version. Versions are parsed leniently ("1.0" and
// "v1.2.3" are accepted) and any other string is kept as-is with a nil
// Semver.
func ReadPackage(dir string) (*Package, error) {
	path := filepath.Join(dir, PackageFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("package.json not found: %s", path), err)
		}
		return nil, model.WrapCLIError(model.ExitConfigError, "failed to read package.json", err)
	}

	var pkg Package
	if err := json.Unmarshal(jsonc.ToJSON(data), &pkg); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to parse package.json at %s", path), err)
	}

	if pkg.Version == "" {
		return nil, model.NewCLIError(model.ExitConfigError, "package.json has no version field")
	}
	if v, err := semver.NewVersion(pkg.Version); err == nil {
		pkg.Semver = v
	}

	return &pkg, nil
}
