package cli

import (
	"context"

	"github.com/shinji-kodama/brick/internal/config"
)

// runVersion prints the version field of the project's package.json.
func (a *app) runVersion(_ context.Context) error {
	pkg, err := config.ReadPackage(a.flags.dir)
	if err != nil {
		return err
	}
	a.VerboseLog("package %s", pkg.Name)
	if pkg.Semver == nil {
		a.VerboseLog("version %q is not semver, printing it as-is", pkg.Version)
	}
	a.printer.Version(pkg.Version)
	return nil
}
