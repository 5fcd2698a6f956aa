package devserver

import (
	"os/exec"
	"runtime"

	"github.com/rotisserie/eris"
)

// browserCommand returns the command that opens url in the default
// browser on goos.
func browserCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}

// OpenBrowser opens url in the default browser without waiting for it.
func OpenBrowser(url string) error {
	name, args := browserCommand(runtime.GOOS, url)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return eris.Wrapf(err, "open browser with %s", name)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
