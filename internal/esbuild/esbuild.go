// Package esbuild holds the small adapters shared by every component that
// calls the esbuild Go API: browser target parsing and conversion of
// esbuild diagnostics into Go errors.
package esbuild

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rotisserie/eris"
)

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"deno":    api.EngineDeno,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"node":    api.EngineNode,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

var targetRe = regexp.MustCompile(`^([a-z]+)([0-9][0-9.]*)$`)

// Engines converts targets like "chrome64" or "safari15.4" into esbuild
// engine constraints.
func Engines(targets []string) ([]api.Engine, error) {
	engines := make([]api.Engine, 0, len(targets))
	for _, target := range targets {
		m := targetRe.FindStringSubmatch(strings.ToLower(target))
		if m == nil {
			return nil, eris.Errorf("invalid browser target %q", target)
		}
		name, ok := engineNames[m[1]]
		if !ok {
			return nil, eris.Errorf("unknown browser engine %q in target %q", m[1], target)
		}
		engines = append(engines, api.Engine{Name: name, Version: m[2]})
	}
	return engines, nil
}

// FormatMessage renders one esbuild diagnostic as "file:line:col: text".
func FormatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}

// Error joins esbuild error messages into a single error. It returns nil
// for an empty slice.
func Error(msgs []api.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, FormatMessage(msg))
	}
	return eris.New(strings.Join(lines, "\n"))
}
