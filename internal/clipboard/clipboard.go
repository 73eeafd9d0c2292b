// Package clipboard copies rendered templates to the system clipboard by
// piping them into the platform's clipboard utility.
package clipboard

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// tool is one clipboard utility and the arguments that make it read stdin
type tool struct {
	name string
	args []string
}

var tools = map[string][]tool{
	"darwin":  {{name: "pbcopy"}},
	"windows": {{name: "clip"}},
	"linux": {
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	},
}

// UnavailableError reports that no clipboard utility is installed
type UnavailableError struct {
	OS string
}

func (e *UnavailableError) Error() string {
	if e.OS == "linux" {
		return "no clipboard utility found; install wl-clipboard, xclip or xsel"
	}
	return fmt.Sprintf("clipboard not supported on %s", e.OS)
}

// Clipboard writes text through the first available utility
type Clipboard struct {
	goos     string
	lookPath func(string) (string, error)
	run      func(ctx context.Context, path string, args []string, stdin string) error
}

// New returns a Clipboard for the running platform
func New() *Clipboard {
	return &Clipboard{goos: runtime.GOOS, lookPath: exec.LookPath, run: runCommand}
}

func runCommand(ctx context.Context, path string, args []string, stdin string) error {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = strings.NewReader(stdin)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", path, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Copy writes text to the clipboard. Utilities are tried in order and the
// last failure is returned when none succeeds.
func (c *Clipboard) Copy(ctx context.Context, text string) error {
	var lastErr error
	for _, t := range tools[c.goos] {
		path, err := c.lookPath(t.name)
		if err != nil {
			continue
		}
		if lastErr = c.run(ctx, path, t.args, text); lastErr == nil {
			return nil
		}
	}
	if lastErr != nil {
		return fmt.Errorf("copying to clipboard: %w", lastErr)
	}
	return &UnavailableError{OS: c.goos}
}
