package clipboard

import (
	"context"
	stderrors "errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	path  string
	args  []string
	stdin string
}

func fake(goos string, installed map[string]bool, failing map[string]bool) (*Clipboard, *[]call) {
	var calls []call
	return &Clipboard{
		goos: goos,
		lookPath: func(name string) (string, error) {
			if installed[name] {
				return "/usr/bin/" + name, nil
			}
			return "", exec.ErrNotFound
		},
		run: func(_ context.Context, path string, args []string, stdin string) error {
			calls = append(calls, call{path, args, stdin})
			if failing[path] {
				return stderrors.New("exit status 1")
			}
			return nil
		},
	}, &calls
}

func TestCopyUsesFirstInstalledTool(t *testing.T) {
	c, calls := fake("linux", map[string]bool{"xclip": true, "xsel": true}, nil)

	require.NoError(t, c.Copy(context.Background(), "Hello Ada"))
	require.Len(t, *calls, 1)
	assert.Equal(t, call{"/usr/bin/xclip", []string{"-selection", "clipboard"}, "Hello Ada"}, (*calls)[0])
}

func TestCopyFallsBackOnFailure(t *testing.T) {
	c, calls := fake("linux", map[string]bool{"wl-copy": true, "xsel": true}, map[string]bool{"/usr/bin/wl-copy": true})

	require.NoError(t, c.Copy(context.Background(), "x"))
	require.Len(t, *calls, 2)
	assert.Equal(t, "/usr/bin/xsel", (*calls)[1].path)
}

func TestCopyAllFail(t *testing.T) {
	c, _ := fake("darwin", map[string]bool{"pbcopy": true}, map[string]bool{"/usr/bin/pbcopy": true})

	err := c.Copy(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 1")
}

func TestCopyUnavailable(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"linux", "install wl-clipboard"},
		{"plan9", "not supported on plan9"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			c, _ := fake(tt.goos, nil, nil)

			err := c.Copy(context.Background(), "x")
			var unavailable *UnavailableError
			require.ErrorAs(t, err, &unavailable)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
