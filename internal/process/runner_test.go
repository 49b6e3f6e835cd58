package process_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ryanmoran/scriptrepository/internal/process"
)

func TestExecRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("Run", func(t *testing.T) {
		t.Run("returns combined output", func(t *testing.T) {
			runner := process.NewExecRunner()

			output, err := runner.Run(ctx, t.TempDir(), "sh", "-c", "echo out; echo err >&2")
			require.NoError(t, err)
			require.Contains(t, output, "out\n")
			require.Contains(t, output, "err\n")
		})

		t.Run("runs inside the given directory", func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("here\n"), 0644))

			output, err := process.NewExecRunner().Run(ctx, dir, "cat", "marker.txt")
			require.NoError(t, err)
			require.Equal(t, "here\n", output)
		})

		t.Run("passes extra environment entries", func(t *testing.T) {
			runner := process.NewExecRunner("SCRIPT_REPOSITORY_TEST_VALUE=some-value")

			output, err := runner.Run(ctx, t.TempDir(), "sh", "-c", "echo $SCRIPT_REPOSITORY_TEST_VALUE")
			require.NoError(t, err)
			require.Equal(t, "some-value", strings.TrimSpace(output))
		})

		t.Run("failure cases", func(t *testing.T) {
			t.Run("when the child exits non-zero", func(t *testing.T) {
				output, err := process.NewExecRunner().Run(ctx, t.TempDir(), "sh", "-c", "echo partial; echo broken >&2; exit 3")
				require.Error(t, err)
				require.Contains(t, output, "partial")

				var processErr *process.Error
				require.True(t, errors.As(err, &processErr))
				require.Equal(t, 3, processErr.ExitCode())
				require.Contains(t, processErr.Output, "broken")
				require.Contains(t, err.Error(), `"sh -c echo partial; echo broken >&2; exit 3" failed`)
			})

			t.Run("when the command cannot be spawned", func(t *testing.T) {
				_, err := process.NewExecRunner().Run(ctx, t.TempDir(), "scriptrepository-no-such-binary")
				require.Error(t, err)

				var processErr *process.Error
				require.True(t, errors.As(err, &processErr))
				require.Equal(t, -1, processErr.ExitCode())
				require.ErrorIs(t, err, exec.ErrNotFound)
			})

			t.Run("when the directory does not exist", func(t *testing.T) {
				_, err := process.NewExecRunner().Run(ctx, "/nonexistent/path/to/repo", "true")
				require.Error(t, err)

				var processErr *process.Error
				require.True(t, errors.As(err, &processErr))
			})
		})
	})
}

func TestError(t *testing.T) {
	t.Run("reports the status of runners without an exec.ExitError", func(t *testing.T) {
		err := &process.Error{Command: "git push", Err: process.ExitStatusError(128)}
		require.Equal(t, 128, err.ExitCode())
		require.Equal(t, `"git push" failed: exit status 128`, err.Error())
	})
}
