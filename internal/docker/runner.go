package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"
	"github.com/ryanmoran/scriptrepository/internal"
	"github.com/ryanmoran/scriptrepository/internal/process"
	"golang.org/x/sync/errgroup"
)

// Runner implements process.Runner on top of the Docker API.
type Runner struct {
	client  DockerClient
	image   string
	volumes []string
	user    string
	writer  internal.Writer
}

// Run executes name with args in a new container whose working directory is
// dir, waits for it to exit and returns everything it wrote. The container is
// always removed afterwards. Any failure is reported as a *process.Error; a
// non-zero exit status carries a process.ExitStatusError.
func (r Runner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	command := process.CommandLine(name, args...)

	created, err := r.client.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config: &container.Config{
			Image:        r.image,
			Entrypoint:   []string{name},
			Cmd:          args,
			Tty:          true,
			AttachStdout: true,
			AttachStderr: true,
			Env:          []string{"GIT_TERMINAL_PROMPT=0"},
			WorkingDir:   dir,
			User:         r.user,
		},
		HostConfig: &container.HostConfig{
			Binds: append([]string{dir + ":" + dir}, r.volumes...),
		},
	})
	if err != nil {
		return "", &process.Error{
			Command: command,
			Err:     fmt.Errorf("failed to create container from image %q: %w\nEnsure the image exists and the docker daemon is reachable", r.image, err),
		}
	}

	defer func() {
		_, err := r.client.ContainerRemove(context.WithoutCancel(ctx), created.ID, client.ContainerRemoveOptions{
			Force: true,
		})
		if err != nil {
			r.writer.Warningf("failed to remove container %q: %v", created.ID, err)
		}
	}()

	attached, err := r.client.ContainerAttach(ctx, created.ID, client.ContainerAttachOptions{
		Stream: true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return "", &process.Error{
			Command: command,
			Err:     fmt.Errorf("failed to attach to container %q: %w\nContainer may have exited prematurely or Docker API is unreachable", created.ID, err),
		}
	}
	defer attached.Conn.Close()

	var (
		buffer bytes.Buffer
		g      errgroup.Group
	)

	g.Go(func() error {
		_, err := io.Copy(&buffer, attached.Reader)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read output of container %q: %w", created.ID, err)
		}
		return nil
	})

	output := func() string {
		attached.Conn.Close()
		_ = g.Wait()
		return strings.ReplaceAll(buffer.String(), "\r\n", "\n")
	}

	_, err = r.client.ContainerStart(ctx, created.ID, client.ContainerStartOptions{})
	if err != nil {
		out := output()
		return out, &process.Error{
			Command: command,
			Output:  out,
			Err:     fmt.Errorf("failed to start container %q: %w\nContainer may be misconfigured or Docker daemon may be unhealthy", created.ID, err),
		}
	}

	wait := r.client.ContainerWait(ctx, created.ID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})

	select {
	case err := <-wait.Error:
		if err != nil {
			out := output()
			return out, &process.Error{
				Command: command,
				Output:  out,
				Err:     fmt.Errorf("failed to wait for container %q: %w\nDocker daemon may have encountered an error", created.ID, err),
			}
		}
		return output(), nil

	case status := <-wait.Result:
		if err := g.Wait(); err != nil {
			out := output()
			return out, &process.Error{Command: command, Output: out, Err: err}
		}

		out := output()
		if status.StatusCode != 0 {
			return out, &process.Error{
				Command: command,
				Output:  out,
				Err:     process.ExitStatusError(status.StatusCode),
			}
		}

		return out, nil
	}
}
