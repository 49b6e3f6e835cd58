package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ryanmoran/scriptrepository/internal"
	"github.com/ryanmoran/scriptrepository/internal/docker"
	"github.com/ryanmoran/scriptrepository/internal/git"
	"github.com/ryanmoran/scriptrepository/internal/process"
	"github.com/ryanmoran/scriptrepository/internal/publish"
	"github.com/ryanmoran/scriptrepository/internal/server"
	"github.com/spf13/cobra"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCommand(options *globalOptions, env []string, w internal.Writer) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the publishing endpoint",
		Long: `Run the publishing endpoint. The working copies named by
SCRIPT_REPOSITORY_PATH and SCRIPT_REPOSITORY_PATH_DEBUG must already be clones
of the remote, and the service user must be allowed to push to it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := internal.LoadConfig(options.configFile, env)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("address") {
				config.Server.Address = address
			}

			return serve(cmd.Context(), config, w)
		},
	}

	cmd.Flags().StringVar(&address, "address", internal.DefaultAddress, "address to listen on")

	return cmd
}

func serve(ctx context.Context, config internal.Config, w internal.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanup := internal.NewCleanupManager(w)
	defer cleanup.Execute()

	runner, err := newRunner(ctx, config, cleanup, w)
	if err != nil {
		return err
	}

	service := publish.NewService(config, runner, publish.Options{
		Remote: config.Repository.Remote,
		Branch: config.Repository.Branch,
		Committer: git.Identity{
			Name:  config.Committer.Name,
			Email: config.Committer.Email,
		},
	}, w)

	mux := http.NewServeMux()
	mux.Handle("/", server.NewHandler(service, w))

	if config.Mirror.Enabled {
		if config.Repository.Path == "" {
			w.Warningf("mirror is enabled but SCRIPT_REPOSITORY_PATH is not set, not serving /git/")
		} else {
			mirror, err := git.NewMirror(config.Repository.Path, internal.WithPrefix(w, "mirror"))
			if err != nil {
				return fmt.Errorf("failed to start the repository mirror: %w", err)
			}
			mux.Handle("/git/", http.StripPrefix("/git", mirror))
		}
	}

	listener, err := net.Listen("tcp", config.Server.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w\nCheck that the address is free or choose another with --address", config.Server.Address, err)
	}

	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	cleanup.Add("http-server", func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	errs := make(chan error, 1)
	go func() {
		errs <- httpServer.Serve(listener)
	}()

	w.Printf("listening on %s\n", listener.Addr())
	if config.Mirror.Enabled && config.Repository.Path != "" {
		w.Printf("mirroring %s at http://%s/git/.git\n", config.Repository.Path, listener.Addr())
	}

	select {
	case <-ctx.Done():
		w.Println("shutting down")
		return nil
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve on %s: %w", listener.Addr(), err)
	}
}

func newRunner(ctx context.Context, config internal.Config, cleanup *internal.CleanupManager, w internal.Writer) (process.Runner, error) {
	if config.Runner.Kind != internal.DockerRunner {
		return process.NewExecRunner("GIT_TERMINAL_PROMPT=0"), nil
	}

	client, err := docker.NewDefaultClient()
	if err != nil {
		return nil, err
	}
	cleanup.Add("docker-client", client.Close)

	version, err := client.Ping(ctx)
	if err != nil {
		return nil, err
	}
	w.Printf("running git in %s containers (docker API %s)\n", config.Runner.Image, version)

	return client.Runner(config.Runner.Image, config.Runner.Volumes, w), nil
}
