package cli

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ryanmoran/scriptrepository/internal"
	"github.com/ryanmoran/scriptrepository/internal/client"
	"github.com/ryanmoran/scriptrepository/internal/request"
	"github.com/spf13/cobra"
)

type submitOptions struct {
	author   string
	mail     string
	comment  string
	endpoint string
	debug    bool
}

func (o *submitOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.author, "author", "", "name recorded as the author (default is client.author from the config)")
	cmd.Flags().StringVar(&o.mail, "mail", "", "email recorded for the author (default is client.mail from the config)")
	cmd.Flags().StringVarP(&o.comment, "comment", "m", "", "description of the change")
	cmd.Flags().StringVar(&o.endpoint, "endpoint", "", "address of the publishing endpoint (default is client.endpoint from the config)")
	cmd.Flags().BoolVar(&o.debug, "debug", false, "submit to the sandbox repository")
}

// resolve fills unset flags from the configuration.
func (o submitOptions) resolve(options *globalOptions, env []string) (client.Client, client.Submitter, error) {
	config, err := internal.LoadConfig(options.configFile, env)
	if err != nil {
		return client.Client{}, client.Submitter{}, err
	}

	submitter := client.Submitter{
		Author:  firstSet(o.author, config.Client.Author),
		Mail:    firstSet(o.mail, config.Client.Mail),
		Comment: o.comment,
	}

	return client.New(firstSet(o.endpoint, config.Client.Endpoint)), submitter, nil
}

func firstSet(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}

func newPublishCommand(options *globalOptions, env []string, w internal.Writer) *cobra.Command {
	var (
		submit submitOptions
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "publish FILE",
		Short: "Upload a script to the repository",
		Long: `Upload FILE into the repository folder given by --path. An existing script
with the same name is replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			info, err := os.Stat(file)
			if err != nil {
				return fmt.Errorf("failed to read %q: %w\nCheck that the file exists and is readable", file, err)
			}

			printer := numberPrinter()
			if info.Size() > request.MaxFileSize {
				return errors.New(printer.Sprintf("%s is %d bytes, larger than the maximum of %d bytes", file, info.Size(), request.MaxFileSize))
			}

			if !strings.HasPrefix(dir, "./") {
				dir = "./" + strings.TrimPrefix(dir, "/")
			}

			c, submitter, err := submit.resolve(options, env)
			if err != nil {
				return err
			}

			response, err := c.Upload(submitter, dir, file, submit.debug)
			if err != nil {
				return err
			}

			target := path.Join(dir, filepath.Base(file))
			w.Printf("%s", printer.Sprintf("Published %s (%d bytes) on %s\n", target, info.Size(), response.PublishedDate))
			return nil
		},
	}

	submit.register(cmd)
	cmd.Flags().StringVar(&dir, "path", "./", "repository folder to publish into, relative to the root")

	return cmd
}

func newRemoveCommand(options *globalOptions, env []string, w internal.Writer) *cobra.Command {
	var submit submitOptions

	cmd := &cobra.Command{
		Use:   "remove PATH",
		Short: "Remove a script from the repository",
		Long: `Remove the script at PATH, relative to the repository root. Only the author of
the last change to the script may remove it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, submitter, err := submit.resolve(options, env)
			if err != nil {
				return err
			}

			if _, err := c.Remove(submitter, args[0], submit.debug); err != nil {
				return err
			}

			w.Printf("Removed %s\n", args[0])
			return nil
		},
	}

	submit.register(cmd)

	return cmd
}
