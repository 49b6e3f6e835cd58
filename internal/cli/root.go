package cli

import (
	"io"

	"github.com/ryanmoran/scriptrepository/internal"
	"github.com/spf13/cobra"
	"golang.org/x/text/message"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=<v>".
var Version = "dev"

type globalOptions struct {
	configFile string
}

func numberPrinter() *message.Printer {
	return message.NewPrinter(message.MatchLanguage("en"))
}

// NewRootCommand returns the scriptrepository command. env holds KEY=VALUE
// entries that override configuration, normally os.Environ(). serve logs to
// stdout and stderr with timestamps; the other commands print plainly.
func NewRootCommand(env []string, stdout, stderr io.Writer) *cobra.Command {
	options := &globalOptions{}
	w := internal.NewCustomWriter(stdout, stderr)

	root := &cobra.Command{
		Use:   "scriptrepository",
		Short: "Publish scripts to a shared git repository over HTTP",
		Long: `scriptrepository accepts script uploads and removals as HTTP form posts and
publishes them to a shared git repository: every change is committed with the
submitter as author and pushed to the remote, or rolled back entirely.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&options.configFile, "config", "",
		"config file (default is $HOME/.scriptrepository/config.yaml)")

	root.AddCommand(
		newServeCommand(options, env, internal.NewLogWriter(stdout, stderr)),
		newPublishCommand(options, env, w),
		newRemoveCommand(options, env, w),
		newVersionCommand(w),
	)

	return root
}

func newVersionCommand(w internal.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of scriptrepository",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w.Printf("scriptrepository %s\n", Version)
		},
	}
}
