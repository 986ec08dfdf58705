package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

// NewRootCmd creates the top-level `ghdir` command. Given a URL it behaves
// like `ghdir download`.
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultEnv())
}

func newRootCmd(e env) *cobra.Command {
	g := &globalFlags{}
	d := &downloadFlags{}

	root := &cobra.Command{
		Use:   "ghdir [url]",
		Short: "Download a single directory from a GitHub repository",
		Long: `ghdir downloads one directory of a GitHub repository, as loose files or
as a zip archive, without cloning the repository. Private repositories need a
token, read from --token, the config file, GITHUB_TOKEN or GH_TOKEN.`,
		Example: `  ghdir https://github.com/octo/proj/tree/main/src/lib
  ghdir download -z -o out/ https://github.com/octo/proj/tree/v2/docs
  ghdir clone https://github.com/octo/proj/tree/main/examples my-examples
  ghdir list https://github.com/octo/proj/tree/main/src`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			s, err := g.settings(cmd)
			if err != nil {
				return err
			}
			return runDownloadWith(cmd.Context(), e, args[0], d.options(cmd, s))
		},
	}

	g.register(root)
	d.register(root)

	root.AddCommand(newDownloadCmd(e, g))
	root.AddCommand(newCloneCmd(e, g))
	root.AddCommand(newListCmd(e, g))
	root.AddCommand(newConfigCmd(e, g))

	return root
}

// Execute runs the root command. SIGINT and SIGTERM cancel the running batch.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
