package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/cbout22/ghdir/internal/config"
)

// newConfigCmd creates the `config` command group.
func newConfigCmd(e env, g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the ghdir config file",
	}
	cmd.AddCommand(newConfigInitCmd(e, g))
	return cmd
}

// newConfigInitCmd creates `config init`.
// Usage: ghdir config init [--config path] [-c N] [-r N] [-f]
func newConfigInitCmd(e env, g *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective settings to the config file",
		Long: `Writes the current settings, including any flags given on this command
line, to --config or the default config path. The token is only written when
passed with --token. An existing file is kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.settings(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("token") {
				s.Token = ""
			}
			path := g.configPath
			if path == "" {
				path = config.DefaultSettingsPath()
			}
			return runConfigInit(e, path, s, force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")
	return cmd
}

// runConfigInit is the testable core of config init.
func runConfigInit(e env, path string, s config.Settings, force bool) error {
	if path == "" {
		return errors.New("no config directory known; pass --config")
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if err := s.Save(path); err != nil {
		return err
	}
	newPrinter(e.out, true).info("Wrote settings to " + path)
	return nil
}
