package cli

import (
	"github.com/spf13/cobra"

	"github.com/cbout22/ghdir/internal/auth"
	"github.com/cbout22/ghdir/internal/config"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath  string
	token       string
	concurrency int
	retries     int
	debug       bool
	plain       bool
	logFormat   string
}

func (g *globalFlags) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&g.configPath, "config", "", "path to config.toml (default: user config dir)")
	f.StringVarP(&g.token, "token", "t", "", "GitHub personal access token")
	f.IntVarP(&g.concurrency, "concurrency", "c", config.DefaultConcurrency, "maximum parallel downloads")
	f.IntVarP(&g.retries, "retries", "r", config.DefaultRetries, "retries per file")
	f.BoolVarP(&g.debug, "debug", "d", false, "enable debug logging")
	f.BoolVarP(&g.plain, "plain", "p", false, "plain output without boxes")
	f.StringVar(&g.logFormat, "log-format", "", "log format: text or json")
}

// settings merges the config file with the flags the user actually set.
// Precedence is flag, then config file, then environment, then default.
func (g *globalFlags) settings(cmd *cobra.Command) (config.Settings, error) {
	path := g.configPath
	if path == "" {
		path = config.DefaultSettingsPath()
	}
	s, err := config.LoadSettings(path)
	if err != nil {
		return s, err
	}

	flags := cmd.Flags()
	if flags.Changed("concurrency") {
		s.Concurrency = g.concurrency
	}
	if flags.Changed("retries") {
		s.Retries = g.retries
	}
	if flags.Changed("debug") {
		s.Debug = g.debug
	}
	if flags.Changed("plain") {
		s.Plain = g.plain
	}
	if flags.Changed("log-format") {
		s.LogFormat = g.logFormat
	}
	s.Token = auth.ResolveToken(g.token, s.Token)

	return s, s.Validate()
}

// downloadFlags configure where and how files are written. Downloads merge
// into an existing output directory, so there is no --force here.
type downloadFlags struct {
	output string
	zip    bool
	yes    bool
}

func (d *downloadFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&d.output, "output", "o", config.DefaultOutput, "output directory or .zip file")
	f.BoolVarP(&d.zip, "zip", "z", false, "save as a zip archive instead of loose files")
	f.BoolVarP(&d.yes, "yes", "y", false, "skip the confirmation prompt")
}

func (d *downloadFlags) options(cmd *cobra.Command, s config.Settings) runOptions {
	if cmd.Flags().Changed("output") {
		s.Output = d.output
	}
	return runOptions{Settings: s, Zip: d.zip, Yes: d.yes}
}
