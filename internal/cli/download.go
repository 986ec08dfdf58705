package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbout22/ghdir/internal/config"
	"github.com/cbout22/ghdir/internal/orchestrator"
	"github.com/cbout22/ghdir/internal/store"
)

// runOptions is the effective configuration of one download or clone.
type runOptions struct {
	config.Settings
	Zip bool
	Yes bool // skip the confirmation prompt
	// Clone writes into Dest (default: the directory's own name) and
	// requires it to be empty unless Force is set.
	Clone bool
	Dest  string
	Force bool
}

// newDownloadCmd creates the `download` command.
// Usage: ghdir download <url> [-o dir|file.zip] [-z] [-y]
func newDownloadCmd(e env, g *globalFlags) *cobra.Command {
	d := &downloadFlags{}
	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download a repository directory into a folder or zip file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.settings(cmd)
			if err != nil {
				return err
			}
			return runDownloadWith(cmd.Context(), e, args[0], d.options(cmd, s))
		},
	}
	d.register(cmd)
	return cmd
}

// newCloneCmd creates the `clone` command.
// Usage: ghdir clone <url> [destination] [-f] [-y]
func newCloneCmd(e env, g *globalFlags) *cobra.Command {
	var force, yes bool
	cmd := &cobra.Command{
		Use:   "clone <url> [destination]",
		Short: "Copy a repository directory into a new local folder",
		Long: `Downloads the directory into destination, which defaults to the
directory's own name. The destination must be empty unless --force is given.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.settings(cmd)
			if err != nil {
				return err
			}
			opts := runOptions{Settings: s, Yes: yes, Clone: true, Force: force}
			if len(args) == 2 {
				opts.Dest = args[1]
			}
			return runDownloadWith(cmd.Context(), e, args[0], opts)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "write into a non-empty destination")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// runDownloadWith is the testable core of download and clone.
func runDownloadWith(ctx context.Context, e env, rawURL string, opts runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p := newPipeline(ctx, e, opts.Settings)
	pr := newPrinter(e.out, opts.Plain)

	ref, err := p.resolve(ctx, rawURL)
	if err != nil {
		return err
	}

	files, err := p.lister.List(ctx, ref)
	if err != nil {
		return fmt.Errorf("listing %s: %w", ref.Directory, err)
	}
	if len(files) == 0 {
		pr.info("No files to download")
		return nil
	}

	if !opts.Yes && e.in != nil {
		var total int64
		for _, f := range files {
			total += f.Size
		}
		q := fmt.Sprintf("Download %d files (%s) from %s?", len(files), formatSize(total), ref)
		ok, err := confirm(e.in, e.out, q)
		if err != nil {
			return err
		}
		if !ok {
			pr.info("Aborting.")
			return nil
		}
	}

	sink, location, err := openSink(e, ref, opts)
	if err != nil {
		return err
	}

	pr.info(fmt.Sprintf("Downloading %d files from %s", len(files), ref))

	summary, err := p.orchestrator.DownloadAll(ctx, ref, files, orchestrator.Options{
		Concurrency: opts.Concurrency,
		Token:       p.token,
		Progress:    pr.progress,
		Sink:        sink,
	})
	if err != nil {
		if a, ok := sink.(interface{ Abort() error }); ok {
			_ = a.Abort()
		}
		return fmt.Errorf("download aborted: %w", err)
	}
	if err := sink.Close(); err != nil {
		return err
	}

	if abs, aerr := filepath.Abs(location); aerr == nil {
		location = abs
	}
	pr.summary(
		fmt.Sprintf("Downloaded %d/%d files", summary.Succeeded, len(files)),
		"Location: "+location,
	)

	if summary.Failed > 0 {
		for _, r := range summary.Failures() {
			pr.failure(r.File.RelativeTo(ref), r.Err)
		}
		return fmt.Errorf("%d file(s) failed to download", summary.Failed)
	}
	return nil
}

// confirm asks question on out and reads one answer line from in. An empty
// answer, or end of input, accepts.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [Y/n] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// openSink picks the zip or disk sink and checks the destination.
func openSink(e env, ref config.RepoRef, opts runOptions) (store.Sink, string, error) {
	if opts.Zip {
		target := store.ZipName(opts.Output, ref)
		zw, err := store.NewZipWriter(e.fs, target, ref.DirPrefix())
		if err != nil {
			return nil, "", err
		}
		return zw, zw.Path(), nil
	}

	// Downloads merge into the output directory; clones need an empty one.
	dest := opts.Output
	force := true
	if opts.Clone {
		dest = opts.Dest
		if dest == "" {
			dest = store.DefaultCloneDir(ref)
		}
		force = opts.Force
	}
	if err := store.PrepareDestination(e.fs, dest, force); err != nil {
		return nil, "", err
	}
	return &store.DiskWriter{Fs: e.fs, Root: dest, Prefix: ref.DirPrefix()}, dest, nil
}
