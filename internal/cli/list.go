package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cbout22/ghdir/internal/config"
)

const defaultListLimit = 50

// newListCmd creates the `list` command.
// Usage: ghdir list <url> [--limit N]
func newListCmd(e env, g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list <url>",
		Short: "Show the files a download would fetch, without downloading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.settings(cmd)
			if err != nil {
				return err
			}
			return runListWith(cmd.Context(), e, args[0], s, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", defaultListLimit, "maximum files to print (0 for all)")
	return cmd
}

// runListWith is the testable core of the list command.
func runListWith(ctx context.Context, e env, rawURL string, s config.Settings, limit int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p := newPipeline(ctx, e, s)
	pr := newPrinter(e.out, s.Plain)

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

	var total int64
	for i, f := range files {
		total += f.Size
		if limit > 0 && i >= limit {
			continue
		}
		pr.info(fmt.Sprintf("  %s (%s)", f.RelativeTo(ref), formatSize(f.Size)))
	}
	if limit > 0 && len(files) > limit {
		pr.info(fmt.Sprintf("  ... and %d more", len(files)-limit))
	}

	pr.summary(
		ref.String(),
		fmt.Sprintf("%d files, %s total", len(files), formatSize(total)),
	)
	return nil
}
