package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		view    viewOpts
		output  string
		request bool
	)

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Lay out a graph document and save it with geometry",
		Long: `Lay out a graph document and save it with positions, sizes and the
measured sizes of expanded containers.

The output is a graph document that 'render', 'explore' and 'serve' accept;
it restores the collapse state without running a full layout again. With
--request, the layout request that would be sent to the engine is written
instead.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], view, output, request)
		},
	}

	view.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&request, "request", false, "write the layout request instead of the laid-out document")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input string, view viewOpts, output string, request bool) error {
	prog := newProgress(loggerFromContext(ctx))

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()
	sess, err := c.openSession(ctx, input, view, 0)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	defer sess.Close()
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	var data []byte
	if request {
		data, err = json.MarshalIndent(sess.LayoutRequest(), "", "  ")
	} else {
		data, err = sess.Snapshot()
	}
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	outputPath := output
	if outputPath == "" {
		suffix := ".layout.json"
		if request {
			suffix = ".request.json"
		}
		outputPath = strings.TrimSuffix(input, filepath.Ext(input)) + suffix
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}
	prog.done("Layout complete")

	printSuccess("Layout complete (%s)", sess.Engine())
	printFile(outputPath)
	printStats(sess.Stats())
	if !request {
		printNewline()
		printNextStep("Explore", appName+" explore "+outputPath)
	}
	return nil
}
