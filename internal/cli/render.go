package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowscope/pkg/render"
)

// renderOpts holds the flags of the render command.
type renderOpts struct {
	view    viewOpts
	output  string
	formats []string
	scale   float64
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{scale: 2}

	cmd := &cobra.Command{
		Use:   "render [graph.json]",
		Short: "Render the visible graph to SVG, PDF, PNG or JSON",
		Long: `Render a graph document with the requested containers collapsed.

Collapsed containers are drawn as boxes; edges that cross them are folded
into dashed hyperedges labeled with the number of edges they carry. The json
format writes the render output consumed by front-ends.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	opts.view.register(cmd.Flags())
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), json, pdf, png (comma-separated)")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")

	return cmd
}

// parseFormats splits the --format flag. An empty flag means svg.
func parseFormats(s string) []string {
	if s == "" {
		return []string{string(render.FormatSVG)}
	}
	return strings.Split(s, ",")
}

var validFormats = map[string]bool{
	string(render.FormatSVG):  true,
	string(render.FormatJSON): true,
	string(render.FormatPDF):  true,
	string(render.FormatPNG):  true,
}

func validateFormats(formats []string) error {
	for _, f := range formats {
		if !validFormats[f] {
			return fmt.Errorf("invalid format: %s (must be 'svg', 'json', 'pdf', or 'png')", f)
		}
	}
	return nil
}

// basePath derives the output path without extension. A known format
// extension on output is stripped.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if validFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// outputPath returns where format f is written.
func outputPath(opts renderOpts, input, f string) string {
	if len(opts.formats) == 1 && opts.output != "" {
		return opts.output
	}
	return basePath(opts.output, input) + "." + f
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	prog := newProgress(loggerFromContext(ctx))

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()
	sess, err := c.openSession(ctx, input, opts.view, 0)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	defer sess.Close()
	spinner.Stop()

	out := sess.Render()
	var written []string
	for _, f := range opts.formats {
		data, err := render.Encode(ctx, out, render.Format(f), opts.scale)
		if err != nil {
			return fmt.Errorf("render %s: %w", f, err)
		}
		path := outputPath(opts, input, f)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write output %s: %w", path, err)
		}
		written = append(written, path)
	}
	prog.done(fmt.Sprintf("Rendered %d elements", len(out.Elements)))

	printSuccess("Render complete")
	for _, p := range written {
		printFile(p)
	}
	printStats(sess.Stats())
	return nil
}
