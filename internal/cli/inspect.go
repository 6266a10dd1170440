package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowscope/pkg/hgraph"
	graphio "github.com/matzehuels/flowscope/pkg/io"
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		view  viewOpts
		edges bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [graph.json]",
		Short: "Show statistics, hierarchy and visible edges of a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], view, edges)
		},
	}

	view.register(cmd.Flags())
	cmd.Flags().BoolVar(&edges, "edges", false, "list visible edges and hyperedges")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, input string, view viewOpts, edges bool) error {
	if f, err := os.Open(input); err == nil {
		choices, err := graphio.Hierarchies(f)
		f.Close()
		if err == nil && len(choices) > 0 {
			printKeyValue("hierarchies", strings.Join(choices, ", "))
		}
	}

	sess, err := c.openSession(ctx, input, view, 0)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.LastError(); err != nil {
		printWarning("last layout failed: %v", err)
	}
	st := sess.Stats()
	fmt.Println(StyleTitle.Render(input))
	printKeyValue("nodes", strconv.Itoa(st.Nodes))
	printKeyValue("edges", strconv.Itoa(st.Edges))
	printKeyValue("containers", fmt.Sprintf("%d (%d collapsed)", st.Containers, st.Collapsed))
	printKeyValue("visible", fmt.Sprintf("%d nodes, %d containers", st.VisibleNodes, st.VisibleContainers))
	printKeyValue("edges shown", fmt.Sprintf("%d plain, %d hyper", st.VisiblePlain, st.VisibleHyper))
	printKeyValue("aggregated", strconv.Itoa(st.Aggregated))
	printKeyValue("engine", sess.Engine())
	printNewline()

	sess.View(func(g *hgraph.Graph) {
		for _, line := range treeLines(g) {
			fmt.Println(line.render(false))
		}
		if !edges {
			return
		}
		printNewline()
		for _, e := range g.VisibleEdges() {
			printEdge(e)
		}
	})
	return nil
}

func printEdge(e hgraph.EdgeView) {
	line := fmt.Sprintf("%s %s %s", e.Source, iconArrow, e.Target)
	if e.Kind == hgraph.KindHyper {
		line = StyleWarning.Render(line) + StyleDim.Render(fmt.Sprintf("  %s ×%d", e.ID, e.Count()))
	}
	if e.Style != "" {
		line += StyleDim.Render("  [" + e.Style + "]")
	}
	fmt.Println("  " + line)
}
