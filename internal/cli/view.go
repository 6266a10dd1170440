package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/matzehuels/flowscope/pkg/errors"
	graphio "github.com/matzehuels/flowscope/pkg/io"
	"github.com/matzehuels/flowscope/pkg/session"
)

// viewOpts are the flags shared by commands that open a graph document.
type viewOpts struct {
	hierarchy   string
	engine      string
	direction   string
	collapse    []string
	collapseAll bool
	smart       bool
	noCache     bool
}

func (o *viewOpts) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.hierarchy, "hierarchy", "", "hierarchy choice to group nodes by (default: the document's selection)")
	fs.StringVarP(&o.engine, "engine", "e", "", "layout engine: layered, graphviz (default from config)")
	fs.StringVar(&o.direction, "direction", "", "flow direction: TB, LR (default from config)")
	fs.StringSliceVarP(&o.collapse, "collapse", "c", nil, "container ids to collapse (comma-separated)")
	fs.BoolVar(&o.collapseAll, "collapse-all", false, "collapse every container")
	fs.BoolVar(&o.smart, "smart", false, "collapse the largest containers until the graph fits the viewport budget")
	fs.BoolVar(&o.noCache, "no-cache", false, "disable the layout cache")
}

// openSession loads path and prepares a session with the requested
// collapse state applied. Layouts run synchronously unless debounce > 0.
func (c *CLI) openSession(ctx context.Context, path string, o viewOpts, debounce time.Duration) (*session.Session, error) {
	logger := loggerFromContext(ctx)
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if o.engine != "" {
		cfg.Layout.Engine = o.engine
	}
	if o.direction != "" {
		cfg.Layout.Direction = o.direction
	}

	opts := []graphio.Option{graphio.WithConstants(cfg.Constants)}
	if o.hierarchy != "" {
		opts = append(opts, graphio.WithHierarchy(o.hierarchy))
	}
	g, err := graphio.ImportJSON(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid graph %s", path)
	}
	logger.Debugf("Loaded graph: %d nodes, %d edges, %d containers", g.NodeCount(), g.EdgeCount(), g.ContainerCount())

	engine, err := cfg.engine(o.noCache)
	if err != nil {
		return nil, err
	}
	sc := session.Config{Engine: engine, Debounce: -1, Logger: logger}
	if debounce > 0 {
		sc.Debounce = debounce
	}
	if o.smart {
		sc.Policy = cfg.policy()
	}

	sess, err := session.New(ctx, g, sc)
	if err != nil {
		return nil, err
	}
	if err := applyCollapse(ctx, sess, o); err != nil {
		sess.Close()
		return nil, err
	}
	sess.Flush()
	return sess, nil
}

func applyCollapse(ctx context.Context, sess *session.Session, o viewOpts) error {
	if o.collapseAll {
		return sess.CollapseAll(ctx)
	}
	for _, id := range o.collapse {
		if err := sess.Collapse(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
