package layout

import (
	"cmp"
	"slices"

	"github.com/matzehuels/flowscope/pkg/hgraph"
)

// CollapsePolicy picks containers to collapse before a first layout.
type CollapsePolicy interface {
	Select(g *hgraph.Graph) []string
}

// DefaultViewportBudget is the area of a 1920x1080 viewport.
const DefaultViewportBudget = 1920 * 1080

// SmartCollapse collapses the largest expanded top-level containers until
// the estimated area of the top level fits Budget.
type SmartCollapse struct {
	Budget float64
}

// Select implements CollapsePolicy. Candidates are ordered by area, largest
// first, ties broken by id.
func (p SmartCollapse) Select(g *hgraph.Graph) []string {
	budget := p.Budget
	if budget <= 0 {
		budget = DefaultViewportBudget
	}
	consts := g.Constants()

	type candidate struct {
		id   string
		area float64
	}
	var total float64
	var candidates []candidate
	for _, id := range g.Roots() {
		if c, ok := g.Container(id); ok {
			if c.Hidden {
				continue
			}
			if c.Collapsed {
				total += area(consts.Collapsed())
				continue
			}
			size, ok := g.ExpandedSize(id)
			if !ok {
				size, _ = g.AdjustedSize(id)
			}
			total += area(size)
			candidates = append(candidates, candidate{id, area(size)})
			continue
		}
		if g.IsNodeVisible(id) {
			total += area(consts.Node())
		}
	}

	slices.SortFunc(candidates, func(a, b candidate) int {
		if c := cmp.Compare(b.area, a.area); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	saved := area(consts.Collapsed())
	var out []string
	for _, c := range candidates {
		if total <= budget {
			break
		}
		out = append(out, c.id)
		total -= c.area - saved
	}
	return out
}

func area(s hgraph.Size) float64 { return s.Width * s.Height }

// ApplyPolicy collapses the containers selected by p and returns them.
func ApplyPolicy(g *hgraph.Graph, p CollapsePolicy) ([]string, error) {
	ids := p.Select(g)
	for _, id := range ids {
		if err := g.CollapseContainer(id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
