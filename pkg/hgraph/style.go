package hgraph

import (
	"slices"
	"strings"
)

// Semantic edge tags emitted by the dataflow producer.
const (
	TagUnbounded  = "Unbounded"
	TagBounded    = "Bounded"
	TagNoOrder    = "NoOrder"
	TagTotalOrder = "TotalOrder"
	TagKeyed      = "Keyed"
	TagNotKeyed   = "NotKeyed"
	TagNetwork    = "Network"
	TagLocal      = "Local"
)

// Priorities lists mutually exclusive tag pairs, winner first. When a merged
// style carries both tags of a pair, the loser is dropped.
var Priorities = [][2]string{
	{TagUnbounded, TagBounded},
	{TagNoOrder, TagTotalOrder},
	{TagKeyed, TagNotKeyed},
	{TagNetwork, TagLocal},
}

// ParseStyle splits a comma-separated style into its distinct, sorted tags.
// Empty segments are dropped.
func ParseStyle(style string) []string {
	var tags []string
	for _, t := range strings.Split(style, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	slices.Sort(tags)
	return slices.Compact(tags)
}

// MergeStyles combines the styles of edges aggregated into one hyperedge.
//
// The result is the union of all tags with every priority loser removed when
// its winner is present, sorted and comma-joined. A merged hyperedge is
// therefore drawn as its most demanding constituent: one unbounded stream
// makes the whole bundle unbounded, one network hop makes it a network edge.
// The rule is commutative and idempotent, so aggregation order never matters.
func MergeStyles(styles ...string) string {
	set := make(map[string]struct{})
	for _, s := range styles {
		for _, t := range ParseStyle(s) {
			set[t] = struct{}{}
		}
	}
	for _, p := range Priorities {
		if _, ok := set[p[0]]; ok {
			delete(set, p[1])
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	return strings.Join(tags, ",")
}
