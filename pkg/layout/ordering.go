package layout

import (
	"cmp"
	"slices"
)

// orderLayers reorders the members of each layer to reduce edge crossings
// between adjacent layers. It alternates downward and upward barycenter
// sweeps and returns the ordering with the fewest crossings seen. Layers
// are modified in place.
func orderLayers(layers [][]string, edges [][2]string, sweeps int) [][]string {
	if len(layers) < 2 {
		return layers
	}
	succ := make(map[string][]string)
	pred := make(map[string][]string)
	for _, e := range edges {
		succ[e[0]] = append(succ[e[0]], e[1])
		pred[e[1]] = append(pred[e[1]], e[0])
	}

	best := cloneLayers(layers)
	bestCount := countCrossings(layers, succ)
	for s := 0; s < sweeps && bestCount > 0; s++ {
		if s%2 == 0 {
			for i := 1; i < len(layers); i++ {
				sortByBarycenter(layers[i], posMap(layers[i-1]), pred)
			}
		} else {
			for i := len(layers) - 2; i >= 0; i-- {
				sortByBarycenter(layers[i], posMap(layers[i+1]), succ)
			}
		}
		if n := countCrossings(layers, succ); n < bestCount {
			best, bestCount = cloneLayers(layers), n
		}
	}
	return best
}

// sortByBarycenter orders layer by the mean position of each member's
// neighbors in the adjacent layer. Members without such neighbors keep
// their current position as key.
func sortByBarycenter(layer []string, adjPos map[string]int, nbrs map[string][]string) {
	key := make(map[string]float64, len(layer))
	for i, id := range layer {
		sum, n := 0, 0
		for _, nb := range nbrs[id] {
			if p, ok := adjPos[nb]; ok {
				sum += p
				n++
			}
		}
		if n == 0 {
			key[id] = float64(i)
		} else {
			key[id] = float64(sum) / float64(n)
		}
	}
	slices.SortStableFunc(layer, func(a, b string) int {
		return cmp.Compare(key[a], key[b])
	})
}

// countCrossings sums the crossings between consecutive layers. Edges that
// skip layers are not counted.
func countCrossings(layers [][]string, succ map[string][]string) int {
	total := 0
	for i := 0; i+1 < len(layers); i++ {
		total += layerCrossings(layers[i], layers[i+1], succ)
	}
	return total
}

// layerCrossings counts crossings between two adjacent layers. Two edges
// (u1,v1) and (u2,v2) cross iff pos(u1) < pos(u2) and pos(v1) > pos(v2),
// so the count is the number of inversions in the target positions once
// edges are sorted by source; a Fenwick tree counts them in O(E log V).
func layerCrossings(upper, lower []string, succ map[string][]string) int {
	if len(upper) == 0 || len(lower) == 0 {
		return 0
	}
	lowerPos := posMap(lower)

	type edge struct{ upper, lower int }
	var edges []edge
	for i, id := range upper {
		for _, t := range succ[id] {
			if p, ok := lowerPos[t]; ok {
				edges = append(edges, edge{i, p})
			}
		}
	}
	if len(edges) < 2 {
		return 0
	}
	slices.SortFunc(edges, func(a, b edge) int {
		if a.upper != b.upper {
			return a.upper - b.upper
		}
		return a.lower - b.lower
	})

	fenwick := make([]int, len(lower)+1)
	crossings, seen := 0, 0
	for _, e := range edges {
		lessOrEqual := 0
		for q := e.lower + 1; q > 0; q -= q & (-q) {
			lessOrEqual += fenwick[q]
		}
		crossings += seen - lessOrEqual
		seen++
		for q := e.lower + 1; q < len(fenwick); q += q & (-q) {
			fenwick[q]++
		}
	}
	return crossings
}

func posMap(ids []string) map[string]int {
	m := make(map[string]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}

func cloneLayers(layers [][]string) [][]string {
	out := make([][]string, len(layers))
	for i, l := range layers {
		out[i] = slices.Clone(l)
	}
	return out
}
