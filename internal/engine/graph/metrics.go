package graph

import "sort"

type NodeMetrics struct {
	ID     PackageID
	FanIn  int // distinct declared packages that depend on ID
	FanOut int // distinct direct dependencies of ID
	Leaf   bool
}

// ComputeNodeMetrics covers declared keys and leaf-only targets alike.
func (g *Graph) ComputeNodeMetrics() map[PackageID]NodeMetrics {
	out := make(map[PackageID]NodeMetrics, g.Len())
	for _, id := range g.Nodes() {
		seen := make(map[PackageID]bool, len(g.adjacency[id]))
		for _, dep := range g.adjacency[id] {
			if seen[dep] {
				continue
			}
			seen[dep] = true

			m := out[dep]
			m.ID = dep
			m.FanIn++
			out[dep] = m
		}

		m := out[id]
		m.ID = id
		m.FanOut = len(seen)
		out[id] = m
	}

	for id, m := range out {
		m.Leaf = m.FanOut == 0
		out[id] = m
	}
	return out
}

// TopFanIn returns the n most depended-on packages, ties broken by name.
func (g *Graph) TopFanIn(n int) []NodeMetrics {
	if n <= 0 {
		return nil
	}

	all := g.ComputeNodeMetrics()
	ranked := make([]NodeMetrics, 0, len(all))
	for _, m := range all {
		if m.FanIn > 0 {
			ranked = append(ranked, m)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].FanIn == ranked[j].FanIn {
			return ranked[i].ID < ranked[j].ID
		}
		return ranked[i].FanIn > ranked[j].FanIn
	})

	if len(ranked) > n {
		return ranked[:n]
	}
	return ranked
}
