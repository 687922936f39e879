// # internal/engine/graph/detect.go
package graph

import "slices"

type cursor struct {
	id   PackageID
	next int
}

// DetectCycles lists the elementary cycles found by a depth-first sweep over
// every declared node. Each cycle starts at the node that closed it and does
// not repeat it at the end. Nodes are visited in sorted order.
func (g *Graph) DetectCycles() [][]PackageID {
	var cycles [][]PackageID
	visited := make(map[PackageID]bool)
	onStack := make(map[PackageID]bool)

	for _, id := range g.Nodes() {
		if !visited[id] {
			g.findCycles(id, visited, onStack, &cycles)
		}
	}

	return cycles
}

func (g *Graph) findCycles(start PackageID, visited, onStack map[PackageID]bool, cycles *[][]PackageID) {
	visited[start] = true
	onStack[start] = true
	stack := []cursor{{id: start}}
	path := []PackageID{start}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		deps := g.adjacency[top.id]
		if top.next >= len(deps) {
			onStack[top.id] = false
			stack = stack[:len(stack)-1]
			path = path[:len(path)-1]
			continue
		}

		next := deps[top.next]
		top.next++

		if onStack[next] {
			if idx := slices.Index(path, next); idx >= 0 {
				*cycles = append(*cycles, slices.Clone(path[idx:]))
			}
			continue
		}
		if visited[next] {
			continue
		}

		visited[next] = true
		onStack[next] = true
		stack = append(stack, cursor{id: next})
		path = append(path, next)
	}
}

// FindChain returns the shortest dependency chain from one package to
// another, inclusive of both ends. The target may be an undeclared leaf.
func (g *Graph) FindChain(from, to PackageID) ([]PackageID, bool) {
	if !g.Contains(from) {
		return nil, false
	}
	if from == to {
		return []PackageID{from}, true
	}

	queue := []PackageID{from}
	visited := map[PackageID]bool{from: true}
	prev := make(map[PackageID]PackageID)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range g.adjacency[curr] {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []PackageID{to}
				for node := to; node != from; {
					p, ok := prev[node]
					if !ok {
						return nil, false
					}
					path = append(path, p)
					node = p
				}
				slices.Reverse(path)
				return path, true
			}

			queue = append(queue, next)
		}
	}

	return nil, false
}
