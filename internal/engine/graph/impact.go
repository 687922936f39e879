package graph

import (
	"sort"
)

type ImpactReport struct {
	Target               PackageID
	DirectDependents     []PackageID
	TransitiveDependents []PackageID
}

// AnalyzeImpact lists the declared packages that would be affected by a change
// to target: direct dependents first, then the packages that only reach it
// through them. Target may be a leaf that is not itself a key.
func (g *Graph) AnalyzeImpact(target PackageID) (ImpactReport, error) {
	dependents := g.reverseEdges()
	if !g.Contains(target) && len(dependents[target]) == 0 {
		return ImpactReport{}, &NotFoundError{ID: target}
	}

	report := ImpactReport{Target: target}

	direct := sortedKeys(dependents[target])
	report.DirectDependents = direct

	directSet := make(map[PackageID]bool, len(direct))
	for _, id := range direct {
		directSet[id] = true
	}

	queue := append([]PackageID(nil), direct...)
	seen := map[PackageID]bool{target: true}
	for _, id := range queue {
		seen[id] = true
	}

	transitive := make([]PackageID, 0)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, next := range sortedKeys(dependents[curr]) {
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
			if !directSet[next] {
				transitive = append(transitive, next)
			}
		}
	}
	sort.Slice(transitive, func(i, j int) bool { return transitive[i] < transitive[j] })
	report.TransitiveDependents = transitive

	return report, nil
}

func (g *Graph) reverseEdges() map[PackageID]map[PackageID]bool {
	rev := make(map[PackageID]map[PackageID]bool)
	if g == nil {
		return rev
	}
	for from, deps := range g.adjacency {
		for _, to := range deps {
			if rev[to] == nil {
				rev[to] = make(map[PackageID]bool)
			}
			rev[to][from] = true
		}
	}
	return rev
}

func sortedKeys(set map[PackageID]bool) []PackageID {
	out := make([]PackageID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
