package history

import (
	"fmt"
	"sort"
	"time"
)

// DriftPoint compares one run against the previous successful run.
type DriftPoint struct {
	RunID      string
	Timestamp  time.Time
	CommitHash string
	Outcome    string
	Count      int
	Delta      int
	Added      []string
	Removed    []string
}

type DriftReport struct {
	Package string
	Since   time.Time
	Until   time.Time
	Runs    int
	Points  []DriftPoint
}

// BuildDriftReport walks runs oldest first. Failed runs appear with their
// outcome but do not move the baseline.
func BuildDriftReport(pkg string, runs []Resolution) (DriftReport, error) {
	if len(runs) == 0 {
		return DriftReport{}, fmt.Errorf("no resolutions recorded for %q", pkg)
	}

	points := make([]DriftPoint, 0, len(runs))
	var baseline []string
	haveBaseline := false
	for _, run := range runs {
		point := DriftPoint{
			RunID:      run.RunID,
			Timestamp:  run.Timestamp,
			CommitHash: run.CommitHash,
			Outcome:    run.Outcome,
			Count:      len(run.Dependencies),
		}
		if run.Outcome == OutcomeOK {
			if haveBaseline {
				point.Added, point.Removed = diffSorted(baseline, run.Dependencies)
				point.Delta = len(run.Dependencies) - len(baseline)
			}
			baseline = run.Dependencies
			haveBaseline = true
		}
		points = append(points, point)
	}

	return DriftReport{
		Package: pkg,
		Since:   runs[0].Timestamp,
		Until:   runs[len(runs)-1].Timestamp,
		Runs:    len(points),
		Points:  points,
	}, nil
}

func diffSorted(before, after []string) (added, removed []string) {
	old := make(map[string]bool, len(before))
	for _, dep := range before {
		old[dep] = true
	}
	cur := make(map[string]bool, len(after))
	for _, dep := range after {
		cur[dep] = true
		if !old[dep] {
			added = append(added, dep)
		}
	}
	for _, dep := range before {
		if !cur[dep] {
			removed = append(removed, dep)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
