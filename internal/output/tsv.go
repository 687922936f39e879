package output

import (
	"fmt"
	"strings"
)

type TSVGenerator struct {
	report Report
}

func NewTSVGenerator(r Report) *TSVGenerator {
	return &TSVGenerator{report: r}
}

func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("Package\tDependency\tDirect\n")

	direct := t.report.direct()
	for _, dep := range t.report.sorted() {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%t\n", t.report.Package, dep, direct[dep]))
	}

	return buf.String(), nil
}
