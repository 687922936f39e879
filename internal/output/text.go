package output

import "strings"

type TextGenerator struct {
	report Report
}

func NewTextGenerator(r Report) *TextGenerator {
	return &TextGenerator{report: r}
}

// Generate writes a header line followed by one dependency per line.
func (t *TextGenerator) Generate() (string, error) {
	var buf strings.Builder
	buf.WriteString("Dependencies of package " + string(t.report.Package) + ":\n")
	for _, dep := range t.report.sorted() {
		buf.WriteString(string(dep))
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}
