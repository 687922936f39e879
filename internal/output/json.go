package output

import "encoding/json"

type JSONGenerator struct {
	report Report
}

func NewJSONGenerator(r Report) *JSONGenerator {
	return &JSONGenerator{report: r}
}

type jsonReport struct {
	Package      string              `json:"package"`
	Count        int                 `json:"count"`
	Direct       []string            `json:"direct"`
	Dependencies []string            `json:"dependencies"`
	Edges        map[string][]string `json:"edges,omitempty"`
}

func (j *JSONGenerator) Generate() (string, error) {
	r := j.report
	doc := jsonReport{
		Package:      string(r.Package),
		Count:        len(r.Dependencies),
		Direct:       []string{},
		Dependencies: make([]string, 0, len(r.Dependencies)),
	}

	direct := r.direct()
	for _, dep := range r.sorted() {
		doc.Dependencies = append(doc.Dependencies, string(dep))
		if direct[dep] {
			doc.Direct = append(doc.Direct, string(dep))
		}
	}

	if edges := r.edges(); len(edges) > 0 {
		doc.Edges = make(map[string][]string)
		for _, e := range edges {
			doc.Edges[string(e.from)] = append(doc.Edges[string(e.from)], string(e.to))
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
