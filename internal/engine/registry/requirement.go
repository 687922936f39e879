package registry

import (
	"fmt"
	"regexp"
	"strings"
)

// Requirement is one parsed requires_dist entry, e.g.
//
//	requests[socks] >=2.0, <3 ; extra == "net"
type Requirement struct {
	Name      string
	Extras    []string
	Specifier string
	Marker    string
}

var (
	nameRe      = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)
	separatorRe = regexp.MustCompile(`[-_.]+`)
	extraRe     = regexp.MustCompile(`\bextra\s*==`)
)

// ParseRequirement parses the subset of PEP 508 that appears in registry
// metadata: a name, optional extras, an optional version specifier or
// direct reference, and an optional environment marker.
func ParseRequirement(s string) (Requirement, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Requirement{}, fmt.Errorf("empty requirement")
	}

	var req Requirement
	body := raw
	if before, marker, ok := strings.Cut(raw, ";"); ok {
		body = strings.TrimSpace(before)
		req.Marker = strings.TrimSpace(marker)
	}

	name := nameRe.FindString(body)
	if name == "" {
		return Requirement{}, fmt.Errorf("invalid requirement %q: missing name", raw)
	}
	req.Name = name
	rest := strings.TrimSpace(body[len(name):])

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return Requirement{}, fmt.Errorf("invalid requirement %q: unterminated extras", raw)
		}
		for _, extra := range strings.Split(rest[1:end], ",") {
			if extra = strings.TrimSpace(extra); extra != "" {
				req.Extras = append(req.Extras, extra)
			}
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}
	req.Specifier = rest

	return req, nil
}

// IsExtra reports whether the requirement only applies when an optional
// extra is requested.
func (r Requirement) IsExtra() bool {
	return extraRe.MatchString(r.Marker)
}

func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	if r.Specifier != "" {
		b.WriteString(" " + r.Specifier)
	}
	if r.Marker != "" {
		b.WriteString("; " + r.Marker)
	}
	return b.String()
}

// NormalizeName applies PEP 503 normalization: lower case, with runs of
// '-', '_' and '.' collapsed to a single '-'.
func NormalizeName(name string) string {
	return strings.ToLower(separatorRe.ReplaceAllString(strings.TrimSpace(name), "-"))
}
