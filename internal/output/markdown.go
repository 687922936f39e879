package output

import (
	"fmt"
	"os"
	"strings"

	"depgraph/internal/shared/util"
)

// MarkdownDiagram wraps the mermaid rendering of r in a fenced block.
func MarkdownDiagram(r Report) (string, error) {
	diagram, err := NewMermaidGenerator(r).Generate()
	if err != nil {
		return "", err
	}
	return "```mermaid\n" + strings.TrimRight(diagram, "\n") + "\n```", nil
}

// InjectDiagram replaces the block between the depgraph markers in a
// markdown file. The file must already contain both markers.
func InjectDiagram(filePath, marker, diagram string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read markdown file %q: %w", filePath, err)
	}

	next, err := ReplaceBetweenMarkers(string(content), marker, diagram)
	if err != nil {
		return err
	}
	if next == string(content) {
		return nil
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("stat markdown file %q: %w", filePath, err)
	}
	if err := util.WriteStringAtomic(filePath, next, info.Mode().Perm()); err != nil {
		return fmt.Errorf("replace markdown file %q: %w", filePath, err)
	}
	return nil
}

// ReplaceBetweenMarkers swaps everything between
// <!-- depgraph:marker:start --> and <!-- depgraph:marker:end -->, keeping
// the markers and the file's line ending style.
func ReplaceBetweenMarkers(content, marker, replacement string) (string, error) {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return "", fmt.Errorf("markdown marker must not be empty")
	}

	newline := "\n"
	if strings.Contains(content, "\r\n") {
		newline = "\r\n"
	}

	start := fmt.Sprintf("<!-- depgraph:%s:start -->", marker)
	end := fmt.Sprintf("<!-- depgraph:%s:end -->", marker)

	if strings.Count(content, start) != 1 || strings.Count(content, end) != 1 {
		return "", fmt.Errorf("markdown marker %q must appear exactly once for start and end", marker)
	}

	startIdx := strings.Index(content, start)
	endIdx := strings.Index(content, end)
	if endIdx < startIdx {
		return "", fmt.Errorf("invalid marker order for %q", marker)
	}

	prefix := content[:startIdx+len(start)]
	suffix := content[endIdx:]
	body := strings.TrimRight(replacement, "\r\n")
	if newline == "\r\n" {
		body = strings.ReplaceAll(body, "\n", "\r\n")
	}

	return prefix + newline + body + newline + suffix, nil
}
