// Package parser turns raw Document Store files into plain text for indexing.
//
// Markdown files have their YAML frontmatter split off, PDFs are reduced to
// their text layer, and everything else is read as UTF-8 text.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"gopkg.in/yaml.v3"
)

// Result holds the output of parsing a document.
type Result struct {
	Frontmatter map[string]interface{}
	Title       string
	Body        string
}

// Parse extracts the indexable text of the file at path.
func Parse(path string, data []byte) (*Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		body, err := pdfText(data)
		if err != nil {
			return nil, fmt.Errorf("parser: %s: %w", path, err)
		}
		return &Result{Title: stem(path), Body: body}, nil
	case ".md", ".markdown":
		fm, body := splitFrontmatter(data)
		title := deriveTitle(fm, body)
		if title == "" {
			title = stem(path)
		}
		return &Result{Frontmatter: fm, Title: title, Body: body}, nil
	default:
		return &Result{Title: stem(path), Body: string(data)}, nil
	}
}

// pdfText returns the concatenated plain text of every page.
func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. Missing or invalid frontmatter leaves the whole file as body.
func splitFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
