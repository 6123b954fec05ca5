// Package report renders annotation listings for human consumption.
package report

import (
	"fmt"
	"io"
	"sort"

	"jitlens/internal/storage"
)

// MarkdownWriter produces an annotation report in Markdown format.
type MarkdownWriter struct {
	w io.Writer
}

func NewMarkdownWriter(w io.Writer) *MarkdownWriter {
	return &MarkdownWriter{w: w}
}

// Write renders the rows grouped by class and method, BCIs ascending.
func (m *MarkdownWriter) Write(title string, rows []storage.AnnotationRow) error {
	sorted := make([]storage.AnnotationRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		if a.Descriptor != b.Descriptor {
			return a.Descriptor < b.Descriptor
		}
		return a.BCI < b.BCI
	})

	if _, err := fmt.Fprintf(m.w, "# %s\n", title); err != nil {
		return err
	}

	var lastClass, lastMethod string
	for _, r := range sorted {
		if r.Class != lastClass {
			if _, err := fmt.Fprintf(m.w, "\n## %s\n", r.Class); err != nil {
				return err
			}
			lastClass = r.Class
			lastMethod = ""
		}
		methodKey := r.Method + r.Descriptor
		if methodKey != lastMethod {
			if _, err := fmt.Fprintf(m.w, "\n### %s%s\n\n", r.Method, r.Descriptor); err != nil {
				return err
			}
			lastMethod = methodKey
		}
		if _, err := fmt.Fprintf(m.w, "- `%4d %s` %s\n", r.BCI, r.Mnemonic, r.Text); err != nil {
			return err
		}
	}
	return nil
}
