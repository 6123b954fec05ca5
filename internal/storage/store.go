package storage

import "context"

// AnnotationRow is one annotated instruction flattened for persistence and
// reporting.
type AnnotationRow struct {
	File       string
	Class      string // VM name
	Method     string
	Descriptor string
	BCI        int
	Mnemonic   string
	Kind       string
	Text       string
}

// ReportStore persists annotation reports.
type ReportStore interface {
	// SaveReport replaces the stored rows for every file present in rows.
	SaveReport(ctx context.Context, rows []AnnotationRow) error

	// QueryByClass retrieves all stored rows for one class, ordered by
	// method then BCI.
	QueryByClass(ctx context.Context, class string) ([]AnnotationRow, error)

	Close() error
}
