package importer

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Reporter writes one human-readable line per contained failure.
type Reporter struct {
	w     io.Writer
	lg    *zap.Logger
	count int
}

// NewReporter creates a Reporter writing to w.
func NewReporter(w io.Writer, lg *zap.Logger) *Reporter {
	return &Reporter{w: w, lg: lg}
}

// Warn reports msg for the entry identified by gtin.
func (r *Reporter) Warn(gtin, msg string) {
	r.count++
	r.lg.Warn(msg, zap.String("gtin", gtin))
	// Best effort: a broken output stream must not fail the import.
	_, _ = fmt.Fprintf(r.w, "GTIN: %s - %s\n", gtin, msg)
}

// Count returns the number of warnings reported so far.
func (r *Reporter) Count() int {
	return r.count
}
