package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes a pipeline distinguishes.
// SourceUnavailable fails every pipeline of the symbol; SchemaConflict
// and WatermarkRegression fail the single table and are never retried.
var (
	ErrSourceUnavailable   = errors.New("source unavailable")
	ErrSchemaConflict      = errors.New("schema conflict")
	ErrWatermarkRegression = errors.New("watermark regression")
)

// MalformedRecordError reports one unparseable source row. Recoverable:
// the row is logged, counted and skipped.
type MalformedRecordError struct {
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at line %d: %s", e.Line, e.Reason)
}
