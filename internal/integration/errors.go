package integration

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingColumn = errors.New("required column missing")
	ErrMissingSheet  = errors.New("required sheet missing")
	ErrMissingTable  = errors.New("required table missing")
)

// StructureError reports a spreadsheet that lacks a sheet, table or header
// the report depends on. It is fatal for the run.
type StructureError struct {
	Kind    error
	File    string
	Missing []string
}

func (e *StructureError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Missing) == 0 {
		return fmt.Sprintf("%s: %s", e.File, e.Kind.Error())
	}
	return fmt.Sprintf("%s: %s: %s", e.File, e.Kind.Error(), strings.Join(e.Missing, ", "))
}

func (e *StructureError) Unwrap() error { return e.Kind }

func missingColumns(file string, cols []string) error {
	return &StructureError{Kind: ErrMissingColumn, File: file, Missing: cols}
}
