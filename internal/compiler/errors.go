package compiler

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/hashicorp/hcl/v2"
)

// CompileError is a compilation error with its source position.
type CompileError struct {
	Field   string
	Message string
	File    string
	Line    int
	Column  int
}

func (e *CompileError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Line, e.Column, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// cueError builds a CompileError located at a CUE position.
func cueError(field, message string, pos token.Pos) *CompileError {
	e := &CompileError{Field: field, Message: message}
	if pos.IsValid() {
		e.File = pos.Filename()
		e.Line = pos.Line()
		e.Column = pos.Column()
	}
	return e
}

// hclError builds a CompileError located at an HCL range.
func hclError(field, message string, rng hcl.Range) *CompileError {
	return &CompileError{
		Field:   field,
		Message: message,
		File:    rng.Filename,
		Line:    rng.Start.Line,
		Column:  rng.Start.Column,
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return cueError("cue", first.Error(), positions[0])
	}
	return err
}

// formatDiagnostics turns the first HCL error diagnostic into a
// CompileError.
func formatDiagnostics(diags hcl.Diagnostics) error {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		msg := d.Summary
		if d.Detail != "" {
			msg = fmt.Sprintf("%s; %s", d.Summary, d.Detail)
		}
		if d.Subject != nil {
			return hclError("hcl", msg, *d.Subject)
		}
		return &CompileError{Field: "hcl", Message: msg}
	}
	return nil
}
