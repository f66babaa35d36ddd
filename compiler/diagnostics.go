package compiler

import (
	"fmt"
	"strings"
)

// Diagnostic is a positioned error reported by a compilation stage.
type Diagnostic struct {
	Pos     Position
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d, column %d: %s", d.Pos.Line, d.Pos.Column, d.Message)
}

// Diagnostics accumulates errors so a stage can keep going after the first
// one.
type Diagnostics []Diagnostic

func (d *Diagnostics) add(pos Position, format string, args ...interface{}) {
	*d = append(*d, Diagnostic{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// Strings renders each diagnostic on its own.
func (d Diagnostics) Strings() []string {
	out := make([]string, len(d))
	for i, diag := range d {
		out[i] = diag.String()
	}
	return out
}

func (d Diagnostics) Error() string {
	return strings.Join(d.Strings(), "\n")
}

// Err returns d as an error, or nil if there are no diagnostics.
func (d Diagnostics) Err() error {
	if len(d) == 0 {
		return nil
	}
	return d
}
