package compiler

import (
	"fmt"
)

// Stage names a step of the build pipeline.
type Stage string

const (
	StageParse   Stage = "parse"
	StageCheck   Stage = "check"
	StageCompile Stage = "compile"
)

// BuildError reports the diagnostics of the stage that stopped a build.
type BuildError struct {
	Stage       Stage
	Diagnostics Diagnostics
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s failed with %d error(s):\n%s", e.Stage, len(e.Diagnostics), e.Diagnostics.Error())
}

// Output is a successful build.
type Output struct {
	File     *SourceFile
	Warnings Diagnostics
	*Result
}

// Build parses, checks, and compiles source. Each stage runs only if the
// previous one reported nothing; the first failing stage is returned as a
// *BuildError.
func Build(source string, opts Options) (*Output, error) {
	file, diags := Parse(source)
	if len(diags) > 0 {
		return nil, &BuildError{Stage: StageParse, Diagnostics: diags}
	}

	checker := NewSemanticAnalyzer()
	checker.Analyze(file)
	if diags := checker.Diagnostics(); len(diags) > 0 {
		return nil, &BuildError{Stage: StageCheck, Diagnostics: diags}
	}

	result := Compile(file, opts)
	if len(result.Diagnostics) > 0 {
		return nil, &BuildError{Stage: StageCompile, Diagnostics: result.Diagnostics}
	}
	return &Output{File: file, Warnings: checker.Warnings(), Result: result}, nil
}
