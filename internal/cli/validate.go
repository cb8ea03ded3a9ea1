package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/spaghetti/internal/compiler"
	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/registry"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Packages int                        `json:"packages"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Feedback []FeedbackLoop             `json:"feedback,omitempty"`
}

// FeedbackLoop is a loop found in one definition. Loops are legal; they
// are reported so the one-tick delay is visible.
type FeedbackLoop struct {
	Type string `json:"type"`
	compiler.CycleWarning
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <defs-dir>",
		Short: "Check definitions and instantiate them",
		Long: `Validate the package definitions in a directory.

Each definition is checked structurally against the element catalog
(types, socket ranges, fan-in, kinds), the set is checked for recursive
composition, and every definition is then instantiated once. Feedback
loops are listed as information.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := compiler.Load(dir, compiler.LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE and %d HCL file(s) in %s", loadResult.CUEFiles, loadResult.HCLFiles, dir)

	result := ValidationResult{Packages: len(loadResult.Docs)}
	for _, err := range loadErrors {
		result.Errors = append(result.Errors, loadValidationError(err))
	}

	reg, err := compiler.BuildRegistry(loadResult.Docs, opts.logger())
	if err != nil {
		return formatter.Fail(ExitCommandError, compiler.ErrCodeGeneric, err.Error(), nil)
	}

	result.Errors = append(result.Errors, validateAll(loadResult.Docs, reg, formatter)...)

	for _, doc := range loadResult.Docs {
		for _, w := range compiler.AnalyzeFeedback(doc) {
			result.Feedback = append(result.Feedback, FeedbackLoop{Type: doc.Type, CycleWarning: w})
		}
	}

	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}
	result.Valid = true
	return outputValidateSuccess(formatter, result)
}

// validateAll checks every definition, then the set for recursive
// composition. Instantiation is only attempted when the structure is
// sound, since a broken definition would fail there for the same reason.
func validateAll(docs []ir.PackageDoc, reg *registry.Registry, formatter *OutputFormatter) []compiler.ValidationError {
	var allErrors []compiler.ValidationError

	for _, doc := range docs {
		formatter.VerboseLog("Validating definition: %s", doc.Type)
		for _, v := range compiler.Validate(doc, reg) {
			v.Field = doc.Type + "." + v.Field
			allErrors = append(allErrors, v)
		}
	}
	allErrors = append(allErrors, compiler.AnalyzeComposition(docs)...)

	if len(allErrors) > 0 {
		return allErrors
	}

	for _, doc := range docs {
		if _, err := reg.Create(doc.Type); err != nil {
			allErrors = append(allErrors, compiler.ValidationError{
				Field:   doc.Type,
				Message: err.Error(),
				Code:    compiler.ErrInstantiate,
			})
		}
	}
	return allErrors
}

// loadValidationError converts a load error to a validation error.
func loadValidationError(err error) compiler.ValidationError {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return compiler.ValidationError{
			Field:   "load",
			Message: loadErr.Message,
			Code:    loadErr.Code,
			Line:    loadErr.Line,
		}
	}
	return compiler.ValidationError{Field: "load", Message: err.Error(), Code: compiler.ErrCodeGeneric}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d definition(s) valid\n", result.Packages)
	writeFeedback(formatter, result.Feedback)
	return nil
}

func writeFeedback(formatter *OutputFormatter, loops []FeedbackLoop) {
	if len(loops) == 0 {
		return
	}
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintln(formatter.Writer, "Feedback loops:")
	for _, l := range loops {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", l.Level, l.Type, l.Message)
	}
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		if err := writeResponse(formatter.Writer, CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	writeFeedback(formatter, result.Feedback)

	return exitErr
}
