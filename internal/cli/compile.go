package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/spaghetti/internal/compiler"
	"github.com/roach88/spaghetti/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled package definitions.
type CompilationResult struct {
	Packages []ir.PackageDoc `json:"packages"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	CUEFiles int
	HCLFiles int
	Packages int
	Elements int
	Links    int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <defs-dir>",
		Short: "Compile CUE and HCL definitions to canonical JSON",
		Long: `Compile the package definitions in a directory.

Every .cue file is loaded as one CUE instance and every .hcl file on its
own. The definitions are checked and printed as canonical JSON, the form
stored with recorded runs.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

// newFormatter builds the formatter for one command invocation.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := compiler.Load(dir, compiler.LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE and %d HCL file(s) in %s", loadResult.CUEFiles, loadResult.HCLFiles, dir)
	for _, doc := range loadResult.Docs {
		formatter.VerboseLog("Compiled definition: %s", doc.Type)
	}

	for _, v := range compiler.AnalyzeComposition(loadResult.Docs) {
		loadErrors = append(loadErrors, v)
	}
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := &CompilationResult{Packages: loadResult.Docs}
	stats := calculateStats(loadResult)

	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, compiler.ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, stats, opts.Output)
}

// calculateStats computes summary statistics from a load result.
func calculateStats(res *compiler.LoadResult) CompilationStats {
	stats := CompilationStats{
		CUEFiles: res.CUEFiles,
		HCLFiles: res.HCLFiles,
		Packages: len(res.Docs),
	}
	for _, doc := range res.Docs {
		stats.Elements += len(doc.Elements)
		stats.Links += len(doc.Links)
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d definition(s) from %d CUE and %d HCL file(s)\n\n",
		stats.Packages, stats.CUEFiles, stats.HCLFiles)

	if len(result.Packages) > 0 {
		fmt.Fprintln(w, "Definitions:")
		for _, doc := range result.Packages {
			fmt.Fprintf(w, "  %s: %d input(s), %d output(s), %d element(s), %d link(s)\n",
				doc.Type, len(doc.Inputs), len(doc.Outputs), len(doc.Elements), len(doc.Links))
		}
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote canonical JSON to %s\n", outputFile)
	}

	return nil
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		code, message := parseCompileError(err)
		cliErrors[i] = CLIError{Code: code, Message: message}
	}
	exitErr := NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		if err := writeResponse(formatter.Writer, CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for i, err := range errs {
		if file, line, col, ok := errorPosition(err); ok {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", file, line, col)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", cliErrors[i].Code, cliErrors[i].Message)
	}

	return exitErr
}

// errorPosition returns the source position carried by a compile or load
// error.
func errorPosition(err error) (file string, line, col int, ok bool) {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) && compileErr.Line > 0 {
		return compileErr.File, compileErr.Line, compileErr.Column, true
	}
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) && loadErr.Line > 0 {
		return loadErr.File, loadErr.Line, loadErr.Column, true
	}
	return "", 0, 0, false
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return compiler.MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var validationErr compiler.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Code, validationErr.Message
	}
	return compiler.ErrCodeGeneric, err.Error()
}

// writeIRToFile writes the compilation result to a file in canonical JSON format.
func writeIRToFile(result *CompilationResult, filename string) error {
	data, err := ir.MarshalCanonical(result)
	if err != nil {
		return fmt.Errorf("marshaling definitions: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
