package compiler

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/spaghetti/internal/circuit"
	"github.com/roach88/spaghetti/internal/elements"
	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/registry"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Load error codes (E001-E099), shared by every command that loads
// definitions.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No definition files found
	ErrCodeLoadFailed  = "E004" // CUE load or file read failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build or HCL parse failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeDuplicate   = "E008" // Type defined in more than one place
)

// LoadResult contains the definitions found in a directory.
type LoadResult struct {
	Docs     []ir.PackageDoc
	CUEFiles int
	HCLFiles int
}

// Types returns the defined type names in load order.
func (r *LoadResult) Types() []string {
	out := make([]string, len(r.Docs))
	for i, d := range r.Docs {
		out[i] = d.Type
	}
	return out
}

// Lookup returns the definition of typeName.
func (r *LoadResult) Lookup(typeName string) (ir.PackageDoc, bool) {
	for _, d := range r.Docs {
		if d.Type == typeName {
			return d, true
		}
	}
	return ir.PackageDoc{}, false
}

// LoadError represents an error that occurred during loading.
type LoadError struct {
	Code    string
	Message string
	File    string
	Line    int
	Column  int
}

func (e *LoadError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Line, e.Column, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load compiles every package definition under dir: CUE files as one
// instance whose circuit struct holds the definitions, then each HCL file
// in lexical path order. CUE definitions come first, in declaration order.
func Load(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definitions directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing definitions directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindFiles(dir, ".cue")
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	hclFiles, err := FindFiles(dir, ".hcl")
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 && len(hclFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no .cue or .hcl files found in %s", dir)}}
	}

	result := &LoadResult{CUEFiles: len(cueFiles), HCLFiles: len(hclFiles)}
	var errs []error
	seen := make(map[string]bool)

	// add records one compiled definition; it returns false when loading
	// should stop.
	add := func(doc ir.PackageDoc) bool {
		if seen[doc.Type] {
			errs = append(errs, &LoadError{Code: ErrCodeDuplicate, Message: fmt.Sprintf("type %q defined more than once", doc.Type)})
			return mode != LoadModeFailFast
		}
		seen[doc.Type] = true
		result.Docs = append(result.Docs, doc)
		return true
	}
	fail := func(err error) bool {
		errs = append(errs, convertCompileError(err))
		return mode != LoadModeFailFast
	}

	if len(cueFiles) > 0 {
		value, err := buildCUE(dir)
		if err != nil {
			return nil, []error{err}
		}
		circuits := value.LookupPath(cue.ParsePath("circuit"))
		if circuits.Exists() {
			iter, err := circuits.Fields()
			if err != nil {
				if !fail(formatCUEError(err)) {
					return result, errs
				}
			} else {
				for iter.Next() {
					doc, err := CompileCUE(iter.Value())
					if err != nil {
						if !fail(err) {
							return result, errs
						}
						continue
					}
					if !add(*doc) {
						return result, errs
					}
				}
			}
		}
	}

	for _, path := range hclFiles {
		src, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		docs, err := CompileHCL(src, path)
		if err != nil {
			if !fail(err) {
				return result, errs
			}
			continue
		}
		for _, doc := range docs {
			if !add(doc) {
				return result, errs
			}
		}
	}

	if len(result.Docs) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no circuit definitions found"})
	}
	return result, errs
}

func buildCUE(dir string) (cue.Value, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, nil
}

// FindFiles walks dir and returns the paths with extension ext, sorted.
func FindFiles(dir, ext string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ext {
			files = append(files, path)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with
// position info.
func convertCompileError(err error) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			File:    compileErr.File,
			Line:    compileErr.Line,
			Column:  compileErr.Column,
		}
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "type":
		return ErrBadTypeName
	case field == "cue" || field == "hcl":
		return ErrCodeBuildFailed
	case strings.HasSuffix(field, ".kind"):
		return ErrInvalidKind
	case strings.HasSuffix(field, ".from") || strings.HasSuffix(field, ".to"):
		return ErrUnknownLinkEnd
	default:
		return ErrCodeGeneric
	}
}

// BuildRegistry returns a registry holding the built-in catalog, the
// generic package container and every definition in docs. Definitions
// are expanded lazily, so they may reference each other in any order.
func BuildRegistry(docs []ir.PackageDoc, logger *slog.Logger) (*registry.Registry, error) {
	reg := registry.New(registry.WithLogger(logger))
	if err := elements.Register(reg); err != nil {
		return nil, fmt.Errorf("register catalog: %w", err)
	}
	if err := circuit.Register(reg); err != nil {
		return nil, fmt.Errorf("register package: %w", err)
	}
	for _, doc := range docs {
		if err := circuit.Define(reg, doc); err != nil {
			return nil, fmt.Errorf("define %s: %w", doc.Type, err)
		}
	}
	return reg, nil
}
