package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/spaghetti/internal/compiler"
	"github.com/roach88/spaghetti/internal/element"
	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/registry"
)

// TypesOptions holds flags for the types command.
type TypesOptions struct {
	*RootOptions
	Defs     string // optional definitions directory
	Category string // optional category filter
}

// TypeInfo is one palette entry with its default socket layout.
type TypeInfo struct {
	registry.Descriptor
	Category string          `json:"category"`
	Layout   registry.Layout `json:"layout"`
}

// TypesResult lists the palette.
type TypesResult struct {
	Types []TypeInfo `json:"types"`
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TypesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List element types and their sockets",
		Long: `List every element type the registry can create, sorted by name.

Built-in elements are always listed. With --defs the package definitions
in that directory are registered and listed too.

Examples:
  spaghetti types
  spaghetti types --defs ./defs --category demo`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypes(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Defs, "defs", "", "directory of package definitions to include")
	cmd.Flags().StringVar(&opts.Category, "category", "", "only list types in this category")

	return cmd
}

func runTypes(opts *TypesOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	var docs []ir.PackageDoc
	if opts.Defs != "" {
		res, errs := compiler.Load(opts.Defs, compiler.LoadModeFailFast)
		if len(errs) > 0 {
			code, message := parseCompileError(errs[0])
			return formatter.Fail(ExitCommandError, code, message, nil)
		}
		docs = res.Docs
	}

	reg, err := compiler.BuildRegistry(docs, opts.logger())
	if err != nil {
		return formatter.Fail(ExitCommandError, compiler.ErrCodeGeneric, err.Error(), nil)
	}

	result := TypesResult{Types: []TypeInfo{}}
	for _, desc := range reg.Types() {
		if opts.Category != "" && desc.Category() != opts.Category {
			continue
		}
		layout, err := reg.Layout(desc.Type)
		if err != nil {
			return formatter.Fail(ExitCommandError, compiler.ErrInstantiate, err.Error(), nil)
		}
		result.Types = append(result.Types, TypeInfo{Descriptor: desc, Category: desc.Category(), Layout: layout})
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputTypesText(formatter, result)
}

func outputTypesText(formatter *OutputFormatter, result TypesResult) error {
	w := formatter.Writer
	category := ""
	for _, t := range result.Types {
		if t.Category != category {
			if category != "" {
				fmt.Fprintln(w)
			}
			category = t.Category
			fmt.Fprintf(w, "%s:\n", category)
		}
		fmt.Fprintf(w, "  %-24s in(%s) out(%s)", t.Type,
			formatSockets(t.Layout.Inputs, t.Layout.Limits.MaxInputs),
			formatSockets(t.Layout.Outputs, t.Layout.Limits.MaxOutputs))
		if t.Name != "" {
			fmt.Fprintf(w, "  %s", t.Name)
		}
		fmt.Fprintln(w)
		if formatter.Verbose && t.Description != "" {
			fmt.Fprintf(w, "      %s\n", t.Description)
		}
	}
	if len(result.Types) == 0 {
		fmt.Fprintln(w, "No types found.")
	}
	return nil
}

// formatSockets renders "label:kind" pairs; a trailing "..." marks a list
// that can grow without limit.
func formatSockets(sockets []ir.SocketDoc, max int) string {
	parts := make([]string, 0, len(sockets)+1)
	for _, s := range sockets {
		parts = append(parts, fmt.Sprintf("%s:%s", s.Label, s.Kind))
	}
	if max == element.Unbounded {
		parts = append(parts, "...")
	}
	return strings.Join(parts, ", ")
}
