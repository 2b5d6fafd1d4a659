package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/roach88/adl/internal/compiler"
	"github.com/roach88/adl/internal/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult summarizes the compiled APIs.
type CompilationResult struct {
	APIs []APISummary `json:"apis"`
}

// APISummary describes one compiled API.
type APISummary struct {
	Name       string           `json:"name"`
	Normalized []TypeSummary    `json:"normalized"`
	Versions   []VersionSummary `json:"versions"`
}

// VersionSummary describes one version of an API.
type VersionSummary struct {
	Name  string        `json:"name"`
	Types []TypeSummary `json:"types"`
}

// TypeSummary describes one type model and its properties.
type TypeSummary struct {
	Name       string            `json:"name"`
	Properties []PropertySummary `json:"properties"`
}

// PropertySummary describes one property with its constraints rendered as
// Name(args) strings.
type PropertySummary struct {
	Name        string       `json:"name"`
	Kind        string       `json:"kind"`
	Type        string       `json:"type"`
	Optional    bool         `json:"optional,omitempty"`
	Removed     bool         `json:"removed,omitempty"`
	Manual      bool         `json:"manual,omitempty"`
	Conversions []string     `json:"conversions,omitempty"`
	Defaulting  []string     `json:"defaulting,omitempty"`
	Validations []string     `json:"validations,omitempty"`
	Nested      *TypeSummary `json:"nested,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schemas-dir>",
		Short: "Compile CUE API schemas into type models",
		Long: `Compile the CUE API definitions in a directory into type models.

Every field of the top-level "api" struct is one API. Each API declares
its normalized types and one struct of types per version; conversion,
defaulting and validation constraints are read from field attributes.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadSchemas(dir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.Fail(code, message)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)
	for _, api := range loadResult.APIs {
		formatter.VerboseLog("Compiled api: %s (%d version(s))", api.Name, len(api.Versions))
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := &CompilationResult{APIs: make([]APISummary, 0, len(loadResult.APIs))}
	for _, api := range loadResult.APIs {
		result.APIs = append(result.APIs, summarizeAPI(api))
	}

	if opts.Output != "" {
		if err := writeSummaryToFile(result, opts.Output); err != nil {
			return formatter.Fail(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func summarizeAPI(api *schema.ApiModel) APISummary {
	s := APISummary{Name: api.Name}
	for _, m := range api.Normalized {
		s.Normalized = append(s.Normalized, summarizeType(m, 0))
	}
	for _, name := range api.VersionNames() {
		v := api.Version(name)
		vs := VersionSummary{Name: v.Name}
		for _, t := range v.Types {
			vs.Types = append(vs.Types, summarizeType(t.Model, 0))
		}
		s.Versions = append(s.Versions, vs)
	}
	return s
}

func summarizeType(m *schema.ApiTypeModel, depth int) TypeSummary {
	ts := TypeSummary{Name: m.Name, Properties: []PropertySummary{}}
	for _, p := range m.Properties {
		ps := PropertySummary{
			Name:        p.Name,
			Kind:        p.DataTypeKind.String(),
			Type:        p.DataTypeName,
			Optional:    p.Optional,
			Removed:     p.Removed,
			Manual:      p.ManuallyConverted,
			Conversions: constraintStrings(p.Conversion),
			Defaulting:  constraintStrings(p.Defaulting),
			Validations: constraintStrings(p.Validation),
		}
		if p.IsComplex() && p.Complex != nil && depth < maxSummaryDepth {
			nested := summarizeType(p.Complex, depth+1)
			ps.Nested = &nested
		}
		ts.Properties = append(ts.Properties, ps)
	}
	return ts
}

const maxSummaryDepth = 32

func constraintStrings(cs []schema.Constraint) []string {
	if len(cs) == 0 {
		return nil
	}
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

func countProperties(ts []TypeSummary) int {
	n := 0
	for _, t := range ts {
		n += len(t.Properties)
	}
	return n
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d API(s)\n\n", len(result.APIs))

	for _, api := range result.APIs {
		fmt.Fprintf(formatter.Writer, "%s: %d normalized type(s), %d version(s)\n",
			api.Name, len(api.Normalized), len(api.Versions))
		for _, v := range api.Versions {
			fmt.Fprintf(formatter.Writer, "  %s: %d type(s), %d property(s)\n",
				v.Name, len(v.Types), countProperties(v.Types))
		}
		fmt.Fprintln(formatter.Writer)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote type models to %s\n", outputFile)
	}

	return nil
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}

		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeSummaryToFile writes the compilation result as indented JSON.
func writeSummaryToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling models: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
