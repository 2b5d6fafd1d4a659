package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/adl/internal/engine"
	"github.com/roach88/adl/internal/ir"
	"github.com/roach88/adl/internal/store"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	API       string
	Version   string
	Type      string
	Direction string
	Database  string // optional - record the conversion
	Validate  bool
}

// ConvertResult is the JSON shape of one conversion.
type ConvertResult struct {
	API        string                   `json:"api"`
	Version    string                   `json:"version"`
	Type       string                   `json:"type"`
	Direction  string                   `json:"direction"`
	RunID      string                   `json:"run_id"`
	Payload    ir.IRObject              `json:"payload"`
	Errors     []engine.ConversionError `json:"errors"`
	Validation []engine.ConversionError `json:"validation,omitempty"`
	Trace      []engine.Step            `json:"trace"`
	Seq        int64                    `json:"seq,omitempty"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <schemas-dir> <payload.json|->",
		Short: "Convert a payload between a version and the normalized shape",
		Long: `Convert one JSON payload between a versioned type and its normalized type.

Direction to_normalized reads a versioned payload; to_versioned reads a
normalized payload. Data problems are reported as conversion errors and
do not stop the conversion.

Exit codes:
  0 - Conversion finished without errors
  1 - Conversion or validation errors were reported
  2 - Command error (schemas not loadable, payload unreadable, etc.)

Examples:
  adl convert ./schemas widget.json --version 2021-01-01 --type Widget
  adl convert ./schemas - --version 2021-01-01 --type Widget --direction to_versioned
  adl convert ./schemas widget.json --version 2021-01-01 --type Widget --db ./adl.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.API, "api", "", "api to convert with (required when schemas declare several)")
	cmd.Flags().StringVar(&opts.Version, "version", "", "api version (required)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "type name (required)")
	cmd.Flags().StringVar(&opts.Direction, "direction", engine.ToNormalized.String(), "to_normalized or to_versioned")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the conversion in this SQLite database")
	cmd.Flags().BoolVar(&opts.Validate, "validate", false, "validate the converted payload against its type")
	_ = cmd.MarkFlagRequired("version")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runConvert(opts *ConvertOptions, dir, payloadPath string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	direction, err := engine.ParseDirection(opts.Direction)
	if err != nil {
		return formatter.Fail(ErrCodeBadInput, err.Error())
	}

	input, err := readPayload(payloadPath, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail(ErrCodeBadInput, err.Error())
	}

	loadResult, loadErrors := LoadSchemas(dir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.Fail(code, message)
	}
	api, err := loadResult.API(opts.API)
	if err != nil {
		return formatter.Fail(ErrCodeBadInput, err.Error())
	}

	rt, err := engine.New(api, engine.WithLogger(opts.Logger(formatter.GetErrWriter())))
	if err != nil {
		return formatter.Fail(ErrCodeGeneric, err.Error())
	}

	res, err := rt.Run(ctx, direction, opts.Version, opts.Type, input.Clone())
	if err != nil {
		var lookupErr *engine.LookupError
		if errors.As(err, &lookupErr) {
			return formatter.Fail(ErrCodeBadInput, lookupErr.Error())
		}
		return WrapExitError(ExitCommandError, "conversion failed", err)
	}

	result := ConvertResult{
		API:       api.Name,
		Version:   opts.Version,
		Type:      opts.Type,
		Direction: direction.String(),
		RunID:     res.RunID,
		Payload:   res.Payload,
		Errors:    res.Errors,
		Trace:     res.Trace,
	}

	if opts.Validate {
		vt, _ := api.Lookup(opts.Version, opts.Type)
		model := vt.Normalized
		if direction == engine.ToVersioned {
			model = vt.Model
		}
		result.Validation = engine.Validate(model, res.Payload)
	}

	if opts.Database != "" {
		seq, err := recordConversion(ctx, opts.Database, api.Name, opts.Version, opts.Type, direction, input, res)
		if err != nil {
			return formatter.Fail(ErrCodeDatabase, err.Error())
		}
		result.Seq = seq
		formatter.VerboseLog("Recorded conversion %s as seq %d", res.RunID, seq)
	}

	if err := outputConvert(formatter, result); err != nil {
		return err
	}

	if n := len(result.Errors) + len(result.Validation); n > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("conversion reported %d error(s)", n))
	}
	return nil
}

// readPayload reads a JSON object from a file, or from stdin for "-".
func readPayload(path string, stdin io.Reader) (ir.IRObject, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	return ir.ParseObject(data)
}

func recordConversion(ctx context.Context, dbPath, api, version, typeName string, dir engine.Direction, input ir.IRObject, res *engine.Result) (int64, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return 0, fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	rec, err := store.NewConversionRecord(api, version, typeName, dir, input, res)
	if err != nil {
		return 0, err
	}
	seq, _, err := st.WriteConversion(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("recording conversion: %w", err)
	}
	return seq, nil
}

func outputConvert(formatter *OutputFormatter, result ConvertResult) error {
	if formatter.Format == "json" {
		return formatter.Encode(CLIResponse{Status: "ok", Data: result, RunID: result.RunID})
	}

	data, err := ir.MarshalCanonical(result.Payload)
	if err != nil {
		return WrapExitError(ExitCommandError, "encoding payload", err)
	}
	fmt.Fprintln(formatter.Writer, string(data))

	if formatter.Verbose {
		fmt.Fprintln(formatter.GetErrWriter(), "Trace:")
		for _, step := range result.Trace {
			fmt.Fprintf(formatter.GetErrWriter(), "  [%d] %s %s %s\n", step.Seq, step.Action, step.Path, step.Detail)
		}
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(formatter.Writer, "\n✗ %d conversion error(s)\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
		}
	}
	if len(result.Validation) > 0 {
		fmt.Fprintf(formatter.Writer, "\n✗ %d validation error(s)\n", len(result.Validation))
		for _, e := range result.Validation {
			fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
		}
	}
	if result.Seq > 0 {
		fmt.Fprintf(formatter.Writer, "\nRecorded as seq %d (run %s)\n", result.Seq, result.RunID)
	}
	return nil
}
