package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/adl/internal/engine"
	"github.com/roach88/adl/internal/schema"
	"github.com/roach88/adl/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	API      string // optional - one API only
	Version  string // optional - one version only
	Type     string // optional - one type only
}

// ReplayAPIResult holds the replay report for one API.
type ReplayAPIResult struct {
	API    string              `json:"api"`
	Report *store.ReplayReport `json:"report"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	APIs    []ReplayAPIResult `json:"apis"`
	Checked int               `json:"checked"`
	Clean   bool              `json:"clean"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <schemas-dir>",
		Short: "Re-run recorded conversions against the current schemas",
		Long: `Re-run every conversion recorded in the database against the current
schemas, in the order they were recorded, and report conversions whose
output no longer hashes to the recorded value.

Exit codes:
  0 - Every conversion reproduced its recorded output
  1 - Drift detected, or a recorded version or type no longer exists
  2 - Command error (database not found, schemas not loadable, etc.)

Examples:
  adl replay ./schemas --db ./adl.db
  adl replay ./schemas --db ./adl.db --version 2021-01-01 --type Widget
  adl replay ./schemas --db ./adl.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.API, "api", "", "replay one API only")
	cmd.Flags().StringVar(&opts.Version, "version", "", "replay one version only")
	cmd.Flags().StringVar(&opts.Type, "type", "", "replay one type only")

	return cmd
}

func runReplay(opts *ReplayOptions, dir string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadSchemas(dir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.Fail(code, message)
	}

	apis := loadResult.APIs
	if opts.API != "" {
		api, err := loadResult.API(opts.API)
		if err != nil {
			return formatter.Fail(ErrCodeBadInput, err.Error())
		}
		apis = []*schema.ApiModel{api}
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err))
	}
	defer st.Close()

	result := ReplayResult{APIs: make([]ReplayAPIResult, 0, len(apis)), Clean: true}
	for _, api := range apis {
		rt, err := engine.New(api, engine.WithLogger(opts.Logger(formatter.GetErrWriter())))
		if err != nil {
			return formatter.Fail(ErrCodeGeneric, err.Error())
		}

		report, err := st.Replay(ctx, rt, store.ConversionFilter{Version: opts.Version, Type: opts.Type})
		if err != nil {
			return formatter.Fail(ErrCodeDatabase, err.Error())
		}
		formatter.VerboseLog("Replayed %d conversion(s) of %s", report.Checked, api.Name)

		result.APIs = append(result.APIs, ReplayAPIResult{API: api.Name, Report: report})
		result.Checked += report.Checked
		if !report.Clean() {
			result.Clean = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.Clean {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DRIFT",
			Message: "replayed conversions did not reproduce their recorded output",
		}
	}

	if err := formatter.Encode(response); err != nil {
		return err
	}

	if !result.Clean {
		return NewExitError(ExitFailure, "replay drift detected")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay Summary: %d conversion(s)\n", result.Checked)
	fmt.Fprintln(w)

	for _, api := range result.APIs {
		status := "✓"
		if !api.Report.Clean() {
			status = "✗"
		}
		fmt.Fprintf(w, "%s %s: %d checked, %d drifted, %d failed\n",
			status, api.API, api.Report.Checked, len(api.Report.Drift), len(api.Report.Failures))

		for _, d := range api.Report.Drift {
			fmt.Fprintf(w, "  drift %s (%s %s %s): %s -> %s\n",
				d.ID, d.Direction, d.Version, d.Type, d.StoredHash, d.CurrentHash)
		}
		for _, f := range api.Report.Failures {
			fmt.Fprintf(w, "  failed %s: %s\n", f.ID, f.Error)
		}
	}

	fmt.Fprintln(w)
	if !result.Clean {
		fmt.Fprintln(w, "✗ Replay drift detected")
		return NewExitError(ExitFailure, "replay drift detected")
	}

	fmt.Fprintln(w, "✓ All conversions reproduced")
	return nil
}
