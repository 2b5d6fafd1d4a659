package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/adl/internal/arm"
	"github.com/roach88/adl/internal/conformance"
	"github.com/roach88/adl/internal/store"
)

const groupAll = "all"

// ConformOptions holds flags for the conform command.
type ConformOptions struct {
	*RootOptions
	Group    string // "all" runs every group
	Database string // optional - record each run
}

// ConformAPIResult holds the findings for one API.
type ConformAPIResult struct {
	API          string                         `json:"api"`
	Unconformant bool                           `json:"unconformant"`
	Errors       []conformance.ConformanceError `json:"errors"`
	RunID        int64                          `json:"run_id,omitempty"`
}

// ConformResult holds the overall conformance result.
type ConformResult struct {
	Group        string             `json:"group,omitempty"`
	Rules        []string           `json:"rules"`
	APIs         []ConformAPIResult `json:"apis"`
	Unconformant bool               `json:"unconformant"`
}

// NewConformCommand creates the conform command.
func NewConformCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConformOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "conform <schemas-dir>",
		Short: "Run conformance rules over every type of every API",
		Long: `Run the registered conformance rules over every normalized type and
every versioned type of every API in the schemas directory.

Built-in groups:
  adl - conversion targets resolve, property names are lowerCamel (default)
  arm - Azure Resource Manager envelope shape
  all - every registered group

Exit codes:
  0 - No unconformant findings (warnings allowed)
  1 - At least one unconformant finding
  2 - Command error (schemas not loadable, unknown group, etc.)

Examples:
  adl conform ./schemas
  adl conform ./schemas -g arm
  adl conform ./schemas -g all
  adl conform ./schemas --db ./adl.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConform(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Group, "group", "g", conformance.GroupADL, `rule group to run ("all" runs every group)`)
	cmd.Flags().StringVar(&opts.Database, "db", "", "record each run in this SQLite database")

	return cmd
}

func runConform(opts *ConformOptions, dir string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadSchemas(dir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.Fail(code, message)
	}

	rules := conformance.NewEngine()
	conformance.RegisterBuiltins(rules, loadResult.APIs...)
	arm.Register(rules)

	group := opts.Group
	if group == groupAll {
		group = ""
	} else if !slices.Contains(rules.Groups(), group) {
		return formatter.Fail(ErrCodeBadInput, fmt.Sprintf("unknown rule group %q (have %v)", group, rules.Groups()))
	}

	var st *store.Store
	if opts.Database != "" {
		var err error
		st, err = store.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ErrCodeDatabase, fmt.Sprintf("opening database: %v", err))
		}
		defer st.Close()
	}

	result := ConformResult{
		Group: opts.Group,
		Rules: rules.Names(),
		APIs:  make([]ConformAPIResult, 0, len(loadResult.APIs)),
	}

	for _, api := range loadResult.APIs {
		formatter.VerboseLog("Checking api: %s", api.Name)
		errs := rules.RunAPI(api, group)
		apiResult := ConformAPIResult{
			API:          api.Name,
			Unconformant: conformance.HasUnconformant(errs),
			Errors:       errs,
		}
		if st != nil {
			id, err := st.WriteConformanceRun(ctx, api.Name, opts.Group, errs)
			if err != nil {
				return formatter.Fail(ErrCodeDatabase, err.Error())
			}
			apiResult.RunID = id
		}
		if apiResult.Unconformant {
			result.Unconformant = true
		}
		result.APIs = append(result.APIs, apiResult)
	}

	if err := outputConform(formatter, result); err != nil {
		return err
	}

	if result.Unconformant {
		return NewExitError(ExitFailure, "unconformant schemas found")
	}
	return nil
}

func outputConform(formatter *OutputFormatter, result ConformResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for _, api := range result.APIs {
		if len(api.Errors) == 0 {
			fmt.Fprintf(formatter.Writer, "✓ %s: conformant\n", api.API)
			continue
		}
		mark := "✓"
		if api.Unconformant {
			mark = "✗"
		}
		fmt.Fprintf(formatter.Writer, "%s %s: %d finding(s)\n", mark, api.API, len(api.Errors))
		for _, e := range api.Errors {
			fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
		}
	}
	return nil
}
