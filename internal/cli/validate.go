package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/adl/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	APIs   int                        `json:"apis"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schemas-dir>",
		Short: "Check API schemas for mistakes the engine cannot act on",
		Long: `Compile the CUE API definitions in a directory and check each API for
schema mistakes: conversion or removal on normalized types, defaults on
non-scalar properties, NoAutoConversion without a conversion, duplicate
versions and types.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	// A schema that does not compile cannot be validated.
	loadResult, loadErrors := LoadSchemas(dir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.Fail(code, message)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	var validationErrors []compiler.ValidationError
	for _, api := range loadResult.APIs {
		formatter.VerboseLog("Validating api: %s", api.Name)
		for _, verr := range compiler.Validate(api) {
			verr.Field = "api." + api.Name + "." + verr.Field
			validationErrors = append(validationErrors, verr)
		}
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, APIs: len(loadResult.APIs)})
	}
	fmt.Fprintf(formatter.Writer, "✓ All schemas valid (%d API(s))\n", len(loadResult.APIs))
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "%s\n  %s: %s\n\n", err.Field, err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
