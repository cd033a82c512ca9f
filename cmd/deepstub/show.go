package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/toejough/deepstub/persistence"
)

func createShowCommand(state *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <recording>",
		Short: "Print the calls of a recording",
		Long:  "Print every recorded call of a recording, given as a .json/.yaml path or sqlite:<id>.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, closeSource, err := state.openSource(args[0])
			if err != nil {
				return err
			}
			defer closeSource()

			model, err := source.Load(state.ctx)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", source, err)
			}

			printModel(cmd.OutOrStdout(), model)

			return nil
		},
	}
}

func printModel(out io.Writer, model persistence.Model) {
	bold := color.New(color.Bold)
	methodColor := color.New(color.FgCyan)
	errColor := color.New(color.FgRed)

	_, _ = bold.Fprintf(out, "%s", model.ID)
	if !model.RecordedAt.IsZero() {
		_, _ = fmt.Fprintf(out, " (recorded %s)", model.RecordedAt.UTC().Format("2006-01-02 15:04:05"))
	}

	_, _ = fmt.Fprintln(out)

	for _, method := range model.Methods {
		_, _ = methodColor.Fprint(out, method.Method)
		if method.SampleID != "" && method.SampleID != method.Method {
			_, _ = fmt.Fprintf(out, " [%s]", method.SampleID)
		}

		_, _ = fmt.Fprintln(out)

		for i, call := range method.Calls {
			_, _ = fmt.Fprintf(out, "  #%d (%s) -> ", i+1, joinRaw(call.Args))

			if call.Error != "" {
				_, _ = errColor.Fprintf(out, "error: %s", call.Error)
			} else {
				_, _ = fmt.Fprintf(out, "(%s)", joinRaw(call.Values))
			}

			_, _ = fmt.Fprintln(out)
		}
	}
}

func joinRaw(values []persistence.Raw) string {
	parts := make([]string, len(values))
	for i, value := range values {
		parts[i] = value.String()
	}

	return strings.Join(parts, ", ")
}
