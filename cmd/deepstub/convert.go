package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toejough/deepstub/internal/logging"
)

func createConvertCommand(state *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <from> <to>",
		Short: "Copy a recording between formats and sources",
		Long: `Copy a recording between JSON files, YAML files and the SQLite database.
References are .json/.yaml/.yml paths or sqlite:<id>; the format follows the extension.`,
		Example: `  deepstub convert testdata/samples/TestPrices.json testdata/samples/TestPrices.yaml
  deepstub convert testdata/samples/TestPrices.json sqlite:TestPrices`,
		Args: cobra.ExactArgs(2), //nolint:mnd // from and to
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.convert(cmd, args[0], args[1])
		},
	}

	cmd.Flags().String("id", "", "Recording id to store (default: keep the source's id)")

	return cmd
}

func (a *app) convert(cmd *cobra.Command, fromRef, toRef string) error {
	from, closeFrom, err := a.openSource(fromRef)
	if err != nil {
		return err
	}
	defer closeFrom()

	model, err := from.Load(a.ctx)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", from, err)
	}

	if id, _ := cmd.Flags().GetString("id"); id != "" {
		model.ID = id
	}

	to, closeTo, err := a.openSource(toRef)
	if err != nil {
		return err
	}
	defer closeTo()

	err = to.Save(a.ctx, model)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", to, err)
	}

	logging.Get(a.ctx).Info().Str("from", from.String()).Str("to", to.String()).Msg("converted recording")
	cmd.Printf("converted %s -> %s (%d methods, %d calls)\n", from, to, len(model.Methods), model.CallCount())

	return nil
}
