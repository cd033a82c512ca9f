package main

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/toejough/deepstub/internal/config"
	"github.com/toejough/deepstub/internal/logging"
	"github.com/toejough/deepstub/persistence"
)

// listing is one row of the list table.
type listing struct {
	source     string
	id         string
	methods    int
	calls      int
	recordedAt string
}

func createListCommand(state *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [dir]",
		Short: "List recordings",
		Long: `List the recordings under dir (default: the root setting) and, when the sqlite
source is configured, the recordings stored in the SQLite database.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := state.cfg.Root
			if len(args) == 1 {
				root = args[0]
			}

			rows, err := state.fileListings(root)
			if err != nil {
				return err
			}

			if state.cfg.UsesSource(config.SourceSQLite) && state.sqliteExists() {
				dbRows, err := state.sqliteListings()
				if err != nil {
					return err
				}

				rows = append(rows, dbRows...)
			}

			cmd.Print(renderListings(rows))

			return nil
		},
	}
}

func (a *app) fileListings(root string) ([]listing, error) {
	var rows []listing

	err := afero.Walk(a.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return filepath.SkipDir
			}

			return err
		}

		if info.IsDir() {
			return nil
		}

		codec, err := persistence.CodecForPath(path)
		if err != nil {
			return nil //nolint:nilerr // not a recording
		}

		model, err := persistence.NewFileSource(a.fs, path, codec).Load(a.ctx)
		if err != nil {
			logging.Get(a.ctx).Warn().Err(err).Str("path", path).Msg("skipping unreadable recording")

			return nil
		}

		rows = append(rows, listingOf("file", path, model))

		return nil
	})
	if err != nil && !errors.Is(err, filepath.SkipDir) {
		return nil, err
	}

	return rows, nil
}

func (a *app) sqliteListings() ([]listing, error) {
	store, err := persistence.OpenSQLite(a.ctx, a.cfg.SQLiteDSN)
	if err != nil {
		return nil, err
	}

	defer func() { _ = store.Close() }()

	ids, err := store.IDs(a.ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]listing, 0, len(ids))

	for _, id := range ids {
		model, err := store.Source(id).Load(a.ctx)
		if err != nil {
			return nil, err
		}

		rows = append(rows, listingOf("sqlite", sqlitePrefix+id, model))
	}

	return rows, nil
}

func listingOf(source, id string, model persistence.Model) listing {
	recordedAt := ""
	if !model.RecordedAt.IsZero() {
		recordedAt = model.RecordedAt.UTC().Format("2006-01-02 15:04:05")
	}

	return listing{
		source:     source,
		id:         id,
		methods:    len(model.Methods),
		calls:      model.CallCount(),
		recordedAt: recordedAt,
	}
}

func renderListings(rows []listing) string {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].source != rows[j].source {
			return rows[i].source < rows[j].source
		}

		return rows[i].id < rows[j].id
	})

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Source", "Recording", "Methods", "Calls", "Recorded"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
	})

	totalCalls := 0

	for _, row := range rows {
		table.Append([]string{row.source, row.id, strconv.Itoa(row.methods), strconv.Itoa(row.calls), row.recordedAt})
		totalCalls += row.calls
	}

	table.SetFooter([]string{"", "Total Recordings " + strconv.Itoa(len(rows)), "", strconv.Itoa(totalCalls), ""})
	table.Render()

	return tableBuffer.String()
}
