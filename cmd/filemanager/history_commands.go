package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"filemanager/internal/journal"
	"filemanager/internal/queue"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var skipped bool
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List committed moves (or skips)",
		RunE: func(cmd *cobra.Command, args []string) error {
			executor, err := ctx.executor(cmd, nil)
			if err != nil {
				return err
			}
			load := executor.MoveHistory
			if skipped {
				load = executor.SkipHistory
			}
			doc, err := load()
			if err != nil {
				return err
			}
			entries := doc.Files
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			return emit(ctx, cmd, entries, func() error {
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "History is empty")
					return nil
				}
				if skipped {
					fmt.Fprintln(out, renderSkipTable(entries))
				} else {
					fmt.Fprintln(out, renderMoveTable(entries))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&skipped, "skipped", false, "Show the skip history instead")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the most recent N entries")
	return cmd
}

func renderMoveTable(entries []queue.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		dest := entry.DestPath
		if entry.IsDelete() {
			dest = "(deleted)"
		}
		rows = append(rows, []string{entry.MovedAt, entry.ID, entry.SourcePath, dest})
	}
	return renderTable([]column{
		{header: "Moved At"},
		{header: "ID", maxWidth: 36},
		{header: "Source", maxWidth: 60},
		{header: "Destination", maxWidth: 60},
	}, rows)
}

func renderSkipTable(entries []queue.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		parked := "(source missing)"
		if entry.SkippedTo != nil {
			parked = *entry.SkippedTo
		}
		rows = append(rows, []string{entry.SkippedAt, entry.ID, entry.SourcePath, parked})
	}
	return renderTable([]column{
		{header: "Skipped At"},
		{header: "ID", maxWidth: 36},
		{header: "Source", maxWidth: 60},
		{header: "Parked At", maxWidth: 60},
	}, rows)
}

func newJournalCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var entryID string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recorded transitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := ctx.openJournal()
			if err != nil {
				return err
			}
			if j == nil {
				return fmt.Errorf("journal is disabled; set journal.enabled = true")
			}
			var records []journal.Record
			if entryID != "" {
				records, err = j.ForEntry(cmd.Context(), entryID)
			} else {
				records, err = j.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			return emit(ctx, cmd, records, func() error {
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No journal records")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						strconv.FormatInt(rec.ID, 10),
						rec.RecordedAt.Local().Format("2006-01-02 15:04:05"),
						rec.Operation,
						rec.EntryID,
						rec.Outcome,
						rec.Message,
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "#", right: true},
					{header: "When"},
					{header: "Operation"},
					{header: "Entry", maxWidth: 36},
					{header: "Outcome"},
					{header: "Message", maxWidth: 70},
				}, rows))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of records to show")
	cmd.Flags().StringVar(&entryID, "entry", "", "Only show records for this entry id")
	return cmd
}
