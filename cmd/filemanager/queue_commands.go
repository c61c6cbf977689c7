package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"filemanager/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and edit pending proposals",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueStatusShortcut(ctx, "approve", queue.StatusApproved))
	queueCmd.AddCommand(newQueueStatusShortcut(ctx, "reject", queue.StatusRejected))
	queueCmd.AddCommand(newQueueSetStatusCommand(ctx))
	queueCmd.AddCommand(newQueueReplaceCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued proposals",
		RunE: func(cmd *cobra.Command, args []string) error {
			wanted := make(map[queue.Status]struct{}, len(statusFilters))
			for _, raw := range statusFilters {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				wanted[status] = struct{}{}
			}

			executor, err := ctx.executor(cmd, nil)
			if err != nil {
				return err
			}
			doc, err := executor.Queue()
			if err != nil {
				return err
			}
			entries := make([]queue.Entry, 0, len(doc.Files))
			for _, entry := range doc.Files {
				if len(wanted) > 0 {
					if _, ok := wanted[entry.Status]; !ok {
						continue
					}
				}
				entries = append(entries, entry)
			}

			return emit(ctx, cmd, entries, func() error {
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprintln(out, renderEntryTable(entries))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFilters, "status", "s", nil, "Only show entries with these statuses")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one queued proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			executor, err := ctx.executor(cmd, nil)
			if err != nil {
				return err
			}
			entry, err := executor.Get(args[0])
			if err != nil {
				return err
			}
			return emit(ctx, cmd, entry, func() error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:          %s\n", entry.ID)
				fmt.Fprintf(out, "Status:      %s\n", entry.Status)
				fmt.Fprintf(out, "Action:      %s\n", entry.EffectiveAction())
				fmt.Fprintf(out, "Source:      %s\n", entry.SourcePath)
				fmt.Fprintf(out, "Destination: %s\n", entry.DestPath)
				if entry.Confidence != nil {
					fmt.Fprintf(out, "Confidence:  %s\n", formatConfidence(entry.Confidence))
				}
				if reasoning := entry.Reasoning(); reasoning != "" {
					fmt.Fprintf(out, "Reasoning:   %s\n", reasoning)
				}
				return nil
			})
		},
	}
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var (
		id         string
		source     string
		dest       string
		remove     bool
		confidence int
		reasoning  string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a proposal to the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(source) == "" {
				return errors.New("--source is required")
			}
			if remove && strings.TrimSpace(dest) != "" {
				return errors.New("--dest and --delete are mutually exclusive")
			}
			if !remove && strings.TrimSpace(dest) == "" {
				return errors.New("--dest is required unless --delete is set")
			}

			entry := queue.Entry{
				ID:         id,
				SourcePath: source,
				DestPath:   dest,
				Action:     queue.ActionMove,
				Status:     queue.StatusPending,
			}
			if remove {
				entry.DestPath = queue.DeleteSentinel
				entry.Action = queue.ActionDelete
			}
			if cmd.Flags().Changed("confidence") {
				if confidence < 0 || confidence > 100 {
					return fmt.Errorf("--confidence must be between 0 and 100, got %d", confidence)
				}
				value := float64(confidence)
				entry.Confidence = &value
			}
			if reasoning != "" {
				raw, err := json.Marshal(reasoning)
				if err != nil {
					return err
				}
				entry.Extra = map[string]json.RawMessage{"reasoning": raw}
			}

			executor, err := ctx.executor(cmd, nil)
			if err != nil {
				return err
			}
			added, err := executor.Enqueue(cmd.Context(), entry)
			if err != nil {
				return err
			}
			return emit(ctx, cmd, added, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s (%s %s)\n", added.ID, added.EffectiveAction(), added.SourcePath)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Entry id (default: generated UUID)")
	cmd.Flags().StringVar(&source, "source", "", "File or directory to act on")
	cmd.Flags().StringVar(&dest, "dest", "", "Destination path")
	cmd.Flags().BoolVar(&remove, "delete", false, "Propose deleting the source")
	cmd.Flags().IntVar(&confidence, "confidence", 0, "Producer confidence between 0 and 100")
	cmd.Flags().StringVar(&reasoning, "reasoning", "", "Free-text reasoning shown to the reviewer")
	return cmd
}

func newQueueStatusShortcut(ctx *commandContext, use string, status queue.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>...",
		Short: fmt.Sprintf("Mark entries %s", status),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setStatuses(ctx, cmd, args, string(status))
		},
	}
}

func newQueueSetStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Set an entry's review status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setStatuses(ctx, cmd, args[:1], args[1])
		},
	}
}

func setStatuses(ctx *commandContext, cmd *cobra.Command, ids []string, status string) error {
	executor, err := ctx.executor(cmd, nil)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, id := range ids {
		if err := executor.UpdateStatus(cmd.Context(), id, status); err != nil {
			return err
		}
		if !ctx.jsonOutput() {
			fmt.Fprintf(out, "%s: %s\n", id, strings.ToLower(strings.TrimSpace(status)))
		}
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, map[string]any{"success": true, "ids": ids, "status": status})
	}
	return nil
}

func newQueueReplaceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "replace <file>",
		Short: "Replace the queue's files with a JSON array or queue document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			files, err := parseReplacement(data)
			if err != nil {
				return err
			}
			executor, err := ctx.executor(cmd, nil)
			if err != nil {
				return err
			}
			if err := executor.ReplaceQueueFiles(cmd.Context(), files); err != nil {
				return err
			}
			return emit(ctx, cmd, map[string]any{"success": true, "count": len(files)}, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Queue replaced with %d entries\n", len(files))
				return nil
			})
		},
	}
}

// parseReplacement accepts either a bare array of entries or a document with
// a files array.
func parseReplacement(data []byte) ([]queue.Entry, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var files []queue.Entry
		if err := json.Unmarshal(data, &files); err != nil {
			return nil, fmt.Errorf("parse entries: %w", err)
		}
		return files, nil
	}
	var doc struct {
		Files []queue.Entry `json:"files"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc.Files == nil {
		return nil, errors.New("document has no files array")
	}
	return doc.Files, nil
}

func renderEntryTable(entries []queue.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		dest := entry.DestPath
		if entry.IsDelete() {
			dest = "(delete)"
		}
		rows = append(rows, []string{
			entry.ID,
			string(entry.Status),
			string(entry.EffectiveAction()),
			entry.SourcePath,
			dest,
			formatConfidence(entry.Confidence),
		})
	}
	return renderTable([]column{
		{header: "ID", maxWidth: 36},
		{header: "Status"},
		{header: "Action"},
		{header: "Source", maxWidth: 60},
		{header: "Destination", maxWidth: 60},
		{header: "Conf", right: true},
	}, rows)
}

func formatConfidence(value *float64) string {
	if value == nil {
		return "-"
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}
