package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"filemanager/internal/queue"
	"filemanager/internal/review"
)

type statusSummary struct {
	StateDir    string               `json:"state_dir"`
	SkippedDir  string               `json:"skipped_dir"`
	Queue       map[queue.Status]int `json:"queue"`
	QueueTotal  int                  `json:"queue_total"`
	Moved       int                  `json:"moved"`
	Skipped     int                  `json:"skipped"`
	LastUpdated string               `json:"last_updated,omitempty"`
	Journal     bool                 `json:"journal"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the queue and histories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			executor, err := ctx.executor(cmd, nil)
			if err != nil {
				return err
			}
			summary, err := loadSummary(cmd, executor)
			if err != nil {
				return err
			}
			summary.StateDir = cfg.Paths.StateDir
			summary.SkippedDir = cfg.Paths.SkippedDir
			summary.Journal = cfg.JournalPath() != ""

			return emit(ctx, cmd, summary, func() error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, "Queue")
				for _, status := range queue.AllStatuses() {
					count := summary.Queue[status]
					kind := statusInfo
					if status == queue.StatusApproved && count > 0 {
						kind = statusOK
					}
					fmt.Fprintln(out, renderStatusLine(string(status), kind, fmt.Sprintf("%d", count), colorize))
				}
				fmt.Fprintln(out, "History")
				fmt.Fprintln(out, renderStatusLine("moved", statusInfo, fmt.Sprintf("%d", summary.Moved), colorize))
				fmt.Fprintln(out, renderStatusLine("skipped", statusInfo, fmt.Sprintf("%d", summary.Skipped), colorize))
				fmt.Fprintln(out, "Paths")
				fmt.Fprintln(out, directoryStatusLine("state", summary.StateDir, colorize))
				fmt.Fprintln(out, directoryStatusLine("skipped", summary.SkippedDir, colorize))
				journalKind, journalText := statusWarn, "Disabled"
				if summary.Journal {
					journalKind, journalText = statusOK, cfg.JournalPath()
				}
				fmt.Fprintln(out, renderStatusLine("journal", journalKind, journalText, colorize))
				return nil
			})
		},
	}
}

// loadSummary reads the three documents concurrently.
func loadSummary(cmd *cobra.Command, executor *review.Executor) (statusSummary, error) {
	var queueDoc, moves, skips *queue.Document
	group, _ := errgroup.WithContext(cmd.Context())
	group.Go(func() (err error) {
		queueDoc, err = executor.Queue()
		return err
	})
	group.Go(func() (err error) {
		moves, err = executor.MoveHistory()
		return err
	})
	group.Go(func() (err error) {
		skips, err = executor.SkipHistory()
		return err
	})
	if err := group.Wait(); err != nil {
		return statusSummary{}, err
	}

	summary := statusSummary{
		Queue:       make(map[queue.Status]int, len(queue.AllStatuses())),
		QueueTotal:  len(queueDoc.Files),
		Moved:       len(moves.Files),
		Skipped:     len(skips.Files),
		LastUpdated: queueDoc.LastUpdated,
	}
	for _, entry := range queueDoc.Files {
		summary.Queue[entry.Status]++
	}
	return summary, nil
}

func directoryStatusLine(label, path string, colorize bool) string {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return renderStatusLine(label, statusOK, path, colorize)
	case err == nil:
		return renderStatusLine(label, statusError, path+" is not a directory", colorize)
	case os.IsNotExist(err):
		return renderStatusLine(label, statusWarn, path+" (created on demand)", colorize)
	default:
		return renderStatusLine(label, statusError, err.Error(), colorize)
	}
}
