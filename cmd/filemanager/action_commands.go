package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"filemanager/internal/api"
	"filemanager/internal/queue"
	"filemanager/internal/review"
)

func newMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id>",
		Short: "Move (or delete) one entry's source as proposed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(ctx, cmd, args[0], func(e *review.Executor) func(context.Context, string) (review.Result, error) {
				return e.ExecuteMoveOrDelete
			})
		},
	}
}

func newSkipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "skip <id>",
		Short: "Park one entry's source in the skipped directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(ctx, cmd, args[0], func(e *review.Executor) func(context.Context, string) (review.Result, error) {
				return e.ExecuteSkip
			})
		},
	}
}

func runTransition(ctx *commandContext, cmd *cobra.Command, id string, pick func(*review.Executor) func(context.Context, string) (review.Result, error)) error {
	executor, err := ctx.executor(cmd, nil)
	if err != nil {
		return err
	}
	result, err := pick(executor)(cmd.Context(), id)
	if err != nil {
		return err
	}
	if ctx.jsonOutput() {
		if err := writeJSON(cmd, api.FromResult(result)); err != nil {
			return err
		}
		return result.Err()
	}
	if !result.Success {
		return result.Err()
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Message)
	return nil
}

func newBulkCommand(ctx *commandContext) *cobra.Command {
	bulkCmd := &cobra.Command{
		Use:   "bulk",
		Short: "Commit several entries in order, stopping at the first failure",
	}
	for _, op := range []review.Operation{review.OperationMove, review.OperationSkip} {
		bulkCmd.AddCommand(newBulkOperationCommand(ctx, op))
	}
	return bulkCmd
}

func newBulkOperationCommand(ctx *commandContext, op review.Operation) *cobra.Command {
	var approved bool

	cmd := &cobra.Command{
		Use:   string(op) + " [id...]",
		Short: fmt.Sprintf("Bulk %s the given entries", op),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			executor, err := ctx.executor(cmd, nil)
			if err != nil {
				return err
			}
			ids := args
			if approved {
				if len(ids) > 0 {
					return errors.New("pass ids or --approved, not both")
				}
				ids, err = approvedIDs(executor)
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No approved entries")
					return nil
				}
			}
			if len(ids) == 0 {
				return errors.New("no ids given")
			}

			runCtx, cancel := context.WithTimeout(cmd.Context(), cfg.BulkTimeout())
			defer cancel()
			result, err := executor.BulkExecute(runCtx, ids, op)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, api.FromBulkResult(result)); err != nil {
					return err
				}
			} else if result.Success {
				fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Committed %d before stopping\n", result.Count)
			}
			if !result.Success {
				return fmt.Errorf("entry %s: %s", result.FailedID, result.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&approved, "approved", false, "Use every entry currently marked approved, in queue order")
	return cmd
}

func approvedIDs(executor *review.Executor) ([]string, error) {
	doc, err := executor.Queue()
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, entry := range doc.Files {
		if entry.Status == queue.StatusApproved {
			ids = append(ids, entry.ID)
		}
	}
	return ids, nil
}
