/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AlexandrinoANP/ANP/internal/container"
	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/AlexandrinoANP/ANP/internal/service"
	"github.com/spf13/cobra"
)

// submitCmd represents the submit command
var submitCmd = &cobra.Command{
	Use:   "submit <command...>",
	Short: "Submit a single command and wait for its result",
	Long: `Submit a natural-language command, wait until the task completes
or fails and print the result.

The execution lock is held by the process that accepted the command, so a
running server and this command do not block each other.

A task that has not finished when this process exits (--no-wait, --timeout)
is recorded as an error the next time the history is loaded.`,
	Example: `  hub-anp submit "Criar post sobre IA para Instagram"
  hub-anp submit --no-wait Agendar reunião para sexta`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("verbose") {
			cfg.Log.Level = "warn"
		}
		logger, err := setupLogger(cfg)
		if err != nil {
			return err
		}

		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		noWait, _ := cmd.Flags().GetBool("no-wait")

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		ctx = service.WithRequestInfo(ctx, service.RequestInfo{Actor: service.ActorCLI})

		req := &service.SubmitCommandRequest{Command: strings.Join(args, " ")}
		out := cmd.OutOrStdout()

		if noWait {
			resp, err := ctr.TaskService().Submit(ctx, req)
			if err != nil {
				return err
			}
			printTask(out, &resp.Task)
			return nil
		}

		task, err := ctr.TaskService().SubmitAndWait(ctx, req)
		if err != nil {
			return err
		}
		printTask(out, task)
		if task.Status == orchestrator.StatusError {
			return fmt.Errorf("task %s failed", task.ID)
		}
		return nil
	},
}

// printTask 单行输出任务,有结果时追加一行
func printTask(w io.Writer, task *orchestrator.Task) {
	fmt.Fprintf(w, "%s  %-10s %-10s %s  %s\n",
		task.CreatedAt.Format("2006-01-02 15:04:05"),
		task.Status, task.Category, task.ID, task.Command)
	if task.HasResult() {
		fmt.Fprintf(w, "    -> %s\n", task.Result)
	}
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().Duration("timeout", 30*time.Second, "Maximum time to wait for the task to finish")
	submitCmd.Flags().Bool("no-wait", false, "Return as soon as the command is accepted")
	submitCmd.Flags().Bool("verbose", false, "Log at the configured level instead of warn")
}
