/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"

	"github.com/AlexandrinoANP/ANP/internal/container"
	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/AlexandrinoANP/ANP/internal/service"
	"github.com/spf13/cobra"
)

// tasksCmd represents the tasks command
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the task history",
	Long:  `List persisted tasks, newest first, optionally filtered by status and category.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg.Log.Level = "warn"
		logger, err := setupLogger(cfg)
		if err != nil {
			return err
		}

		filter := &service.ListTasksFilter{Page: 1}
		filter.PageSize, _ = cmd.Flags().GetInt("limit")
		if s, _ := cmd.Flags().GetString("status"); s != "" {
			status, err := orchestrator.ParseStatus(s)
			if err != nil {
				return err
			}
			filter.Status = &status
		}
		if s, _ := cmd.Flags().GetString("category"); s != "" {
			category, err := orchestrator.ParseCategory(s)
			if err != nil {
				return err
			}
			filter.Category = &category
		}

		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		tasks, total, err := ctr.QueryService().ListTasks(filter)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i := range tasks {
			printTask(out, &tasks[i])
		}
		fmt.Fprintf(out, "%d of %d tasks\n", len(tasks), total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)

	tasksCmd.Flags().String("status", "", "Filter by status (pending, processing, completed, error)")
	tasksCmd.Flags().String("category", "", "Filter by category (content, automation, social, calendar, crm)")
	tasksCmd.Flags().Int("limit", 20, "Maximum number of tasks to print")
}
