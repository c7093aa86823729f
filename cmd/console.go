/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"

	"github.com/AlexandrinoANP/ANP/internal/console"
	"github.com/AlexandrinoANP/ANP/internal/container"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// consoleCmd represents the console command
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the terminal dashboard",
	Long: `Open an interactive dashboard in the terminal: type a command, press
enter to submit it and watch the task history update as tasks finish.
Press tab to cycle through the quick commands and esc to quit.

Logs go to the configured log file so they don't disturb the screen.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg.Log.Output = "file"
		logger, err := setupLogger(cfg)
		if err != nil {
			return err
		}

		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		model := console.New(ctr.TaskService(), ctr.Orchestrator())
		defer model.Close()

		program := tea.NewProgram(model,
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
			tea.WithInput(cmd.InOrStdin()),
			tea.WithOutput(cmd.OutOrStdout()),
		)
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("console exited with error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
