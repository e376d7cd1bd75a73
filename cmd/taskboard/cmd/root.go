// Package cmd contains the CLI commands for taskboard.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Used for flags
	cfgPath string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Taskboard - kanban project and task management",
	Long: `Taskboard is a command-line client for a hosted kanban board.

Projects group tasks into four status columns (todo, in progress,
testing, done). Members join projects with a role (owner, admin,
member); people without an account yet are invited by email.

All data lives on the remote store; this client keeps your session and
selected project between invocations.

Examples:
  # Sign in and pick a project
  taskboard login alice@example.com
  taskboard project list
  taskboard project select --name sprint-1

  # Work the board
  taskboard task list
  taskboard task create --title "Fix login redirect" --priority high
  taskboard task move --id TASK_ID --status in_progress

  # Collaborate
  taskboard project invite --email bob@example.com --role member
  taskboard invite list`,
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default ~/.taskboard.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-2] + ".."
}

// warnf prints a non-fatal warning to stderr.
func warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}
