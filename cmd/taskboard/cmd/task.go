package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/tasks"
)

var (
	taskID       string
	taskTitle    string
	taskDesc     string
	taskStatus   string
	taskPriority string
	taskAssignee string
)

// taskCmd represents the task command group
var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Task management commands",
	Long: `Commands for working the board of the selected project.

Tasks move across four columns: todo, in_progress, testing, done.
Select a project first (taskboard project select).

Examples:
  # Show the board
  taskboard task list

  # Add and move work
  taskboard task create --title "Fix login redirect" --priority high
  taskboard task move --id TASK_ID --status in_progress
  taskboard task assign --id TASK_ID --assignee USER_ID`,
}

// requireProject returns the selected project id or an actionable error.
func requireProject(env *appEnv) (string, error) {
	id := env.selectedProject()
	if id == "" {
		return "", fmt.Errorf("no project selected (run: taskboard project select --name NAME)")
	}
	return id, nil
}

// loadBoard fetches the project and its tasks concurrently.
func loadBoard(env *appEnv, ctx context.Context, projectID string) (*models.Project, error) {
	var project *models.Project
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := env.projects.LoadOne(gctx, projectID)
		project = p
		return err
	})
	g.Go(func() error {
		return env.tasks.LoadForProject(gctx, projectID)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return project, nil
}

// taskListCmd renders the board grouped by status column
var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the board for the selected project",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		projectID, err := requireProject(env)
		if err != nil {
			return err
		}

		project, err := loadBoard(env, context.Background(), projectID)
		if err != nil {
			return err
		}

		fmt.Printf("\nBoard: %s\n", project.Name)

		total := 0
		for _, column := range models.BoardColumns {
			list := env.tasks.ByStatus(column)
			total += len(list)

			fmt.Printf("\n%s (%d)\n", strings.ToUpper(string(column)), len(list))
			fmt.Println(strings.Repeat("-", 80))
			if len(list) == 0 {
				fmt.Println("  (empty)")
				continue
			}
			for _, t := range list {
				assignee := "unassigned"
				if t.Assignee != nil {
					assignee = t.Assignee.DisplayName()
				} else if t.AssigneeID != "" {
					assignee = t.AssigneeID
				}
				fmt.Printf("  %-36s  %-8s  %-20s  %s\n",
					t.ID, t.Priority, truncate(assignee, 20), truncate(t.Title, 40))
			}
		}
		fmt.Printf("\nTotal: %d task(s)\n", total)

		return nil
	},
}

// taskCreateCmd adds a task to the selected project
var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task in the selected project",
	Long: `Create a task on the board.

Status defaults to todo and priority to medium.

Example:
  taskboard task create --title "Fix login redirect" --priority high --assignee USER_ID`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		projectID, err := requireProject(env)
		if err != nil {
			return err
		}

		ctx := context.Background()
		if _, err := env.projects.LoadOne(ctx, projectID); err != nil {
			return err
		}
		if err := env.tasks.LoadForProject(ctx, projectID); err != nil {
			return err
		}

		task, err := env.tasks.Create(ctx, tasks.CreateInput{
			Title:       taskTitle,
			Description: taskDesc,
			Status:      models.TaskStatus(taskStatus),
			Priority:    models.Priority(taskPriority),
			AssigneeID:  taskAssignee,
		})
		if err != nil {
			return fmt.Errorf("create task: %w", err)
		}

		fmt.Printf("\nTask created:\n")
		fmt.Printf("  ID:       %s\n", task.ID)
		fmt.Printf("  Title:    %s\n", task.Title)
		fmt.Printf("  Status:   %s\n", task.Status)
		fmt.Printf("  Priority: %s\n", task.Priority)

		return nil
	},
}

// taskShowCmd shows one task
var taskShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show task details",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		task, err := findTask(env)
		if err != nil {
			return err
		}

		fmt.Println("\nTask Details:")
		fmt.Printf("  ID:          %s\n", task.ID)
		fmt.Printf("  Title:       %s\n", task.Title)
		fmt.Printf("  Description: %s\n", task.Description)
		fmt.Printf("  Status:      %s\n", task.Status)
		fmt.Printf("  Priority:    %s\n", task.Priority)
		if task.Assignee != nil {
			fmt.Printf("  Assignee:    %s\n", task.Assignee.DisplayName())
		} else if task.AssigneeID != "" {
			fmt.Printf("  Assignee:    %s\n", task.AssigneeID)
		} else {
			fmt.Printf("  Assignee:    unassigned\n")
		}
		fmt.Printf("  Created:     %s\n", task.CreatedAt.Format("2006-01-02 15:04:05"))

		return nil
	},
}

// taskMoveCmd changes a task's board column
var taskMoveCmd = &cobra.Command{
	Use:   "move",
	Short: "Move a task to another column",
	Long: `Move a task to another status column.

Example:
  taskboard task move --id TASK_ID --status done`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		if !models.ValidStatus(taskStatus) {
			return fmt.Errorf("invalid status: %s (use: todo, in_progress, testing, done)", taskStatus)
		}

		task, err := findTask(env)
		if err != nil {
			return err
		}

		ctx := context.Background()
		if err := env.tasks.ChangeStatus(ctx, task.ID, models.TaskStatus(taskStatus)); err != nil {
			return err
		}

		fmt.Printf("Moved '%s' to %s\n", task.Title, taskStatus)
		return nil
	},
}

// taskAssignCmd sets or clears a task's assignee
var taskAssignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign a task to a user",
	Long: `Assign a task to a user id, or clear the assignment.

Examples:
  taskboard task assign --id TASK_ID --assignee USER_ID
  taskboard task assign --id TASK_ID --clear`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		clearFlag, _ := cmd.Flags().GetBool("clear")
		if taskAssignee == "" && !clearFlag {
			return fmt.Errorf("specify --assignee or --clear")
		}
		assignee := taskAssignee
		if clearFlag {
			assignee = ""
		}

		task, err := findTask(env)
		if err != nil {
			return err
		}

		if err := env.tasks.Assign(context.Background(), task.ID, assignee); err != nil {
			return err
		}

		if assignee == "" {
			fmt.Printf("Cleared assignee on '%s'\n", task.Title)
		} else {
			fmt.Printf("Assigned '%s' to %s\n", task.Title, assignee)
		}
		return nil
	},
}

// taskUpdateCmd edits a task's fields
var taskUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update task fields",
	Long: `Update a task's title, description, status or priority.

Example:
  taskboard task update --id TASK_ID --title "New title" --priority low`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		task, err := findTask(env)
		if err != nil {
			return err
		}

		changed := false
		if cmd.Flags().Changed("title") {
			task.Title = strings.TrimSpace(taskTitle)
			changed = true
		}
		if cmd.Flags().Changed("description") {
			task.Description = taskDesc
			changed = true
		}
		if cmd.Flags().Changed("status") {
			task.Status = models.TaskStatus(taskStatus)
			changed = true
		}
		if cmd.Flags().Changed("priority") {
			if !models.ValidPriority(taskPriority) {
				return fmt.Errorf("invalid priority: %s (use: low, medium, high)", taskPriority)
			}
			task.Priority = models.Priority(taskPriority)
			changed = true
		}
		if !changed {
			return fmt.Errorf("nothing to update (use --title, --description, --status, --priority)")
		}

		updated, err := env.tasks.Update(context.Background(), task)
		if err != nil {
			return err
		}

		fmt.Printf("Task updated: %s\n", updated.Title)
		return nil
	},
}

// taskDeleteCmd removes a task
var taskDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a task",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		task, err := findTask(env)
		if err != nil {
			return err
		}

		if err := env.tasks.Delete(context.Background(), task.ID); err != nil {
			return err
		}

		fmt.Printf("Task deleted: %s\n", task.Title)
		return nil
	},
}

// findTask loads the selected project's board and picks out --id.
func findTask(env *appEnv) (*models.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("--id is required")
	}

	projectID, err := requireProject(env)
	if err != nil {
		return nil, err
	}
	if _, err := loadBoard(env, context.Background(), projectID); err != nil {
		return nil, err
	}

	for _, t := range env.tasks.Tasks() {
		if t.ID == taskID {
			return t, nil
		}
	}
	return nil, fmt.Errorf("task not found in selected project: %s", taskID)
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskMoveCmd)
	taskCmd.AddCommand(taskAssignCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskDeleteCmd)

	taskCreateCmd.Flags().StringVar(&taskTitle, "title", "", "task title (required)")
	taskCreateCmd.Flags().StringVar(&taskDesc, "description", "", "task description")
	taskCreateCmd.Flags().StringVar(&taskStatus, "status", "", "initial status (default: todo)")
	taskCreateCmd.Flags().StringVar(&taskPriority, "priority", "", "priority: low, medium, high (default: medium)")
	taskCreateCmd.Flags().StringVar(&taskAssignee, "assignee", "", "assignee user ID")
	taskCreateCmd.MarkFlagRequired("title")

	for _, c := range []*cobra.Command{taskShowCmd, taskMoveCmd, taskAssignCmd, taskUpdateCmd, taskDeleteCmd} {
		c.Flags().StringVar(&taskID, "id", "", "task ID (required)")
		c.MarkFlagRequired("id")
	}

	taskMoveCmd.Flags().StringVar(&taskStatus, "status", "", "target status: todo, in_progress, testing, done (required)")
	taskMoveCmd.MarkFlagRequired("status")

	taskAssignCmd.Flags().StringVar(&taskAssignee, "assignee", "", "assignee user ID")
	taskAssignCmd.Flags().Bool("clear", false, "clear the assignment")

	taskUpdateCmd.Flags().StringVar(&taskTitle, "title", "", "new title")
	taskUpdateCmd.Flags().StringVar(&taskDesc, "description", "", "new description")
	taskUpdateCmd.Flags().StringVar(&taskStatus, "status", "", "new status")
	taskUpdateCmd.Flags().StringVar(&taskPriority, "priority", "", "new priority")
}
