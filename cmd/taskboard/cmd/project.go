package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/taskboard/internal/invites"
	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/statecache"
)

var (
	projectName    string
	projectID      string
	projectDesc    string
	projectNewName string
	projectForce   bool
	inviteEmail    string
	inviteRole     string
	memberID       string
	memberRole     string
)

// projectCmd represents the project command group
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project management commands",
	Long: `Commands for managing taskboard projects.

Projects group tasks and members. Your role in a project (owner, admin,
member) governs what the store lets you change; the project creator is
always treated as an owner.

Examples:
  # List your projects
  taskboard project list

  # Create a new project
  taskboard project create --name sprint-1 --description "August sprint"

  # Make it the current project for task commands
  taskboard project select --name sprint-1

  # Invite a collaborator
  taskboard project invite --email bob@example.com --role member`,
}

// resolveProjectRef finds a project by id or name in the loaded list
// (id takes precedence).
func resolveProjectRef(env *appEnv, ctx context.Context, name, id string) (*models.Project, error) {
	if id == "" && name == "" {
		if id = env.selectedProject(); id == "" {
			return nil, fmt.Errorf("specify --name or --id (or select a project first)")
		}
	}

	if err := env.projects.LoadAll(ctx); err != nil {
		return nil, err
	}
	for _, p := range env.projects.Projects() {
		if (id != "" && p.ID == id) || (id == "" && p.Name == name) {
			return p, nil
		}
	}
	if id != "" {
		return nil, fmt.Errorf("project not found: %s", id)
	}
	return nil, fmt.Errorf("project not found: %s", name)
}

// projectListCmd lists all projects
var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		ctx := context.Background()
		if err := env.projects.LoadAll(ctx); err != nil {
			return err
		}

		list := env.projects.Projects()
		if len(list) == 0 {
			fmt.Println("No projects found.")
			return nil
		}

		selected := env.selectedProject()

		fmt.Printf("\n%-36s  %-20s  %-30s  %-8s  %s\n",
			"ID", "NAME", "DESCRIPTION", "MEMBERS", "CREATED")
		fmt.Println(strings.Repeat("-", 110))

		for _, p := range list {
			name := truncate(p.Name, 20)
			if p.ID == selected {
				name = "*" + truncate(p.Name, 19)
			}
			fmt.Printf("%-36s  %-20s  %-30s  %-8d  %s\n",
				p.ID,
				name,
				truncate(p.Description, 30),
				len(p.Members),
				p.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		fmt.Printf("\nTotal: %d project(s)\n", len(list))

		return nil
	},
}

// projectCreateCmd creates a new project
var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new project",
	Long: `Create a new project on the remote store.

You become the project's owner.

Example:
  taskboard project create --name sprint-1 --description "August sprint"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		project, err := env.projects.Create(context.Background(), projectName, strings.TrimSpace(projectDesc))
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		fmt.Printf("\nProject created:\n")
		fmt.Printf("  ID:          %s\n", project.ID)
		fmt.Printf("  Name:        %s\n", project.Name)
		fmt.Printf("  Description: %s\n", project.Description)

		return nil
	},
}

// projectShowCmd shows project details
var projectShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show project details and members",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		ctx := context.Background()
		ref, err := resolveProjectRef(env, ctx, projectName, projectID)
		if err != nil {
			return err
		}

		project, err := env.projects.LoadOne(ctx, ref.ID)
		if err != nil {
			return err
		}

		fmt.Println("\nProject Details:")
		fmt.Printf("  ID:          %s\n", project.ID)
		fmt.Printf("  Name:        %s\n", project.Name)
		fmt.Printf("  Description: %s\n", project.Description)
		fmt.Printf("  Created:     %s\n", project.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Members:     %d\n", len(project.Members))

		for _, m := range project.Members {
			display := m.Profile.DisplayName()
			if display == "" {
				display = m.UserID
			}
			fmt.Printf("    %-30s  %s\n", display, m.Role)
		}

		return nil
	},
}

// projectSelectCmd makes a project current for task commands
var projectSelectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select the current project",
	Long: `Select a project; task commands operate on it until you select
another one. The selection is stored in the local state cache.

Examples:
  taskboard project select --name sprint-1
  taskboard project select --id 550e8400-e29b-41d4-a716-446655440000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		ctx := context.Background()
		ref, err := resolveProjectRef(env, ctx, projectName, projectID)
		if err != nil {
			return err
		}

		if _, err := env.projects.LoadOne(ctx, ref.ID); err != nil {
			return err
		}
		if err := env.cache.Set(statecache.KeyCurrentProject, ref.ID); err != nil {
			return err
		}

		fmt.Printf("Selected project: %s\n", ref.Name)
		return nil
	},
}

// projectUpdateCmd updates a project
var projectUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update project name or description",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		ctx := context.Background()
		ref, err := resolveProjectRef(env, ctx, projectName, projectID)
		if err != nil {
			return err
		}

		if projectNewName == "" && !cmd.Flags().Changed("description") {
			return fmt.Errorf("specify --new-name or --description to update")
		}

		if !env.projects.HasRole(ref.ID, models.RoleOwner, models.RoleAdmin) {
			return fmt.Errorf("only owners and admins can update a project")
		}

		updates := map[string]any{}
		if projectNewName != "" {
			updates["name"] = strings.TrimSpace(projectNewName)
		}
		if cmd.Flags().Changed("description") {
			updates["description"] = strings.TrimSpace(projectDesc)
		}

		project, err := env.projects.Update(ctx, ref.ID, updates)
		if err != nil {
			return err
		}

		fmt.Printf("Project updated: %s\n", project.Name)
		return nil
	},
}

// projectDeleteCmd deletes a project
var projectDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a project",
	Long: `Delete a project from the remote store.

All of its tasks and memberships are removed by the store.

Examples:
  taskboard project delete --name sprint-1
  taskboard project delete --name sprint-1 --force  # skip confirmation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		ctx := context.Background()
		ref, err := resolveProjectRef(env, ctx, projectName, projectID)
		if err != nil {
			return err
		}

		if !env.projects.HasRole(ref.ID, models.RoleOwner, models.RoleAdmin) {
			return fmt.Errorf("only owners and admins can delete a project")
		}

		if !projectForce {
			fmt.Printf("Delete project '%s'? [y/N]: ", ref.Name)
			var confirm string
			fmt.Scanln(&confirm)
			if !strings.EqualFold(confirm, "y") {
				fmt.Println("Canceled.")
				return nil
			}
		}

		if err := env.projects.Delete(ctx, ref.ID); err != nil {
			return err
		}
		if env.selectedProject() == ref.ID {
			env.cache.Delete(statecache.KeyCurrentProject)
		}

		fmt.Printf("Project deleted: %s\n", ref.Name)
		return nil
	},
}

// projectMembersCmd lists project members
var projectMembersCmd = &cobra.Command{
	Use:   "members",
	Short: "List project members",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		ctx := context.Background()
		ref, err := resolveProjectRef(env, ctx, projectName, projectID)
		if err != nil {
			return err
		}

		project, err := env.projects.LoadOne(ctx, ref.ID)
		if err != nil {
			return err
		}

		fmt.Printf("\nMembers of project '%s':\n\n", project.Name)

		if len(project.Members) == 0 {
			fmt.Println("No members found.")
			return nil
		}

		fmt.Printf("%-36s  %-36s  %s\n", "MEMBER ID", "USER ID", "ROLE")
		fmt.Println(strings.Repeat("-", 90))
		for _, m := range project.Members {
			fmt.Printf("%-36s  %-36s  %s\n", m.ID, m.UserID, m.Role)
		}
		fmt.Printf("\nTotal: %d member(s)\n", len(project.Members))

		return nil
	},
}

// projectInviteCmd invites an email into a project
var projectInviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Invite someone to a project by email",
	Long: `Invite an email address into a project.

If the address belongs to an existing account the membership is created
immediately; otherwise a pending invitation is recorded for them to
accept after signing up. Re-inviting an already-pending address reuses
the existing invitation.

Example:
  taskboard project invite --name sprint-1 --email bob@example.com --role member`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		if inviteEmail == "" {
			return fmt.Errorf("--email is required")
		}
		if !models.ValidRole(inviteRole) {
			return fmt.Errorf("invalid role: %s (use: owner, admin, member)", inviteRole)
		}

		ctx := context.Background()
		ref, err := resolveProjectRef(env, ctx, projectName, projectID)
		if err != nil {
			return err
		}

		if !env.projects.HasRole(ref.ID, models.RoleOwner, models.RoleAdmin) {
			return fmt.Errorf("only owners and admins can invite members")
		}

		result, err := env.projects.InviteMember(ctx, ref.ID, inviteEmail, models.Role(inviteRole))
		if err != nil {
			return err
		}

		switch result.Outcome {
		case invites.OutcomeAdded:
			fmt.Printf("Added %s to project '%s' as %s\n", result.Email, ref.Name, result.Member.Role)
		case invites.OutcomeAlreadyMember:
			fmt.Printf("%s is already a member of '%s' (role: %s)\n", result.Email, ref.Name, result.Member.Role)
		case invites.OutcomePending:
			fmt.Printf("Invitation pending for %s (id: %s)\n", result.Email, result.Invitation.ID)
		case invites.OutcomePendingPlaceholder:
			fmt.Printf("Invitation recorded for %s: %s\n", result.Email, result.Message)
		}
		return nil
	},
}

// projectRemoveMemberCmd removes a member from a project
var projectRemoveMemberCmd = &cobra.Command{
	Use:   "remove-member",
	Short: "Remove a member from a project",
	Long: `Remove a membership by its member id (see: project members).

Example:
  taskboard project remove-member --name sprint-1 --member-id MEMBER_ID`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		if memberID == "" {
			return fmt.Errorf("--member-id is required")
		}

		ctx := context.Background()
		ref, err := resolveProjectRef(env, ctx, projectName, projectID)
		if err != nil {
			return err
		}

		if !env.projects.HasRole(ref.ID, models.RoleOwner, models.RoleAdmin) {
			return fmt.Errorf("only owners and admins can remove members")
		}

		if _, err := env.projects.LoadOne(ctx, ref.ID); err != nil {
			return err
		}
		if err := env.projects.RemoveMember(ctx, memberID); err != nil {
			return err
		}

		fmt.Printf("Removed member %s from project '%s'\n", memberID, ref.Name)
		return nil
	},
}

// projectSetRoleCmd changes a member's role
var projectSetRoleCmd = &cobra.Command{
	Use:   "set-role",
	Short: "Change a member's role",
	Long: `Change an existing member's role by member id.

Example:
  taskboard project set-role --name sprint-1 --member-id MEMBER_ID --role admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		if memberID == "" {
			return fmt.Errorf("--member-id is required")
		}
		if !models.ValidRole(memberRole) {
			return fmt.Errorf("invalid role: %s (use: owner, admin, member)", memberRole)
		}

		ctx := context.Background()
		ref, err := resolveProjectRef(env, ctx, projectName, projectID)
		if err != nil {
			return err
		}

		if !env.projects.HasRole(ref.ID, models.RoleOwner, models.RoleAdmin) {
			return fmt.Errorf("only owners and admins can change roles")
		}

		if _, err := env.projects.LoadOne(ctx, ref.ID); err != nil {
			return err
		}
		if err := env.projects.UpdateMemberRole(ctx, memberID, models.Role(memberRole)); err != nil {
			return err
		}

		fmt.Printf("Member %s is now %s\n", memberID, memberRole)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectSelectCmd)
	projectCmd.AddCommand(projectUpdateCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectMembersCmd)
	projectCmd.AddCommand(projectInviteCmd)
	projectCmd.AddCommand(projectRemoveMemberCmd)
	projectCmd.AddCommand(projectSetRoleCmd)

	refCmds := []*cobra.Command{
		projectShowCmd, projectSelectCmd, projectUpdateCmd, projectDeleteCmd,
		projectMembersCmd, projectInviteCmd, projectRemoveMemberCmd, projectSetRoleCmd,
	}
	for _, c := range refCmds {
		c.Flags().StringVar(&projectName, "name", "", "project name")
		c.Flags().StringVar(&projectID, "id", "", "project ID")
	}

	projectCreateCmd.Flags().StringVar(&projectName, "name", "", "project name (required)")
	projectCreateCmd.Flags().StringVar(&projectDesc, "description", "", "project description")
	projectCreateCmd.MarkFlagRequired("name")

	projectUpdateCmd.Flags().StringVar(&projectNewName, "new-name", "", "new project name")
	projectUpdateCmd.Flags().StringVar(&projectDesc, "description", "", "new project description")

	projectDeleteCmd.Flags().BoolVar(&projectForce, "force", false, "skip confirmation prompt")

	projectInviteCmd.Flags().StringVar(&inviteEmail, "email", "", "email address to invite (required)")
	projectInviteCmd.Flags().StringVar(&inviteRole, "role", "member", "role: owner, admin, member")

	projectRemoveMemberCmd.Flags().StringVar(&memberID, "member-id", "", "membership ID to remove (required)")

	projectSetRoleCmd.Flags().StringVar(&memberID, "member-id", "", "membership ID to change (required)")
	projectSetRoleCmd.Flags().StringVar(&memberRole, "role", "", "new role: owner, admin, member (required)")
}
