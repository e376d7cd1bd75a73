package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var invitationID string

// inviteCmd represents the invite command group
var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Invitation commands",
	Long: `Commands for invitations addressed to you.

Project owners and admins send invitations with
"taskboard project invite". This group lists the ones waiting for you
and accepts or declines them.

Examples:
  taskboard invite list
  taskboard invite accept --id INVITATION_ID
  taskboard invite decline --id INVITATION_ID`,
}

// inviteListCmd lists pending invitations for the signed-in identity
var inviteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending invitations addressed to you",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		pending, err := env.invites.ListForCurrentIdentity(context.Background())
		if err != nil {
			return err
		}

		if len(pending) == 0 {
			fmt.Println("No pending invitations.")
			return nil
		}

		fmt.Printf("\n%-36s  %-36s  %-8s  %s\n", "ID", "PROJECT", "ROLE", "INVITED")
		fmt.Println(strings.Repeat("-", 100))
		for _, inv := range pending {
			fmt.Printf("%-36s  %-36s  %-8s  %s\n",
				inv.ID, inv.ProjectID, inv.Role, inv.CreatedAt.Format("2006-01-02 15:04"))
		}
		fmt.Printf("\nTotal: %d invitation(s)\n", len(pending))

		return nil
	},
}

// inviteAcceptCmd accepts an invitation
var inviteAcceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Accept an invitation",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		member, err := env.invites.Accept(context.Background(), invitationID)
		if err != nil {
			if member != nil {
				// Joined, but the invitation record lagged behind.
				warnf("%v", err)
				fmt.Printf("Joined project %s as %s\n", member.ProjectID, member.Role)
				return nil
			}
			return err
		}

		fmt.Printf("Joined project %s as %s\n", member.ProjectID, member.Role)
		return nil
	},
}

// inviteDeclineCmd declines an invitation
var inviteDeclineCmd = &cobra.Command{
	Use:   "decline",
	Short: "Decline an invitation",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		if err := env.invites.Decline(context.Background(), invitationID); err != nil {
			return err
		}

		fmt.Println("Invitation declined.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inviteCmd)
	inviteCmd.AddCommand(inviteListCmd)
	inviteCmd.AddCommand(inviteAcceptCmd)
	inviteCmd.AddCommand(inviteDeclineCmd)

	for _, c := range []*cobra.Command{inviteAcceptCmd, inviteDeclineCmd} {
		c.Flags().StringVar(&invitationID, "id", "", "invitation ID (required)")
		c.MarkFlagRequired("id")
	}
}
