package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	profileFullName  string
	profileAvatarURL string
)

// profileCmd represents the profile command group
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile commands",
	Long: `Show or update the display profile for the signed-in identity.

Examples:
  taskboard profile show
  taskboard profile update --full-name "Alice Smith"`,
}

// profileShowCmd shows the current profile
var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		profile, err := env.profiles.Load(context.Background())
		if err != nil {
			return err
		}

		fmt.Println("\nProfile:")
		fmt.Printf("  ID:        %s\n", profile.ID)
		fmt.Printf("  Email:     %s\n", profile.Email)
		fmt.Printf("  Full name: %s\n", profile.FullName)
		fmt.Printf("  Avatar:    %s\n", profile.AvatarURL)

		return nil
	},
}

// profileUpdateCmd updates profile fields
var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireSession(); err != nil {
			return err
		}

		updates := map[string]any{}
		if cmd.Flags().Changed("full-name") {
			updates["full_name"] = profileFullName
		}
		if cmd.Flags().Changed("avatar-url") {
			updates["avatar_url"] = profileAvatarURL
		}
		if len(updates) == 0 {
			return fmt.Errorf("nothing to update (use --full-name, --avatar-url)")
		}

		profile, err := env.profiles.Update(context.Background(), updates)
		if err != nil {
			return err
		}

		fmt.Printf("Profile updated: %s\n", profile.DisplayName())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileUpdateCmd)

	profileUpdateCmd.Flags().StringVar(&profileFullName, "full-name", "", "display name")
	profileUpdateCmd.Flags().StringVar(&profileAvatarURL, "avatar-url", "", "avatar image URL")
}
