package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/good-yellow-bee/taskboard/internal/statecache"
)

var loginPassword string

// loginCmd signs in against the remote store.
var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in to the remote store",
	Long: `Sign in with email and password.

The password is prompted for unless --password is given. The session
token is cached locally so later commands reuse it.

Example:
  taskboard login alice@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		email := strings.TrimSpace(args[0])
		password := loginPassword
		if password == "" {
			password, err = promptPassword(fmt.Sprintf("Password for %s: ", email))
			if err != nil {
				return err
			}
		}

		ident, err := env.session.SignIn(context.Background(), email, password)
		if err != nil {
			return fmt.Errorf("sign in: %w", err)
		}

		if err := env.cache.Set(statecache.KeyAccessToken, env.client.Token()); err != nil {
			warnf("session not cached: %v", err)
		}

		fmt.Printf("Signed in as %s\n", ident.Email)
		return nil
	},
}

// logoutCmd ends the session.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the cached session",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		// Local state is cleared even when revocation fails.
		if err := env.session.SignOut(context.Background()); err != nil {
			warnf("remote sign-out failed: %v", err)
		}
		env.cache.Delete(statecache.KeyAccessToken)
		env.cache.Delete(statecache.KeyCurrentProject)

		fmt.Println("Signed out.")
		return nil
	},
}

// whoamiCmd shows the current identity.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		ident := env.session.Current()
		if ident == nil {
			fmt.Println("Not signed in.")
			return nil
		}

		fmt.Printf("ID:    %s\n", ident.ID)
		fmt.Printf("Email: %s\n", ident.Email)
		return nil
	},
}

// promptPassword reads a password without echo when attached to a
// terminal, falling back to a plain line read otherwise.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		passwordBytes, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(passwordBytes), nil
	}

	var password string
	if _, err := fmt.Scanln(&password); err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return password, nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (prompted when omitted)")
}
