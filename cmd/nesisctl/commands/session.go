package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSignInCmd(opts *options) *cobra.Command {
	var email, password, googleCode string

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in to the console",
		Long:  "Sign in with email and password, or with a Google authorization code",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client(cmd)

			if googleCode != "" {
				session, err := c.SignInWithGoogle(cmd.Context(), googleCode)
				if err != nil {
					return describeError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", session.Email)
				return nil
			}

			if password == "" {
				password = os.Getenv("NESIS_PASSWORD")
			}
			if email == "" || password == "" {
				return errors.New("required flags: --email and --password (or NESIS_PASSWORD), or --google-code")
			}

			session, err := c.SignIn(cmd.Context(), email, password)
			if err != nil {
				return describeError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", session.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&googleCode, "google-code", "", "Google authorization code")

	return cmd
}

func newSignOutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out of the console",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client(cmd).SignOut(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
