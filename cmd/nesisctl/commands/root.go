// Package commands implements the nesisctl command tree.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ametnes/nesis-console/pkg/client"
	"github.com/spf13/cobra"
)

const defaultURL = "http://localhost:8000"

type options struct {
	url         string
	sessionFile string
	timeout     time.Duration
}

// NewRootCmd creates the nesisctl root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "nesisctl",
		Short:         "Command line client for the Nesis console",
		Long:          "Sign in to a Nesis console and manage its resources through the console API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	url := os.Getenv("NESIS_CONSOLE_URL")
	if url == "" {
		url = defaultURL
	}
	rootCmd.PersistentFlags().StringVar(&opts.url, "url", url, "Console base URL (env NESIS_CONSOLE_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.sessionFile, "session-file", defaultSessionFile(), "File holding the signed-in session")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")

	rootCmd.AddCommand(newSignInCmd(opts))
	rootCmd.AddCommand(newSignOutCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newListCmd(opts))
	rootCmd.AddCommand(newGetCmd(opts))
	rootCmd.AddCommand(newSaveCmd(opts))
	rootCmd.AddCommand(newDeleteCmd(opts))
	rootCmd.AddCommand(newRolesCmd(opts))
	rootCmd.AddCommand(newAskCmd(opts))
	rootCmd.AddCommand(newCheckCmd(opts))

	return rootCmd
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nesis-session.json"
	}
	return filepath.Join(home, ".nesis", "session.json")
}

func (o *options) client(cmd *cobra.Command) *client.Client {
	c := client.New(client.Config{
		BaseURL: o.url,
		Timeout: o.timeout,
		Store:   &client.FileStore{Path: o.sessionFile},
	})
	c.OnUnauthorized = func() {
		fmt.Fprintln(cmd.ErrOrStderr(), "Session expired, sign in again")
	}
	return c
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describeError prefers the console's own message over the raw error text.
func describeError(err error) error {
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s (status %d)", apiErr.Message(), apiErr.Status)
	}
	return err
}
