package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/xbrlus/xbrlapi/internal/config"
	"github.com/xbrlus/xbrlapi/internal/constants"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

func newLoginCommand(state *rootState) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the XBRL US API",
		Long: `Perform a password grant and keep the token pair in the token store.
Missing username or password are prompted for.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			v := state.viper

			err := state.provider().Load()
			if err != nil {
				return err
			}

			reader := bufio.NewReader(cmd.InOrStdin())

			if username == "" {
				username = v.GetString(config.KeyUsername)
			}

			if username == "" {
				_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Username: ")

				line, err := reader.ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("failed to read username: %w", err)
				}

				username = strings.TrimSpace(line)
			}

			if password == "" {
				password = v.GetString(config.KeyPassword)
			}

			if password == "" {
				password, err = readPassword(cmd, reader)
				if err != nil {
					return err
				}
			}

			v.Set(config.KeyUsername, username)
			v.Set(config.KeyPassword, password)

			store, release, err := state.tokenStore(ctx)
			if err != nil {
				return err
			}

			err = store.Set(ctx, xbrl.Credentials{})
			release()

			if err != nil {
				return fmt.Errorf("clearing stored tokens: %w", err)
			}

			cli, release, err := state.newClient(ctx)
			if err != nil {
				return fmt.Errorf("failed to log in: %w", err)
			}
			defer release()

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (access token %s)\n",
				username, truncateToken(cli.Credentials().AccessToken))

			return err
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")

	return cmd
}

// readPassword reads without echo from a terminal, or a line otherwise.
func readPassword(cmd *cobra.Command, reader *bufio.Reader) (string, error) {
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")

	if cmd.InOrStdin() == os.Stdin && term.IsTerminal(int(syscall.Stdin)) {
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())

		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}

		return string(bytePassword), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// truncateToken shows the first few characters of a token.
func truncateToken(token string) string {
	if len(token) <= constants.StringTruncationLimit {
		return constants.MaskedSecret
	}

	return token[:constants.StringTruncationLimit] + "..."
}

func newLogoutCommand(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, release, err := state.tokenStore(ctx)
			if err != nil {
				return err
			}
			defer release()

			err = store.Set(ctx, xbrl.Credentials{})
			if err != nil {
				return fmt.Errorf("clearing stored tokens: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")

			return err
		},
	}
}
