package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/secretmgr/internal/config"
	"github.com/systmms/secretmgr/internal/totp"
)

// NewTOTPCommand creates the totp command group
func NewTOTPCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "totp",
		Short: "Enroll accounts and verify one-time codes",
	}
	cmd.AddCommand(newTOTPEnrollCommand(cfg), newTOTPVerifyCommand(cfg))
	return cmd
}

func parseAccountID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid account id %q", s)
	}
	return id, nil
}

func newTOTPEnrollCommand(cfg *config.Config) *cobra.Command {
	var (
		issuer string
		name   string
	)

	cmd := &cobra.Command{
		Use:   "enroll <account-id>",
		Short: "Generate and store a new seed for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			accounts, err := rt.accounts()
			if err != nil {
				return err
			}
			if name == "" {
				name = args[0]
			}
			key, err := totp.NewVerifier(rt.store, accounts).Enroll(cmd.Context(), accountID, issuer, name)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), key.URL())
			return nil
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "secretmgr", "Issuer shown in authenticator apps")
	cmd.Flags().StringVar(&name, "name", "", "Account name shown in authenticator apps (default: the account id)")
	return cmd
}

func newTOTPVerifyCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <account-id> <code>",
		Short: "Check a one-time code for an account",
		Long: `Check a one-time code against the account's stored seed.

Exits with status 1 when the code is wrong, and fails when TOTP is disabled
because the master key could not be loaded.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			accounts, err := rt.accounts()
			if err != nil {
				return err
			}
			ok, err := totp.NewVerifier(rt.store, accounts).Verify(cmd.Context(), accountID, args[1], time.Now())
			if err != nil {
				return err
			}
			if !ok {
				return &exitError{code: 1, msg: "invalid code"}
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
}
