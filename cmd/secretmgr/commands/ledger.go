package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/secretmgr/internal/config"
	dserrors "github.com/systmms/secretmgr/internal/errors"
	"github.com/systmms/secretmgr/pkg/secrets"
)

// NewLedgerCommand creates the ledger command group
func NewLedgerCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and edit recorded secret digests",
		Long: `The ledger keeps one digest per secret that was last loaded successfully.
It is how secretmgr tells an unchanged secret from a rotated or removed one.`,
	}

	cmd.AddCommand(newLedgerListCommand(cfg), newLedgerForgetCommand(cfg))
	return cmd
}

func newLedgerListCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded digests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			entries, err := rt.ledger.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(out, "No secrets recorded")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "SECRET\tDIGEST\n")
			for _, e := range entries {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Digest)
			}
			return w.Flush()
		},
	}
}

func newLedgerForgetCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <secret>",
		Short: "Drop the recorded digest of a secret",
		Long: `Forget the recorded digest of a secret. The next load treats the secret
as configured for the first time, so no old value is required.`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			names := make([]string, 0, secrets.NumSecrets)
			for _, id := range secrets.IDs() {
				names = append(names, id.String())
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := secrets.ParseID(args[0])
			if err != nil {
				return dserrors.UserError{
					Message:    fmt.Sprintf("Unknown secret %q", args[0]),
					Suggestion: "Run 'secretmgr check' to see the known secrets",
					Err:        err,
				}
			}
			rt, err := newRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.ledger.Delete(cmd.Context(), id); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", id)
			return nil
		},
	}
}
