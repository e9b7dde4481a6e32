package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/secretmgr/internal/config"
	"github.com/systmms/secretmgr/pkg/secrets"
)

// NewCheckCommand creates the check command
func NewCheckCommand(cfg *config.Config) *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load every secret and report its state",
		Long: `Initialize all secrets the way a server does at startup and print the
outcome. Changes to a secret (first configuration, rotation, removal) are
applied and recorded, exactly as on server start.

Exits with status 1 when any secret failed to load.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			if validate {
				if err := validateProviders(cmd, rt); err != nil {
					return err
				}
			}

			rt.store.Initialize()

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "SECRET\tSTATE\tAVAILABLE\n")
			failed := 0
			for _, st := range rt.store.Snapshot() {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", st.ID, st.State, yesNo(st.Available))
				if st.State == secrets.LoadFailed {
					failed++
				}
			}
			_ = w.Flush()

			if failed > 0 {
				return &exitError{code: 1, msg: fmt.Sprintf("%d secret(s) failed to load", failed)}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "Check provider credentials before loading")
	return cmd
}

func validateProviders(cmd *cobra.Command, rt *runtime) error {
	ps, err := rt.registry.CreateAll(rt.cfg.Definition.Providers)
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(ps) {
		if err := ps[name].Validate(cmd.Context()); err != nil {
			return fmt.Errorf("provider %s: %w", name, err)
		}
		rt.cfg.Logger.Info("Provider %s is reachable", name)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
