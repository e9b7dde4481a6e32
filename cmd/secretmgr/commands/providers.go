package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/secretmgr/internal/config"
	"github.com/systmms/secretmgr/internal/providers"
)

// NewProvidersCommand creates the providers command
func NewProvidersCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List available providers",
		Long: `Display the provider types secrets can be loaded from, and the provider
instances configured in the config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := providers.NewRegistry()
			out := cmd.OutOrStdout()

			_, _ = fmt.Fprintln(out, "Provider Types:")
			types := registry.GetSupportedTypes()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "TYPE\tDESCRIPTION\n")
			for _, t := range types {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", t, getProviderDescription(t))
			}
			_ = w.Flush()

			// A missing config file only hides the second table.
			if err := cfg.Load(); err == nil && cfg.Definition != nil {
				_, _ = fmt.Fprintln(out, "\nConfigured Providers:")
				if len(cfg.Definition.Providers) == 0 {
					_, _ = fmt.Fprintln(out, "No providers configured")
				} else {
					w2 := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
					_, _ = fmt.Fprintf(w2, "NAME\tTYPE\tTIMEOUT\tSTATUS\n")
					for _, name := range sortedKeys(cfg.Definition.Providers) {
						pc := cfg.Definition.Providers[name]
						status := "configured"
						if !registry.IsSupported(pc.Type) {
							status = "unsupported"
						}
						_, _ = fmt.Fprintf(w2, "%s\t%s\t%dms\t%s\n", name, pc.Type, pc.GetProviderTimeout(), status)
					}
					_ = w2.Flush()
				}
			}

			if verbose {
				_, _ = fmt.Fprintln(out, "\nProvider Details:")
				for _, t := range types {
					_, _ = fmt.Fprintf(out, "\n%s:\n", t)
					for _, d := range getProviderDetails(t) {
						_, _ = fmt.Fprintf(out, "  - %s\n", d)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show detailed provider information")
	return cmd
}

func getProviderDescription(providerType string) string {
	descriptions := map[string]string{
		"literal":            "Values written in the config file, for tests",
		"env":                "Process environment variables",
		"file":               "Files in a secrets directory (Docker/Kubernetes mounts)",
		"keychain":           "OS native keychain (macOS Keychain, Linux Secret Service)",
		"aws.secretsmanager": "AWS Secrets Manager",
		"aws.ssm":            "AWS Systems Manager Parameter Store",
		"gcp.secretmanager":  "Google Cloud Secret Manager",
		"azure.keyvault":     "Azure Key Vault",
		"akeyless":           "Akeyless secret management",
	}
	if desc, ok := descriptions[providerType]; ok {
		return desc
	}
	return "No description available"
}

func getProviderDetails(providerType string) []string {
	details := map[string][]string{
		"literal": {
			"Keys are looked up in the provider's values map",
			"Never use for production secrets",
		},
		"env": {
			"Key is the variable name, optionally with a configured prefix",
			"Unset variables are reported as not found",
		},
		"file": {
			"Key is a file name relative to the configured dir",
			"Trailing newlines are trimmed",
		},
		"keychain": {
			"Key format: 'service/account'",
			"Optional service_prefix is prepended to the service",
		},
		"aws.secretsmanager": {
			"Uses AWS SDK v2 with the default credential chain",
			"Optional assume_role for cross-account access",
			"Optional sso_start_url, sso_account_id and sso_role_name use a token from 'aws sso login'",
			"Key format: 'secret-name' or 'secret-name#.json.path'",
			"Versions: AWSCURRENT, AWSPREVIOUS or a version id",
		},
		"aws.ssm": {
			"SecureString parameters are decrypted",
			"Optional path_prefix is prepended to the key",
			"Version: numeric parameter version",
		},
		"gcp.secretmanager": {
			"Uses Application Default Credentials",
			"Key format: 'secret-name' or a full resource name",
			"Requires project_id unless the key is a full resource name",
		},
		"azure.keyvault": {
			"Uses DefaultAzureCredential",
			"Requires vault_url",
			"Version: Key Vault secret version id",
		},
		"akeyless": {
			"Authenticates with access_id and access_key",
			"Tokens are cached until shortly before expiry",
		},
	}
	if d, ok := details[providerType]; ok {
		return d
	}
	return []string{"No details available"}
}
