package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/cursor-voice/internal/config"
	"github.com/mattjoyce/cursor-voice/internal/doctor"
)

const redacted = "********"

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and lock the configuration",
	}

	var jsonOut bool
	check := &cobra.Command{
		Use:   "check",
		Short: "Load, validate and review the configuration",
		Long: `Load and validate the configuration, then review it for settings that
pass validation but break voice control at runtime: phrases an earlier command
always claims, unknown token scopes, a bridge address browsers will not grant
the microphone to.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			result := doctor.New(cfg).Validate()

			w := cmd.OutOrStdout()
			if jsonOut {
				out, err := doctor.FormatJSON(result)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, out)
			} else {
				fmt.Fprintf(w, "Checked %s\n", cfg.Path)
				fmt.Fprint(w, doctor.FormatHuman(result))
			}
			if !result.Valid {
				return fmt.Errorf("configuration has %d error(s)", len(result.Errors))
			}
			return nil
		},
	}
	check.Flags().BoolVar(&jsonOut, "json", false, "output the report as JSON")
	cmd.AddCommand(check)

	cmd.AddCommand(&cobra.Command{
		Use:   "lock",
		Short: "Record the config hash in .checksums",
		Long: `Record the BLAKE3 hash of the config file in a .checksums file next to it.

Once locked, the daemon refuses to start with a config whose contents changed.
Run "config lock" again after every intended edit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.Discover(flags.configPath)
			if err != nil {
				return err
			}
			manifest, checksumPath, err := config.Lock(path)
			if err != nil {
				return err
			}
			for name, hash := range manifest.Hashes {
				fmt.Fprintf(cmd.OutOrStdout(), "HASH %s: %s\n", name, hash)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", checksumPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			data, err := config.Marshal(redact(*cfg))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	return cmd
}

// redact blanks credentials in a copy of cfg.
func redact(cfg config.Config) *config.Config {
	if cfg.API.Auth.APIKey != "" {
		cfg.API.Auth.APIKey = redacted
	}
	tokens := make([]config.APIToken, len(cfg.API.Auth.Tokens))
	for i, t := range cfg.API.Auth.Tokens {
		tokens[i] = config.APIToken{Token: redacted, Scopes: t.Scopes}
	}
	cfg.API.Auth.Tokens = tokens
	if cfg.Chat.Webhook.Secret != "" {
		cfg.Chat.Webhook.Secret = redacted
	}
	if cfg.Chat.OpenAI.APIKey != "" {
		cfg.Chat.OpenAI.APIKey = redacted
	}
	return &cfg
}
