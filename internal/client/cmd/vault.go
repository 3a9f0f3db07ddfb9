package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/config"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/vault"
)

// newVaultCmd manages the key sealing local data. It does not build the app,
// which would create the key on first use.
func newVaultCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "vault", Short: "Manage the local sealing key"}
	cmd.AddCommand(&cobra.Command{Use: "init", Short: "Generate the local key", RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := o.config()
		if err != nil {
			return err
		}
		v := vault.New(cfg.DataDir)
		if _, err := v.Generate(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Vault key generated at", v.Path())
		return nil
	}})
	cmd.AddCommand(&cobra.Command{Use: "status", Short: "Show vault status", RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := o.config()
		if err != nil {
			return err
		}
		if vault.New(cfg.DataDir).Exists() {
			fmt.Fprintln(cmd.OutOrStdout(), "Vault: ready")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Vault: not initialized")
		}
		return nil
	}})
	cmd.AddCommand(&cobra.Command{Use: "reset", Short: "Destroy the key with the session and cache it sealed", RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := o.config()
		if err != nil {
			return err
		}
		for _, p := range []string{cfg.SessionDir(), cfg.CachePath()} {
			if err := os.RemoveAll(p); err != nil {
				return err
			}
		}
		if err := vault.New(cfg.DataDir).Destroy(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Vault reset; sign in again")
		return nil
	}})
	return cmd
}

func (o *rootOptions) config() (config.Config, error) {
	cfg, err := config.Load(zerolog.Nop())
	if err != nil {
		return cfg, err
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	return cfg, nil
}
