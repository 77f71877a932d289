// Command idp-gateway runs the SCIM 2.0 provisioning service, grounded
// on the cobra root/serve/migrate command split used in
// smilemakc-auth-gateway's cmd/root.go and cmd/cli/migrate.go.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	idpgateway "github.com/scimcore/idp-gateway"
	"github.com/scimcore/idp-gateway/config"
	"github.com/scimcore/idp-gateway/store/relational"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "idp-gateway",
		Short: "SCIM 2.0 identity-provisioning gateway",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML configuration file")
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load configuration and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			gw := idpgateway.New(cfg)
			gw.SetLogger(slog.Default())

			return gw.Start(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run the relational store's schema DDL once, without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Store.Type != config.StoreTypeRelational {
				return fmt.Errorf("migrate only applies to the relational store (store.type=%q)", cfg.Store.Type)
			}

			dsn := idpgateway.RelationalDSN(cfg.Store)
			st, err := relational.Open(context.Background(), cfg.Store.Driver, dsn)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			fmt.Println("schema is up to date")
			return nil
		},
	}
}
