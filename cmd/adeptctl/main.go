// cmd/adeptctl/main.go
//
// Operator CLI for the content gateway.
//
//	adeptctl migrate
//	adeptctl key create --tenant t1 --name site --perm pages:read --perm forms:read --days 365
//	adeptctl key list   --tenant t1
//	adeptctl key revoke --id <uuid>
//
// Every command reads the same configuration as the gateway and requires
// `database.driver: mysql`.  The raw key is printed once by `key create` and
// never stored.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/yanizio/adept-gateway/internal/acl"
	"github.com/yanizio/adept-gateway/internal/apikey"
	"github.com/yanizio/adept-gateway/internal/config"
	"github.com/yanizio/adept-gateway/internal/database"
	"github.com/yanizio/adept-gateway/internal/store"
)

// openDB connects using the gateway configuration.  Tests replace it.
var openDB = func(ctx context.Context) (*sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver != config.DriverMySQL {
		return nil, fmt.Errorf("database.driver is %q; adeptctl needs %q", cfg.Database.Driver, config.DriverMySQL)
	}
	return database.OpenWithOptions(ctx, cfg.Database.DSN, database.Options{
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	})
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "adeptctl",
		Short:         "Manage the content gateway schema and API keys",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.AddCommand(newMigrateCmd(), newKeyCmd())
	return root
}

// withDB opens the database for one command invocation.
func withDB(cmd *cobra.Command, fn func(ctx context.Context, db *sqlx.DB) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db)
}

/*──────────────────────────── migrate ──────────────────────────────────────*/

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the api_key and entity_record tables if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, db *sqlx.DB) error {
				for _, ddl := range []string{apikey.Schema, store.Schema} {
					if _, err := db.ExecContext(ctx, ddl); err != nil {
						return fmt.Errorf("migrate: %w", err)
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

/*──────────────────────────── key ──────────────────────────────────────────*/

func newKeyCmd() *cobra.Command {
	key := &cobra.Command{
		Use:   "key",
		Short: "API key management",
	}
	key.AddCommand(newKeyCreateCmd(), newKeyListCmd(), newKeyRevokeCmd())
	return key
}

func newKeyCreateCmd() *cobra.Command {
	var (
		tenant string
		name   string
		perms  []string
		days   int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a new API key for a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tenant == "" {
				return errors.New("--tenant is required")
			}
			for _, p := range perms {
				if !acl.Valid(p) {
					return fmt.Errorf("invalid permission %q, want <resource>:<action>", p)
				}
			}
			raw, err := apikey.Generate()
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			var ttl time.Duration
			if days > 0 {
				ttl = time.Duration(days) * 24 * time.Hour
			}
			rec := apikey.NewRecord(raw, tenant, name, acl.New(perms...).List(), ttl, time.Now())

			return withDB(cmd, func(ctx context.Context, db *sqlx.DB) error {
				if err := apikey.NewSQLStore(db).Create(ctx, rec); err != nil {
					return err
				}
				printCreated(cmd.OutOrStdout(), rec, raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "Description of the key")
	cmd.Flags().StringArrayVar(&perms, "perm", nil, "Permission scope, repeatable (e.g. pages:read)")
	cmd.Flags().IntVar(&days, "days", 365, "Validity in days; 0 never expires")
	return cmd
}

func printCreated(out io.Writer, rec *apikey.Record, raw string) {
	expires := "never"
	if rec.ExpiresAt != nil {
		expires = rec.ExpiresAt.Format(time.RFC3339)
	}
	fmt.Fprintf(out, "API key created\n")
	fmt.Fprintf(out, "---------------------------\n")
	fmt.Fprintf(out, "ID:          %s\n", rec.ID)
	fmt.Fprintf(out, "Tenant:      %s\n", rec.TenantID)
	fmt.Fprintf(out, "Permissions: %v\n", []string(rec.Permissions))
	fmt.Fprintf(out, "Expires:     %s\n", expires)
	fmt.Fprintf(out, "VALUE:       %s\n", raw)
	fmt.Fprintf(out, "---------------------------\n")
	fmt.Fprintf(out, "This is the only time the key will be shown.\n")
}

func newKeyListCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a tenant's API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tenant == "" {
				return errors.New("--tenant is required")
			}
			return withDB(cmd, func(ctx context.Context, db *sqlx.DB) error {
				keys, err := apikey.NewSQLStore(db).ListByTenant(ctx, tenant)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tPREFIX\tSTATUS\tLAST USED\tPERMISSIONS")
				for _, k := range keys {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%v\n",
						k.ID, k.Name, k.KeyPrefix, keyStatus(k, time.Now()), lastUsed(k), []string(k.Permissions))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant ID (required)")
	return cmd
}

func keyStatus(k apikey.Record, now time.Time) string {
	switch {
	case !k.Active:
		return "revoked"
	case k.Expired(now):
		return "expired"
	}
	return "active"
}

func lastUsed(k apikey.Record) string {
	if k.LastUsedAt == nil {
		return "-"
	}
	return k.LastUsedAt.Format(time.RFC3339)
}

func newKeyRevokeCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Deactivate an API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id == "" {
				return errors.New("--id is required")
			}
			return withDB(cmd, func(ctx context.Context, db *sqlx.DB) error {
				if err := apikey.NewSQLStore(db).Revoke(ctx, id); err != nil {
					if errors.Is(err, apikey.ErrNotFound) {
						return fmt.Errorf("no API key with id %s", id)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "API key %s revoked\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "API key ID")
	return cmd
}
