package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kachra/config"
	"github.com/shashiranjanraj/kachra/database/migrations"
	"github.com/shashiranjanraj/kachra/database/seeders"
	"github.com/shashiranjanraj/kachra/internal/kernel"
	"github.com/shashiranjanraj/kachra/pkg/app"
	"github.com/shashiranjanraj/kachra/pkg/docstore"
	"github.com/shashiranjanraj/kachra/pkg/migration"
)

const dbCommandTimeout = 2 * time.Minute

// withMongo loads config, connects to MongoDB and runs fn.
func withMongo(fn func(ctx context.Context, m *docstore.Mongo) error) error {
	if err := config.Load(); err != nil {
		return err
	}
	if config.StoreDriver() != "mongo" {
		return fmt.Errorf("DB_DRIVER=%s has no indexes to manage", config.StoreDriver())
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbCommandTimeout)
	defer cancel()

	m, err := docstore.ConnectMongo(ctx, config.MongoURI(), config.MongoDatabase())
	if err != nil {
		return err
	}
	defer m.Close(context.Background()) //nolint:errcheck

	return fn(ctx, m)
}

func migrate(mode app.MigrateMode) error {
	return withMongo(func(ctx context.Context, m *docstore.Mongo) error {
		return app.Migrate(ctx, migration.New(m, m, os.Stdout), mode)
	})
}

// kachra migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the collection indexes of every pending migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Running migrations…")
		return migrate(app.MigrateUp)
	},
}

// kachra migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Rolling back last batch…")
		return migrate(app.MigrateRollback)
	},
}

// kachra migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return migrate(app.MigrateStatus)
	},
}

// kachra indexes:list
var indexesListCmd = &cobra.Command{
	Use:   "indexes:list",
	Short: "List the indexes on every marketplace collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMongo(func(ctx context.Context, m *docstore.Mongo) error {
			return app.PrintIndexes(ctx, os.Stdout, m, migrations.Collections())
		})
	},
}

// kachra db:seed [name...]
var seedCmd = &cobra.Command{
	Use:   "db:seed [name...]",
	Short: "Fill the store with demo sellers, buyers and listings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), dbCommandTimeout)
		defer cancel()

		k, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer k.Shutdown(context.Background()) //nolint:errcheck

		fmt.Println("Seeding…")
		return seeders.Run(ctx, os.Stdout, seeders.Deps{Auth: k.Auth, Catalog: k.Catalog}, args...)
	},
}
