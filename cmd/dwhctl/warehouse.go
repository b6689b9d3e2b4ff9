package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dwh/internal/cdm"
	"dwh/internal/config"
	"dwh/internal/sqldb"
)

type warehouseEnv struct {
	Warehouse sqldb.DataSource `envPrefix:"PG_WAREHOUSE_"`
}

var (
	driverFlag string
	dsnFlag    string
)

func init() {
	for _, c := range []*cobra.Command{migrateCmd, countersCmd} {
		c.Flags().StringVar(&driverFlag, "driver", "", "warehouse driver, defaults to PG_WAREHOUSE_DRIVER")
		c.Flags().StringVar(&dsnFlag, "dsn", "", "warehouse DSN, defaults to PG_WAREHOUSE_URL")
	}
}

func openWarehouse(cmd *cobra.Command) (*sqldb.DB, error) {
	var env warehouseEnv
	if err := config.ParseEnv(&env); err != nil {
		return nil, err
	}
	ds := env.Warehouse
	if driverFlag != "" {
		ds.Driver = driverFlag
	}
	if dsnFlag != "" {
		ds.URL = dsnFlag
	}
	return sqldb.Open(cmd.Context(), ds)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema migrations.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openWarehouse(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
		applied, err := sqldb.Migrate(cmd.Context(), db)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			color.Cyan("schema is up to date (%s)\n", db.Dialect())
			return nil
		}
		for _, name := range applied {
			color.Green("applied %s\n", name)
		}
		return nil
	},
}

var countersCmd = &cobra.Command{
	Use:   "counters <user-id>",
	Short: "Print the mart counters of a user.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openWarehouse(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
		marts := cdm.NewRepository(db)
		products, err := marts.ProductCounters(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		categories, err := marts.CategoryCounters(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		color.New(color.Bold).Fprintf(out, "products of %s\n", args[0])
		for _, c := range products {
			fmt.Fprintf(out, "  %-24s %-32s %d\n", c.ID, c.Name, c.Count)
		}
		color.New(color.Bold).Fprintf(out, "categories of %s\n", args[0])
		for _, c := range categories {
			fmt.Fprintf(out, "  %-24s %-32s %d\n", c.ID, c.Name, c.Count)
		}
		return nil
	},
}
