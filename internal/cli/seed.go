package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/valorlife/membercenter/internal/config"
	"github.com/valorlife/membercenter/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the benefit catalog and demo members",
	Long: `Seed the database with the standard benefit catalog and a handful of
demo members. Safe to run repeatedly: existing rows are left alone.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	st, err := store.Open(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if err := st.Seed(ctx); err != nil {
		return fmt.Errorf("seed database: %w", err)
	}

	fmt.Println("Seed data loaded")
	return nil
}
