package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/ledger"
	"github.com/kozaktomas/face-attend/internal/syncer"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push unsynced attendance records to the central database",
	Long: `Push all unsynced attendance records from the local ledger to the
central MySQL database, batch by batch, then exit.

Requires CENTRAL_DSN to be set.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Central.DSN == "" {
		return errors.New("CENTRAL_DSN environment variable is required")
	}

	led, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("failed to open attendance ledger: %w", err)
	}
	defer led.Close()

	eng := syncer.New(led, syncer.Config{
		DSN:            cfg.Central.DSN,
		BatchSize:      cfg.Central.SyncBatchSize,
		ConnectTimeout: cfg.Central.ConnectTimeout(),
	})

	ctx := context.Background()
	total := 0
	for {
		count, err := eng.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		if count == 0 {
			break
		}
		total += count
	}

	if total == 0 {
		fmt.Println("Nothing to sync")
	} else {
		fmt.Printf("Synced %d attendance records\n", total)
	}
	return nil
}
