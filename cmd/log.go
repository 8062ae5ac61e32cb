package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/ledger"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log [name]",
	Short: "Record attendance manually",
	Long: `Record an attendance event without face recognition.
Useful when the camera or the engine is down and the operator
checks people in by hand.`,
	Args: cobra.ExactArgs(1),
	RunE: runLog,
}

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().String("device", "", "Override the device id from config")
}

func runLog(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg := config.Load()
	deviceID := mustGetString(cmd, "device")
	if deviceID == "" {
		deviceID = cfg.Device.ID
	}

	led, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("failed to open attendance ledger: %w", err)
	}
	defer led.Close()

	rec, err := led.Log(context.Background(), deviceID, name)
	if err != nil {
		return fmt.Errorf("failed to record attendance: %w", err)
	}

	fmt.Printf("Recorded %s at %s (event %s)\n", rec.Name, rec.Time().Format(time.RFC3339), rec.EventID)
	return nil
}
