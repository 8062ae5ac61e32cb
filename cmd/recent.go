package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/ledger"
	"github.com/spf13/cobra"
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recent attendance records",
	Long: `Show the newest attendance records from the local ledger,
including whether each record reached the central database yet.`,
	RunE: runRecent,
}

func init() {
	rootCmd.AddCommand(recentCmd)

	recentCmd.Flags().Int("limit", 20, "Number of records to show")
	recentCmd.Flags().Bool("json", false, "Output as JSON")
}

// recentRecord is the JSON shape of one attendance record.
type recentRecord struct {
	EventID   string `json:"event_id"`
	Name      string `json:"name"`
	Device    string `json:"device"`
	Timestamp string `json:"timestamp"`
	Synced    bool   `json:"synced"`
}

func runRecent(cmd *cobra.Command, args []string) error {
	limit := mustGetInt(cmd, "limit")
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()

	led, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("failed to open attendance ledger: %w", err)
	}
	defer led.Close()

	records, err := led.Recent(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("failed to read attendance records: %w", err)
	}

	if jsonOutput {
		out := make([]recentRecord, 0, len(records))
		for _, rec := range records {
			out = append(out, recentRecord{
				EventID:   rec.EventID,
				Name:      rec.Name,
				Device:    rec.DeviceID,
				Timestamp: rec.Time().UTC().Format(time.RFC3339),
				Synced:    rec.Synced,
			})
		}
		return outputJSON(map[string]any{"count": len(out), "records": out})
	}

	if len(records) == 0 {
		fmt.Println("No attendance records yet")
		return nil
	}

	for _, rec := range records {
		synced := "local"
		if rec.Synced {
			synced = "synced"
		}
		fmt.Printf("%s  %-25s %-12s %s\n", rec.Time().Format("2006-01-02 15:04:05"), rec.Name, rec.DeviceID, synced)
	}
	return nil
}

// outputJSON prints data as indented JSON to stdout.
func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
