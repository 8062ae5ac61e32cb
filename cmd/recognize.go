package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/engine"
	"github.com/kozaktomas/face-attend/internal/gallery"
	"github.com/kozaktomas/face-attend/internal/ledger"
	"github.com/kozaktomas/face-attend/internal/recognize"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize [image]",
	Short: "Recognize faces in an image",
	Long: `Run the full recognition pipeline on an image: detect faces,
align them, embed them and match against the face gallery.

With --log, the best match is also recorded in the attendance ledger.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Bool("log", false, "Record the best match in the attendance ledger")
	recognizeCmd.Flags().Float64("threshold", 0, "Override the recognition threshold (0 = use config)")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	logAttendance := mustGetBool(cmd, "log")

	cfg := config.Load()
	threshold := cfg.Recognition.RecognitionThreshold
	if t := mustGetFloat64(cmd, "threshold"); t > 0 {
		threshold = t
	}

	frame, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	store := gallery.NewStore(cfg.Gallery.EmbeddingsPath, cfg.Gallery.NamesPath, cfg.Gallery.UseIndex)
	if err := store.Load(); err != nil {
		fmt.Printf("Warning: failed to load face gallery: %v\n", err)
		fmt.Println("Everyone will match as Unknown")
	}

	client := engine.NewClient(cfg.Engine.URL, float32(cfg.Recognition.DetectionThreshold))
	pipeline := recognize.NewPipeline(client, client, store, float32(threshold))

	results, err := pipeline.Process(context.Background(), frame)
	if err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No faces found")
		return nil
	}

	for i, res := range results {
		fmt.Printf("face %d: %-25s score %.3f box (%d,%d) %dx%d\n",
			i, res.Name, res.Score, res.Box.X, res.Box.Y, res.Box.W, res.Box.H)
	}

	if !logAttendance {
		return nil
	}

	best, ok := recognize.BestResult(results)
	if !ok {
		fmt.Println("No known face to log")
		return nil
	}

	led, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("failed to open attendance ledger: %w", err)
	}
	defer led.Close()

	rec, err := led.Log(context.Background(), cfg.Device.ID, best.Name)
	if err != nil {
		return fmt.Errorf("failed to record attendance: %w", err)
	}

	fmt.Printf("Recorded %s at %s (event %s)\n", rec.Name, rec.Time().Format(time.RFC3339), rec.EventID)
	return nil
}
