package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/kozaktomas/face-attend/internal/align"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/engine"
	"github.com/spf13/cobra"
)

var alignCmd = &cobra.Command{
	Use:   "align [image]",
	Short: "Write the aligned face crop for an image",
	Long: `Detect faces in an image and write the aligned 112x112 crop that
would be fed to the embedding model. A debugging aid for checking
camera placement and landmark quality.`,
	Args: cobra.ExactArgs(1),
	RunE: runAlign,
}

func init() {
	rootCmd.AddCommand(alignCmd)

	alignCmd.Flags().String("out", "aligned.png", "Output file for the aligned crop")
	alignCmd.Flags().Int("face", 0, "Which detected face to align")
}

func runAlign(cmd *cobra.Command, args []string) error {
	outPath := mustGetString(cmd, "out")
	faceIdx := mustGetInt(cmd, "face")

	cfg := config.Load()

	frame, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	client := engine.NewClient(cfg.Engine.URL, float32(cfg.Recognition.DetectionThreshold))
	detections, err := client.Detect(context.Background(), frame)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}
	if len(detections) == 0 {
		return errors.New("no faces detected")
	}
	if faceIdx < 0 || faceIdx >= len(detections) {
		return fmt.Errorf("face index %d out of range, image has %d faces", faceIdx, len(detections))
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	det := detections[faceIdx]
	aligned, err := align.Align(img, det.Landmarks)
	if err != nil {
		return fmt.Errorf("alignment failed: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if err := png.Encode(out, aligned); err != nil {
		return fmt.Errorf("failed to encode aligned crop: %w", err)
	}

	fmt.Printf("Aligned face %d of %d (score %.2f) written to %s\n", faceIdx, len(detections), det.Score, outPath)
	return nil
}
