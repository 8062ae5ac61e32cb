package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/kozaktomas/face-attend/internal/align"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/engine"
	"github.com/kozaktomas/face-attend/internal/gallery"
	"github.com/kozaktomas/face-attend/internal/provision"
	"github.com/spf13/cobra"
)

var galleryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Enroll a single subject",
	Long: `Enroll one subject into the provisioning database, either from a
photo (detect, align, embed) or from a precomputed embedding stored
as a JSON array of floats.

With --local the subject is appended to the device gallery artifacts
directly, for setups without a provisioning database.

Examples:
  # Enroll from a photo
  face-attend gallery add --name "Alice Cooper" --image alice.jpg

  # Enroll a precomputed embedding
  face-attend gallery add --name "Alice Cooper" --embedding alice.json

  # Append straight to the device artifacts
  face-attend gallery add --name "Alice Cooper" --image alice.jpg --local`,
	RunE: runGalleryAdd,
}

func init() {
	galleryCmd.AddCommand(galleryAddCmd)

	galleryAddCmd.Flags().String("name", "", "Subject name (required)")
	galleryAddCmd.Flags().String("image", "", "Photo to enroll from")
	galleryAddCmd.Flags().String("embedding", "", "JSON file with a precomputed embedding")
	galleryAddCmd.Flags().Bool("local", false, "Append to the device gallery artifacts instead")
	_ = galleryAddCmd.MarkFlagRequired("name")
}

// embedFromImage runs detect, align and embed on a single-face photo.
func embedFromImage(ctx context.Context, client *engine.Client, frame []byte) ([]float32, error) {
	detections, err := client.Detect(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}
	if len(detections) != 1 {
		return nil, fmt.Errorf("found %d faces, enrollment needs exactly one", len(detections))
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	aligned, err := align.Align(img, detections[0].Landmarks)
	if err != nil {
		return nil, fmt.Errorf("alignment failed: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, aligned); err != nil {
		return nil, fmt.Errorf("failed to encode aligned crop: %w", err)
	}

	embedding, err := client.Embed(ctx, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	return embedding, nil
}

func runGalleryAdd(cmd *cobra.Command, args []string) error {
	name := mustGetString(cmd, "name")
	imagePath := mustGetString(cmd, "image")
	embeddingPath := mustGetString(cmd, "embedding")
	local := mustGetBool(cmd, "local")

	if (imagePath == "") == (embeddingPath == "") {
		return errors.New("exactly one of --image or --embedding is required")
	}

	cfg := config.Load()
	ctx := context.Background()

	var embedding []float32
	if imagePath != "" {
		frame, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		client := engine.NewClient(cfg.Engine.URL, float32(cfg.Recognition.DetectionThreshold))
		embedding, err = embedFromImage(ctx, client, frame)
		if err != nil {
			return err
		}
	} else {
		data, err := os.ReadFile(embeddingPath)
		if err != nil {
			return fmt.Errorf("failed to read embedding file: %w", err)
		}
		if err := json.Unmarshal(data, &embedding); err != nil {
			return fmt.Errorf("failed to parse embedding file: %w", err)
		}
		if len(embedding) == 0 {
			return errors.New("embedding file holds no values")
		}
	}

	if local {
		if err := gallery.AppendEntry(cfg.Gallery.EmbeddingsPath, cfg.Gallery.NamesPath, name, embedding); err != nil {
			return fmt.Errorf("failed to append to local gallery: %w", err)
		}
		fmt.Printf("Added %s to the local gallery (dim %d)\n", name, len(embedding))
		return nil
	}

	if cfg.Provision.URL == "" {
		return errors.New("PROVISION_DATABASE_URL environment variable is required (or use --local)")
	}

	pool, err := provision.NewPool(cfg.Provision.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to provisioning database: %w", err)
	}
	defer pool.Close()

	if err := pool.EnsureSchema(ctx, len(embedding)); err != nil {
		return fmt.Errorf("failed to prepare schema: %w", err)
	}
	if err := pool.Enroll(ctx, name, embedding); err != nil {
		return fmt.Errorf("failed to enroll %s: %w", name, err)
	}

	fmt.Printf("Enrolled %s (dim %d), run 'face-attend gallery pull' on devices to apply\n", name, len(embedding))
	return nil
}
