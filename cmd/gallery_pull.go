package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/gallery"
	"github.com/kozaktomas/face-attend/internal/provision"
	"github.com/spf13/cobra"
)

var galleryPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull the face gallery from the provisioning database",
	Long: `Fetch all enrolled subjects from the provisioning PostgreSQL database
and write the gallery artifacts the device loads at startup.

Requires PROVISION_DATABASE_URL to be set.

Examples:
  # Refresh the device gallery
  face-attend gallery pull

  # Then apply it to a running device without a restart
  curl -X POST http://localhost:8089/api/v1/gallery/reload`,
	RunE: runGalleryPull,
}

func init() {
	galleryCmd.AddCommand(galleryPullCmd)
}

func runGalleryPull(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Provision.URL == "" {
		return errors.New("PROVISION_DATABASE_URL environment variable is required")
	}

	fmt.Println("Connecting to provisioning database...")
	pool, err := provision.NewPool(cfg.Provision.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to provisioning database: %w", err)
	}
	defer pool.Close()

	subjects, err := pool.FetchSubjects(context.Background())
	if err != nil {
		return fmt.Errorf("failed to fetch subjects: %w", err)
	}

	names := make([]string, 0, len(subjects))
	vectors := make([][]float32, 0, len(subjects))
	for _, subject := range subjects {
		names = append(names, subject.Name)
		vectors = append(vectors, subject.Embedding)
	}

	if err := gallery.WriteEmbeddings(cfg.Gallery.EmbeddingsPath, vectors); err != nil {
		return fmt.Errorf("failed to write embeddings: %w", err)
	}
	if err := gallery.WriteNames(cfg.Gallery.NamesPath, names); err != nil {
		return fmt.Errorf("failed to write names: %w", err)
	}

	if len(subjects) == 0 {
		fmt.Println("No subjects enrolled yet, wrote an empty gallery")
		return nil
	}

	fmt.Printf("Gallery artifacts written: %d subjects to %s and %s\n",
		len(subjects), cfg.Gallery.EmbeddingsPath, cfg.Gallery.NamesPath)
	return nil
}
