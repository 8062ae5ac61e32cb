package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/engine"
	"github.com/kozaktomas/face-attend/internal/provision"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var galleryEnrollCmd = &cobra.Command{
	Use:   "enroll [dir]",
	Short: "Enroll subjects from a directory of photos",
	Long: `Enroll every photo in a directory into the provisioning database.
The file name without extension becomes the subject name, so
"Alice Cooper.jpg" enrolls subject "Alice Cooper". Each photo must
contain exactly one face.

Requires PROVISION_DATABASE_URL to be set.`,
	Args: cobra.ExactArgs(1),
	RunE: runGalleryEnroll,
}

func init() {
	galleryCmd.AddCommand(galleryEnrollCmd)

	galleryEnrollCmd.Flags().Int("concurrency", 2, "Number of parallel engine requests")
}

func runGalleryEnroll(cmd *cobra.Command, args []string) error {
	dir := args[0]
	concurrency := mustGetInt(cmd, "concurrency")
	if concurrency < 1 {
		concurrency = 1
	}

	cfg := config.Load()
	if cfg.Provision.URL == "" {
		return errors.New("PROVISION_DATABASE_URL environment variable is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	var photos []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			photos = append(photos, entry.Name())
		}
	}
	if len(photos) == 0 {
		return errors.New("no photos found, expected .jpg, .jpeg or .png files")
	}

	pool, err := provision.NewPool(cfg.Provision.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to provisioning database: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	if err := pool.EnsureSchema(ctx, cfg.Provision.Dim); err != nil {
		return fmt.Errorf("failed to prepare schema: %w", err)
	}

	client := engine.NewClient(cfg.Engine.URL, float32(cfg.Recognition.DetectionThreshold))

	// Create progress bar
	bar := progressbar.NewOptions(len(photos),
		progressbar.OptionSetDescription("Enrolling subjects"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("subjects"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var enrolled int
	var errs []error
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, photo := range photos {
		wg.Add(1)
		go func(photo string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			name := strings.TrimSuffix(photo, filepath.Ext(photo))
			err := enrollPhoto(ctx, client, pool, filepath.Join(dir, photo), name)

			mu.Lock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", photo, err))
			} else {
				enrolled++
			}
			mu.Unlock()
			bar.Add(1)
		}(photo)
	}
	wg.Wait()

	fmt.Printf("\nEnrolled %d of %d subjects\n", enrolled, len(photos))
	for _, err := range errs {
		fmt.Printf("  failed: %v\n", err)
	}
	if enrolled > 0 {
		fmt.Println("Run 'face-attend gallery pull' on devices to apply")
	}
	return nil
}

// enrollPhoto embeds one photo and enrolls it under the given subject name.
func enrollPhoto(ctx context.Context, client *engine.Client, pool *provision.Pool, path, name string) error {
	frame, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}
	embedding, err := embedFromImage(ctx, client, frame)
	if err != nil {
		return err
	}
	return pool.Enroll(ctx, name, embedding)
}
