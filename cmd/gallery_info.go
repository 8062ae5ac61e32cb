package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/gallery"
	"github.com/spf13/cobra"
)

var galleryInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the on-device gallery contents",
	RunE:  runGalleryInfo,
}

func init() {
	galleryCmd.AddCommand(galleryInfoCmd)

	galleryInfoCmd.Flags().Bool("json", false, "Output as JSON")
}

func runGalleryInfo(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()

	store := gallery.NewStore(cfg.Gallery.EmbeddingsPath, cfg.Gallery.NamesPath, false)
	if err := store.Load(); err != nil {
		return fmt.Errorf("failed to load gallery: %w", err)
	}

	snap := store.Snapshot()
	if jsonOutput {
		return outputJSON(map[string]any{
			"subjects": snap.Count(),
			"dim":      snap.Dim(),
			"names":    snap.Names(),
		})
	}

	fmt.Printf("Subjects: %d\n", snap.Count())
	fmt.Printf("Embedding dim: %d\n", snap.Dim())
	for _, name := range snap.Names() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}
