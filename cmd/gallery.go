package cmd

import (
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Face gallery management commands",
	Long:  `Commands for provisioning and inspecting the on-device face gallery.`,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
}
