package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attend",
	Short: "Face recognition attendance for edge devices",
	Long: `Face Attend runs on a door-mounted device. It detects and recognizes
faces through a local inference engine, records attendance in an
offline-first SQLite ledger and synchronizes the ledger to a central
MySQL database whenever the network allows.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
