package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/engine"
	"github.com/kozaktomas/face-attend/internal/gallery"
	"github.com/kozaktomas/face-attend/internal/ledger"
	"github.com/kozaktomas/face-attend/internal/syncer"
	"github.com/kozaktomas/face-attend/internal/web"
	"github.com/kozaktomas/face-attend/internal/web/handlers"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the attendance device",
	Long: `Run the attendance device: serve the operator API, keep the face
gallery loaded and push attendance records to the central database
in the background.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	led, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("failed to open attendance ledger: %w", err)
	}
	defer led.Close()

	store := gallery.NewStore(cfg.Gallery.EmbeddingsPath, cfg.Gallery.NamesPath, cfg.Gallery.UseIndex)
	if err := store.Load(); err != nil {
		fmt.Printf("Warning: failed to load face gallery: %v\n", err)
		fmt.Println("Everyone matches as Unknown until gallery artifacts are provisioned")
	} else {
		fmt.Printf("Face gallery loaded with %d subjects\n", store.Snapshot().Count())
	}

	engineClient := engine.NewClient(cfg.Engine.URL, float32(cfg.Recognition.DetectionThreshold))
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := engineClient.Ping(pingCtx); err != nil {
		fmt.Printf("Warning: face engine at %s is not responding: %v\n", cfg.Engine.URL, err)
	} else {
		fmt.Printf("Face engine reachable at %s\n", cfg.Engine.URL)
	}
	pingCancel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var syncRunner handlers.SyncRunner
	if cfg.Central.DSN != "" {
		eng := syncer.New(led, syncer.Config{
			DSN:            cfg.Central.DSN,
			BatchSize:      cfg.Central.SyncBatchSize,
			ConnectTimeout: cfg.Central.ConnectTimeout(),
			Interval:       cfg.Central.SyncInterval(),
		})
		syncRunner = eng
		go eng.Run(ctx)
		fmt.Printf("Background sync to central database every %s\n", cfg.Central.SyncInterval())
	} else {
		fmt.Println("CENTRAL_DSN not set, attendance records stay local")
	}

	server := web.NewServer(cfg, store, led, engineClient, syncRunner)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Device %s listening on http://0.0.0.0:%d\n", cfg.Device.ID, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
