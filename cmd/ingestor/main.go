package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"dishmap/internal/adapters/blob"
	"dishmap/internal/adapters/observability"
	"dishmap/internal/app"
	"dishmap/internal/media"
	"dishmap/internal/shared"
	"dishmap/internal/storage"
)

var job importJob

var rootCmd = &cobra.Command{
	Use:   "ingestor --dir DIR --place-id ID",
	Short: "Bulk-import dish photos for one place",
	Long: `Imports every file of a directory as an upload for one place.
Each photo goes through the same validation, variant generation and record
store as POST /api/upload. Non-image files are skipped.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runIngest,
}

func init() {
	rootCmd.Flags().StringVar(&job.Dir, "dir", "", "directory of photos to import")
	rootCmd.Flags().StringVar(&job.PlaceID, "place-id", "", "provider place id the photos belong to")
	rootCmd.Flags().StringVar(&job.Dish, "dish", "", "dish name recorded for every photo")
	rootCmd.Flags().StringVar(&job.UploaderName, "uploader", "", "uploader name recorded for every photo")
	rootCmd.Flags().IntVarP(&job.Workers, "workers", "w", 0, "parallel imports (default MEDIA_WORKERS)")
	_ = rootCmd.MarkFlagRequired("dir")
	_ = rootCmd.MarkFlagRequired("place-id")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := shared.LoadStorage()
	if err != nil {
		return err
	}
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	if job.Workers <= 0 {
		job.Workers = cfg.MediaWorkers
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer closeStore()

	blobs, _, err := blob.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open media backend: %w", err)
	}
	ing := app.NewIngestionService(blobs, media.NewGenerator(blobs, job.Workers), records)

	log.Info().
		Str("dir", job.Dir).
		Str("place_id", job.PlaceID).
		Int("workers", job.Workers).
		Msg("ingestor starting")

	rep, err := runImport(ctx, ing, job)
	if err != nil {
		return err
	}

	cmd.Printf("imported %d, skipped %d, failed %d\n", len(rep.Imported), len(rep.Skipped), len(rep.Failed))
	for _, r := range rep.Imported {
		cmd.Printf("  %s  %s\n", r.ID, r.OriginalRef)
	}
	if len(rep.Failed) > 0 {
		return fmt.Errorf("%d file(s) failed: %v", len(rep.Failed), rep.Failed)
	}
	return nil
}

func main() {
	_ = godotenv.Load() // .env is optional
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("ingestion failed")
		os.Exit(1)
	}
}
