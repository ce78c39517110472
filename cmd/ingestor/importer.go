package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"dishmap/internal/app"
	"dishmap/internal/domain"
)

type importJob struct {
	Dir          string
	PlaceID      string
	Dish         string
	UploaderName string
	Workers      int
}

type importReport struct {
	Imported []domain.UploadRecord
	Skipped  []string // rejected by validation
	Failed   []string
}

type ingester interface {
	Ingest(ctx context.Context, in app.UploadInput) (domain.UploadRecord, error)
}

// runImport ingests every regular file of job.Dir, job.Workers at a time.
// Imported records are reported in file-name order.
func runImport(ctx context.Context, ing ingester, job importJob) (importReport, error) {
	ents, err := os.ReadDir(job.Dir)
	if err != nil {
		return importReport{}, err
	}
	var files []string
	for _, e := range ents {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	workers := job.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]*domain.UploadRecord, len(files))
		rep     importReport
	)

	for i, name := range files {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			rec, err := importFile(ctx, ing, filepath.Join(job.Dir, name), job)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				results[i] = &rec
				log.Info().Str("file", name).Str("record_id", rec.ID).Msg("import ok")
			case errors.Is(err, domain.ErrValidation):
				rep.Skipped = append(rep.Skipped, name)
				log.Warn().Str("file", name).Err(err).Msg("import skipped")
			default:
				rep.Failed = append(rep.Failed, name)
				log.Error().Str("file", name).Err(err).Msg("import failed")
			}
		}()
	}
	wg.Wait()

	for _, r := range results {
		if r != nil {
			rep.Imported = append(rep.Imported, *r)
		}
	}
	sort.Strings(rep.Skipped)
	sort.Strings(rep.Failed)
	return rep, ctx.Err()
}

func importFile(ctx context.Context, ing ingester, path string, job importJob) (domain.UploadRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.UploadRecord{}, err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return domain.UploadRecord{}, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return domain.UploadRecord{}, err
	}

	return ing.Ingest(ctx, app.UploadInput{
		File:         f,
		Filename:     filepath.Base(path),
		MimeType:     http.DetectContentType(head[:n]),
		PlaceID:      job.PlaceID,
		Dish:         job.Dish,
		UploaderName: job.UploaderName,
	})
}
