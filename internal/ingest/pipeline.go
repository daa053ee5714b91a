// Package ingest transforms archived raw review pages into search index
// documents. Ingestion is not resumable below the archive level; rerunning
// it reprocesses whole archives, which idempotent upserts make safe.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/ymiyake/reviewharvest/internal/archive"
	"github.com/ymiyake/reviewharvest/internal/index"
	"github.com/ymiyake/reviewharvest/internal/markup"
	"github.com/ymiyake/reviewharvest/internal/metrics"
)

// Comment-link archives share the comments directory with raw-page
// archives and are skipped by this suffix.
const linksSuffix = "_links"

// RetryPolicy governs how failed index writes are repeated. The production
// policy never gives up; tests inject a bounded one.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// Config tunes pipeline behavior.
type Config struct {
	// ShowProgress renders a terminal progress bar per archive.
	ShowProgress bool
}

// Pipeline reads raw review archives and upserts index documents.
type Pipeline struct {
	cfg     Config
	indexer index.Indexer
	retry   RetryPolicy
	logger  *zap.Logger
}

// New constructs a Pipeline.
func New(cfg Config, indexer index.Indexer, retry RetryPolicy, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		indexer: indexer,
		retry:   retry,
		logger:  logger,
	}
}

// Run ingests every raw-page archive under commentsDir whose name contains
// areaFilter. The directory is always a local path; remote scrape output
// must be synced down first. With rebuild set, the index is deleted and
// recreated before any write; otherwise the mapping is only installed if
// missing.
func (p *Pipeline) Run(ctx context.Context, commentsDir string, rebuild bool, areaFilter string) error {
	if err := p.indexer.EnsureIndex(ctx, rebuild); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	entries, err := os.ReadDir(commentsDir)
	if err != nil {
		return fmt.Errorf("read comments dir: %w", err)
	}

	ingested := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasSuffix(name, linksSuffix) || !strings.Contains(name, areaFilter) {
			continue
		}

		p.logger.Info("ingesting area archive", zap.String("area", name))
		arc, err := archive.NewFS(filepath.Join(commentsDir, name))
		if err != nil {
			return err
		}
		if err := p.IngestArchive(ctx, arc); err != nil {
			return fmt.Errorf("ingest %s: %w", name, err)
		}
		ingested++
	}

	if ingested == 0 {
		return fmt.Errorf("no raw review archives under %s match %q", commentsDir, areaFilter)
	}
	return nil
}

// IngestArchive walks every raw page in one archive, extracts the
// restaurant metadata once per page, and upserts one document per review
// block found on that page.
func (p *Pipeline) IngestArchive(ctx context.Context, arc archive.Archive) error {
	keys, err := arc.Keys(ctx)
	if err != nil {
		return err
	}

	bar := p.newBar(len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.ingestPage(ctx, arc, key); err != nil {
			return err
		}
		_ = bar.Add(1)
	}
	return nil
}

func (p *Pipeline) ingestPage(ctx context.Context, arc archive.Archive, key string) error {
	rstID, cmtID, ok := splitPageKey(key)
	if !ok {
		p.logger.Debug("skipping non-page key", zap.String("key", key))
		return nil
	}

	data, err := arc.Get(ctx, key)
	if err != nil {
		return err
	}

	meta, err := markup.ExtractRestaurantMeta(string(data))
	if err != nil {
		// A malformed page is logged and skipped; it will be retried on
		// the next full run.
		p.logger.Warn("failed to extract restaurant metadata",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil
	}
	reviews, err := markup.ExtractReviews(string(data))
	if err != nil {
		p.logger.Warn("failed to extract reviews",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil
	}

	for _, review := range reviews {
		doc := index.Document{
			RstID:      rstID,
			RstName:    meta.Name,
			RstAddress: meta.Address,
			RstLoc:     meta.Loc(),
			RstGenre:   meta.Genres,
			UsrName:    meta.ReviewerName,
			UsrID:      meta.ReviewerID,
			CmtDate:    review.Date,
			CmtID:      cmtID,
			CmtTitle:   review.Title,
			CmtText:    review.Text,
		}
		if err := p.upsert(ctx, index.DocumentID(rstID, cmtID), doc); err != nil {
			return err
		}
	}
	return nil
}

// upsert writes one document, repeating failed attempts per the retry
// policy. With the production policy this loop only exits on success or
// context cancellation: a stuck index manifests as repeated log lines, not
// a crash.
func (p *Pipeline) upsert(ctx context.Context, id string, doc index.Document) error {
	for attempt := 0; ; attempt++ {
		err := p.indexer.Upsert(ctx, id, doc)
		if err == nil {
			metrics.ObserveDocumentIndexed()
			return nil
		}
		if !p.retry.ShouldRetry(err, attempt) {
			return fmt.Errorf("upsert document %s: %w", id, err)
		}
		metrics.ObserveUpsertRetry()
		p.logger.Warn("index write failed, retrying",
			zap.String("doc_id", id),
			zap.Int("attempt", attempt+1),
			zap.Any("document", doc),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.retry.Backoff(attempt)):
		}
	}
}

// splitPageKey parses "<rst_id>/<cmt_id>.txt" archive keys.
func splitPageKey(key string) (rstID, cmtID string, ok bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 2 || !strings.HasSuffix(parts[1], ".txt") {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".txt"), true
}

func (p *Pipeline) newBar(total int) *progressbar.ProgressBar {
	if !p.cfg.ShowProgress {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.Default(int64(total))
}
