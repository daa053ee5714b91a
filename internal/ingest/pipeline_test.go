package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ymiyake/reviewharvest/internal/archive"
	"github.com/ymiyake/reviewharvest/internal/index"
	"github.com/ymiyake/reviewharvest/internal/ingest"
)

// fakeIndexer counts attempts and can be primed to fail the first N writes.
type fakeIndexer struct {
	ensureCalls  int
	lastRebuild  bool
	attempts     int
	failuresLeft int
	docs         map[string]index.Document
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{docs: make(map[string]index.Document)}
}

func (f *fakeIndexer) EnsureIndex(_ context.Context, rebuild bool) error {
	f.ensureCalls++
	f.lastRebuild = rebuild
	return nil
}

func (f *fakeIndexer) Upsert(_ context.Context, id string, doc index.Document) error {
	f.attempts++
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return errors.New("index unavailable")
	}
	f.docs[id] = doc
	return nil
}

// boundedPolicy stops after maxAttempts so a test never loops forever.
type boundedPolicy struct {
	maxAttempts int
}

func (p boundedPolicy) ShouldRetry(err error, attempt int) bool {
	return err != nil && attempt < p.maxAttempts
}

func (p boundedPolicy) Backoff(int) time.Duration { return 0 }

func reviewPageHTML(name, title string, extraReviews int) string {
	page := `<html><body>
<dl class="rdheader-subinfo__item">
  <dt>ジャンル：</dt>
  <dd><a class="linktree__parent-target">寿司</a></dd>
</dl>
<table class="c-table"><tr><td>` + name + `</td></tr></table>
<p class="rstinfo-table__address">東京都中央区銀座1-2-3</p>
<div class="rstinfo-table__map">
  <img data-original="https://maps.example.com/staticmap?markers=color:red%7C35.6895,139.6917&zoom=15" />
</div>
<p class="rvw-item__rvwr-name"><a href="/rvwr/u1/"><span><span>taro_eats</span></span></a></p>
<div class="rvw-item">`
	if title != "" {
		page += `<p class="rvw-item__title">` + title + `</p>`
	}
	page += `<div class="rvw-item__rvw-comment">Great food.</div>
<div class="rvw-item__single-date">2020/01訪問</div>
</div>`
	for i := 0; i < extraReviews; i++ {
		page += fmt.Sprintf(`<div class="rvw-item">
<div class="rvw-item__rvw-comment">Visit number %d.</div>
<div class="rvw-item__single-date">2019/0%d訪問</div>
</div>`, i+2, i+2)
	}
	return page + `</body></html>`
}

func newPipeline(idx *fakeIndexer, retry ingest.RetryPolicy) *ingest.Pipeline {
	if retry == nil {
		retry = index.NewForeverPolicy(time.Nanosecond, time.Microsecond)
	}
	return ingest.New(ingest.Config{}, idx, retry, zap.NewNop())
}

func seedArchive(t *testing.T, pages map[string]string) *archive.Memory {
	t.Helper()
	arc := archive.NewMemory()
	for key, html := range pages {
		require.NoError(t, arc.Put(context.Background(), key, []byte(html)))
	}
	return arc
}

func TestIngestArchive(t *testing.T) {
	idx := newFakeIndexer()
	arc := seedArchive(t, map[string]string{
		"13012345/111.txt": reviewPageHTML("Sushi Aoki", "Wonderful", 0),
	})

	require.NoError(t, newPipeline(idx, nil).IngestArchive(context.Background(), arc))

	require.Len(t, idx.docs, 1)
	doc := idx.docs["13012345-111"]
	assert.Equal(t, "13012345", doc.RstID)
	assert.Equal(t, "Sushi Aoki", doc.RstName)
	assert.Equal(t, "東京都中央区銀座1-2-3", doc.RstAddress)
	assert.Equal(t, "35.6895,139.6917", doc.RstLoc)
	assert.Equal(t, []string{"寿司"}, doc.RstGenre)
	assert.Equal(t, "taro_eats", doc.UsrName)
	assert.Equal(t, "/rvwr/u1/", doc.UsrID)
	assert.Equal(t, "111", doc.CmtID)
	assert.Equal(t, "2020-01", doc.CmtDate)
	assert.Equal(t, "Wonderful", doc.CmtTitle)
	assert.Equal(t, "Great food.", doc.CmtText)
}

func TestIngestArchiveMissingTitleDefaultsEmpty(t *testing.T) {
	idx := newFakeIndexer()
	arc := seedArchive(t, map[string]string{
		"13012345/111.txt": reviewPageHTML("Sushi Aoki", "", 0),
	})

	require.NoError(t, newPipeline(idx, nil).IngestArchive(context.Background(), arc))

	require.Len(t, idx.docs, 1)
	assert.Equal(t, "", idx.docs["13012345-111"].CmtTitle)
}

func TestIngestArchiveIsIdempotent(t *testing.T) {
	idx := newFakeIndexer()
	arc := seedArchive(t, map[string]string{
		"13012345/111.txt": reviewPageHTML("Sushi Aoki", "Wonderful", 0),
	})
	p := newPipeline(idx, nil)

	require.NoError(t, p.IngestArchive(context.Background(), arc))
	require.NoError(t, p.IngestArchive(context.Background(), arc))

	assert.Equal(t, 2, idx.attempts, "second run rewrites the same document")
	assert.Len(t, idx.docs, 1, "overwrite, not duplicate")
}

func TestIngestArchiveMultipleReviewBlocks(t *testing.T) {
	idx := newFakeIndexer()
	arc := seedArchive(t, map[string]string{
		"13012345/111.txt": reviewPageHTML("Sushi Aoki", "Wonderful", 2),
	})

	require.NoError(t, newPipeline(idx, nil).IngestArchive(context.Background(), arc))

	// All blocks on one raw page share the page's comment id, so the last
	// block wins; every block is still written.
	assert.Equal(t, 3, idx.attempts)
	require.Len(t, idx.docs, 1)
	assert.Equal(t, "Visit number 3.", idx.docs["13012345-111"].CmtText)
}

func TestIngestArchiveRetriesUntilSuccess(t *testing.T) {
	idx := newFakeIndexer()
	idx.failuresLeft = 3
	arc := seedArchive(t, map[string]string{
		"13012345/111.txt": reviewPageHTML("Sushi Aoki", "Wonderful", 0),
	})

	require.NoError(t, newPipeline(idx, nil).IngestArchive(context.Background(), arc))

	assert.Equal(t, 4, idx.attempts, "N failures then success means N+1 attempts")
	assert.Len(t, idx.docs, 1)
}

func TestIngestArchiveBoundedPolicySurfacesError(t *testing.T) {
	idx := newFakeIndexer()
	idx.failuresLeft = 100
	arc := seedArchive(t, map[string]string{
		"13012345/111.txt": reviewPageHTML("Sushi Aoki", "Wonderful", 0),
	})

	err := newPipeline(idx, boundedPolicy{maxAttempts: 2}).IngestArchive(context.Background(), arc)
	assert.Error(t, err)
	assert.Equal(t, 3, idx.attempts)
}

func TestIngestArchiveSkipsMalformedPages(t *testing.T) {
	idx := newFakeIndexer()
	arc := seedArchive(t, map[string]string{
		"13012345/111.txt": "<html><body>not a review page</body></html>",
		"13067890/222.txt": reviewPageHTML("Ramen Taro", "", 0),
	})

	require.NoError(t, newPipeline(idx, nil).IngestArchive(context.Background(), arc))

	require.Len(t, idx.docs, 1)
	assert.Contains(t, idx.docs, "13067890-222")
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	commentsDir := t.TempDir()

	writePage := func(area, rst, cmt string) {
		dir := filepath.Join(commentsDir, area, rst)
		require.NoError(t, os.MkdirAll(dir, 0o750))
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, cmt+".txt"),
			[]byte(reviewPageHTML("Rst "+rst, "", 0)),
			0o600,
		))
	}
	writePage("tokyo", "11111111", "1")
	writePage("osaka", "22222222", "2")

	// Link archives live next to raw archives and must be skipped.
	require.NoError(t, os.MkdirAll(filepath.Join(commentsDir, "tokyo_links"), 0o750))

	idx := newFakeIndexer()
	p := newPipeline(idx, nil)

	require.NoError(t, p.Run(ctx, commentsDir, true, "tokyo"))

	assert.Equal(t, 1, idx.ensureCalls)
	assert.True(t, idx.lastRebuild)
	require.Len(t, idx.docs, 1)
	assert.Contains(t, idx.docs, "11111111-1")

	t.Run("EmptyFilterMatchesAll", func(t *testing.T) {
		idx := newFakeIndexer()
		require.NoError(t, newPipeline(idx, nil).Run(ctx, commentsDir, false, ""))
		assert.False(t, idx.lastRebuild)
		assert.Len(t, idx.docs, 2)
	})

	t.Run("NoMatchFailsFast", func(t *testing.T) {
		idx := newFakeIndexer()
		err := newPipeline(idx, nil).Run(ctx, commentsDir, false, "nagoya")
		assert.Error(t, err)
	})
}
