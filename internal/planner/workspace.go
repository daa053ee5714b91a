package planner

import (
	"fmt"
	"path/filepath"
	"sync"

	"cloud.google.com/go/storage"

	"github.com/ymiyake/reviewharvest/internal/archive"
)

// Archive names inside a workspace. The comments directory holds one link
// archive and one raw-page archive per area.
const (
	restaurantSetsName = "rst_links"
	commentsDirName    = "comments"
	linksSuffix        = "_links"
)

// Workspace is the set of keyed archives one scrape output location is
// made of: a shared restaurant-link-set archive plus per-area comment-link
// and raw-page archives.
type Workspace struct {
	open func(name string) (archive.Archive, error)
}

// NewFSWorkspace lays the workspace out under a local directory, matching
// the layout the ingest command later scans.
func NewFSWorkspace(outDir string) *Workspace {
	return &Workspace{
		open: func(name string) (archive.Archive, error) {
			return archive.NewFS(filepath.Join(outDir, filepath.FromSlash(name)))
		},
	}
}

// NewGCSWorkspace lays the workspace out under a bucket prefix, for runs
// where the raw corpus must survive the scraping host.
func NewGCSWorkspace(client *storage.Client, bucket, prefix string) *Workspace {
	return &Workspace{
		open: func(name string) (archive.Archive, error) {
			sub := name
			if prefix != "" {
				sub = prefix + "/" + name
			}
			return archive.NewGCS(client, archive.GCSConfig{Bucket: bucket, Prefix: sub})
		},
	}
}

// NewMemoryWorkspace backs every archive with memory; used by tests.
// Reopening a name returns the same archive so resumability is observable.
func NewMemoryWorkspace() *Workspace {
	var mu sync.Mutex
	archives := make(map[string]*archive.Memory)
	return &Workspace{
		open: func(name string) (archive.Archive, error) {
			mu.Lock()
			defer mu.Unlock()
			if arc, ok := archives[name]; ok {
				return arc, nil
			}
			arc := archive.NewMemory()
			archives[name] = arc
			return arc, nil
		},
	}
}

// RestaurantSets returns the archive holding one restaurant-link-set entry
// per area.
func (w *Workspace) RestaurantSets() (archive.Archive, error) {
	arc, err := w.open(restaurantSetsName)
	if err != nil {
		return nil, fmt.Errorf("open restaurant set archive: %w", err)
	}
	return arc, nil
}

// CommentLinks returns the archive of per-restaurant comment-link lists
// for one area.
func (w *Workspace) CommentLinks(area string) (archive.Archive, error) {
	arc, err := w.open(commentsDirName + "/" + area + linksSuffix)
	if err != nil {
		return nil, fmt.Errorf("open comment link archive for %s: %w", area, err)
	}
	return arc, nil
}

// RawPages returns the raw review-page archive for one area.
func (w *Workspace) RawPages(area string) (archive.Archive, error) {
	arc, err := w.open(commentsDirName + "/" + area)
	if err != nil {
		return nil, fmt.Errorf("open raw page archive for %s: %w", area, err)
	}
	return arc, nil
}
