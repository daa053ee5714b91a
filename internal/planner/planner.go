// Package planner decides which listing pages, comment-listing pages, and
// review detail pages still need fetching for an area, using the keyed
// archive as the sole source of truth for completed work. Every unit is
// fetched at most once across the lifetime of the archive.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/ymiyake/reviewharvest/internal/archive"
	"github.com/ymiyake/reviewharvest/internal/fetcher"
	"github.com/ymiyake/reviewharvest/internal/markup"
	"github.com/ymiyake/reviewharvest/internal/metrics"
)

// Site-imposed pagination contract. The listing endpoint serves at most 60
// pages sorted by descending comment count; the comment-listing endpoint
// serves at most 12 pages of 90 reviews each.
const (
	listingPageLimit = 60
	commentPageLimit = 12
	commentPageSize  = 90

	listingURLFormat = "%srstLst/%d/?Srt=D&SrtT=rvcn"
	commentURLFormat = "%sdtlrvwlst/COND-0/smp0/?lc=2&rvw_part=all&PG=%d"
	detailBaseURL    = "https://tabelog.com"
)

// Metric phase labels.
const (
	phaseListing  = "listing"
	phaseComments = "comments"
	phaseReviews  = "reviews"
)

// ErrMissingPrerequisite is returned when an operation needs output that an
// earlier phase has not produced yet.
var ErrMissingPrerequisite = errors.New("planner: prerequisite phase has not run")

// RestaurantSet is the archived discovery result for one area.
type RestaurantSet struct {
	Area        string                  `json:"area"`
	Restaurants []markup.RestaurantLink `json:"rst_links"`
}

// Config tunes planner behavior.
type Config struct {
	// ShowProgress renders a terminal progress bar during the raw page
	// fetch phase.
	ShowProgress bool
}

// Planner drives the three-phase crawl for one area at a time.
type Planner struct {
	cfg     Config
	ws      *Workspace
	fetcher fetcher.Fetcher
	logger  *zap.Logger
}

// New constructs a Planner over a workspace and a fetcher.
func New(cfg Config, ws *Workspace, f fetcher.Fetcher, logger *zap.Logger) *Planner {
	return &Planner{
		cfg:     cfg,
		ws:      ws,
		fetcher: f,
		logger:  logger,
	}
}

// Harvest runs the full three-phase crawl for one area.
func (p *Planner) Harvest(ctx context.Context, area Area) error {
	if err := p.DiscoverRestaurants(ctx, area); err != nil {
		return err
	}
	if err := p.DiscoverCommentLinks(ctx, area); err != nil {
		return err
	}
	return p.FetchRawPages(ctx, area)
}

func areaKey(area Area) string {
	return area.Name + ".json"
}

// DiscoverRestaurants paginates the area listing endpoint and archives the
// full ordered restaurant-link set as a single entry. If the entry already
// exists the call is a no-op with zero fetches. The write happens once,
// after the whole pagination completes, so no partial list is ever
// persisted.
func (p *Planner) DiscoverRestaurants(ctx context.Context, area Area) error {
	sets, err := p.ws.RestaurantSets()
	if err != nil {
		return err
	}
	done, err := sets.Contains(ctx, areaKey(area))
	if err != nil {
		return err
	}
	if done {
		p.logger.Info("restaurant links already archived", zap.String("area", area.Name))
		return nil
	}

	p.logger.Info("fetching restaurant links", zap.String("area", area.Name))

	set := RestaurantSet{Area: area.Name, Restaurants: []markup.RestaurantLink{}}
	for page := 1; page <= listingPageLimit; page++ {
		url := fmt.Sprintf(listingURLFormat, area.URL, page)
		body, err := p.fetcher.Fetch(ctx, url)
		metrics.ObserveFetch(phaseListing, err)
		if err != nil {
			return fmt.Errorf("fetch listing page %d for %s: %w", page, area.Name, err)
		}
		listing, err := markup.ParseListing(body)
		if err != nil {
			return fmt.Errorf("parse listing page %d for %s: %w", page, area.Name, err)
		}
		// A page without the count marker is not a listing page at all
		// (site error page); failing keeps the single-write guarantee
		// instead of archiving a truncated set.
		if listing.Count == "" {
			return fmt.Errorf("listing page %d for %s has no result count", page, area.Name)
		}
		if listing.Count == "0" {
			break
		}
		set.Restaurants = append(set.Restaurants, listing.Restaurants...)
		p.logger.Debug("listing page fetched",
			zap.String("area", area.Name),
			zap.Int("page", page),
			zap.Int("restaurants", len(listing.Restaurants)),
		)
	}

	p.logger.Info("restaurant links collected",
		zap.String("area", area.Name),
		zap.Int("count", len(set.Restaurants)),
	)

	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal restaurant set for %s: %w", area.Name, err)
	}
	return sets.Put(ctx, areaKey(area), payload)
}

func (p *Planner) loadRestaurantSet(ctx context.Context, area Area) (RestaurantSet, error) {
	sets, err := p.ws.RestaurantSets()
	if err != nil {
		return RestaurantSet{}, err
	}
	data, err := sets.Get(ctx, areaKey(area))
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return RestaurantSet{}, fmt.Errorf("%w: no restaurant set for area %s", ErrMissingPrerequisite, area.Name)
		}
		return RestaurantSet{}, err
	}
	var set RestaurantSet
	if err := json.Unmarshal(data, &set); err != nil {
		return RestaurantSet{}, fmt.Errorf("unmarshal restaurant set for %s: %w", area.Name, err)
	}
	return set, nil
}

// DiscoverCommentLinks paginates each restaurant's comment-listing endpoint
// and archives the ordered detail-URL list keyed by restaurant id. Each
// restaurant is an independently resumable unit: already-archived
// restaurants are skipped without fetching.
func (p *Planner) DiscoverCommentLinks(ctx context.Context, area Area) error {
	set, err := p.loadRestaurantSet(ctx, area)
	if err != nil {
		return err
	}
	links, err := p.ws.CommentLinks(area.Name)
	if err != nil {
		return err
	}

	p.logger.Info("fetching comment links",
		zap.String("area", area.Name),
		zap.Int("restaurants", len(set.Restaurants)),
	)

	for _, rst := range set.Restaurants {
		rstID := RestaurantID(rst.URL)
		key := rstID + ".json"
		done, err := links.Contains(ctx, key)
		if err != nil {
			return err
		}
		if done {
			continue
		}

		urls, err := p.collectCommentLinks(ctx, rst.URL)
		if err != nil {
			return fmt.Errorf("collect comment links for %s: %w", rstID, err)
		}
		p.logger.Info("comment links collected",
			zap.String("area", area.Name),
			zap.String("rst_id", rstID),
			zap.String("rst_name", rst.Name),
			zap.Int("count", len(urls)),
		)

		payload, err := json.Marshal(urls)
		if err != nil {
			return fmt.Errorf("marshal comment links for %s: %w", rstID, err)
		}
		if err := links.Put(ctx, key, payload); err != nil {
			return err
		}
	}
	return nil
}

// collectCommentLinks paginates one restaurant's comment listing. The site
// error page and a short page both signal the last page; neither is a
// failure.
func (p *Planner) collectCommentLinks(ctx context.Context, rstURL string) ([]string, error) {
	urls := []string{}
	for page := 1; page <= commentPageLimit; page++ {
		body, err := p.fetcher.Fetch(ctx, fmt.Sprintf(commentURLFormat, rstURL, page))
		metrics.ObserveFetch(phaseComments, err)
		if err != nil {
			return nil, fmt.Errorf("fetch comment page %d: %w", page, err)
		}
		listing, err := markup.ParseCommentListing(body)
		if err != nil {
			return nil, fmt.Errorf("parse comment page %d: %w", page, err)
		}
		if listing.ErrorMarker {
			break
		}
		urls = append(urls, listing.DetailURLs...)
		if len(listing.DetailURLs) < commentPageSize {
			break
		}
	}
	return urls, nil
}

// FetchRawPages fetches every not-yet-archived review detail page for the
// area and stores the raw markup under "<rst_id>/<cmt_id>.txt". This is
// the finest-grained resumability level: each fetch+store is independent.
func (p *Planner) FetchRawPages(ctx context.Context, area Area) error {
	links, err := p.ws.CommentLinks(area.Name)
	if err != nil {
		return err
	}
	raw, err := p.ws.RawPages(area.Name)
	if err != nil {
		return err
	}

	keys, err := links.Keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		// An empty link archive is legitimate when the area itself has no
		// restaurants; only a non-empty restaurant set proves the
		// comment-link phase was skipped.
		set, err := p.loadRestaurantSet(ctx, area)
		if err != nil {
			return err
		}
		if len(set.Restaurants) == 0 {
			p.logger.Info("area has no restaurants", zap.String("area", area.Name))
			return nil
		}
		return fmt.Errorf("%w: no comment links for area %s", ErrMissingPrerequisite, area.Name)
	}

	p.logger.Info("fetching raw review pages",
		zap.String("area", area.Name),
		zap.Int("restaurants", len(keys)),
	)

	for _, key := range keys {
		rstID := strings.TrimSuffix(key, ".json")
		data, err := links.Get(ctx, key)
		if err != nil {
			return err
		}
		var urls []string
		if err := json.Unmarshal(data, &urls); err != nil {
			return fmt.Errorf("unmarshal comment links for %s: %w", rstID, err)
		}

		bar := p.newBar(len(urls), rstID)
		for _, detailURL := range urls {
			if err := p.fetchRawPage(ctx, raw, rstID, detailURL); err != nil {
				return err
			}
			_ = bar.Add(1)
		}
	}
	return nil
}

func (p *Planner) fetchRawPage(ctx context.Context, raw archive.Archive, rstID, detailURL string) error {
	key := rstID + "/" + CommentID(detailURL) + ".txt"
	done, err := raw.Contains(ctx, key)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	body, err := p.fetcher.Fetch(ctx, detailBaseURL+detailURL)
	metrics.ObserveFetch(phaseReviews, err)
	if err != nil {
		return fmt.Errorf("fetch review page %s: %w", detailURL, err)
	}
	return raw.Put(ctx, key, []byte(body))
}

func (p *Planner) newBar(total int, description string) *progressbar.ProgressBar {
	if !p.cfg.ShowProgress {
		return progressbar.DefaultSilent(int64(total), description)
	}
	return progressbar.Default(int64(total), description)
}
