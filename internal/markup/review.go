package markup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors for the review detail page.
const (
	selSubInfoItem   = "dl.rdheader-subinfo__item"
	selGenreAnchor   = "a.linktree__parent-target"
	selAddress       = "p.rstinfo-table__address"
	selMap           = "div.rstinfo-table__map"
	selInfoTable     = "table.c-table"
	selReviewerName  = "p.rvw-item__rvwr-name"
	selReviewItem    = "div.rvw-item"
	selReviewTitle   = "p.rvw-item__title"
	selReviewComment = "div.rvw-item__rvw-comment"
	selReviewDate    = "div.rvw-item__single-date"

	genreLabel = "ジャンル："
)

// RestaurantMeta is the restaurant-level field set shared by every review
// rendered on the same detail page. It is extracted once per raw page and
// broadcast to each review.
type RestaurantMeta struct {
	Name         string
	Address      string
	Lat          float64
	Lng          float64
	Genres       []string
	ReviewerID   string
	ReviewerName string
}

// Review is one review block from a detail page.
type Review struct {
	// Title is empty when the reviewer gave none.
	Title string
	Text  string
	// Date is truncated to year-month ("2006-01") by construction.
	Date string
}

// Loc serializes the coordinates in the "lat,lng" form the index expects.
func (m RestaurantMeta) Loc() string {
	return fmt.Sprintf("%v,%v", m.Lat, m.Lng)
}

// ExtractRestaurantMeta pulls the restaurant-level fields out of a review
// detail page. Name, address, and coordinates are required; genres and
// reviewer identity default to empty when absent.
func ExtractRestaurantMeta(html string) (RestaurantMeta, error) {
	doc, err := parse(html)
	if err != nil {
		return RestaurantMeta{}, err
	}

	meta := RestaurantMeta{
		Genres: extractGenres(doc),
	}

	name := doc.Find(selInfoTable).First().Find("td").First().Text()
	meta.Name = strings.Join(strings.Fields(name), " ")
	if meta.Name == "" {
		return RestaurantMeta{}, fmt.Errorf("restaurant name not found")
	}

	meta.Address = strings.TrimSpace(doc.Find(selAddress).First().Text())
	if meta.Address == "" {
		return RestaurantMeta{}, fmt.Errorf("restaurant address not found")
	}

	mapURL, ok := doc.Find(selMap).First().Find("img").First().Attr("data-original")
	if !ok {
		return RestaurantMeta{}, fmt.Errorf("map image not found")
	}
	meta.Lat, meta.Lng, err = ParseMapCoordinates(mapURL)
	if err != nil {
		return RestaurantMeta{}, err
	}

	reviewer := doc.Find(selReviewerName).First()
	meta.ReviewerID = reviewer.Find("a").First().AttrOr("href", "")
	meta.ReviewerName = strings.TrimSpace(reviewer.Find("span").Find("span").First().Text())

	return meta, nil
}

func extractGenres(doc *goquery.Document) []string {
	var genres []string
	doc.Find(selSubInfoItem).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Find("dt").First().Text()) != genreLabel {
			return true
		}
		s.Find(selGenreAnchor).Each(func(_ int, a *goquery.Selection) {
			genres = append(genres, strings.TrimSpace(a.Text()))
		})
		return false
	})
	return genres
}

// ParseMapCoordinates parses latitude and longitude from the static map
// image URL, which embeds them as "...red%7C<lat>,<lng>&zoom=...".
func ParseMapCoordinates(mapURL string) (lat, lng float64, err error) {
	fragment := strings.SplitN(mapURL, "&zoom=", 2)[0]
	idx := strings.LastIndex(fragment, "red%7C")
	if idx < 0 {
		return 0, 0, fmt.Errorf("map url %q has no coordinate marker", mapURL)
	}
	parts := strings.Split(fragment[idx+len("red%7C"):], ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("map url %q has malformed coordinates", mapURL)
	}
	lat, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse latitude: %w", err)
	}
	lng, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse longitude: %w", err)
	}
	return lat, lng, nil
}

// ExtractReviews returns every review block on a detail page. A single raw
// page can render several reviews by the same reviewer.
func ExtractReviews(html string) ([]Review, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	var reviews []Review
	doc.Find(selReviewItem).Each(func(_ int, s *goquery.Selection) {
		reviews = append(reviews, Review{
			Title: strings.TrimSpace(s.Find(selReviewTitle).First().Text()),
			Text:  strings.TrimSpace(s.Find(selReviewComment).First().Text()),
			Date:  normalizeDate(s.Find(selReviewDate).First().Text()),
		})
	})
	return reviews, nil
}

// normalizeDate truncates a visit-date string to year-month granularity:
// "2020/01 visited" becomes "2020-01". Day-level precision is deliberately
// discarded.
func normalizeDate(raw string) string {
	trimmed := []rune(strings.TrimSpace(raw))
	if len(trimmed) > 7 {
		trimmed = trimmed[:7]
	}
	return strings.ReplaceAll(string(trimmed), "/", "-")
}
