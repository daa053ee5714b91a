// Package markup extracts named fields from fetched page markup. Every
// function here is a pure transformation from an HTML string to a typed
// field set; nothing in this package touches the network or the archive.
package markup

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors for the listing and comment-listing endpoints. The site's
// class names are part of its contract with us; keep them in one place.
const (
	selListingCount   = "span.list-condition__count"
	selRestaurantLink = "a.list-rst__rst-name-target"
	selErrorTitle     = "h2.error-common__title"
	selCommentItem    = "div.rvw-simple-item"
)

// RestaurantLink is one name/URL pair from a listing page, in page order.
type RestaurantLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ListingPage is the extracted view of one restaurant-listing page.
type ListingPage struct {
	// Count is the raw result-count text; the literal "0" terminates
	// pagination.
	Count       string
	Restaurants []RestaurantLink
}

// CommentListing is the extracted view of one comment-listing page.
type CommentListing struct {
	// ErrorMarker is set when the site rendered its error page, which
	// signals the end of pagination rather than a failure.
	ErrorMarker bool
	// DetailURLs are the per-review detail links in page order.
	DetailURLs []string
}

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return doc, nil
}

// ParseListing extracts the result count and the ordered restaurant links
// from a listing page. Listing order is imposed by the site-side sort and
// preserved verbatim.
func ParseListing(html string) (ListingPage, error) {
	doc, err := parse(html)
	if err != nil {
		return ListingPage{}, err
	}

	page := ListingPage{
		Count: strings.TrimSpace(doc.Find(selListingCount).First().Text()),
	}
	doc.Find(selRestaurantLink).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		page.Restaurants = append(page.Restaurants, RestaurantLink{
			Name: strings.TrimSpace(s.Text()),
			URL:  href,
		})
	})
	return page, nil
}

// ParseCommentListing extracts the review-detail URLs from one
// comment-listing page, or the error marker that terminates pagination.
func ParseCommentListing(html string) (CommentListing, error) {
	doc, err := parse(html)
	if err != nil {
		return CommentListing{}, err
	}

	if doc.Find(selErrorTitle).Length() > 0 {
		return CommentListing{ErrorMarker: true}, nil
	}

	var listing CommentListing
	doc.Find(selCommentItem).Each(func(_ int, s *goquery.Selection) {
		if url, ok := s.Attr("data-detail-url"); ok {
			listing.DetailURLs = append(listing.DetailURLs, url)
		}
	})
	return listing, nil
}
