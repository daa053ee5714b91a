package planner

import "strings"

// RestaurantID derives the site-wide restaurant identifier from a detail
// URL, e.g. "https://example.com/tokyo/A1301/A130101/13012345/" yields
// "13012345".
func RestaurantID(rawURL string) string {
	return lastSegment(rawURL)
}

// CommentID derives the review identifier from a review-detail URL,
// e.g. "/tokyo/A1301/A130101/13012345/dtlrvwlst/111/?lid=0" yields "111".
func CommentID(detailURL string) string {
	if i := strings.IndexByte(detailURL, '?'); i >= 0 {
		detailURL = detailURL[:i]
	}
	return lastSegment(detailURL)
}

func lastSegment(path string) string {
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
