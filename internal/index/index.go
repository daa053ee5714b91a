// Package index writes review documents into the search index. The index
// schema is fixed; documents are upserted by a composite identity so that
// re-ingesting the same raw page overwrites rather than duplicates.
package index

import "context"

// Document is the search-engine-facing projection of one parsed review.
type Document struct {
	RstID      string   `json:"rst_id"`
	RstName    string   `json:"rst_name"`
	RstAddress string   `json:"rst_address"`
	RstLoc     string   `json:"rst_loc"`
	RstGenre   []string `json:"rst_genre"`
	UsrName    string   `json:"usr_name"`
	UsrID      string   `json:"usr_id"`
	CmtDate    string   `json:"cmt_date"`
	CmtID      string   `json:"cmt_id"`
	CmtTitle   string   `json:"cmt_title"`
	CmtText    string   `json:"cmt_text"`
}

// DocumentID builds the index identity for a review. Comment ids are not
// verified to be globally unique across restaurants, so the restaurant id
// is part of the identity.
func DocumentID(rstID, cmtID string) string {
	return rstID + "-" + cmtID
}

// Indexer abstracts the search index.
type Indexer interface {
	// EnsureIndex makes sure the index and its mapping exist. With
	// rebuild set, an existing index is deleted and recreated first;
	// this is destructive and only ever runs on explicit request.
	EnsureIndex(ctx context.Context, rebuild bool) error
	// Upsert installs the document under id, overwriting any previous
	// version.
	Upsert(ctx context.Context, id string, doc Document) error
}
