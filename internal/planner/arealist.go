package planner

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Area identifies one top-level crawl unit: a named region and the listing
// entry URL to paginate from.
type Area struct {
	Name string
	URL  string
}

// ReadAreaList loads the tab-separated area table. The header row must
// contain "area" and "url" columns; extra columns are ignored and rows are
// consumed top to bottom.
func ReadAreaList(path string) ([]Area, error) {
	file, err := os.Open(path) // #nosec G304 -- the path comes from the CLI argument.
	if err != nil {
		return nil, fmt.Errorf("open area list: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read area list: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("area list %s is empty", path)
	}

	areaCol, urlCol := -1, -1
	for i, name := range rows[0] {
		switch name {
		case "area":
			areaCol = i
		case "url":
			urlCol = i
		}
	}
	if areaCol < 0 || urlCol < 0 {
		return nil, fmt.Errorf("area list %s must have area and url columns", path)
	}

	var areas []Area
	for i, row := range rows[1:] {
		if len(row) <= areaCol || len(row) <= urlCol {
			return nil, fmt.Errorf("area list row %d is missing columns", i+2)
		}
		areas = append(areas, Area{Name: row[areaCol], URL: row[urlCol]})
	}
	return areas, nil
}
