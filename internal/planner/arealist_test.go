package planner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymiyake/reviewharvest/internal/planner"
)

func writeAreaList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "area_list.tsv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadAreaList(t *testing.T) {
	path := writeAreaList(t, "area\turl\n"+
		"tokyo\thttps://example.com/tokyo/\n"+
		"osaka\thttps://example.com/osaka/\n")

	areas, err := planner.ReadAreaList(path)
	require.NoError(t, err)
	assert.Equal(t, []planner.Area{
		{Name: "tokyo", URL: "https://example.com/tokyo/"},
		{Name: "osaka", URL: "https://example.com/osaka/"},
	}, areas)
}

func TestReadAreaListExtraColumns(t *testing.T) {
	path := writeAreaList(t, "pref\tarea\turl\n"+
		"13\ttokyo\thttps://example.com/tokyo/\n")

	areas, err := planner.ReadAreaList(path)
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, "tokyo", areas[0].Name)
}

func TestReadAreaListMissingColumns(t *testing.T) {
	path := writeAreaList(t, "name\tlink\nx\ty\n")
	_, err := planner.ReadAreaList(path)
	assert.Error(t, err)
}

func TestReadAreaListMissingFile(t *testing.T) {
	_, err := planner.ReadAreaList(filepath.Join(t.TempDir(), "absent.tsv"))
	assert.Error(t, err)
}

func TestRestaurantID(t *testing.T) {
	assert.Equal(t, "13012345", planner.RestaurantID("https://example.com/tokyo/A1301/A130101/13012345/"))
	assert.Equal(t, "13012345", planner.RestaurantID("https://example.com/tokyo/A1301/A130101/13012345"))
}

func TestCommentID(t *testing.T) {
	assert.Equal(t, "111", planner.CommentID("/tokyo/A1301/A130101/13012345/dtlrvwlst/111/?lid=0"))
	assert.Equal(t, "111", planner.CommentID("/tokyo/A1301/A130101/13012345/dtlrvwlst/111/"))
}
