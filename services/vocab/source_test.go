package vocabsvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/course"
)

const ucsdTable = `[
	{"Table 1": "Mathematics", "Unnamed: 1": ""},
	{"Table 1": "", "Unnamed: 1": "MATH 10A"},
	{"Table 1": "", "Unnamed: 1": "MATH 20C"},
	{"Table 1": "Computer Science", "Unnamed: 1": "CSE 101"}
]`

var ucsdRows = []course.TableRow{
	{Category: "Mathematics"},
	{Item: "MATH 10A"},
	{Item: "MATH 20C"},
	{Category: "Computer Science", Item: "CSE 101"},
}

func writeWorkbook(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestDirSource_FetchTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ucsd_courses.json"), []byte(ucsdTable), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken_courses.json"), []byte("{"), 0o644))
	writeWorkbook(t, filepath.Join(dir, "ucla_courses.xlsx"), [][]interface{}{
		{"Table 1", "Unnamed: 1"},
		{"Mathematics", ""},
		{"", "MATH 31A"},
	})
	src := NewDirSource(dir)

	tests := []struct {
		name        string
		institution string
		want        []course.TableRow
		wantErr     error
		anyErr      bool
	}{
		{name: "json", institution: "ucsd", want: ucsdRows},
		{name: "case insensitive", institution: " UCSD ", want: ucsdRows},
		{name: "xlsx", institution: "ucla", want: []course.TableRow{{Category: "Mathematics"}, {Item: "MATH 31A"}}},
		{name: "unknown", institution: "mit", wantErr: core.ErrNotFound},
		{name: "traversal", institution: "../etc", wantErr: ErrBadInstitution},
		{name: "corrupt", institution: "broken", anyErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := src.FetchTable(context.Background(), tc.institution)
			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.anyErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestDirSource_FoldsIntoVocabulary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ucsd_courses.json"), []byte(ucsdTable), 0o644))

	rows, err := NewDirSource(dir).FetchTable(context.Background(), "ucsd")
	require.NoError(t, err)
	vocab := course.FoldTable(rows)
	assert.Equal(t, 3, vocab.CourseCount())
	assert.Equal(t, 2, vocab.DepartmentIndex("cse 101"))
}

func TestHTTPSource_FetchTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ucsd_courses.json":
			_, _ = w.Write([]byte(ucsdTable))
		case "/down_courses.json":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	src := NewHTTPSource(srv.URL+"/", time.Second)

	got, err := src.FetchTable(context.Background(), "ucsd")
	require.NoError(t, err)
	assert.Equal(t, ucsdRows, got)

	_, err = src.FetchTable(context.Background(), "mit")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = src.FetchTable(context.Background(), "down")
	assert.Error(t, err)
}
