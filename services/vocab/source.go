package vocabsvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/course"
)

const (
	fileSuffix      = "_courses"
	maxResponseSize = 4 << 20
)

var (
	ErrBadInstitution = errors.New("invalid institution name")

	institutionRx = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

type (
	// DirSource reads <institution>_courses.json or <institution>_courses.xlsx from a directory.
	DirSource struct {
		dir string
	}

	// HTTPSource fetches <baseURL>/<institution>_courses.json.
	HTTPSource struct {
		baseURL string
		client  *http.Client
	}
)

var (
	_ course.VocabularySource = (*DirSource)(nil)
	_ course.VocabularySource = (*HTTPSource)(nil)
)

func institutionName(institution string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(institution))
	if !institutionRx.MatchString(name) {
		return "", errors.Wrapf(ErrBadInstitution, "%q", institution)
	}
	return name, nil
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (src *DirSource) Dir() string { return src.dir }

func (src *DirSource) FetchTable(_ context.Context, institution string) ([]course.TableRow, error) {
	name, err := institutionName(institution)
	if err != nil {
		return nil, err
	}
	base := filepath.Join(src.dir, name+fileSuffix)

	data, err := os.ReadFile(base + ".json")
	if err == nil {
		return decodeTable(data)
	}
	if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "reading course table")
	}
	if _, err = os.Stat(base + ".xlsx"); err == nil {
		return readWorkbook(base + ".xlsx")
	}
	return nil, errors.Wrapf(core.ErrNotFound, "course table of %s", name)
}

func decodeTable(data []byte) ([]course.TableRow, error) {
	var rows []course.TableRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.Wrap(err, "decoding course table")
	}
	return rows, nil
}

// readWorkbook reads the first sheet: column A holds categories, column B course codes.
// A header row naming the columns is skipped.
func readWorkbook(path string) ([]course.TableRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening course workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []course.TableRow{}, nil
	}
	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "reading course workbook")
	}

	rows := make([]course.TableRow, 0, len(cells))
	for i, r := range cells {
		var row course.TableRow
		if len(r) > 0 {
			row.Category = r[0]
		}
		if len(r) > 1 {
			row.Item = r[1]
		}
		if i == 0 && row.Category == "Table 1" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{baseURL: strings.TrimRight(baseURL, "/"), client: &http.Client{Timeout: timeout}}
}

func (src *HTTPSource) FetchTable(ctx context.Context, institution string) ([]course.TableRow, error) {
	name, err := institutionName(institution)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.baseURL+"/"+name+fileSuffix+".json", nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	res, err := src.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching course table")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(core.ErrNotFound, "course table of %s", name)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, errors.Errorf("fetching course table: status %d", res.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "reading course table")
	}
	return decodeTable(data)
}
