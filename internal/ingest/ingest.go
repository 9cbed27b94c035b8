// Package ingest loads an event export into memory as one static batch.
package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ibeckermayer/eventgraph/internal/types"
)

// IngressError means the source table cannot be used at all. It is fatal.
type IngressError struct {
	Path string
	Err  error
}

func (e *IngressError) Error() string {
	return fmt.Sprintf("ingress %s: %v", e.Path, e.Err)
}

func (e *IngressError) Unwrap() error {
	return e.Err
}

// ErrMissingColumns is wrapped by IngressError when the header lacks
// required columns.
var ErrMissingColumns = errors.New("missing required columns")

// Options controls how a file is read
type Options struct {
	// Sheet selects the worksheet of an .xlsx file; empty means the first.
	Sheet string
	// DropColumns are removed from the table before anything else happens.
	DropColumns []string
}

// Table is the loaded record set
type Table struct {
	Columns []string
	Posts   []types.Post
}

// Load reads path and returns every row as a Post. Format is chosen by
// extension: .xlsx goes through excelize, anything else is read as CSV.
func Load(ctx context.Context, path string, opts Options) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path, opts.Sheet)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, &IngressError{Path: path, Err: err}
	}
	if len(rows) == 0 {
		return nil, &IngressError{Path: path, Err: errors.New("no header row")}
	}

	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	header, body := dropColumns(header, rows[1:], opts.DropColumns)

	idx, missing := columnIndex(header)
	if len(missing) > 0 {
		return nil, &IngressError{
			Path: path,
			Err:  fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", ")),
		}
	}

	table := &Table{
		Columns: header,
		Posts:   make([]types.Post, 0, len(body)),
	}
	for _, row := range body {
		table.Posts = append(table.Posts, parseRow(normalizeWidth(row, len(header)), idx))
	}
	return table, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV reads every record from r, tolerating stray quotes and ragged rows
// the way platform archive exports need.
func ReadCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func dropColumns(header []string, rows [][]string, drop []string) ([]string, [][]string) {
	if len(drop) == 0 {
		return header, rows
	}

	dropSet := make(map[string]bool, len(drop))
	for _, d := range drop {
		dropSet[strings.ToLower(strings.TrimSpace(d))] = true
	}

	var keep []int
	for i, h := range header {
		if !dropSet[strings.ToLower(strings.TrimSpace(h))] {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(header) {
		return header, rows
	}

	project := func(row []string) []string {
		out := make([]string, len(keep))
		for j, i := range keep {
			if i < len(row) {
				out[j] = row[i]
			}
		}
		return out
	}

	newRows := make([][]string, len(rows))
	for i, r := range rows {
		newRows[i] = project(r)
	}
	return project(header), newRows
}

// normalizeWidth pads or trims row to n cells. excelize omits trailing
// empty cells.
func normalizeWidth(row []string, n int) []string {
	if len(row) == n {
		return row
	}
	out := make([]string, n)
	copy(out, row)
	return out
}

func parseRow(row []string, idx map[string]int) types.Post {
	cell := func(col string) string {
		return row[idx[col]]
	}

	p := types.Post{
		PostID:           types.NullIfEmpty(cell(ColPostID)),
		ActorID:          types.NullIfEmpty(cell(ColActorID)),
		ActorHandle:      types.NullIfEmpty(cell(ColActorHandle)),
		BodyText:         types.NullIfEmpty(cell(ColBodyText)),
		EntitiesJSON:     types.NullIfEmpty(cell(ColEntitiesJSON)),
		SourceMarkup:     types.NullIfEmpty(cell(ColSourceMarkup)),
		StatusURL:        types.NullIfEmpty(cell(ColStatusURL)),
		InReplyToActorID: types.NullIfEmpty(cell(ColInReplyToActorID)),
		InReplyToHandle:  types.NullIfEmpty(cell(ColInReplyToHandle)),
		CreatedAtRaw:     cell(ColCreatedAt),
		Row:              row,
	}

	if t, ok := ParseTimestamp(p.CreatedAtRaw); ok {
		p.CreatedAt = t
		p.CreatedAtValid = true
	}

	if p.EntitiesJSON.Valid {
		p.Entities, p.EntitiesErr = ParseEntities(p.EntitiesJSON.String)
	}
	return p
}

// timestampLayouts are tried in order. Layouts without a zone read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RubyDate,
	"02/01/2006 15:04:05",
	time.DateOnly,
}

// ParseTimestamp parses s with the first matching layout and returns it in UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseEntities decodes an entities_json document. A document that decodes
// but lacks the arrays yields empty slices.
func ParseEntities(raw string) (types.Entities, error) {
	var e types.Entities
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return types.Entities{}, fmt.Errorf("decode entities: %w", err)
	}
	return e, nil
}
