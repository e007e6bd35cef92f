package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/retreat-leads/internal/model"
)

// ErrUnsupportedInput is returned for input files that are neither JSON nor CSV.
var ErrUnsupportedInput = eris.New("pipeline: unsupported input format")

// timestampLayouts are tried in order when parsing scrape timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses a scrape timestamp in any of the formats scrapers
// emit. Times without a zone are taken as UTC. Blank input is the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("pipeline: unrecognized timestamp %q", s)
}

// csvAliases maps the column names of older scraper exports onto listing fields.
var csvAliases = map[string]string{
	"organizer":     "organizer_name",
	"location_city": "location_text",
	"location":      "location_text",
	"dates":         "date_text",
	"price":         "price_text",
	"rating":        "rating_text",
	"scrape_date":   "scrape_timestamp",
	"platform":      "source_platform",
	"url":           "event_url",
}

type listingCSV struct {
	Title         string `csv:"title"`
	OrganizerName string `csv:"organizer_name"`
	LocationText  string `csv:"location_text"`
	DateText      string `csv:"date_text"`
	PriceText     string `csv:"price_text"`
	RatingText    string `csv:"rating_text"`
	EventURL      string `csv:"event_url"`
	CenterURL     string `csv:"center_url"`
	Platform      string `csv:"source_platform"`
	SourceLabel   string `csv:"source_label"`
	ScrapedAt     string `csv:"scrape_timestamp"`
	Description   string `csv:"description"`
	GroupSize     string `csv:"group_size"`
}

type listingJSON struct {
	model.Listing
	ScrapedAt string `json:"scrape_timestamp"`
}

// ReadListings loads listings from a .json file (an array, or an object with
// a "listings" array), or from a .csv or .xlsx file with a header row.
func ReadListings(path string) ([]model.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return decodeListingsJSON(data)
	case ".csv":
		return decodeListingsCSV(csv.NewReader(bytes.NewReader(data)))
	case ".xlsx":
		rows, err := readXLSX(path)
		if err != nil {
			return nil, err
		}
		return decodeListingsCSV(&sliceReader{rows: rows})
	default:
		return nil, eris.Wrapf(ErrUnsupportedInput, "file %s", path)
	}
}

func decodeListingsJSON(data []byte) ([]model.Listing, error) {
	var raw []listingJSON
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Listings []listingJSON `json:"listings"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, eris.Wrap(err, "pipeline: decode listings json")
		}
		raw = wrapped.Listings
	} else if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, eris.Wrap(err, "pipeline: decode listings json")
	}

	out := make([]model.Listing, 0, len(raw))
	for i, r := range raw {
		ts, err := ParseTimestamp(r.ScrapedAt)
		if err != nil {
			return nil, eris.Wrapf(err, "listing %d", i)
		}
		l := r.Listing
		l.ScrapedAt = ts
		out = append(out, l)
	}
	return out, nil
}

// rowReader is satisfied by *csv.Reader and sliceReader.
type rowReader interface {
	Read() ([]string, error)
}

func decodeListingsCSV(cr rowReader) ([]model.Listing, error) {
	if r, ok := cr.(*csv.Reader); ok {
		r.FieldsPerRecord = -1
	}
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read header")
	}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if alias, ok := csvAliases[h]; ok {
			h = alias
		}
		header[i] = h
	}

	dec, err := csvutil.NewDecoder(cr, header...)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: csv decoder")
	}

	var out []model.Listing
	for {
		var row listingCSV
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "pipeline: decode listings csv")
		}
		ts, err := ParseTimestamp(row.ScrapedAt)
		if err != nil {
			return nil, eris.Wrapf(err, "listing %d", len(out))
		}
		out = append(out, model.Listing{
			Title:         row.Title,
			OrganizerName: row.OrganizerName,
			LocationText:  row.LocationText,
			DateText:      row.DateText,
			PriceText:     row.PriceText,
			RatingText:    row.RatingText,
			EventURL:      row.EventURL,
			CenterURL:     row.CenterURL,
			Platform:      row.Platform,
			SourceLabel:   row.SourceLabel,
			ScrapedAt:     ts,
			Description:   row.Description,
			GroupSize:     row.GroupSize,
		})
	}
	return out, nil
}

// ReadGuides loads guide records from a JSON array file.
func ReadGuides(path string) ([]GuideRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read %s", path)
	}
	var out []GuideRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "pipeline: decode guides json")
	}
	return out, nil
}

// readXLSX returns the rows of the first sheet as strings, padded to the
// width of the widest row.
func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("xlsx: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	for i, r := range rows {
		for len(r) < width {
			r = append(r, "")
		}
		rows[i] = r
	}
	return rows, nil
}

// sliceReader feeds in-memory rows to the csv decoder.
type sliceReader struct {
	rows [][]string
	pos  int
}

func (r *sliceReader) Read() ([]string, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}
