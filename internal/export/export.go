// Package export writes scored leads as spreadsheet files for the sales team.
package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/retreat-leads/internal/model"
	"github.com/sells-group/retreat-leads/internal/pipeline"
	"github.com/sells-group/retreat-leads/internal/scoring"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Leads"

// OrganizerRow is one organizer per line. Column order is field order.
type OrganizerRow struct {
	OrganizerKey           string   `csv:"organizer_key"`
	Organizer              string   `csv:"organizer"`
	PriorityScore          float64  `csv:"priority_score"`
	LeadType               string   `csv:"lead_type"`
	RetreatCount           int      `csv:"retreat_count"`
	UniqueLocations        int      `csv:"unique_locations"`
	Platforms              string   `csv:"platforms"`
	IsTravelingFacilitator bool     `csv:"is_traveling_facilitator"`
	IsMultiPlatform        bool     `csv:"is_multi_platform"`
	Classification         string   `csv:"ai_classification"`
	Confidence             *float64 `csv:"ai_confidence,omitempty"`
	Email                  string   `csv:"email"`
	Phone                  string   `csv:"phone"`
	Website                string   `csv:"website"`
	Instagram              string   `csv:"instagram"`
	Facebook               string   `csv:"facebook"`
	LinkedIn               string   `csv:"linkedin"`
	Twitter                string   `csv:"twitter"`
	YouTube                string   `csv:"youtube"`
	TikTok                 string   `csv:"tiktok"`
	PlaceName              string   `csv:"google_business_name"`
	Address                string   `csv:"google_address"`
	MapsURL                string   `csv:"google_maps_url"`
	Rating                 *float64 `csv:"google_rating,omitempty"`
	ReviewCount            *int     `csv:"google_review_count,omitempty"`
	Latitude               *float64 `csv:"latitude,omitempty"`
	Longitude              *float64 `csv:"longitude,omitempty"`
	DistanceMiles          *float64 `csv:"distance_miles,omitempty"`
	Locations              string   `csv:"locations"`
	ProfileSummary         string   `csv:"profile_summary"`
	WebsiteAnalysis        string   `csv:"website_analysis"`
	TalkingPoints          string   `csv:"talking_points"`
	FitReasoning           string   `csv:"fit_reasoning"`
	RedFlags               string   `csv:"red_flags"`
	GreenFlags             string   `csv:"green_flags"`
	ClassifiedAt           string   `csv:"classified_at"`
	ScoredAt               string   `csv:"scored_at"`
	CenterURL              string   `csv:"center_url"`
	SalesStatus            string   `csv:"sales_status"`
	SalesNotes             string   `csv:"sales_notes"`
	FirstSeenPlatform      string   `csv:"first_seen_platform"`
	FirstSeenLabel         string   `csv:"first_seen_label"`
}

// EventRow is one listing per line with its organizer's fields joined on.
type EventRow struct {
	EventKey     string `csv:"event_key"`
	Title        string `csv:"title"`
	EventURL     string `csv:"event_url"`
	Platform     string `csv:"source_platform"`
	SourceLabel  string `csv:"source_label"`
	LocationText string `csv:"location"`
	DateText     string `csv:"dates"`
	PriceText    string `csv:"price"`
	RatingText   string `csv:"rating"`
	ScrapedAt    string `csv:"scrape_date"`
	OrganizerRow
}

// numericColumns are written as numbers in spreadsheets.
var numericColumns = map[string]bool{
	"priority_score":      true,
	"retreat_count":       true,
	"unique_locations":    true,
	"ai_confidence":       true,
	"google_rating":       true,
	"google_review_count": true,
	"latitude":            true,
	"longitude":           true,
	"distance_miles":      true,
}

// OrganizerRows flattens scored rows, keeping their order.
func OrganizerRows(rows []pipeline.LeadRow) []OrganizerRow {
	out := make([]OrganizerRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, organizerRow(r))
	}
	return out
}

// EventRows expands scored rows into one line per event. Organizers without
// events still get a line.
func EventRows(rows []pipeline.LeadRow) []EventRow {
	var out []EventRow
	for _, r := range rows {
		org := organizerRow(r)
		if len(r.Events) == 0 {
			out = append(out, EventRow{OrganizerRow: org})
			continue
		}
		for _, e := range r.Events {
			er := EventRow{
				EventKey:     e.Key,
				Title:        e.Title,
				EventURL:     e.URL,
				Platform:     e.Platform,
				SourceLabel:  e.SourceLabel,
				LocationText: e.LocationText,
				DateText:     e.DateText,
				PriceText:    e.PriceText,
				RatingText:   e.RatingText,
				OrganizerRow: org,
			}
			if !e.ScrapedAt.IsZero() {
				er.ScrapedAt = e.ScrapedAt.Format(timeLayout)
			}
			out = append(out, er)
		}
	}
	return out
}

func organizerRow(r pipeline.LeadRow) OrganizerRow {
	o := r.Organizer
	return OrganizerRow{
		OrganizerKey:           o.Key,
		Organizer:              o.DisplayName,
		PriorityScore:          scoring.Round1(r.Score.PriorityScore),
		LeadType:               string(r.Score.LeadType),
		RetreatCount:           r.Aggregates.RetreatCount,
		UniqueLocations:        r.Aggregates.UniqueLocations,
		Platforms:              strings.Join(r.Aggregates.Platforms, ", "),
		IsTravelingFacilitator: r.Aggregates.IsTravelingFacilitator,
		IsMultiPlatform:        r.Aggregates.IsMultiPlatform,
		Classification:         string(o.Classification),
		Confidence:             o.Confidence,
		Email:                  model.Deref(o.Email),
		Phone:                  model.Deref(o.Phone),
		Website:                model.Deref(o.Website),
		Instagram:              model.Deref(o.Instagram),
		Facebook:               model.Deref(o.Facebook),
		LinkedIn:               model.Deref(o.LinkedIn),
		Twitter:                model.Deref(o.Twitter),
		YouTube:                model.Deref(o.YouTube),
		TikTok:                 model.Deref(o.TikTok),
		PlaceName:              model.Deref(o.PlaceName),
		Address:                model.Deref(o.Address),
		MapsURL:                model.Deref(o.MapsURL),
		Rating:                 o.Rating,
		ReviewCount:            o.ReviewCount,
		Latitude:               o.Latitude,
		Longitude:              o.Longitude,
		DistanceMiles:          o.DistanceMiles,
		Locations:              locations(r.Events),
		ProfileSummary:         model.Deref(o.ProfileSummary),
		WebsiteAnalysis:        model.Deref(o.WebsiteAnalysis),
		TalkingPoints:          model.Deref(o.TalkingPoints),
		FitReasoning:           model.Deref(o.FitReasoning),
		RedFlags:               model.Deref(o.RedFlags),
		GreenFlags:             model.Deref(o.GreenFlags),
		ClassifiedAt:           timestamp(o.ClassifiedAt),
		ScoredAt:               timestamp(o.ScoredAt),
		CenterURL:              model.Deref(o.CenterURL),
		SalesStatus:            model.Deref(o.SalesStatus),
		SalesNotes:             model.Deref(o.SalesNotes),
		FirstSeenPlatform:      o.FirstSeenPlatform,
		FirstSeenLabel:         o.FirstSeenLabel,
	}
}

const timeLayout = "2006-01-02 15:04:05"

func timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// locations lists the distinct event locations in event order.
func locations(events []model.Event) string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range events {
		if e.LocationText != "" && !seen[e.LocationText] {
			seen[e.LocationText] = true
			out = append(out, e.LocationText)
		}
	}
	return model.JoinList(out)
}

// records encodes rows (per organizer or per event) as a header plus lines.
func records(rows []pipeline.LeadRow, perEvent bool) ([][]string, error) {
	var (
		data []byte
		err  error
	)
	if perEvent {
		er := EventRows(rows)
		if len(er) == 0 {
			return headerOnly(EventRow{})
		}
		data, err = csvutil.Marshal(er)
	} else {
		or := OrganizerRows(rows)
		if len(or) == 0 {
			return headerOnly(OrganizerRow{})
		}
		data, err = csvutil.Marshal(or)
	}
	if err != nil {
		return nil, eris.Wrap(err, "export: encode rows")
	}
	recs, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "export: reread rows")
	}
	return recs, nil
}

func headerOnly(v any) ([][]string, error) {
	h, err := csvutil.Header(v, "csv")
	if err != nil {
		return nil, eris.Wrap(err, "export: header")
	}
	return [][]string{h}, nil
}

// WriteCSV writes rows to path as CSV, one line per organizer or, with
// perEvent, one line per event.
func WriteCSV(path string, rows []pipeline.LeadRow, perEvent bool) error {
	recs, err := records(rows, perEvent)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create csv")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.WriteAll(recs); err != nil {
		return eris.Wrap(err, "export: write csv")
	}
	return eris.Wrap(f.Close(), "export: close csv")
}
