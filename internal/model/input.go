package model

import (
	"strings"
	"time"
)

// Listing is one raw listing as produced by a platform scraper.
type Listing struct {
	Title         string    `json:"title"`
	OrganizerName string    `json:"organizer_name"`
	LocationText  string    `json:"location_text"`
	DateText      string    `json:"date_text"`
	PriceText     string    `json:"price_text"`
	RatingText    string    `json:"rating_text"`
	EventURL      string    `json:"event_url"`
	CenterURL     string    `json:"center_url"`
	Platform      string    `json:"source_platform"`
	SourceLabel   string    `json:"source_label"`
	ScrapedAt     time.Time `json:"scrape_timestamp"`
	Description   string    `json:"description,omitempty"`
	GroupSize     string    `json:"group_size,omitempty"`

	Guides []GuideInput `json:"guides,omitempty"`
}

// GuideInput is a facilitator extracted from a listing page.
type GuideInput struct {
	Name        string `json:"name"`
	Role        string `json:"role,omitempty"`
	Bio         string `json:"bio,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
	Credentials string `json:"credentials,omitempty"`
}

// Classification is the LLM verdict on an organizer.
type Classification struct {
	Label           Label    `json:"classification"`
	Confidence      float64  `json:"confidence"`
	ProfileSummary  string   `json:"profile_summary,omitempty"`
	WebsiteAnalysis string   `json:"website_analysis,omitempty"`
	TalkingPoints   []string `json:"outreach_talking_points,omitempty"`
	FitReasoning    string   `json:"fit_reasoning,omitempty"`
	RedFlags        []string `json:"red_flags,omitempty"`
	GreenFlags      []string `json:"green_flags,omitempty"`
}

// PlaceResult is a Google Places match for an organizer.
type PlaceResult struct {
	Found            bool    `json:"found"`
	PlaceID          string  `json:"place_id,omitempty"`
	BusinessName     string  `json:"business_name,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Phone            string  `json:"phone,omitempty"`
	Website          string  `json:"website,omitempty"`
	MapsURL          string  `json:"maps_url,omitempty"`
	Rating           float64 `json:"rating,omitempty"`
	ReviewCount      int     `json:"review_count,omitempty"`
	Latitude         float64 `json:"latitude,omitempty"`
	Longitude        float64 `json:"longitude,omitempty"`
	DistanceMiles    float64 `json:"distance_miles,omitempty"`
}

// ContactInfo is what the website contact scraper found.
type ContactInfo struct {
	Emails    []string `json:"emails,omitempty"`
	Instagram string   `json:"instagram,omitempty"`
	Facebook  string   `json:"facebook,omitempty"`
	LinkedIn  string   `json:"linkedin,omitempty"`
	Twitter   string   `json:"twitter,omitempty"`
	YouTube   string   `json:"youtube,omitempty"`
	TikTok    string   `json:"tiktok,omitempty"`
}

// Empty reports whether nothing was found.
func (c ContactInfo) Empty() bool {
	return len(c.Emails) == 0 && c.Instagram == "" && c.Facebook == "" &&
		c.LinkedIn == "" && c.Twitter == "" && c.YouTube == "" && c.TikTok == ""
}

// listSep joins multi-valued classification fields in flat files.
const listSep = " | "

// JoinList flattens a list for a single spreadsheet cell.
func JoinList(items []string) string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return strings.Join(out, listSep)
}

// SplitList reverses JoinList.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, strings.TrimSpace(listSep))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
