package platform

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Search is a parsed platform search URL.
type Search struct {
	Platform string

	// retreat.guru
	Topics      []string
	Countries   []string
	Experiences []string
	PriceRange  []string
	Online      bool
	Weekend     bool
	Affordable  bool

	// bookretreats.com
	Type           string
	Location       string
	Category       string
	Style          string
	PopularFilters []string
}

// ParseSearch parses a retreat.guru or bookretreats.com search URL.
func ParseSearch(rawURL string) (*Search, error) {
	tag, err := Detect(rawURL)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, eris.Wrap(err, "platform: parse search url")
	}
	q := u.Query()

	s := &Search{Platform: tag}
	switch tag {
	case RetreatGuru:
		s.Topics = q["topic"]
		s.Countries = q["country"]
		s.Experiences = q["experiences_type"]
		s.PriceRange = q["price_range"]
		s.Online = hasTrue(q["is_online"])
		s.Weekend = hasTrue(q["is_weekend"])
		s.Affordable = hasTrue(q["is_affordable"])
	case BookRetreats:
		s.Type = q.Get("scopes[type]")
		s.Location = q.Get("scopes[location]")
		s.Category = q.Get("scopes[category]")
		s.Style = q.Get("scopes[style]")
		var keys []string
		for k := range q {
			if strings.HasPrefix(k, "facets[popularFilters]") {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.PopularFilters = append(s.PopularFilters, q[k]...)
		}
	}
	return s, nil
}

func hasTrue(vals []string) bool {
	for _, v := range vals {
		if strings.EqualFold(v, "true") {
			return true
		}
	}
	return false
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func stripRetreats(s string) string {
	s = strings.ReplaceAll(s, " Retreats", "")
	return strings.ReplaceAll(s, " retreats", "")
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func slugJoin(items []string) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, slugify(it))
	}
	return strings.Join(parts, "-")
}

// Label builds a short batch label such as "rg-yoga-mexico".
func (s *Search) Label() string {
	parts := []string{"br"}
	if s.Platform == RetreatGuru {
		parts[0] = "rg"
	}

	switch {
	case len(s.Topics) > 0:
		parts = append(parts, slugJoin(firstN(s.Topics, 2)))
	case s.Type != "":
		parts = append(parts, slugify(stripRetreats(s.Type)))
	}

	switch {
	case len(s.Countries) > 0:
		parts = append(parts, slugJoin(firstN(s.Countries, 2)))
	case s.Location != "":
		parts = append(parts, slugify(s.Location))
	}

	if len(s.Experiences) > 0 {
		topics := make(map[string]bool, len(s.Topics))
		for _, t := range s.Topics {
			topics[strings.ToLower(t)] = true
		}
		var extra []string
		for _, e := range s.Experiences {
			if !topics[strings.ToLower(e)] {
				extra = append(extra, e)
			}
		}
		if len(extra) > 0 {
			parts = append(parts, slugJoin(firstN(extra, 2)))
		}
	}

	if s.Category != "" {
		parts = append(parts, slugify(stripRetreats(s.Category)))
	}
	return strings.Join(parts, "-")
}

// Describe builds a human-readable account of the search filters.
func (s *Search) Describe() string {
	name := "BookRetreats.com"
	if s.Platform == RetreatGuru {
		name = "retreat.guru"
	}
	parts := []string{"Retreats scraped from " + name}

	switch {
	case len(s.Topics) > 0:
		parts = append(parts, "Retreat Types: "+strings.Join(s.Topics, ", "))
	case s.Type != "":
		parts = append(parts, "Type: "+s.Type)
	}
	if s.Category != "" {
		parts = append(parts, "Category: "+s.Category)
	}
	if s.Style != "" {
		parts = append(parts, "Style: "+s.Style)
	}
	if len(s.Experiences) > 0 {
		parts = append(parts, "Experiences: "+strings.Join(s.Experiences, ", "))
	}
	switch {
	case len(s.Countries) > 0:
		parts = append(parts, "Locations: "+strings.Join(s.Countries, ", "))
	case s.Location != "":
		parts = append(parts, "Location: "+s.Location)
	}
	if len(s.PriceRange) >= 2 {
		parts = append(parts, fmt.Sprintf("Price Range: $%s - $%s", s.PriceRange[0], s.PriceRange[1]))
	}

	var filters []string
	if s.Online {
		filters = append(filters, "Online")
	}
	if s.Weekend {
		filters = append(filters, "Weekend")
	}
	if s.Affordable {
		filters = append(filters, "Affordable")
	}
	filters = append(filters, s.PopularFilters...)
	if len(filters) > 0 {
		parts = append(parts, "Filters: "+strings.Join(filters, ", "))
	}
	return strings.Join(parts, " | ")
}

// Label parses searchURL and returns its batch label.
func Label(searchURL string) (string, error) {
	s, err := ParseSearch(searchURL)
	if err != nil {
		return "", err
	}
	return s.Label(), nil
}

// Describe parses searchURL and returns its filter description.
func Describe(searchURL string) (string, error) {
	s, err := ParseSearch(searchURL)
	if err != nil {
		return "", err
	}
	return s.Describe(), nil
}
