package pipeline

import (
	"fmt"
	"strings"

	"github.com/sells-group/retreat-leads/internal/model"
	"github.com/sells-group/retreat-leads/internal/scoring"
)

// FormatReport renders the console report for scored rows: counts per lead
// type, the top prospects and the traveling facilitators.
func FormatReport(rows []LeadRow, top int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Lead Analysis (%d organizers)\n\n", len(rows))

	counts := make(map[model.LeadType]int)
	for _, r := range rows {
		counts[r.Score.LeadType]++
	}
	b.WriteString("## Lead Types\n")
	for _, lt := range model.AllLeadTypes() {
		fmt.Fprintf(&b, "- %s: %d\n", lt, counts[lt])
	}
	b.WriteString("\n")

	b.WriteString("## Top Prospects\n")
	if len(rows) == 0 {
		b.WriteString("No organizers scored.\n")
	}
	for i, r := range rows {
		if i >= top {
			break
		}
		fmt.Fprintf(&b, "%d. %s (%.1f, %s) %d retreats, %d locations",
			i+1, r.Organizer.DisplayName, scoring.Round1(r.Score.PriorityScore), r.Score.LeadType,
			r.Aggregates.RetreatCount, r.Aggregates.UniqueLocations)
		if len(r.Aggregates.Platforms) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(r.Aggregates.Platforms, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	var traveling []LeadRow
	for _, r := range rows {
		if r.Aggregates.IsTravelingFacilitator {
			traveling = append(traveling, r)
		}
	}
	fmt.Fprintf(&b, "## Traveling Facilitators (%d)\n", len(traveling))
	for _, r := range traveling {
		fmt.Fprintf(&b, "- %s: %d locations\n", r.Organizer.DisplayName, r.Aggregates.UniqueLocations)
	}
	return b.String()
}
