package ledger

import (
	"time"

	"github.com/sells-group/retreat-leads/internal/model"
)

// Field merge rules. Fill-only: a non-blank incoming value is accepted only
// when the existing value is blank. Latest-wins: any non-blank incoming value
// replaces the existing one. Blank incoming values never clear anything.

func fillStr(dst **string, src *string) bool {
	if model.IsBlank(*dst) && !model.IsBlank(src) {
		v := *src
		*dst = &v
		return true
	}
	return false
}

func fillFloat(dst **float64, src *float64) bool {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
		return true
	}
	return false
}

func fillInt(dst **int, src *int) bool {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
		return true
	}
	return false
}

func latestStr(dst **string, src *string) bool {
	if model.IsBlank(src) {
		return false
	}
	v := *src
	*dst = &v
	return true
}

func latestFloat(dst **float64, src *float64) bool {
	if src == nil {
		return false
	}
	v := *src
	*dst = &v
	return true
}

func latestTime(dst **time.Time, src *time.Time) bool {
	if src == nil || src.IsZero() {
		return false
	}
	v := *src
	*dst = &v
	return true
}

// mergeOrganizer folds in into cur and reports whether anything changed.
func mergeOrganizer(cur *model.Organizer, in *model.Organizer) bool {
	changed := false
	if cur.DisplayName == "" && in.DisplayName != "" {
		cur.DisplayName = in.DisplayName
		changed = true
	}

	for _, f := range []struct {
		dst **string
		src *string
	}{
		{&cur.CenterURL, in.CenterURL},
		{&cur.Phone, in.Phone},
		{&cur.Email, in.Email},
		{&cur.Website, in.Website},
		{&cur.Instagram, in.Instagram},
		{&cur.Facebook, in.Facebook},
		{&cur.LinkedIn, in.LinkedIn},
		{&cur.Twitter, in.Twitter},
		{&cur.YouTube, in.YouTube},
		{&cur.TikTok, in.TikTok},
		{&cur.PlaceName, in.PlaceName},
		{&cur.Address, in.Address},
		{&cur.MapsURL, in.MapsURL},
		{&cur.SalesStatus, in.SalesStatus},
		{&cur.SalesNotes, in.SalesNotes},
	} {
		changed = fillStr(f.dst, f.src) || changed
	}
	for _, f := range []struct {
		dst **float64
		src *float64
	}{
		{&cur.Rating, in.Rating},
		{&cur.Latitude, in.Latitude},
		{&cur.Longitude, in.Longitude},
		{&cur.DistanceMiles, in.DistanceMiles},
	} {
		changed = fillFloat(f.dst, f.src) || changed
	}
	changed = fillInt(&cur.ReviewCount, in.ReviewCount) || changed

	// Classification and scoring are re-derived holistically on each run.
	if in.Classification != "" {
		changed = changed || cur.Classification != in.Classification
		cur.Classification = in.Classification
	}
	for _, f := range []struct {
		dst **string
		src *string
	}{
		{&cur.ProfileSummary, in.ProfileSummary},
		{&cur.WebsiteAnalysis, in.WebsiteAnalysis},
		{&cur.TalkingPoints, in.TalkingPoints},
		{&cur.FitReasoning, in.FitReasoning},
		{&cur.RedFlags, in.RedFlags},
		{&cur.GreenFlags, in.GreenFlags},
	} {
		changed = latestStr(f.dst, f.src) || changed
	}
	changed = latestFloat(&cur.Confidence, in.Confidence) || changed
	changed = latestTime(&cur.ClassifiedAt, in.ClassifiedAt) || changed

	changed = latestFloat(&cur.PriorityScore, in.PriorityScore) || changed
	if in.LeadType != "" {
		changed = changed || cur.LeadType != in.LeadType
		cur.LeadType = in.LeadType
	}
	changed = latestTime(&cur.ScoredAt, in.ScoredAt) || changed
	return changed
}

// mergeEvent fills the enrichment fields of an existing event. Identity
// fields and ownership are never touched.
func mergeEvent(cur *model.Event, in *model.Event) bool {
	changed := fillStr(&cur.Description, in.Description)
	changed = fillStr(&cur.GroupSize, in.GroupSize) || changed
	changed = fillFloat(&cur.Latitude, in.Latitude) || changed
	changed = fillFloat(&cur.Longitude, in.Longitude) || changed
	return changed
}

func mergeGuide(cur *model.Guide, in *model.Guide) bool {
	changed := false
	if cur.Name == "" && in.Name != "" {
		cur.Name = in.Name
		changed = true
	}
	for _, f := range []struct {
		dst **string
		src *string
	}{
		{&cur.Role, in.Role},
		{&cur.Bio, in.Bio},
		{&cur.PhotoURL, in.PhotoURL},
		{&cur.ProfileURL, in.ProfileURL},
		{&cur.Credentials, in.Credentials},
	} {
		changed = fillStr(f.dst, f.src) || changed
	}
	return changed
}
