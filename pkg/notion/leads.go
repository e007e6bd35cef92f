package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Property names of the lead database.
const (
	PropName         = "Name"
	PropOrganizerKey = "Organizer Key"
	PropScore        = "Priority Score"
	PropLeadType     = "Lead Type"
	PropRetreats     = "Retreats"
	PropLocations    = "Locations"
	PropPlatforms    = "Platforms"
	PropEmail        = "Email"
	PropPhone        = "Phone"
	PropWebsite      = "Website"
	PropInstagram    = "Instagram"
	PropDistance     = "Distance (mi)"
	PropSummary      = "Summary"
	PropStatus       = "Status"
)

// StatusNew is set on pages created by PushLeads. Existing pages keep the
// status the sales team gave them.
const StatusNew = "New"

// Lead is one scored organizer as pushed to Notion.
type Lead struct {
	Key           string
	Name          string
	PriorityScore float64
	LeadType      string
	RetreatCount  int
	Locations     int
	Platforms     []string
	Email         string
	Phone         string
	Website       string
	Instagram     string
	DistanceMiles *float64
	Summary       string
}

// PushResult counts what PushLeads did.
type PushResult struct {
	Created int
	Updated int
	Skipped int
}

// PushLeads upserts leads into the database: organizers already present (by
// Organizer Key) are updated in place, the rest become new pages. Leads
// without a key or name are skipped.
func PushLeads(ctx context.Context, c Client, dbID string, leads []Lead) (PushResult, error) {
	var res PushResult

	existing, err := ExistingLeads(ctx, c, dbID)
	if err != nil {
		return res, eris.Wrap(err, "notion: push leads")
	}

	for _, l := range leads {
		if ctx.Err() != nil {
			return res, eris.Wrap(ctx.Err(), "notion: push leads cancelled")
		}
		if l.Key == "" || strings.TrimSpace(l.Name) == "" {
			res.Skipped++
			continue
		}

		props := BuildLeadProperties(l)
		if pageID, ok := existing[l.Key]; ok {
			if _, err := c.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{Properties: props}); err != nil {
				return res, eris.Wrap(err, fmt.Sprintf("notion: update lead %s", l.Key))
			}
			res.Updated++
			continue
		}

		props[PropStatus] = notionapi.StatusProperty{
			Type:   notionapi.PropertyTypeStatus,
			Status: notionapi.Status{Name: StatusNew},
		}
		page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(dbID),
			},
			Properties: props,
		})
		if err != nil {
			return res, eris.Wrap(err, fmt.Sprintf("notion: create lead %s", l.Key))
		}
		existing[l.Key] = string(page.ID)
		res.Created++
	}

	zap.L().Info("notion: leads pushed",
		zap.String("database", dbID),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// BuildLeadProperties converts a lead to page properties. Empty contact
// fields are left out so they never blank a value typed in by hand.
func BuildLeadProperties(l Lead) notionapi.Properties {
	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(l.Name),
		},
		PropOrganizerKey: notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(l.Key),
		},
		PropScore: notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: l.PriorityScore,
		},
		PropRetreats: notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(l.RetreatCount),
		},
		PropLocations: notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(l.Locations),
		},
	}

	if l.LeadType != "" {
		props[PropLeadType] = notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: l.LeadType},
		}
	}
	if len(l.Platforms) > 0 {
		opts := make([]notionapi.Option, 0, len(l.Platforms))
		for _, p := range l.Platforms {
			opts = append(opts, notionapi.Option{Name: p})
		}
		props[PropPlatforms] = notionapi.MultiSelectProperty{
			Type:        notionapi.PropertyTypeMultiSelect,
			MultiSelect: opts,
		}
	}
	if l.Email != "" {
		props[PropEmail] = notionapi.EmailProperty{
			Type:  notionapi.PropertyTypeEmail,
			Email: l.Email,
		}
	}
	if l.Phone != "" {
		props[PropPhone] = notionapi.PhoneNumberProperty{
			Type:        notionapi.PropertyTypePhoneNumber,
			PhoneNumber: l.Phone,
		}
	}
	if u := normalizeURL(l.Website); u != "" {
		props[PropWebsite] = notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  u,
		}
	}
	if u := normalizeURL(l.Instagram); u != "" {
		props[PropInstagram] = notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  u,
		}
	}
	if l.DistanceMiles != nil {
		props[PropDistance] = notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: *l.DistanceMiles,
		}
	}
	if l.Summary != "" {
		props[PropSummary] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(truncate(l.Summary, maxRichText)),
		}
	}
	return props
}

// maxRichText is Notion's per-block rich text limit.
const maxRichText = 2000

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}

// normalizeURL ensures a website has an https:// scheme prefix.
func normalizeURL(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return ""
	}
	if !strings.Contains(domain, "://") {
		return "https://" + domain
	}
	return domain
}
