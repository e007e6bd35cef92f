package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// maxBatchSize is the Salesforce Collections API limit per request.
const maxBatchSize = 200

// Lead sObject custom fields carrying the pipeline's output.
const (
	FieldOrganizerKey  = "Retreat_Organizer_Key__c"
	FieldPriorityScore = "Retreat_Priority_Score__c"
	FieldLeadType      = "Retreat_Lead_Type__c"
	FieldRetreatCount  = "Retreat_Count__c"
)

// LeadSource tags every lead this package creates.
const LeadSource = "Retreat Listings"

// Lead is one scored organizer as pushed to Salesforce.
type Lead struct {
	Key           string
	Name          string
	PriorityScore float64
	LeadType      string
	RetreatCount  int
	Email         string
	Phone         string
	Website       string
	City          string
	Summary       string
}

// PushResult counts what PushLeads did.
type PushResult struct {
	Inserted int
	Updated  int
	Skipped  int
	Failed   int
}

// existingLead is the projection read back by FindLeadsByOrganizerKey.
type existingLead struct {
	ID           string `json:"Id" salesforce:"Id"`
	OrganizerKey string `json:"Retreat_Organizer_Key__c" salesforce:"Retreat_Organizer_Key__c"`
}

// LeadFields maps a lead to Lead sObject fields. Company and LastName are
// required by Salesforce, so the organizer name fills both.
func LeadFields(l Lead) map[string]any {
	name := strings.TrimSpace(l.Name)
	fields := map[string]any{
		"Company":          name,
		"LastName":         name,
		"LeadSource":       LeadSource,
		FieldOrganizerKey:  l.Key,
		FieldPriorityScore: l.PriorityScore,
		FieldRetreatCount:  l.RetreatCount,
	}
	if l.LeadType != "" {
		fields[FieldLeadType] = l.LeadType
	}
	if l.Email != "" {
		fields["Email"] = l.Email
	}
	if l.Phone != "" {
		fields["Phone"] = l.Phone
	}
	if l.Website != "" {
		fields["Website"] = l.Website
	}
	if l.City != "" {
		fields["City"] = l.City
	}
	if l.Summary != "" {
		fields["Description"] = l.Summary
	}
	return fields
}

// scoreFields are refreshed on leads that already exist; everything else
// belongs to the sales team once the lead is in Salesforce.
func scoreFields(l Lead) map[string]any {
	fields := map[string]any{
		FieldPriorityScore: l.PriorityScore,
		FieldRetreatCount:  l.RetreatCount,
	}
	if l.LeadType != "" {
		fields[FieldLeadType] = l.LeadType
	}
	return fields
}

// FindLeadsByOrganizerKey returns the Salesforce IDs of leads whose organizer
// key is in keys. Keys are queried in chunks to keep the SOQL short.
func FindLeadsByOrganizerKey(ctx context.Context, c Client, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for start := 0; start < len(keys); start += maxBatchSize {
		end := min(start+maxBatchSize, len(keys))

		quoted := make([]string, 0, end-start)
		for _, k := range keys[start:end] {
			quoted = append(quoted, "'"+escapeSoql(k)+"'")
		}
		soql := fmt.Sprintf(
			"SELECT Id, %s FROM Lead WHERE %s IN (%s)",
			FieldOrganizerKey, FieldOrganizerKey, strings.Join(quoted, ", "),
		)

		var rows []existingLead
		if err := c.Query(ctx, soql, &rows); err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("sf: find leads batch %d-%d", start, end))
		}
		for _, r := range rows {
			out[r.OrganizerKey] = r.ID
		}
	}
	return out, nil
}

// PushLeads inserts leads as Lead sObjects in batches of 200. Organizer keys
// already present in Salesforce are not inserted again; their score fields
// are refreshed instead.
func PushLeads(ctx context.Context, c Client, leads []Lead) (PushResult, error) {
	var res PushResult

	seen := make(map[string]bool, len(leads))
	var keys []string
	var valid []Lead
	for _, l := range leads {
		if l.Key == "" || strings.TrimSpace(l.Name) == "" || seen[l.Key] {
			res.Skipped++
			continue
		}
		seen[l.Key] = true
		keys = append(keys, l.Key)
		valid = append(valid, l)
	}
	if len(valid) == 0 {
		return res, nil
	}

	existing, err := FindLeadsByOrganizerKey(ctx, c, keys)
	if err != nil {
		return res, eris.Wrap(err, "sf: push leads")
	}

	var inserts []map[string]any
	var updates []CollectionRecord
	for _, l := range valid {
		if id, ok := existing[l.Key]; ok {
			updates = append(updates, CollectionRecord{ID: id, Fields: scoreFields(l)})
			continue
		}
		inserts = append(inserts, LeadFields(l))
	}

	for start := 0; start < len(inserts); start += maxBatchSize {
		end := min(start+maxBatchSize, len(inserts))
		results, err := c.InsertCollection(ctx, "Lead", inserts[start:end])
		if err != nil {
			return res, eris.Wrap(err, fmt.Sprintf("sf: insert leads batch %d-%d", start, end))
		}
		tally(results, &res.Inserted, &res.Failed)
	}

	for start := 0; start < len(updates); start += maxBatchSize {
		end := min(start+maxBatchSize, len(updates))
		results, err := c.UpdateCollection(ctx, "Lead", updates[start:end])
		if err != nil {
			return res, eris.Wrap(err, fmt.Sprintf("sf: update leads batch %d-%d", start, end))
		}
		tally(results, &res.Updated, &res.Failed)
	}

	zap.L().Info("sf: leads pushed",
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func tally(results []CollectionResult, ok, failed *int) {
	for _, r := range results {
		if r.Success {
			*ok++
			continue
		}
		*failed++
		zap.L().Warn("sf: lead rejected",
			zap.String("id", r.ID),
			zap.Strings("errors", r.Errors),
		)
	}
}

// CheckLeadFields verifies that the Lead sObject carries the custom fields
// PushLeads writes.
func CheckLeadFields(ctx context.Context, c Client) error {
	desc, err := c.DescribeSObject(ctx, "Lead")
	if err != nil {
		return eris.Wrap(err, "sf: check lead fields")
	}
	have := make(map[string]bool, len(desc.Fields))
	for _, f := range desc.Fields {
		have[f.Name] = true
	}
	var missing []string
	for _, f := range []string{FieldOrganizerKey, FieldPriorityScore, FieldLeadType, FieldRetreatCount} {
		if !have[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("sf: Lead is missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return soqlEscaper.Replace(s)
}

var soqlEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)
