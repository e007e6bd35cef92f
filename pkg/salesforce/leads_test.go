package salesforce

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadFields(t *testing.T) {
	t.Parallel()

	f := LeadFields(Lead{
		Key:           "a1b2c3d4e5f6",
		Name:          " Casa Violeta ",
		PriorityScore: 75,
		LeadType:      "TRAVELING_FACILITATOR",
		RetreatCount:  2,
		Email:         "hola@casavioleta.mx",
	})

	assert.Equal(t, "Casa Violeta", f["Company"])
	assert.Equal(t, "Casa Violeta", f["LastName"])
	assert.Equal(t, LeadSource, f["LeadSource"])
	assert.Equal(t, "a1b2c3d4e5f6", f[FieldOrganizerKey])
	assert.Equal(t, 75.0, f[FieldPriorityScore])
	assert.Equal(t, "TRAVELING_FACILITATOR", f[FieldLeadType])
	assert.Equal(t, "hola@casavioleta.mx", f["Email"])
	assert.NotContains(t, f, "Phone")
	assert.NotContains(t, f, "Website")
}

func TestEscapeSoql(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `O\'Brien`, escapeSoql("O'Brien"))
	assert.Equal(t, `a\\b`, escapeSoql(`a\b`))
	assert.Equal(t, "plain", escapeSoql("plain"))
}

func TestFindLeadsByOrganizerKey_Chunks(t *testing.T) {
	t.Parallel()

	keys := make([]string, 250)
	for i := range keys {
		keys[i] = fmt.Sprintf("key%03d", i)
	}

	var queries []string
	mc := &mockClient{
		queryFn: func(_ context.Context, soql string, out any) error {
			queries = append(queries, soql)
			if strings.Contains(soql, "'key007'") {
				rows := out.(*[]existingLead)
				*rows = append(*rows, existingLead{ID: "00Q7", OrganizerKey: "key007"})
			}
			return nil
		},
	}

	got, err := FindLeadsByOrganizerKey(context.Background(), mc, keys)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Contains(t, queries[0], "FROM Lead WHERE Retreat_Organizer_Key__c IN (")
	assert.Equal(t, map[string]string{"key007": "00Q7"}, got)
}

func TestPushLeads_InsertsNewAndRefreshesExisting(t *testing.T) {
	t.Parallel()

	var inserted []map[string]any
	var updated []CollectionRecord
	mc := &mockClient{
		queryFn: func(_ context.Context, _ string, out any) error {
			rows := out.(*[]existingLead)
			*rows = []existingLead{{ID: "00Qold", OrganizerKey: "old"}}
			return nil
		},
		insertCollectionFn: func(_ context.Context, sObject string, records []map[string]any) ([]CollectionResult, error) {
			assert.Equal(t, "Lead", sObject)
			inserted = append(inserted, records...)
			out := make([]CollectionResult, len(records))
			for i := range records {
				out[i] = CollectionResult{ID: fmt.Sprintf("00Qnew%d", i), Success: true}
			}
			return out, nil
		},
		updateCollectionFn: func(_ context.Context, _ string, records []CollectionRecord) ([]CollectionResult, error) {
			updated = append(updated, records...)
			return []CollectionResult{{ID: "00Qold", Success: true}}, nil
		},
	}

	res, err := PushLeads(context.Background(), mc, []Lead{
		{Key: "new", Name: "Casa Violeta", PriorityScore: 75},
		{Key: "old", Name: "Solana Yoga", PriorityScore: 40, LeadType: "VENUE_OWNER"},
		{Key: "new", Name: "Casa Violeta"},
		{Key: "", Name: "anonymous"},
	})
	require.NoError(t, err)
	assert.Equal(t, PushResult{Inserted: 1, Updated: 1, Skipped: 2}, res)

	require.Len(t, inserted, 1)
	assert.Equal(t, "new", inserted[0][FieldOrganizerKey])
	require.Len(t, updated, 1)
	assert.Equal(t, "00Qold", updated[0].ID)
	assert.Equal(t, "VENUE_OWNER", updated[0].Fields[FieldLeadType])
	assert.NotContains(t, updated[0].Fields, "Company")
}

func TestPushLeads_BatchesOf200(t *testing.T) {
	t.Parallel()

	leads := make([]Lead, 450)
	for i := range leads {
		leads[i] = Lead{Key: fmt.Sprintf("k%d", i), Name: fmt.Sprintf("Org %d", i)}
	}

	var batchSizes []int
	mc := &mockClient{
		insertCollectionFn: func(_ context.Context, _ string, records []map[string]any) ([]CollectionResult, error) {
			batchSizes = append(batchSizes, len(records))
			out := make([]CollectionResult, len(records))
			for i := range out {
				out[i].Success = true
			}
			return out, nil
		},
	}

	res, err := PushLeads(context.Background(), mc, leads)
	require.NoError(t, err)
	assert.Equal(t, []int{200, 200, 50}, batchSizes)
	assert.Equal(t, 450, res.Inserted)
}

func TestPushLeads_CountsRejected(t *testing.T) {
	t.Parallel()

	mc := &mockClient{
		insertCollectionFn: func(_ context.Context, _ string, _ []map[string]any) ([]CollectionResult, error) {
			return []CollectionResult{{Success: false, Errors: []string{"DUPLICATES_DETECTED"}}}, nil
		},
	}

	res, err := PushLeads(context.Background(), mc, []Lead{{Key: "k", Name: "Org"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 0, res.Inserted)
}

func TestPushLeads_QueryError(t *testing.T) {
	t.Parallel()

	mc := &mockClient{
		queryFn: func(_ context.Context, _ string, _ any) error { return assert.AnError },
	}

	_, err := PushLeads(context.Background(), mc, []Lead{{Key: "k", Name: "Org"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sf: push leads")
}

func TestPushLeads_Empty(t *testing.T) {
	t.Parallel()

	res, err := PushLeads(context.Background(), &mockClient{}, nil)
	require.NoError(t, err)
	assert.Equal(t, PushResult{}, res)
}

func TestCheckLeadFields(t *testing.T) {
	t.Parallel()

	complete := &mockClient{
		describeSObjectFn: func(_ context.Context, name string) (*SObjectDescription, error) {
			return &SObjectDescription{Name: name, Fields: []SObjectField{
				{Name: FieldOrganizerKey}, {Name: FieldPriorityScore},
				{Name: FieldLeadType}, {Name: FieldRetreatCount},
			}}, nil
		},
	}
	require.NoError(t, CheckLeadFields(context.Background(), complete))

	partial := &mockClient{
		describeSObjectFn: func(_ context.Context, name string) (*SObjectDescription, error) {
			return &SObjectDescription{Name: name, Fields: []SObjectField{{Name: FieldOrganizerKey}}}, nil
		},
	}
	err := CheckLeadFields(context.Background(), partial)
	require.Error(t, err)
	assert.Contains(t, err.Error(), FieldLeadType)
}
