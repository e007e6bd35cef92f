// Package salesforce pushes scored leads into Salesforce over the REST API.
package salesforce

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the Salesforce API operations used by the lead sink.
type Client interface {
	Query(ctx context.Context, soql string, out any) error
	InsertCollection(ctx context.Context, sObjectName string, records []map[string]any) ([]CollectionResult, error)
	UpdateCollection(ctx context.Context, sObjectName string, records []CollectionRecord) ([]CollectionResult, error)
	DescribeSObject(ctx context.Context, name string) (*SObjectDescription, error)
}

// CollectionRecord represents a single record in a collection update.
// Id is the Salesforce record ID; Fields contains the field values to set.
type CollectionRecord struct {
	ID     string         `json:"Id"`
	Fields map[string]any `json:"fields"`
}

// CollectionResult is the outcome of a single record in a collection operation.
type CollectionResult struct {
	ID      string   `json:"id"`
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

// SObjectField describes a single field on a Salesforce SObject.
type SObjectField struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	Type       string `json:"type"`
	Length     int    `json:"length"`
	Updateable bool   `json:"updateable"`
}

// SObjectDescription holds metadata about a Salesforce SObject.
type SObjectDescription struct {
	Name   string         `json:"name"`
	Label  string         `json:"label"`
	Fields []SObjectField `json:"fields"`
}

// ClientOption configures the Salesforce client.
type ClientOption func(*sfClient)

// WithRateLimit throttles API calls to rps. Zero disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *sfClient) {
		c.limiter = nil
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// sfClient adapts go-salesforce to Client. The library takes no context, so
// ctx only bounds the wait for the rate limiter.
type sfClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
}

// NewClient wraps an authenticated go-salesforce session. Calls are limited
// to 5 per second unless overridden.
func NewClient(sf *salesforce.Salesforce, opts ...ClientOption) Client {
	c := &sfClient{sf: sf, limiter: rate.NewLimiter(5, 5)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *sfClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return eris.Wrap(c.limiter.Wait(ctx), "sf: rate limit")
}

func (c *sfClient) Query(ctx context.Context, soql string, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return eris.Wrap(c.sf.Query(soql, out), "sf: query")
}

func (c *sfClient) InsertCollection(ctx context.Context, sObjectName string, records []map[string]any) ([]CollectionResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	res, err := c.sf.InsertCollection(sObjectName, records, maxBatchSize)
	if err != nil {
		return nil, eris.Wrapf(err, "sf: insert collection %s", sObjectName)
	}
	return toResults(res), nil
}

func (c *sfClient) UpdateCollection(ctx context.Context, sObjectName string, records []CollectionRecord) ([]CollectionResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	rows := make([]map[string]any, len(records))
	for i, rec := range records {
		m := make(map[string]any, len(rec.Fields)+1)
		for k, v := range rec.Fields {
			m[k] = v
		}
		m["Id"] = rec.ID
		rows[i] = m
	}

	res, err := c.sf.UpdateCollection(sObjectName, rows, maxBatchSize)
	if err != nil {
		return nil, eris.Wrapf(err, "sf: update collection %s", sObjectName)
	}
	return toResults(res), nil
}

func toResults(res salesforce.SalesforceResults) []CollectionResult {
	out := make([]CollectionResult, len(res.Results))
	for i, r := range res.Results {
		var msgs []string
		for _, e := range r.Errors {
			msgs = append(msgs, e.Message)
		}
		out[i] = CollectionResult{ID: r.Id, Success: r.Success, Errors: msgs}
	}
	return out
}

func (c *sfClient) DescribeSObject(ctx context.Context, name string) (*SObjectDescription, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.sf.DoRequest(http.MethodGet, "/sobjects/"+name+"/describe", nil)
	if err != nil {
		return nil, eris.Wrapf(err, "sf: describe %s", name)
	}
	defer resp.Body.Close() //nolint:errcheck

	var desc SObjectDescription
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return nil, eris.Wrapf(err, "sf: decode describe %s", name)
	}
	return &desc, nil
}
