package hubspot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ObjectType names a CRM object collection in API paths.
type ObjectType string

const (
	ObjectDeals     ObjectType = "deals"
	ObjectContacts  ObjectType = "contacts"
	ObjectCompanies ObjectType = "companies"
	ObjectNotes     ObjectType = "notes"
	ObjectTasks     ObjectType = "tasks"
)

const (
	DefaultSearchLimit = 100
	maxPageSize        = 100
	batchChunkSize     = 100
	batchConcurrency   = 4
)

// Object is the generic CRM record envelope.
type Object struct {
	ID         string            `json:"id" yaml:"id"`
	Properties map[string]string `json:"properties" yaml:"properties"`
	CreatedAt  time.Time         `json:"createdAt" yaml:"created_at"`
	UpdatedAt  time.Time         `json:"updatedAt" yaml:"updated_at"`
	Archived   bool              `json:"archived" yaml:"archived"`
}

// Property returns one property value, or "" when absent.
func (o *Object) Property(name string) string {
	if o == nil {
		return ""
	}
	return o.Properties[name]
}

// BatchUpdate is one input row of a batch update.
type BatchUpdate struct {
	ID         string            `json:"id" yaml:"id"`
	Properties map[string]string `json:"properties" yaml:"properties"`
}

// SearchOptions filters and shapes a CRM search.
type SearchOptions struct {
	Query      string
	Filters    []Filter
	Properties []string
	Sorts      []Sort
	// Limit caps the number of records collected across pages. Zero means DefaultSearchLimit.
	Limit int
}

type filterGroup struct {
	Filters []Filter `json:"filters"`
}

type searchRequest struct {
	Query        string        `json:"query,omitempty"`
	FilterGroups []filterGroup `json:"filterGroups,omitempty"`
	Properties   []string      `json:"properties,omitempty"`
	Sorts        []Sort        `json:"sorts,omitempty"`
	Limit        int           `json:"limit"`
	After        string        `json:"after,omitempty"`
}

type paging struct {
	Next *struct {
		After string `json:"after"`
	} `json:"next,omitempty"`
}

func (p *paging) after() string {
	if p == nil || p.Next == nil {
		return ""
	}
	return p.Next.After
}

type searchResponse struct {
	Total   int      `json:"total"`
	Results []Object `json:"results"`
	Paging  *paging  `json:"paging,omitempty"`
}

type objectInput struct {
	Properties   map[string]string `json:"properties"`
	Associations []associationSpec `json:"associations,omitempty"`
}

type batchResponse struct {
	Status  string   `json:"status"`
	Results []Object `json:"results"`
}

func objectPath(objectType ObjectType, parts ...string) string {
	path := "/crm/v3/objects/" + string(objectType)
	for _, part := range parts {
		path += "/" + url.PathEscape(part)
	}
	return path
}

func (m *SyncManager) search(ctx context.Context, objectType ObjectType, opts SearchOptions, defaults []string) ([]Object, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	properties := opts.Properties
	if len(properties) == 0 {
		properties = defaults
	}

	body := searchRequest{
		Query:      strings.TrimSpace(opts.Query),
		Properties: properties,
		Sorts:      opts.Sorts,
	}
	if len(opts.Filters) > 0 {
		body.FilterGroups = []filterGroup{{Filters: opts.Filters}}
	}

	results := make([]Object, 0, min(limit, maxPageSize))
	for len(results) < limit {
		body.Limit = min(limit-len(results), maxPageSize)

		resp, err := m.Dispatch(ctx, Request{Method: http.MethodPost, Path: objectPath(objectType, "search"), Body: body})
		if err != nil {
			return nil, err
		}
		var page searchResponse
		if err := resp.Decode(&page); err != nil {
			return nil, err
		}

		for _, obj := range page.Results {
			if len(results) == limit {
				break
			}
			results = append(results, obj)
		}

		next := page.Paging.after()
		if next == "" || len(page.Results) == 0 {
			break
		}
		body.After = next
	}
	return results, nil
}

func (m *SyncManager) getObject(ctx context.Context, objectType ObjectType, id string, properties []string) (*Object, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: %s id is required", ErrInvalidInput, objectType)
	}

	query := url.Values{}
	if len(properties) > 0 {
		query.Set("properties", strings.Join(properties, ","))
	}
	resp, err := m.Dispatch(ctx, Request{Method: http.MethodGet, Path: objectPath(objectType, id), Query: query})
	if err != nil {
		return nil, err
	}

	var obj Object
	if err := resp.Decode(&obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// requireProperties rejects an empty create before owner and pipeline defaults are filled in.
func requireProperties(properties map[string]string) error {
	if len(properties) == 0 {
		return fmt.Errorf("%w: at least one property is required", ErrInvalidInput)
	}
	return nil
}

func (m *SyncManager) createObject(ctx context.Context, objectType ObjectType, input objectInput) (*Object, error) {
	if err := requireProperties(input.Properties); err != nil {
		return nil, err
	}

	resp, err := m.Dispatch(ctx, Request{Method: http.MethodPost, Path: objectPath(objectType), Body: input})
	if err != nil {
		return nil, err
	}

	var obj Object
	if err := resp.Decode(&obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

func (m *SyncManager) updateObject(ctx context.Context, objectType ObjectType, id string, properties map[string]string) (*Object, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: %s id is required", ErrInvalidInput, objectType)
	}
	if len(properties) == 0 {
		return nil, fmt.Errorf("%w: at least one property is required", ErrInvalidInput)
	}

	resp, err := m.Dispatch(ctx, Request{
		Method: http.MethodPatch,
		Path:   objectPath(objectType, id),
		Body:   objectInput{Properties: properties},
	})
	if err != nil {
		return nil, err
	}

	var obj Object
	if err := resp.Decode(&obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// batchUpdate sends updates in chunks. Chunks run concurrently and all draw from the shared limiter.
// Results keep input order.
func (m *SyncManager) batchUpdate(ctx context.Context, objectType ObjectType, updates []BatchUpdate) ([]Object, error) {
	if len(updates) == 0 {
		return nil, nil
	}
	for i, update := range updates {
		if strings.TrimSpace(update.ID) == "" {
			return nil, fmt.Errorf("%w: update %d has no id", ErrInvalidInput, i)
		}
		if len(update.Properties) == 0 {
			return nil, fmt.Errorf("%w: update %d (%s) has no properties", ErrInvalidInput, i, update.ID)
		}
	}

	chunks := make([][]BatchUpdate, 0, (len(updates)+batchChunkSize-1)/batchChunkSize)
	for start := 0; start < len(updates); start += batchChunkSize {
		chunks = append(chunks, updates[start:min(start+batchChunkSize, len(updates))])
	}

	results := make([][]Object, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			resp, err := m.Dispatch(gctx, Request{
				Method: http.MethodPost,
				Path:   objectPath(objectType, "batch", "update"),
				Body:   map[string]any{"inputs": chunk},
			})
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			var parsed batchResponse
			if err := resp.Decode(&parsed); err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			results[i] = parsed.Results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	updated := make([]Object, 0, len(updates))
	for _, chunk := range results {
		updated = append(updated, chunk...)
	}
	return updated, nil
}

func withDefaultOwner(properties map[string]string, ownerID string) map[string]string {
	out := make(map[string]string, len(properties)+1)
	for key, value := range properties {
		out[key] = value
	}
	if ownerID != "" && strings.TrimSpace(out["hubspot_owner_id"]) == "" {
		out["hubspot_owner_id"] = ownerID
	}
	return out
}
