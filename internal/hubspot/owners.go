package hubspot

import (
	"context"
	"net/http"
	"net/url"
	"sort"
)

// Owner is a HubSpot user that records can be assigned to.
type Owner struct {
	ID        string `json:"id" yaml:"id"`
	Email     string `json:"email" yaml:"email"`
	FirstName string `json:"firstName" yaml:"first_name"`
	LastName  string `json:"lastName" yaml:"last_name"`
	UserID    int64  `json:"userId,omitempty" yaml:"user_id,omitempty"`
	Archived  bool   `json:"archived" yaml:"archived"`
}

// Pipeline is a deal pipeline and its ordered stages.
type Pipeline struct {
	ID           string          `json:"id" yaml:"id"`
	Label        string          `json:"label" yaml:"label"`
	DisplayOrder int             `json:"displayOrder" yaml:"display_order"`
	Archived     bool            `json:"archived" yaml:"archived"`
	Stages       []PipelineStage `json:"stages" yaml:"stages"`
}

type PipelineStage struct {
	ID           string `json:"id" yaml:"id"`
	Label        string `json:"label" yaml:"label"`
	DisplayOrder int    `json:"displayOrder" yaml:"display_order"`
	Archived     bool   `json:"archived" yaml:"archived"`
}

// ListOwners returns every active owner, following pagination.
func (m *SyncManager) ListOwners(ctx context.Context) ([]Owner, error) {
	var (
		owners []Owner
		after  string
	)
	for {
		query := url.Values{"limit": {"100"}}
		if after != "" {
			query.Set("after", after)
		}
		resp, err := m.Dispatch(ctx, Request{Method: http.MethodGet, Path: "/crm/v3/owners", Query: query})
		if err != nil {
			return nil, err
		}

		var page struct {
			Results []Owner `json:"results"`
			Paging  *paging `json:"paging,omitempty"`
		}
		if err := resp.Decode(&page); err != nil {
			return nil, err
		}
		owners = append(owners, page.Results...)

		after = page.Paging.after()
		if after == "" || len(page.Results) == 0 {
			return owners, nil
		}
	}
}

// ListDealPipelines returns deal pipelines with stages sorted by display order.
func (m *SyncManager) ListDealPipelines(ctx context.Context) ([]Pipeline, error) {
	resp, err := m.Dispatch(ctx, Request{Method: http.MethodGet, Path: "/crm/v3/pipelines/deals"})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Results []Pipeline `json:"results"`
	}
	if err := resp.Decode(&parsed); err != nil {
		return nil, err
	}

	sort.SliceStable(parsed.Results, func(i, j int) bool {
		return parsed.Results[i].DisplayOrder < parsed.Results[j].DisplayOrder
	})
	for i := range parsed.Results {
		stages := parsed.Results[i].Stages
		sort.SliceStable(stages, func(a, b int) bool { return stages[a].DisplayOrder < stages[b].DisplayOrder })
	}
	return parsed.Results, nil
}

// Ping makes the cheapest authenticated call and returns the limits HubSpot reported with it.
func (m *SyncManager) Ping(ctx context.Context) (*ProviderLimits, error) {
	resp, err := m.Dispatch(ctx, Request{
		Method: http.MethodGet,
		Path:   "/crm/v3/owners",
		Query:  url.Values{"limit": {"1"}},
	})
	if err != nil {
		return nil, err
	}
	limits := resp.Limits
	return &limits, nil
}
