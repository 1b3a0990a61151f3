package hubspot

import (
	"context"
	"fmt"
	"strings"
)

// Properties requested when a search names none.
var (
	DefaultDealProperties    = []string{"dealname", "amount", "dealstage", "pipeline", "closedate", "hubspot_owner_id"}
	DefaultContactProperties = []string{"firstname", "lastname", "email", "company", "phone", "hubspot_owner_id"}
	DefaultCompanyProperties = []string{"name", "domain", "industry", "city", "hubspot_owner_id"}
)

// FetchDeals searches deals.
func (m *SyncManager) FetchDeals(ctx context.Context, opts SearchOptions) ([]Object, error) {
	return m.search(ctx, ObjectDeals, opts, DefaultDealProperties)
}

func (m *SyncManager) GetDeal(ctx context.Context, id string, properties []string) (*Object, error) {
	return m.getObject(ctx, ObjectDeals, id, properties)
}

// CreateDeal creates a deal. The default owner and pipeline fill hubspot_owner_id and pipeline when
// the caller leaves them empty.
func (m *SyncManager) CreateDeal(ctx context.Context, properties map[string]string) (*Object, error) {
	if err := requireProperties(properties); err != nil {
		return nil, err
	}
	props := withDefaultOwner(properties, m.config.DefaultOwnerID)
	if pipeline := m.config.DefaultPipelineID; pipeline != "" && strings.TrimSpace(props["pipeline"]) == "" {
		props["pipeline"] = pipeline
	}
	return m.createObject(ctx, ObjectDeals, objectInput{Properties: props})
}

func (m *SyncManager) UpdateDeal(ctx context.Context, id string, properties map[string]string) (*Object, error) {
	return m.updateObject(ctx, ObjectDeals, id, properties)
}

// BatchUpdateDeals updates many deals in chunks of 100.
func (m *SyncManager) BatchUpdateDeals(ctx context.Context, updates []BatchUpdate) ([]Object, error) {
	return m.batchUpdate(ctx, ObjectDeals, updates)
}

func (m *SyncManager) FetchContacts(ctx context.Context, opts SearchOptions) ([]Object, error) {
	return m.search(ctx, ObjectContacts, opts, DefaultContactProperties)
}

func (m *SyncManager) GetContact(ctx context.Context, id string, properties []string) (*Object, error) {
	return m.getObject(ctx, ObjectContacts, id, properties)
}

func (m *SyncManager) CreateContact(ctx context.Context, properties map[string]string) (*Object, error) {
	if err := requireProperties(properties); err != nil {
		return nil, err
	}
	return m.createObject(ctx, ObjectContacts, objectInput{Properties: withDefaultOwner(properties, m.config.DefaultOwnerID)})
}

func (m *SyncManager) UpdateContact(ctx context.Context, id string, properties map[string]string) (*Object, error) {
	return m.updateObject(ctx, ObjectContacts, id, properties)
}

// FindContactByEmail returns the first contact whose email matches exactly, or an error matching
// ErrNotFound.
func (m *SyncManager) FindContactByEmail(ctx context.Context, email string, properties []string) (*Object, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	results, err := m.FetchContacts(ctx, SearchOptions{
		Filters:    []Filter{{PropertyName: "email", Operator: OpEQ, Value: email}},
		Properties: properties,
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no contact with email %q", ErrNotFound, email)
	}
	return &results[0], nil
}

func (m *SyncManager) FetchCompanies(ctx context.Context, opts SearchOptions) ([]Object, error) {
	return m.search(ctx, ObjectCompanies, opts, DefaultCompanyProperties)
}

func (m *SyncManager) GetCompany(ctx context.Context, id string, properties []string) (*Object, error) {
	return m.getObject(ctx, ObjectCompanies, id, properties)
}

func (m *SyncManager) CreateCompany(ctx context.Context, properties map[string]string) (*Object, error) {
	if err := requireProperties(properties); err != nil {
		return nil, err
	}
	return m.createObject(ctx, ObjectCompanies, objectInput{Properties: withDefaultOwner(properties, m.config.DefaultOwnerID)})
}

func (m *SyncManager) UpdateCompany(ctx context.Context, id string, properties map[string]string) (*Object, error) {
	return m.updateObject(ctx, ObjectCompanies, id, properties)
}
