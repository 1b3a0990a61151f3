package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const associationPageSize = 500

// Association links one object to another, with every label that applies.
type Association struct {
	ToObjectID string            `json:"to_object_id" yaml:"to_object_id"`
	Types      []AssociationType `json:"types" yaml:"types"`
}

type AssociationType struct {
	Category string `json:"category" yaml:"category"`
	TypeID   int    `json:"typeId" yaml:"type_id"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
}

type associationSpec struct {
	To struct {
		ID string `json:"id"`
	} `json:"to"`
	Types []associationTypeSpec `json:"types"`
}

type associationTypeSpec struct {
	Category string `json:"associationCategory"`
	TypeID   int    `json:"associationTypeId"`
}

func dealAssociation(dealID string, typeID int) associationSpec {
	var spec associationSpec
	spec.To.ID = dealID
	spec.Types = []associationTypeSpec{{Category: "HUBSPOT_DEFINED", TypeID: typeID}}
	return spec
}

// AssociateContactToDeal creates the default contact-to-deal association.
func (m *SyncManager) AssociateContactToDeal(ctx context.Context, contactID, dealID string) error {
	return m.Associate(ctx, ObjectContacts, contactID, ObjectDeals, dealID)
}

// Associate creates the default (unlabeled) association between two objects.
func (m *SyncManager) Associate(ctx context.Context, fromType ObjectType, fromID string, toType ObjectType, toID string) error {
	fromID = strings.TrimSpace(fromID)
	toID = strings.TrimSpace(toID)
	if fromID == "" || toID == "" {
		return fmt.Errorf("%w: both object ids are required", ErrInvalidInput)
	}

	path := fmt.Sprintf("/crm/v4/objects/%s/%s/associations/default/%s/%s",
		fromType, url.PathEscape(fromID), toType, url.PathEscape(toID))
	_, err := m.Dispatch(ctx, Request{Method: http.MethodPut, Path: path})
	return err
}

type associationsResponse struct {
	Results []struct {
		ToObjectID json.Number       `json:"toObjectId"`
		Types      []AssociationType `json:"associationTypes"`
	} `json:"results"`
	Paging *paging `json:"paging,omitempty"`
}

// ListAssociations returns every toType object associated with the given object.
func (m *SyncManager) ListAssociations(ctx context.Context, fromType ObjectType, fromID string, toType ObjectType) ([]Association, error) {
	fromID = strings.TrimSpace(fromID)
	if fromID == "" {
		return nil, fmt.Errorf("%w: object id is required", ErrInvalidInput)
	}

	path := fmt.Sprintf("/crm/v4/objects/%s/%s/associations/%s", fromType, url.PathEscape(fromID), toType)
	var (
		associations []Association
		after        string
	)
	for {
		query := url.Values{"limit": {fmt.Sprint(associationPageSize)}}
		if after != "" {
			query.Set("after", after)
		}
		resp, err := m.Dispatch(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
		if err != nil {
			return nil, err
		}

		var page associationsResponse
		if err := resp.Decode(&page); err != nil {
			return nil, err
		}
		for _, result := range page.Results {
			associations = append(associations, Association{ToObjectID: result.ToObjectID.String(), Types: result.Types})
		}

		after = page.Paging.after()
		if after == "" || len(page.Results) == 0 {
			return associations, nil
		}
	}
}
