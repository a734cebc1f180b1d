// Package search maintains the read-optimized offer index. Postgres stays
// the source of truth; the index is rebuilt from it and may lag briefly.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"internship-placement/internal/common/logger"
	"internship-placement/internal/placement"
)

// OfferQuery defines a faceted search over published offers.
type OfferQuery struct {
	Keywords       string
	OrganizationID string
	OpenOnly       bool
	Pagination     struct {
		From int
		Size int
	}
}

type OfferIndex struct {
	esClient *elasticsearch.Client
	index    string
	logger   logger.Logger
}

func NewOfferIndex(esClient *elasticsearch.Client, index string, log logger.Logger) *OfferIndex {
	return &OfferIndex{
		esClient: esClient,
		index:    index,
		logger:   log.WithFields(map[string]interface{}{"component": "offer-index"}),
	}
}

// IndexOffer upserts the offer document. Called after every offer state
// change so the search view follows the lifecycle.
func (o *OfferIndex) IndexOffer(ctx context.Context, offer *placement.Offer) error {
	body, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("marshal offer: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      o.index,
		DocumentID: offer.ID,
		Body:       strings.NewReader(string(body)),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, o.esClient)
	if err != nil {
		return fmt.Errorf("index offer: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index offer %s: %s", offer.ID, res.String())
	}
	return nil
}

// RemoveOffer drops the document. A missing document is not an error; the
// index may never have seen a draft offer.
func (o *OfferIndex) RemoveOffer(ctx context.Context, offerID string) error {
	req := esapi.DeleteRequest{
		Index:      o.index,
		DocumentID: offerID,
	}

	res, err := req.Do(ctx, o.esClient)
	if err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete offer %s: %s", offerID, res.String())
	}
	return nil
}

// SearchOffers runs the faceted query and returns the matching documents.
func (o *OfferIndex) SearchOffers(ctx context.Context, q OfferQuery) ([]*placement.Offer, error) {
	queryBody := buildOfferQuery(q)

	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index: []string{o.index},
		Body:  strings.NewReader(string(body)),
		From:  &q.Pagination.From,
		Size:  &q.Pagination.Size,
	}

	res, err := req.Do(ctx, o.esClient)
	if err != nil {
		return nil, fmt.Errorf("search offers: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search offers: %s", res.String())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source placement.Offer `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	offers := make([]*placement.Offer, 0, len(r.Hits.Hits))
	for i := range r.Hits.Hits {
		offer := r.Hits.Hits[i].Source
		offers = append(offers, &offer)
	}
	return offers, nil
}

func buildOfferQuery(q OfferQuery) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	if q.Keywords != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Keywords,
				"fields": []string{"title^3", "description^2", "location"},
				"type":   "best_fields",
			},
		})
	}

	if q.OrganizationID != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"organizationId": q.OrganizationID},
		})
	}

	if q.OpenOnly {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"state": string(placement.OfferOpen)},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(mustClauses) > 0 {
		boolQuery["must"] = mustClauses
	}
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}
	if len(boolQuery) == 0 {
		return map[string]interface{}{
			"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
}
