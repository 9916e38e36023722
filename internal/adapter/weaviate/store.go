package weaviate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"visamate/backend/internal/retrieval"
	"visamate/backend/internal/vector"
)

// Store persists embedded prior cases in Weaviate and serves cosine
// similarity queries over them.
type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// Case is one prior visa application case to index.
type Case struct {
	CaseID         string
	Content        string
	Vector         []float32
	Nationality    string
	Destination    string
	VisaType       string
	TravelPurpose  string
	FieldsIncluded []string
}

// UpsertCase inserts or replaces a case by its identifier. The Weaviate
// object id is derived deterministically from the case id, so re-indexing
// the same case overwrites instead of duplicating.
func (s *Store) UpsertCase(ctx context.Context, c Case) error {
	objectID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(c.CaseID)).String()

	// Replace semantics: drop any previous version first. A not-found
	// delete is expected for new cases and ignored.
	err := s.client.Data().Deleter().
		WithClassName(vector.ClassName).
		WithID(objectID).
		Do(ctx)
	if err != nil {
		slog.DebugContext(ctx, "no previous case object to delete", "case_id", c.CaseID, "error", err)
	}

	_, err = s.client.Data().Creator().
		WithClassName(vector.ClassName).
		WithID(objectID).
		WithProperties(map[string]interface{}{
			"content":        c.Content,
			"caseId":         c.CaseID,
			"nationality":    c.Nationality,
			"destination":    c.Destination,
			"visaType":       c.VisaType,
			"travelPurpose":  c.TravelPurpose,
			"fieldsIncluded": c.FieldsIncluded,
		}).
		WithVector(c.Vector).
		Do(ctx)
	return err
}

// QuerySimilar returns up to topK cases by cosine similarity to vec,
// filtered to score >= minScore and ordered by descending score. An empty
// result is not an error.
func (s *Store) QuerySimilar(ctx context.Context, vec []float32, topK int, minScore float32) ([]retrieval.SimilarCase, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "caseId"},
		{Name: "nationality"},
		{Name: "destination"},
		{Name: "visaType"},
		{Name: "travelPurpose"},
		{Name: "fieldsIncluded"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var results []retrieval.SimilarCase
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	objects, ok := data[vector.ClassName].([]interface{})
	if !ok {
		return nil, nil
	}

	for _, o := range objects {
		props, ok := o.(map[string]interface{})
		if !ok {
			continue
		}

		result := retrieval.SimilarCase{
			Metadata: make(map[string]interface{}),
		}
		if content, ok := props["content"].(string); ok {
			result.Content = content
		}
		if caseID, ok := props["caseId"].(string); ok {
			result.CaseID = caseID
		}
		for _, key := range []string{"nationality", "destination", "visaType", "travelPurpose"} {
			if v, ok := props[key].(string); ok && v != "" {
				result.Metadata[key] = v
			}
		}
		if raw, ok := props["fieldsIncluded"].([]interface{}); ok {
			for _, f := range raw {
				if fs, ok := f.(string); ok {
					result.FieldsIncluded = append(result.FieldsIncluded, fs)
				}
			}
		}

		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				// Weaviate reports certainty in [0,1]; map back to
				// cosine similarity in [-1,1].
				result.Score = float32(certainty*2 - 1)
			}
		}

		if result.Score >= minScore {
			results = append(results, result)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results, nil
}

// CountCases returns how many cases are indexed.
func (s *Store) CountCases(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	agg, ok := res.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	objects, ok := agg[vector.ClassName].([]interface{})
	if !ok || len(objects) == 0 {
		return 0, nil
	}
	props, ok := objects[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := props["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	count, _ := meta["count"].(float64)
	return int(count), nil
}
