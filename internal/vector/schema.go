package vector

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/weaviate/weaviate/entities/models"
)

// ClassName is the Weaviate class holding embedded prior cases.
const ClassName = "VisaCase"

// ErrDimensionMismatch means the index was created for a different embedding
// dimension than the one configured. This is a deployment error: queries
// against a mismatched index return garbage similarities, so startup fails
// instead.
var ErrDimensionMismatch = errors.New("vector index dimension mismatch")

var dimRe = regexp.MustCompile(`dim=(\d+)`)

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// EnsureSchema creates the VisaCase class if missing and verifies the stored
// embedding dimension matches dim. The dimension is recorded in the class
// description because Weaviate does not track it for vectorizer "none".
func EnsureSchema(ctx context.Context, client SchemaClient, dim int) error {
	exists, err := client.ClassExists(ctx, ClassName)
	if err != nil {
		return err
	}

	properties := []*models.Property{
		{
			Name:     "content",
			DataType: []string{"text"},
		},
		{
			Name:     "caseId",
			DataType: []string{"string"}, // UUID as string (exact match)
		},
		{
			Name:     "nationality",
			DataType: []string{"string"},
		},
		{
			Name:     "destination",
			DataType: []string{"string"},
		},
		{
			Name:     "visaType",
			DataType: []string{"string"},
		},
		{
			Name:     "travelPurpose",
			DataType: []string{"text"},
		},
		{
			Name:     "fieldsIncluded",
			DataType: []string{"text[]"},
		},
	}

	if !exists {
		class := &models.Class{
			Class:       ClassName,
			Description: fmt.Sprintf("An embedded prior visa application case (dim=%d)", dim),
			Vectorizer:  "none",
			Properties:  properties,
		}
		return client.CreateClass(ctx, class)
	}

	class, err := client.GetClass(ctx, ClassName)
	if err != nil {
		return err
	}

	if m := dimRe.FindStringSubmatch(class.Description); m != nil {
		stored, _ := strconv.Atoi(m[1])
		if stored != dim {
			return fmt.Errorf("%w: index has dim=%d, embedder configured for dim=%d", ErrDimensionMismatch, stored, dim)
		}
	}

	// Class exists, check for missing properties
	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, ClassName, p); err != nil {
				return err
			}
		}
	}

	return nil
}
