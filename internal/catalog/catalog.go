// Package catalog defines the external catalog collaborator boundary. The
// service owns nothing behind it; resource ids are opaque handles into an
// external product/variant store.
package catalog

import (
	"context"

	"github.com/spector-app/bulkedit/internal/domain"
)

// Service exposes the catalog operations the batch pipeline needs. GetFields
// is the batched read path; implementations group resources into as few
// round trips as the external API permits.
type Service interface {
	GetFields(ctx context.Context, field domain.Field, refs []domain.ResourceRef) (map[domain.ResourceRef]domain.FieldValue, error)
	SetField(ctx context.Context, ref domain.ResourceRef, field domain.Field, value domain.FieldValue) error
}
