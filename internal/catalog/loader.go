package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/spector-app/bulkedit/internal/domain"
)

// DefaultReadGroupSize bounds how many resources one catalog read covers.
const DefaultReadGroupSize = 10

type fieldKey struct {
	ref   domain.ResourceRef
	field domain.Field
}

func (k fieldKey) String() string {
	return domain.ChangeKey(k.ref, k.field)
}

func (k fieldKey) Raw() interface{} {
	return k
}

// FieldLoader batches individual field reads into grouped catalog calls.
// Create one per batch run; the loader caches values for its lifetime.
type FieldLoader struct {
	loader *dataloader.Loader
}

// NewFieldLoader creates a loader that groups reads into calls of at most
// groupSize resources.
func NewFieldLoader(service Service, groupSize int) *FieldLoader {
	if groupSize <= 0 {
		groupSize = DefaultReadGroupSize
	}

	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		// Keys within one batch may span fields; group per field so each
		// catalog call stays homogeneous.
		byField := make(map[domain.Field][]int)
		for i, key := range keys {
			fk, ok := key.Raw().(fieldKey)
			if !ok {
				results[i] = &dataloader.Result{Error: fmt.Errorf("unexpected loader key %q", key.String())}
				continue
			}
			byField[fk.field] = append(byField[fk.field], i)
		}

		for field, indexes := range byField {
			refs := make([]domain.ResourceRef, len(indexes))
			for i, idx := range indexes {
				refs[i] = keys[idx].Raw().(fieldKey).ref
			}

			values, err := service.GetFields(ctx, field, refs)
			if err != nil {
				for _, idx := range indexes {
					results[idx] = &dataloader.Result{Error: err}
				}
				continue
			}
			for i, idx := range indexes {
				value, ok := values[refs[i]]
				if !ok {
					results[idx] = &dataloader.Result{Error: fmt.Errorf("resource %s %s not found", refs[i].Type, refs[i].ID)}
					continue
				}
				results[idx] = &dataloader.Result{Data: value}
			}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(
		batchFn,
		dataloader.WithBatchCapacity(groupSize),
		dataloader.WithWait(5*time.Millisecond),
	)

	return &FieldLoader{loader: loader}
}

// Load queues one field read and returns a thunk resolving to the value.
func (l *FieldLoader) Load(ctx context.Context, ref domain.ResourceRef, field domain.Field) func() (domain.FieldValue, error) {
	thunk := l.loader.Load(ctx, fieldKey{ref: ref, field: field})
	return func() (domain.FieldValue, error) {
		data, err := thunk()
		if err != nil {
			return domain.FieldValue{}, err
		}
		value, ok := data.(domain.FieldValue)
		if !ok {
			return domain.FieldValue{}, fmt.Errorf("unexpected loader result for %s %s", ref.Type, ref.ID)
		}
		return value, nil
	}
}
