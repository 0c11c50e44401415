// Package executor runs bulk edits against the external catalog. A batch is
// a three-stage pipeline per resource: fetch the current value, resolve the
// new value, mutate. Partial failure is the default semantics: one
// resource's failure never aborts the batch and never rolls back prior
// successes, and failed items are surfaced rather than retried.
package executor

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/spector-app/bulkedit/internal/catalog"
	"github.com/spector-app/bulkedit/internal/domain"
	"github.com/spector-app/bulkedit/internal/revert"
)

// SnapshotStore is the subset of snapshot storage the executor uses.
type SnapshotStore interface {
	SaveBatch(ctx context.Context, shopID string, batch domain.EditBatch) error
	LoadHistory(ctx context.Context, shopID string) (domain.ShopSnapshotHistory, error)
}

// Service executes batches and applies revert plans. Batch submissions for
// one shop are serialized through a per-shop mutex; the snapshot store
// assumes a single writer per shop.
type Service struct {
	catalog   catalog.Service
	snapshots SnapshotStore
	groupSize int

	locks sync.Map // map[string]*sync.Mutex
}

// Option configures the service.
type Option func(*Service)

// WithReadGroupSize bounds how many resources one catalog read covers.
func WithReadGroupSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.groupSize = size
		}
	}
}

// NewService creates a batch executor.
func NewService(catalogService catalog.Service, snapshots SnapshotStore, opts ...Option) *Service {
	service := &Service{
		catalog:   catalogService,
		snapshots: snapshots,
		groupSize: catalog.DefaultReadGroupSize,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Request describes one bulk edit submission.
type Request struct {
	ShopID        string
	OperationName string
	Operation     domain.Operation
	Resources     []domain.ResourceRef
}

// ItemStatus classifies the outcome for one resource.
type ItemStatus string

const (
	ItemApplied ItemStatus = "applied"
	ItemSkipped ItemStatus = "skipped"
	ItemFailed  ItemStatus = "failed"
)

// ItemResult reports the outcome for one resource. Skipped items carry
// identical old and new values; no mutation was issued for them.
type ItemResult struct {
	Resource domain.ResourceRef `json:"resource"`
	Field    domain.Field       `json:"field"`
	Status   ItemStatus         `json:"status"`
	OldValue *domain.FieldValue `json:"oldValue,omitempty"`
	NewValue *domain.FieldValue `json:"newValue,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// Result summarizes a batch run. BatchID is set only when at least one
// change was recorded in the snapshot store.
type Result struct {
	BatchID         uuid.UUID    `json:"batchId,omitempty"`
	OperationName   string       `json:"operationName"`
	Applied         int          `json:"applied"`
	Skipped         int          `json:"skipped"`
	Failed          int          `json:"failed"`
	Items           []ItemResult `json:"items"`
	SnapshotWarning string       `json:"snapshotWarning,omitempty"`
}

// Succeeded counts items that ended in the requested state, including
// no-ops.
func (r Result) Succeeded() int {
	return r.Applied + r.Skipped
}

// RunBatch executes a bulk edit. Only pre-flight validation returns an
// error; everything after the first catalog call is reported per item.
func (s *Service) RunBatch(ctx context.Context, req Request) (Result, error) {
	if req.ShopID == "" {
		return Result{}, domain.NewValidationError("shopId", "shop id is required")
	}
	if len(req.Resources) == 0 {
		return Result{}, domain.NewValidationError("resources", "at least one resource is required")
	}
	if err := req.Operation.Validate(); err != nil {
		return Result{}, err
	}

	lock := s.shopLock(req.ShopID)
	lock.Lock()
	defer lock.Unlock()

	result := Result{OperationName: req.OperationName, Items: make([]ItemResult, 0, len(req.Resources))}
	field := req.Operation.TargetField()

	loader := catalog.NewFieldLoader(s.catalog, s.groupSize)
	thunks := make([]func() (domain.FieldValue, error), len(req.Resources))
	for i, ref := range req.Resources {
		thunks[i] = loader.Load(ctx, ref, field)
	}

	changes := make([]domain.FieldChange, 0, len(req.Resources))
	for i, ref := range req.Resources {
		current, err := thunks[i]()
		if err != nil {
			result.Items = append(result.Items, ItemResult{
				Resource: ref,
				Field:    field,
				Status:   ItemFailed,
				Error:    fmt.Sprintf("failed to read current value: %v", err),
			})
			result.Failed++
			continue
		}

		newValue, err := domain.Resolve(req.Operation, current)
		if err != nil {
			result.Items = append(result.Items, ItemResult{
				Resource: ref,
				Field:    field,
				Status:   ItemFailed,
				OldValue: valuePtr(current),
				Error:    err.Error(),
			})
			result.Failed++
			continue
		}

		if newValue.Equal(current) {
			result.Items = append(result.Items, ItemResult{
				Resource: ref,
				Field:    field,
				Status:   ItemSkipped,
				OldValue: valuePtr(current),
				NewValue: valuePtr(newValue),
			})
			result.Skipped++
			continue
		}

		if err := s.catalog.SetField(ctx, ref, field, newValue); err != nil {
			mutationErr := &domain.ResourceMutationError{Resource: ref, Field: field, Err: err}
			result.Items = append(result.Items, ItemResult{
				Resource: ref,
				Field:    field,
				Status:   ItemFailed,
				OldValue: valuePtr(current),
				NewValue: valuePtr(newValue),
				Error:    mutationErr.Error(),
			})
			result.Failed++
			continue
		}

		result.Items = append(result.Items, ItemResult{
			Resource: ref,
			Field:    field,
			Status:   ItemApplied,
			OldValue: valuePtr(current),
			NewValue: valuePtr(newValue),
		})
		result.Applied++
		changes = append(changes, domain.FieldChange{
			ResourceID:   ref.ID,
			ResourceType: ref.Type,
			Field:        field,
			OldValue:     current,
			NewValue:     newValue,
		})
	}

	s.persistChanges(ctx, req.ShopID, req.OperationName, changes, &result)
	return result, nil
}

// RevertRequest asks for the most recent batch to be undone.
type RevertRequest struct {
	ShopID  string
	BatchID uuid.UUID
}

// ApplyRevert plans and applies a revert of the given batch with the same
// partial-failure semantics as RunBatch. The applied revert is recorded as a
// new batch, so it demotes the generations like any other edit.
func (s *Service) ApplyRevert(ctx context.Context, req RevertRequest) (Result, error) {
	if req.ShopID == "" {
		return Result{}, domain.NewValidationError("shopId", "shop id is required")
	}
	if req.BatchID == uuid.Nil {
		return Result{}, domain.NewValidationError("batchId", "batch id is required")
	}

	lock := s.shopLock(req.ShopID)
	lock.Lock()
	defer lock.Unlock()

	history, err := s.snapshots.LoadHistory(ctx, req.ShopID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load snapshot history: %w", err)
	}

	plan, canRevert := revert.PlanRevert(history, req.BatchID)
	if !canRevert {
		return Result{}, domain.NewValidationError("batchId", "batch %s can no longer be reverted", req.BatchID)
	}

	operationName := fmt.Sprintf("revert %s", req.BatchID)
	result := Result{OperationName: operationName, Items: make([]ItemResult, 0, len(plan))}
	changes := make([]domain.FieldChange, 0, len(plan))

	for _, instruction := range plan {
		ref := domain.ResourceRef{ID: instruction.ResourceID, Type: instruction.ResourceType}

		if instruction.RevertToValue.Equal(instruction.CurrentValue) {
			result.Items = append(result.Items, ItemResult{
				Resource: ref,
				Field:    instruction.Field,
				Status:   ItemSkipped,
				OldValue: valuePtr(instruction.CurrentValue),
				NewValue: valuePtr(instruction.RevertToValue),
			})
			result.Skipped++
			continue
		}

		if err := s.catalog.SetField(ctx, ref, instruction.Field, instruction.RevertToValue); err != nil {
			mutationErr := &domain.ResourceMutationError{Resource: ref, Field: instruction.Field, Err: err}
			result.Items = append(result.Items, ItemResult{
				Resource: ref,
				Field:    instruction.Field,
				Status:   ItemFailed,
				OldValue: valuePtr(instruction.CurrentValue),
				NewValue: valuePtr(instruction.RevertToValue),
				Error:    mutationErr.Error(),
			})
			result.Failed++
			continue
		}

		result.Items = append(result.Items, ItemResult{
			Resource: ref,
			Field:    instruction.Field,
			Status:   ItemApplied,
			OldValue: valuePtr(instruction.CurrentValue),
			NewValue: valuePtr(instruction.RevertToValue),
		})
		result.Applied++
		changes = append(changes, domain.FieldChange{
			ResourceID:   instruction.ResourceID,
			ResourceType: instruction.ResourceType,
			Field:        instruction.Field,
			OldValue:     instruction.CurrentValue,
			NewValue:     instruction.RevertToValue,
		})
	}

	s.persistChanges(ctx, req.ShopID, operationName, changes, &result)
	return result, nil
}

// persistChanges records successful changes as a new batch. A run with zero
// changes is not persisted: recording an empty generation would demote the
// previous one and destroy the revert basis for no gain. Persistence failure
// degrades only the revert feature, so it surfaces as a warning.
func (s *Service) persistChanges(ctx context.Context, shopID, operationName string, changes []domain.FieldChange, result *Result) {
	if len(changes) == 0 {
		return
	}

	batch := domain.NewEditBatch(shopID, operationName, changes)
	if err := s.snapshots.SaveBatch(ctx, shopID, batch); err != nil {
		log.Printf("[executor] %v", err)
		result.SnapshotWarning = err.Error()
		return
	}
	result.BatchID = batch.BatchID
}

func (s *Service) shopLock(shopID string) *sync.Mutex {
	actual, _ := s.locks.LoadOrStore(shopID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func valuePtr(value domain.FieldValue) *domain.FieldValue {
	cloned := value.Clone()
	return &cloned
}
