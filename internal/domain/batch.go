package domain

import (
	"time"

	"github.com/google/uuid"
)

// FieldChange records one field mutation that actually happened in the
// catalog. Skipped no-ops never produce a FieldChange.
type FieldChange struct {
	ResourceID   string       `json:"resourceId"`
	ResourceType ResourceType `json:"resourceType"`
	Field        Field        `json:"field"`
	OldValue     FieldValue   `json:"oldValue"`
	NewValue     FieldValue   `json:"newValue"`
}

// Key identifies the changed field across snapshot generations.
func (c FieldChange) Key() string {
	return ChangeKey(ResourceRef{ID: c.ResourceID, Type: c.ResourceType}, c.Field)
}

// ChangeKey builds the per-field key used by the original-value index.
func ChangeKey(ref ResourceRef, field Field) string {
	return string(ref.Type) + "/" + ref.ID + "/" + string(field)
}

// EditBatch is one user-initiated bulk edit. Immutable once written to the
// snapshot store.
type EditBatch struct {
	BatchID       uuid.UUID     `json:"batchId"`
	ShopID        string        `json:"shopId"`
	OperationName string        `json:"operationName"`
	CreatedAt     time.Time     `json:"createdAt"`
	ItemChanges   []FieldChange `json:"itemChanges"`
}

// NewEditBatch creates a batch record from the successful changes of a run.
func NewEditBatch(shopID, operationName string, changes []FieldChange) EditBatch {
	return EditBatch{
		BatchID:       uuid.New(),
		ShopID:        shopID,
		OperationName: operationName,
		CreatedAt:     time.Now().UTC(),
		ItemChanges:   cloneChanges(changes),
	}
}

// ChangeFor returns the batch's change for the given key, if any.
func (b EditBatch) ChangeFor(key string) (FieldChange, bool) {
	for _, change := range b.ItemChanges {
		if change.Key() == key {
			return change, true
		}
	}
	return FieldChange{}, false
}

func cloneChanges(changes []FieldChange) []FieldChange {
	cloned := make([]FieldChange, len(changes))
	for i, change := range changes {
		change.OldValue = change.OldValue.Clone()
		change.NewValue = change.NewValue.Clone()
		cloned[i] = change
	}
	return cloned
}
