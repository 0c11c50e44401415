// Package revert derives corrective instructions from the snapshot history.
// The planner only proposes; applying a plan goes through the executor with
// the same partial-failure semantics as any batch.
package revert

import (
	"github.com/google/uuid"

	"github.com/spector-app/bulkedit/internal/domain"
)

// PlanRevert computes the instructions that would undo the given batch.
// Revert is only offered for the current generation, and only while a
// previous generation exists to diff against.
func PlanRevert(history domain.ShopSnapshotHistory, batchID uuid.UUID) ([]domain.RevertInstruction, bool) {
	if history.Current == nil || history.Current.BatchID != batchID {
		return []domain.RevertInstruction{}, false
	}
	if history.Previous == nil {
		return []domain.RevertInstruction{}, false
	}

	instructions := make([]domain.RevertInstruction, 0, len(history.Current.ItemChanges))
	for _, item := range history.Current.ItemChanges {
		target, ok := revertTarget(history, item)
		if !ok {
			continue
		}
		instructions = append(instructions, domain.RevertInstruction{
			ResourceID:    item.ResourceID,
			ResourceType:  item.ResourceType,
			Field:         item.Field,
			CurrentValue:  item.NewValue.Clone(),
			RevertToValue: target,
		})
	}
	return instructions, true
}

// revertTarget picks the value to restore, in preference order: the current
// generation's per-field original index, the value the field held after the
// previous batch, then the old value recorded on the current change itself.
func revertTarget(history domain.ShopSnapshotHistory, item domain.FieldChange) (domain.FieldValue, bool) {
	key := item.Key()
	if original, ok := history.OriginalFor(key); ok {
		return original.Clone(), true
	}
	if previous, ok := history.Previous.ChangeFor(key); ok {
		return previous.NewValue.Clone(), true
	}
	return item.OldValue.Clone(), true
}
