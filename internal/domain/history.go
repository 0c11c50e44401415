package domain

// ShopSnapshotHistory holds the two retained snapshot generations for one
// shop plus an original-value index. Saving a batch demotes current to
// previous and discards the older previous; anything older is unrecoverable.
type ShopSnapshotHistory struct {
	ShopID   string     `json:"shopId"`
	Current  *EditBatch `json:"current"`
	Previous *EditBatch `json:"previous"`
	// Originals records the pre-edit value per field for the current
	// generation. When the same field is edited more than once within one
	// generation the earliest value wins, which the generation diff alone
	// cannot recover.
	Originals map[string]FieldValue `json:"originals,omitempty"`
}

// NewShopSnapshotHistory creates an empty history for a shop.
func NewShopSnapshotHistory(shopID string) ShopSnapshotHistory {
	return ShopSnapshotHistory{ShopID: shopID}
}

// WithBatch returns a new history with the batch as the current generation.
func (h ShopSnapshotHistory) WithBatch(batch EditBatch) ShopSnapshotHistory {
	next := ShopSnapshotHistory{
		ShopID:   h.ShopID,
		Current:  &batch,
		Previous: h.Current,
	}

	if len(batch.ItemChanges) > 0 {
		originals := make(map[string]FieldValue, len(batch.ItemChanges))
		for _, change := range batch.ItemChanges {
			key := change.Key()
			if _, ok := originals[key]; !ok {
				originals[key] = change.OldValue.Clone()
			}
		}
		next.Originals = originals
	}

	return next
}

// OriginalFor returns the current generation's pre-edit value for a field
// key.
func (h ShopSnapshotHistory) OriginalFor(key string) (FieldValue, bool) {
	value, ok := h.Originals[key]
	return value, ok
}

// RevertInstruction proposes one corrective mutation. Derived on demand,
// never stored.
type RevertInstruction struct {
	ResourceID    string       `json:"resourceId"`
	ResourceType  ResourceType `json:"resourceType"`
	Field         Field        `json:"field"`
	CurrentValue  FieldValue   `json:"currentValue"`
	RevertToValue FieldValue   `json:"revertToValue"`
}
