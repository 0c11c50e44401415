package snapshot

import (
	"context"
	"encoding/json"
	"log"

	"github.com/spector-app/bulkedit/internal/domain"
)

// KV is the durable per-shop record collaborator. WriteAtomic must either
// fully replace the record or leave the prior record untouched; readers never
// observe a partial write.
type KV interface {
	Read(ctx context.Context, shopID string) ([]byte, bool, error)
	WriteAtomic(ctx context.Context, shopID string, payload []byte) error
}

// Store persists the two-generation snapshot history per shop. Concurrent
// saves for the same shop are not safe here; callers serialize per shop.
type Store struct {
	kv KV
}

// NewStore creates a snapshot store on top of a durable KV.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// SaveBatch records a batch as the new current generation, demoting the prior
// current to previous.
func (s *Store) SaveBatch(ctx context.Context, shopID string, batch domain.EditBatch) error {
	history, err := s.LoadHistory(ctx, shopID)
	if err != nil {
		return err
	}

	next := history.WithBatch(batch)
	payload, err := json.Marshal(next)
	if err != nil {
		return &domain.SnapshotPersistenceError{ShopID: shopID, Err: err}
	}
	if err := s.kv.WriteAtomic(ctx, shopID, payload); err != nil {
		return &domain.SnapshotPersistenceError{ShopID: shopID, Err: err}
	}
	return nil
}

// LoadHistory returns the retained generations for a shop. A missing or
// corrupt record yields an empty history, never an error.
func (s *Store) LoadHistory(ctx context.Context, shopID string) (domain.ShopSnapshotHistory, error) {
	payload, found, err := s.kv.Read(ctx, shopID)
	if err != nil {
		return domain.ShopSnapshotHistory{}, &domain.SnapshotPersistenceError{ShopID: shopID, Err: err}
	}
	if !found {
		return domain.NewShopSnapshotHistory(shopID), nil
	}

	var history domain.ShopSnapshotHistory
	if err := json.Unmarshal(payload, &history); err != nil {
		log.Printf("[snapshot] discarding corrupt record for shop %s: %v", shopID, err)
		return domain.NewShopSnapshotHistory(shopID), nil
	}
	if history.ShopID == "" {
		history.ShopID = shopID
	}
	return history, nil
}
