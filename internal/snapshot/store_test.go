package snapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/spector-app/bulkedit/internal/domain"

	"github.com/shopspring/decimal"
)

type memoryKV struct {
	records  map[string][]byte
	failNext error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{records: map[string][]byte{}}
}

func (kv *memoryKV) Read(_ context.Context, shopID string) ([]byte, bool, error) {
	payload, ok := kv.records[shopID]
	return payload, ok, nil
}

func (kv *memoryKV) WriteAtomic(_ context.Context, shopID string, payload []byte) error {
	if kv.failNext != nil {
		err := kv.failNext
		kv.failNext = nil
		return err
	}
	kv.records[shopID] = append([]byte(nil), payload...)
	return nil
}

var _ KV = (*memoryKV)(nil)

func priceChange(id, oldRaw, newRaw string) domain.FieldChange {
	return domain.FieldChange{
		ResourceID:   id,
		ResourceType: domain.ResourceVariant,
		Field:        domain.FieldPrice,
		OldValue:     domain.NewMoney(decimal.RequireFromString(oldRaw)),
		NewValue:     domain.NewMoney(decimal.RequireFromString(newRaw)),
	}
}

func TestSaveBatchDemotesGenerations(t *testing.T) {
	store := NewStore(newMemoryKV())
	shop := "demo.myshopify.com"
	ctx := context.Background()

	first := domain.NewEditBatch(shop, "first", []domain.FieldChange{priceChange("v1", "10", "11")})
	second := domain.NewEditBatch(shop, "second", []domain.FieldChange{priceChange("v1", "11", "12")})
	third := domain.NewEditBatch(shop, "third", []domain.FieldChange{priceChange("v1", "12", "13")})

	for _, batch := range []domain.EditBatch{first, second, third} {
		if err := store.SaveBatch(ctx, shop, batch); err != nil {
			t.Fatalf("save returned error: %v", err)
		}
	}

	history, err := store.LoadHistory(ctx, shop)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if history.Current == nil || history.Current.BatchID != third.BatchID {
		t.Fatalf("expected third batch as current")
	}
	if history.Previous == nil || history.Previous.BatchID != second.BatchID {
		t.Fatalf("expected second batch as previous, first must be unrecoverable")
	}
	if history.Previous.OperationName != "second" {
		t.Fatalf("expected previous operation name to survive round trip, got %q", history.Previous.OperationName)
	}
}

func TestLoadHistoryMissingRecordIsEmpty(t *testing.T) {
	store := NewStore(newMemoryKV())

	history, err := store.LoadHistory(context.Background(), "empty.myshopify.com")
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if history.Current != nil || history.Previous != nil {
		t.Fatalf("expected empty history, got %+v", history)
	}
	if history.ShopID != "empty.myshopify.com" {
		t.Fatalf("expected shop id to be filled in, got %q", history.ShopID)
	}
}

func TestLoadHistoryCorruptRecordIsEmpty(t *testing.T) {
	kv := newMemoryKV()
	kv.records["demo.myshopify.com"] = []byte("{not json")
	store := NewStore(kv)

	history, err := store.LoadHistory(context.Background(), "demo.myshopify.com")
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if history.Current != nil || history.Previous != nil {
		t.Fatalf("expected corrupt record to load as empty history")
	}
}

func TestSaveBatchWrapsWriteFailure(t *testing.T) {
	kv := newMemoryKV()
	kv.failNext = errors.New("disk full")
	store := NewStore(kv)

	batch := domain.NewEditBatch("demo.myshopify.com", "op", []domain.FieldChange{priceChange("v1", "10", "11")})
	err := store.SaveBatch(context.Background(), "demo.myshopify.com", batch)

	var persistence *domain.SnapshotPersistenceError
	if !errors.As(err, &persistence) {
		t.Fatalf("expected SnapshotPersistenceError, got %v", err)
	}
}

func TestFileKVRoundTrip(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file kv: %v", err)
	}
	ctx := context.Background()

	if _, found, err := kv.Read(ctx, "demo.myshopify.com"); err != nil || found {
		t.Fatalf("expected absent record, found=%v err=%v", found, err)
	}

	if err := kv.WriteAtomic(ctx, "demo.myshopify.com", []byte(`{"shopId":"demo.myshopify.com"}`)); err != nil {
		t.Fatalf("write returned error: %v", err)
	}
	if err := kv.WriteAtomic(ctx, "demo.myshopify.com", []byte(`{"shopId":"demo.myshopify.com","current":null}`)); err != nil {
		t.Fatalf("overwrite returned error: %v", err)
	}

	payload, found, err := kv.Read(ctx, "demo.myshopify.com")
	if err != nil || !found {
		t.Fatalf("expected record after write, found=%v err=%v", found, err)
	}
	if string(payload) != `{"shopId":"demo.myshopify.com","current":null}` {
		t.Fatalf("unexpected payload: %s", payload)
	}
}
