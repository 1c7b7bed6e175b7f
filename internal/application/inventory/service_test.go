package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	domain "github.com/synexstock/orderflow/internal/domain/inventory"
	domnotif "github.com/synexstock/orderflow/internal/domain/notification"
	"github.com/synexstock/orderflow/internal/infrastructure/memory"
)

type stubIDGen struct{ n int }

func (g *stubIDGen) NewID() string {
	g.n++
	return fmt.Sprintf("item-%d", g.n)
}

type recordingAlerts struct {
	mu     sync.Mutex
	alerts []domnotif.LowStockAlert
}

func (r *recordingAlerts) PublishLowStock(ctx context.Context, alert domnotif.LowStockAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return nil
}

func (r *recordingAlerts) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

type recordingCache struct {
	mu           sync.Mutex
	invalidated  []string
	itemsBySKU   map[string]*domain.Item
}

func newRecordingCache() *recordingCache {
	return &recordingCache{itemsBySKU: make(map[string]*domain.Item)}
}

func (c *recordingCache) GetBySKU(ctx context.Context, skuCode string) (*domain.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.itemsBySKU[skuCode]
	return item, ok
}

func (c *recordingCache) SetBySKU(ctx context.Context, item *domain.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.itemsBySKU[item.SKUCode] = item
}

func (c *recordingCache) GetList(ctx context.Context) ([]*domain.Item, bool) { return nil, false }

func (c *recordingCache) SetList(ctx context.Context, items []*domain.Item) {}

func (c *recordingCache) Invalidate(ctx context.Context, skuCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.itemsBySKU, skuCode)
	c.invalidated = append(c.invalidated, skuCode)
}

func intPtr(v int) *int { return &v }

func newTestService(t *testing.T, alerts AlertPublisher, cache Cache) (*Service, *memory.InventoryRepository) {
	t.Helper()
	repo := memory.NewInventoryRepository()
	svc := NewService(repo, cache, alerts, &stubIDGen{}, "alerts@test.local", nil, nil)
	return svc, repo
}

func seedItem(t *testing.T, svc *Service, sku string, available, reorder int) {
	t.Helper()
	_, err := svc.Create(context.Background(), ItemInput{
		SKUCode:           sku,
		Name:              "Widget",
		QuantityAvailable: intPtr(available),
		ReorderLevel:      intPtr(reorder),
	})
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
}

func TestDeductSufficientStock(t *testing.T) {
	alerts := &recordingAlerts{}
	svc, _ := newTestService(t, alerts, nil)
	seedItem(t, svc, "SKU-001", 10, 5)

	ok, err := svc.Deduct(context.Background(), "SKU-001", 7)
	if err != nil {
		t.Fatalf("deduct failed: %v", err)
	}
	if !ok {
		t.Fatal("expected deduct to succeed")
	}

	item, err := svc.GetBySKU(context.Background(), "SKU-001")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Available() != 3 {
		t.Errorf("expected available 3, got %d", item.Available())
	}
	// 3 < 5, the alert fires.
	if alerts.count() != 1 {
		t.Errorf("expected 1 low-stock alert, got %d", alerts.count())
	}
	if alerts.alerts[0].QuantityAvailable != 3 || alerts.alerts[0].ReorderLevel != 5 {
		t.Errorf("unexpected alert payload: %+v", alerts.alerts[0])
	}
}

func TestDeductAboveReorderNoAlert(t *testing.T) {
	alerts := &recordingAlerts{}
	svc, _ := newTestService(t, alerts, nil)
	seedItem(t, svc, "SKU-001", 10, 5)

	ok, err := svc.Deduct(context.Background(), "SKU-001", 4)
	if err != nil || !ok {
		t.Fatalf("expected success, got ok=%v err=%v", ok, err)
	}

	item, _ := svc.GetBySKU(context.Background(), "SKU-001")
	if item.Available() != 6 {
		t.Errorf("expected available 6, got %d", item.Available())
	}
	// 6 >= 5, no alert.
	if alerts.count() != 0 {
		t.Errorf("expected no alert, got %d", alerts.count())
	}
}

func TestDeductInsufficientStock(t *testing.T) {
	alerts := &recordingAlerts{}
	svc, _ := newTestService(t, alerts, nil)
	seedItem(t, svc, "SKU-001", 10, 5)

	ok, err := svc.Deduct(context.Background(), "SKU-001", 11)
	if err != nil {
		t.Fatalf("deduct returned error: %v", err)
	}
	if ok {
		t.Fatal("expected deduct to be rejected")
	}

	item, _ := svc.GetBySKU(context.Background(), "SKU-001")
	if item.Available() != 10 {
		t.Errorf("state must be unchanged, got available %d", item.Available())
	}
	if alerts.count() != 0 {
		t.Error("alert must not fire on failed deduction")
	}
}

func TestDeductUnknownSKU(t *testing.T) {
	alerts := &recordingAlerts{}
	svc, repo := newTestService(t, alerts, nil)

	ok, err := svc.Deduct(context.Background(), "NO-SUCH-SKU", 1)
	if err != nil {
		t.Fatalf("deduct returned error: %v", err)
	}
	if ok {
		t.Fatal("expected deduct to fail for unknown SKU")
	}

	items, _ := repo.List(context.Background())
	if len(items) != 0 {
		t.Errorf("no state may be created, got %d items", len(items))
	}
}

func TestDeductNilQuantitiesDefaultToZero(t *testing.T) {
	alerts := &recordingAlerts{}
	svc, _ := newTestService(t, alerts, nil)
	// No quantity fields at all: available defaults to 0.
	if _, err := svc.Create(context.Background(), ItemInput{SKUCode: "SKU-EMPTY", Name: "Empty"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := svc.Deduct(context.Background(), "SKU-EMPTY", 1)
	if err != nil {
		t.Fatalf("deduct returned error: %v", err)
	}
	if ok {
		t.Fatal("expected rejection when available defaults to zero")
	}
}

func TestWritesInvalidateCache(t *testing.T) {
	cache := newRecordingCache()
	svc, _ := newTestService(t, &recordingAlerts{}, cache)
	seedItem(t, svc, "SKU-001", 10, 2)

	if len(cache.invalidated) != 1 {
		t.Fatalf("create must invalidate, got %v", cache.invalidated)
	}

	// Warm the cache, then deduct; the cached entry must be gone before the
	// next read.
	if _, err := svc.GetBySKU(context.Background(), "SKU-001"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := cache.GetBySKU(context.Background(), "SKU-001"); !ok {
		t.Fatal("expected cache to be warm after read")
	}

	if ok, _ := svc.Deduct(context.Background(), "SKU-001", 1); !ok {
		t.Fatal("deduct failed")
	}
	if _, ok := cache.GetBySKU(context.Background(), "SKU-001"); ok {
		t.Error("deduct must invalidate the cached item synchronously")
	}

	item, _ := svc.GetBySKU(context.Background(), "SKU-001")
	if item.Available() != 9 {
		t.Errorf("read after deduct must observe 9, got %d", item.Available())
	}
}

func TestConcurrentDeductNoOverdraft(t *testing.T) {
	const (
		initial  = 25
		workers  = 50
		quantity = 1
	)

	svc, _ := newTestService(t, &recordingAlerts{}, nil)
	seedItem(t, svc, "SKU-HOT", initial, 0)

	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.Deduct(context.Background(), "SKU-HOT", quantity)
			if err != nil {
				t.Errorf("deduct error: %v", err)
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}

	if succeeded*quantity > initial {
		t.Errorf("overdraft: %d deductions succeeded against %d available", succeeded, initial)
	}
	if succeeded != initial {
		t.Errorf("expected exactly %d successes, got %d", initial, succeeded)
	}

	item, _ := svc.GetBySKU(context.Background(), "SKU-HOT")
	if item.Available() != 0 {
		t.Errorf("expected 0 remaining, got %d", item.Available())
	}
}

func TestUpdateOverwritesAllMutableFields(t *testing.T) {
	svc, _ := newTestService(t, &recordingAlerts{}, nil)
	created, err := svc.Create(context.Background(), ItemInput{
		SKUCode:           "SKU-001",
		Name:              "Widget",
		QuantityAvailable: intPtr(10),
		ReorderLevel:      intPtr(5),
		Location:          "A1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(context.Background(), created.ID, ItemInput{
		SKUCode:           "SKU-002",
		Name:              "Gadget",
		QuantityAvailable: intPtr(3),
		Location:          "B2",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.SKUCode != "SKU-002" || updated.Name != "Gadget" || updated.Location != "B2" {
		t.Errorf("fields not overwritten: %+v", updated)
	}
	if updated.Available() != 3 {
		t.Errorf("expected available 3, got %d", updated.Available())
	}
	// Reorder level was omitted in the update, so it reads as zero.
	if updated.Reorder() != 0 {
		t.Errorf("expected reorder 0, got %d", updated.Reorder())
	}

	if _, err := svc.GetBySKU(context.Background(), "SKU-001"); err == nil {
		t.Error("old SKU must be gone after update")
	}
}

func TestCreateDuplicateSKU(t *testing.T) {
	svc, _ := newTestService(t, &recordingAlerts{}, nil)
	seedItem(t, svc, "SKU-001", 1, 0)

	_, err := svc.Create(context.Background(), ItemInput{SKUCode: "SKU-001", Name: "Dup"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
