package kitchen

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dinepos/kds/internal/enum"
)

func testOrder(id string, status string, createdAt time.Time) Order {
	return Order{
		ID:          id,
		OrderNumber: "ORD-" + id,
		Table:       "T1",
		Items: []Item{
			{Name: "Paneer Tikka", Quantity: 2, UnitPrice: decimal.NewFromInt(180)},
		},
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestApplyCreateIsIdempotent(t *testing.T) {
	s := NewStore()
	o := testOrder("o1", enum.OrderStatusPending, time.Now())

	if !s.ApplyCreate(o) {
		t.Fatal("first create should insert")
	}
	if s.ApplyCreate(o) {
		t.Fatal("duplicate create should be a no-op")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 order, got %d", s.Len())
	}
}

func TestApplyStatusUpdateReplacesOrder(t *testing.T) {
	s := NewStore()
	o := testOrder("o1", enum.OrderStatusPending, time.Now())
	s.ApplyCreate(o)

	updated := o
	updated.Status = enum.OrderStatusAccepted
	updated.UpdatedAt = o.UpdatedAt.Add(time.Second)

	if !s.ApplyStatusUpdate(updated) {
		t.Fatal("newer update should apply")
	}

	got, ok := s.Get("o1")
	if !ok {
		t.Fatal("order missing after update")
	}
	if got.Status != enum.OrderStatusAccepted {
		t.Errorf("status: got %s, want %s", got.Status, enum.OrderStatusAccepted)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 order after update, got %d", s.Len())
	}
}

func TestApplyStatusUpdateInsertsUnknownOrder(t *testing.T) {
	s := NewStore()
	o := testOrder("o1", enum.OrderStatusAccepted, time.Now())

	if !s.ApplyStatusUpdate(o) {
		t.Fatal("update for unknown order should insert")
	}
	if _, ok := s.Get("o1"); !ok {
		t.Fatal("order not inserted")
	}
}

func TestApplyStatusUpdateRejectsStaleRevision(t *testing.T) {
	s := NewStore()
	now := time.Now()

	newer := testOrder("o1", enum.OrderStatusCooking, now)
	newer.UpdatedAt = now.Add(5 * time.Second)
	s.ApplyStatusUpdate(newer)

	stale := testOrder("o1", enum.OrderStatusAccepted, now)
	stale.UpdatedAt = now

	if s.ApplyStatusUpdate(stale) {
		t.Fatal("stale update should be rejected")
	}

	got, _ := s.Get("o1")
	if got.Status != enum.OrderStatusCooking {
		t.Errorf("status: got %s, want %s", got.Status, enum.OrderStatusCooking)
	}
}

func TestApplyStatusUpdateLastWriteWinsForEqualRevisions(t *testing.T) {
	s := NewStore()
	now := time.Now()

	first := testOrder("o1", enum.OrderStatusAccepted, now)
	second := testOrder("o1", enum.OrderStatusCooking, now)

	s.ApplyStatusUpdate(first)
	if !s.ApplyStatusUpdate(second) {
		t.Fatal("equal-revision update should apply")
	}

	got, _ := s.Get("o1")
	if got.Status != enum.OrderStatusCooking {
		t.Errorf("status: got %s, want %s", got.Status, enum.OrderStatusCooking)
	}
}

func TestApplyLocalEditDropsZeroQuantityLines(t *testing.T) {
	s := NewStore()
	o := testOrder("o1", enum.OrderStatusAccepted, time.Now())
	o.Items = []Item{
		{Name: "Paneer Tikka", Quantity: 2, UnitPrice: decimal.NewFromInt(180)},
		{Name: "Garlic Naan", Quantity: 3, UnitPrice: decimal.NewFromInt(60)},
	}
	s.ApplyCreate(o)

	edited := []Item{
		{Name: "Paneer Tikka", Quantity: 0, UnitPrice: decimal.NewFromInt(180)},
		{Name: "Garlic Naan", Quantity: 2, UnitPrice: decimal.NewFromInt(60)},
	}
	if !s.ApplyLocalEdit("o1", edited) {
		t.Fatal("edit should apply to known order")
	}

	got, _ := s.Get("o1")
	if len(got.Items) != 1 {
		t.Fatalf("expected 1 item after edit, got %d", len(got.Items))
	}
	if got.Items[0].Name != "Garlic Naan" || got.Items[0].Quantity != 2 {
		t.Errorf("unexpected surviving item: %+v", got.Items[0])
	}
	if got.Status != enum.OrderStatusAccepted {
		t.Errorf("local edit must not change status, got %s", got.Status)
	}
}

func TestApplyLocalEditUnknownOrder(t *testing.T) {
	s := NewStore()
	if s.ApplyLocalEdit("missing", nil) {
		t.Fatal("edit of unknown order should report false")
	}
}

func TestRemove(t *testing.T) {
	s := NewStore()
	s.ApplyCreate(testOrder("o1", enum.OrderStatusRejected, time.Now()))

	if !s.Remove("o1") {
		t.Fatal("remove of present order should report true")
	}
	if s.Remove("o1") {
		t.Fatal("second remove should report false")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d orders", s.Len())
	}
}

func TestSnapshotSortsNewestFirst(t *testing.T) {
	s := NewStore()
	base := time.Now()

	s.ApplyCreate(testOrder("old", enum.OrderStatusPending, base.Add(-2*time.Hour)))
	s.ApplyCreate(testOrder("new", enum.OrderStatusPending, base))
	s.ApplyCreate(testOrder("mid", enum.OrderStatusPending, base.Add(-time.Hour)))

	snap := s.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(snap))
	}
	wantOrder := []string{"new", "mid", "old"}
	for i, want := range wantOrder {
		if snap[i].ID != want {
			t.Errorf("snapshot[%d]: got %s, want %s", i, snap[i].ID, want)
		}
	}
}

func TestSnapshotReturnsCopies(t *testing.T) {
	s := NewStore()
	s.ApplyCreate(testOrder("o1", enum.OrderStatusPending, time.Now()))

	snap := s.Snapshot()
	snap[0].Items[0].Quantity = 99

	got, _ := s.Get("o1")
	if got.Items[0].Quantity != 2 {
		t.Errorf("snapshot mutation leaked into store: quantity %d", got.Items[0].Quantity)
	}
}
