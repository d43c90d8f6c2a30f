package idempotency_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/idempotency"
	"github.com/xraph/payroll/scope"
	"github.com/xraph/payroll/store/memory"
)

type failingStore struct{}

func (failingStore) ClaimKey(context.Context, *idempotency.Record) (bool, error) {
	return false, errors.New("connection refused")
}

func (failingStore) PurgeKeys(context.Context, time.Time) (int64, error) { return 0, nil }

func TestAdmit(t *testing.T) {
	g := idempotency.NewGuard(memory.New())
	ctx := context.Background()
	sc := scope.New("create_individual_documents", 1)

	if err := g.Admit(ctx, sc, "k1"); err != nil {
		t.Fatalf("first Admit: %v", err)
	}
	if err := g.Admit(ctx, sc, "k1"); !errors.Is(err, payroll.ErrDuplicateKey) {
		t.Fatalf("second Admit: got %v, want ErrDuplicateKey", err)
	}
	if err := g.Admit(ctx, scope.New("create_individual_documents", 2), "k1"); err != nil {
		t.Fatalf("Admit for another actor: %v", err)
	}
}

func TestAdmit_MissingKey(t *testing.T) {
	g := idempotency.NewGuard(memory.New())

	for _, key := range []string{"", "   "} {
		err := g.Admit(context.Background(), scope.New("op", 1), key)
		if !errors.Is(err, payroll.ErrMissingKey) {
			t.Errorf("Admit(%q): got %v, want ErrMissingKey", key, err)
		}
		if errors.Is(err, payroll.ErrDuplicateKey) {
			t.Errorf("missing key must be distinct from duplicate")
		}
	}
}

func TestAdmit_Concurrent(t *testing.T) {
	g := idempotency.NewGuard(memory.New())
	sc := scope.New("create_individual_documents", 1)

	var admitted, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Admit(context.Background(), sc, "k1")
			switch {
			case err == nil:
				admitted.Add(1)
			case errors.Is(err, payroll.ErrDuplicateKey):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != 1 {
		t.Fatalf("admitted = %d, want 1", admitted.Load())
	}
	if rejected.Load() != 49 {
		t.Fatalf("rejected = %d, want 49", rejected.Load())
	}
}

func TestAdmit_CancelledContextConsumesNoKey(t *testing.T) {
	g := idempotency.NewGuard(memory.New())
	sc := scope.New("op", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Admit(ctx, sc, "k1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Admit with cancelled ctx: got %v", err)
	}
	if err := g.Admit(context.Background(), sc, "k1"); err != nil {
		t.Fatalf("key should still be available: %v", err)
	}
}

func TestAdmit_StoreFailure(t *testing.T) {
	g := idempotency.NewGuard(failingStore{})

	err := g.Admit(context.Background(), scope.New("op", 1), "k1")
	var re *payroll.ResourceError
	if !errors.As(err, &re) {
		t.Fatalf("got %T %v, want *ResourceError", err, err)
	}
	if !errors.Is(err, payroll.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable in chain")
	}
}

func TestAdmit_Retention(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	g := idempotency.NewGuard(memory.New(), idempotency.WithRetention(time.Hour), idempotency.WithClock(clock))
	sc := scope.New("op", 1)

	if err := g.Admit(context.Background(), sc, "k1"); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	now = now.Add(30 * time.Minute)
	if err := g.Admit(context.Background(), sc, "k1"); !errors.Is(err, payroll.ErrDuplicateKey) {
		t.Fatalf("inside retention: got %v", err)
	}

	now = now.Add(time.Hour)
	n, err := g.Purge(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Purge = %d, %v; want 1, nil", n, err)
	}
	if err := g.Admit(context.Background(), sc, "k1"); err != nil {
		t.Fatalf("after retention: %v", err)
	}
}
