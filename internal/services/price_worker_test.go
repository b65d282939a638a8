package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/codyseavey/pokeprice/internal/models"
)

func TestPriceWorkerQueueRefresh(t *testing.T) {
	w := NewPriceWorker(nil, nil, nil, 0, 0)

	if pos := w.QueueRefresh(10); pos != 1 {
		t.Errorf("QueueRefresh(10) = %d, want 1", pos)
	}
	if pos := w.QueueRefresh(11); pos != 2 {
		t.Errorf("QueueRefresh(11) = %d, want 2", pos)
	}
	// Duplicate requests keep their place
	if pos := w.QueueRefresh(10); pos != 1 {
		t.Errorf("QueueRefresh(10) again = %d, want 1", pos)
	}
	if got := w.GetQueueSize(); got != 2 {
		t.Errorf("GetQueueSize() = %d, want 2", got)
	}
}

func TestPriceWorkerUpdateBatch(t *testing.T) {
	db := newTestDB(t)
	seedGroup(t, db, models.Group{GroupID: 1, Name: "Base Set", CategoryID: models.CategoryPokemon})
	seedProduct(t, db, models.Product{ProductID: 1, Name: "Pikachu", Number: "58", GroupID: 1, MarketPrice: 5})
	seedProduct(t, db, models.Product{ProductID: 2, Name: "Charizard", Number: "4", GroupID: 1, MarketPrice: 400})
	seedProduct(t, db, models.Product{ProductID: 3, Name: "Mystery", Number: "99", GroupID: 1, MarketPrice: 50})
	seedProduct(t, db, models.Product{ProductID: 4, Name: "Booster Box", GroupID: 1, IsSealed: true, MarketPrice: 900})

	var mu sync.Mutex
	var requested []string
	tracker := newTestPPT(t, 10, func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("tcgPlayerId")
		mu.Lock()
		requested = append(requested, id)
		mu.Unlock()
		if id == "3" {
			fmt.Fprint(w, `{"data":[]}`)
			return
		}
		fmt.Fprintf(w, `{"data":{"tcgPlayerId":%q,"prices":{"market":12.5,"conditions":{"Lightly Played":{"price":10}}},
			"ebay":{"salesByGrade":{"psa10":{"count":3,"marketPrice7Day":80}}}}}`, id)
	})
	prices := NewPriceService(db, tracker)
	w := NewPriceWorker(db, prices, tracker, time.Hour, 10)
	w.QueueRefresh(1)

	updated, err := w.UpdateBatch(context.Background())
	if err != nil {
		t.Fatalf("UpdateBatch() error = %v", err)
	}
	if updated != 2 {
		t.Errorf("UpdateBatch() = %d, want 2", updated)
	}

	// Urgent first, then unpriced singles by value; sealed product is never sent
	want := []string{"1", "2", "3"}
	mu.Lock()
	got := fmt.Sprint(requested)
	requested = nil
	mu.Unlock()
	if got != fmt.Sprint(want) {
		t.Errorf("requested = %v, want %v", got, want)
	}

	var graded models.PriceHistory
	if err := db.Where("product_id = ? AND source = ?", 2, models.GradedSource("10")).First(&graded).Error; err != nil {
		t.Fatalf("graded row missing: %v", err)
	}
	if graded.Price != 80 || graded.Population != 3 {
		t.Errorf("graded row = %+v", graded)
	}

	status := w.GetStatus()
	if status.ProductsUpdatedToday != 2 {
		t.Errorf("ProductsUpdatedToday = %d, want 2", status.ProductsUpdatedToday)
	}
	if len(status.UnmatchedProducts) != 1 || status.UnmatchedProducts[0].ProductID != 3 {
		t.Errorf("UnmatchedProducts = %+v", status.UnmatchedProducts)
	}
	if status.Remaining != 7 {
		t.Errorf("Remaining = %d, want 7", status.Remaining)
	}

	var run models.CollectionRun
	if err := db.Where("job = ?", JobGradedPricing).First(&run).Error; err != nil {
		t.Fatalf("run not recorded: %v", err)
	}
	if run.Processed != 3 || run.Updated != 2 || run.Skipped != 1 {
		t.Errorf("run = %+v", run)
	}

	// Fresh prices and unmatched products are not picked again
	updated, err = w.UpdateBatch(context.Background())
	if err != nil {
		t.Fatalf("second UpdateBatch() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if updated != 0 || len(requested) != 0 {
		t.Errorf("second UpdateBatch() = %d, requested %v", updated, requested)
	}
}

func TestPriceWorkerSkipsCardsWithoutPrices(t *testing.T) {
	db := newTestDB(t)
	seedGroup(t, db, models.Group{GroupID: 1, Name: "Base Set", CategoryID: models.CategoryPokemon})
	seedProduct(t, db, models.Product{ProductID: 1, Name: "Charizard", Number: "4", GroupID: 1, MarketPrice: 500})
	seedProduct(t, db, models.Product{ProductID: 2, Name: "Pikachu", Number: "58", GroupID: 1, MarketPrice: 5})

	var mu sync.Mutex
	var requested []string
	tracker := newTestPPT(t, 10, func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("tcgPlayerId")
		mu.Lock()
		requested = append(requested, id)
		mu.Unlock()
		if id == "1" {
			fmt.Fprint(w, `{"data":{"tcgPlayerId":"1","prices":{"market":0}}}`)
			return
		}
		fmt.Fprintf(w, `{"data":{"tcgPlayerId":%q,"prices":{"market":1.25}}}`, id)
	})
	w := NewPriceWorker(db, NewPriceService(db, tracker), tracker, time.Hour, 1)

	for i := 0; i < 3; i++ {
		if _, err := w.UpdateBatch(context.Background()); err != nil {
			t.Fatalf("UpdateBatch() #%d error = %v", i+1, err)
		}
	}

	// A card the tracker knows but cannot price does not hold up the rest
	mu.Lock()
	got := fmt.Sprint(requested)
	mu.Unlock()
	if want := fmt.Sprint([]string{"1", "2"}); got != want {
		t.Errorf("requested = %v, want %v", got, want)
	}

	status := w.GetStatus()
	if len(status.UnmatchedProducts) != 1 || status.UnmatchedProducts[0].ProductID != 1 {
		t.Errorf("UnmatchedProducts = %+v", status.UnmatchedProducts)
	}
	if status.Remaining != 8 {
		t.Errorf("Remaining = %d, want 8", status.Remaining)
	}
	if status.ProductsUpdatedToday != 1 {
		t.Errorf("ProductsUpdatedToday = %d, want 1", status.ProductsUpdatedToday)
	}
}

func TestPriceWorkerStopsAtQuota(t *testing.T) {
	db := newTestDB(t)
	seedGroup(t, db, models.Group{GroupID: 1, Name: "Base Set", CategoryID: models.CategoryPokemon})
	for i := 1; i <= 5; i++ {
		seedProduct(t, db, models.Product{ProductID: i, Name: fmt.Sprintf("Card %d", i), Number: fmt.Sprint(i), GroupID: 1})
	}

	tracker := newTestPPT(t, 2, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"prices":{"market":1}}}`)
	})
	w := NewPriceWorker(db, NewPriceService(db, tracker), tracker, time.Hour, 10)

	updated, err := w.UpdateBatch(context.Background())
	if err != nil {
		t.Fatalf("UpdateBatch() error = %v", err)
	}
	if updated != 2 {
		t.Errorf("UpdateBatch() = %d, want 2", updated)
	}

	// Nothing left to spend
	if updated, _ := w.UpdateBatch(context.Background()); updated != 0 {
		t.Errorf("UpdateBatch() after quota = %d, want 0", updated)
	}
}

func TestPriceWorkerStartStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	w := NewPriceWorker(nil, nil, NewPokemonPriceTrackerService("", 0, 0), time.Hour, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
