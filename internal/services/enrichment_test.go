package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/pokeprice/internal/models"
)

func seedBaseSet(t *testing.T, db *gorm.DB) {
	t.Helper()
	seedGroup(t, db, models.Group{GroupID: 604, Name: "Base Set", CategoryID: 3})
	seedProduct(t, db, models.Product{ProductID: 1, Name: "Charizard", GroupID: 604, Number: "4/102"})
	seedProduct(t, db, models.Product{ProductID: 2, Name: "Pikachu", GroupID: 604, Number: "58/102", Artist: "Mitsuhiro Arita"})
	seedProduct(t, db, models.Product{ProductID: 3, Name: "Base Set Booster Pack", GroupID: 604, IsSealed: true})
}

func newTestEnrichment(t *testing.T, db *gorm.DB, handler http.HandlerFunc) *EnrichmentService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	ptcg := NewPokemonTCGService("key", 0)
	ptcg.baseURL = server.URL
	ptcg.http.backoff = 0
	dex := NewTCGdexService("en", 0)
	dex.baseURL = server.URL
	dex.http.backoff = 0

	svc := NewEnrichmentService(db, ptcg, dex, NewPriceService(db, nil))
	svc.now = func() time.Time { return time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestEnrichMetadata(t *testing.T) {
	db := newTestDB(t)
	seedBaseSet(t, db)

	svc := newTestEnrichment(t, db, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "key" {
			t.Errorf("missing api key on %s", r.URL)
		}
		switch r.URL.Path {
		case "/sets":
			fmt.Fprint(w, `{"data":[{"id":"base1","name":"Base","series":"Base","printedTotal":102,"releaseDate":"1999/01/09"}],"totalCount":1}`)
		case "/cards":
			if !strings.Contains(r.URL.Query().Get("q"), "base1") {
				t.Errorf("unexpected query %q", r.URL.Query().Get("q"))
			}
			fmt.Fprint(w, `{"data":[
				{"id":"base1-4","name":"Charizard","number":"4","supertype":"Pokémon","subtypes":["Stage 2"],"types":["Fire"],"hp":"120",
				 "artist":"Mitsuhiro Arita","rarity":"Rare Holo","retreatCost":["Colorless","Colorless","Colorless"],
				 "attacks":[{"name":"Fire Spin","cost":["Fire","Fire","Fire","Fire"],"damage":"100"}],
				 "tcgplayer":{"prices":{"holofoil":{"low":300,"mid":380,"market":400}}}},
				{"id":"base1-58","name":"Pikachu","number":"58","artist":"Atsuko Nishida"},
				{"id":"base1-10","name":"Mewtwo","number":"10"}],"totalCount":3}`)
		default:
			http.NotFound(w, r)
		}
	})

	result, err := svc.EnrichMetadata(context.Background())
	if err != nil {
		t.Fatalf("EnrichMetadata() error = %v", err)
	}
	if result.SetsProcessed != 1 || result.Matched != 2 || result.Unmatched != 1 || result.PricesRecorded != 1 {
		t.Errorf("EnrichMetadata() = %+v", result)
	}

	var charizard models.Product
	db.First(&charizard, "product_id = ?", 1)
	if charizard.PokemonTCGID != "base1-4" || charizard.Artist != "Mitsuhiro Arita" || charizard.Supertype != "Pokémon" {
		t.Errorf("charizard = %+v", charizard)
	}
	if charizard.RetreatCost == nil || *charizard.RetreatCost != 3 {
		t.Errorf("RetreatCost = %v, want 3", charizard.RetreatCost)
	}
	if charizard.Types != `["Fire"]` {
		t.Errorf("Types = %q", charizard.Types)
	}
	if charizard.MarketPrice != 400 || charizard.PriceSource != models.SourcePokemonTCG {
		t.Errorf("current price = %v from %q", charizard.MarketPrice, charizard.PriceSource)
	}

	var pikachu models.Product
	db.First(&pikachu, "product_id = ?", 2)
	if pikachu.Artist != "Mitsuhiro Arita" {
		t.Errorf("Pikachu artist = %q, want catalog value kept", pikachu.Artist)
	}

	var group models.Group
	db.First(&group, "group_id = ?", 604)
	if group.Series != "Base" || group.PrintedTotal != 102 || group.ReleaseDate == nil {
		t.Errorf("group = %+v", group)
	}
}

func TestCollectTCGdexPrices(t *testing.T) {
	db := newTestDB(t)
	seedBaseSet(t, db)

	svc := newTestEnrichment(t, db, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/en/sets":
			fmt.Fprint(w, `[{"id":"base1","name":"Base Set"},{"id":"jungle","name":"Jungle"}]`)
		case "/en/sets/base1":
			fmt.Fprint(w, `{"id":"base1","name":"Base Set","cards":[{"id":"base1-4","localId":"4","name":"Charizard"},{"id":"base1-99","localId":"99","name":"Missingno"}]}`)
		case "/en/cards/base1-4":
			fmt.Fprint(w, `{"id":"base1-4","localId":"4","name":"Charizard","illustrator":"Mitsuhiro Arita",
				"pricing":{"tcgplayer":{"holofoil":{"lowPrice":300,"midPrice":380,"highPrice":500,"marketPrice":100}}}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	result, err := svc.CollectTCGdexPrices(context.Background(), "base1")
	if err != nil {
		t.Fatalf("CollectTCGdexPrices() error = %v", err)
	}
	if result.Matched != 1 || result.Unmatched != 1 || result.PricesRecorded != 1 {
		t.Errorf("CollectTCGdexPrices() = %+v", result)
	}

	var p models.Product
	db.First(&p, "product_id = ?", 1)
	if p.TCGdexID != "base1-4" || p.Artist != "Mitsuhiro Arita" {
		t.Errorf("product = %+v", p)
	}
	if p.MarketPrice != 380 {
		t.Errorf("MarketPrice = %v, want mid price 380 for a stale market price", p.MarketPrice)
	}
}

func TestValidatedMarketPrice(t *testing.T) {
	tests := []struct {
		name string
		in   tcgdexPriceVariant
		want float64
	}{
		{"market ok", tcgdexPriceVariant{LowPrice: 10, MidPrice: 12, MarketPrice: 11}, 11},
		{"market stale uses mid", tcgdexPriceVariant{LowPrice: 10, MidPrice: 12, MarketPrice: 4}, 12},
		{"market stale no mid uses midpoint", tcgdexPriceVariant{LowPrice: 10, HighPrice: 20, MarketPrice: 4}, 15},
		{"no low trusts market", tcgdexPriceVariant{MarketPrice: 3}, 3},
		{"nothing", tcgdexPriceVariant{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validatedMarketPrice(tt.in); got != tt.want {
				t.Errorf("validatedMarketPrice() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTCGdexGetSetCaches(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"id":"base1","name":"Base Set","cards":[]}`)
	}))
	defer server.Close()

	svc := NewTCGdexService("", 0)
	svc.baseURL = server.URL
	for i := 0; i < 3; i++ {
		set, err := svc.GetSet(context.Background(), "base1")
		if err != nil || set == nil || set.Name != "Base Set" {
			t.Fatalf("GetSet() = %+v, %v", set, err)
		}
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1", calls)
	}
}
