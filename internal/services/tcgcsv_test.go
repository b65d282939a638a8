package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codyseavey/pokeprice/internal/models"
)

func newTestTCGCSV(t *testing.T, handler http.HandlerFunc) *TCGCSVService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := NewTCGCSVService(0)
	svc.baseURL = server.URL
	svc.http.backoff = 0
	svc.http.rateLimitWait = 0
	return svc
}

func TestTCGCSVGetGroups(t *testing.T) {
	svc := newTestTCGCSV(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/85/groups" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"success":true,"results":[{"groupId":23237,"name":"SV2a: Pokemon Card 151","abbreviation":"SV2a","publishedOn":"2023-06-16T00:00:00"}]}`)
	})

	groups, err := svc.GetGroups(context.Background(), models.CategoryPokemonJapanese)
	if err != nil {
		t.Fatalf("GetGroups() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("GetGroups() returned %d groups, want 1", len(groups))
	}

	g := groups[0].ToGroup(models.CategoryPokemonJapanese)
	if g.Language != models.LanguageJapanese {
		t.Errorf("Language = %q, want ja", g.Language)
	}
	if g.ReleaseDate == nil || g.ReleaseDate.Year() != 2023 {
		t.Errorf("ReleaseDate = %v, want 2023", g.ReleaseDate)
	}
}

func TestTCGCSVGetProductsReportsErrors(t *testing.T) {
	svc := newTestTCGCSV(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false,"errors":["bad group"],"results":[]}`)
	})

	if _, err := svc.GetProducts(context.Background(), 3, 1); err == nil {
		t.Error("GetProducts() expected error for unsuccessful response")
	}
}

func TestTCGCSVNotFoundIsError(t *testing.T) {
	svc := newTestTCGCSV(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	if _, err := svc.GetPrices(context.Background(), 3, 1); err == nil {
		t.Error("GetPrices() expected error for 404")
	}
}

func TestTCGCSVProductToProduct(t *testing.T) {
	p := TCGCSVProduct{
		ProductID: 42,
		Name:      " Pikachu ",
		GroupID:   604,
		ExtendedData: []TCGCSVExtendedData{
			{Name: "Number", Value: "58/102"},
			{Name: "HP", Value: "40"},
		},
	}

	product := p.ToProduct(models.CategoryPokemon)
	if product.Name != "Pikachu" {
		t.Errorf("Name = %q", product.Name)
	}
	if product.Number != "58/102" || product.CategoryID != 3 || product.Language != models.LanguageEnglish {
		t.Errorf("ToProduct() = %+v", product)
	}
	if product.Supertype != "Pokémon" {
		t.Errorf("Supertype = %q", product.Supertype)
	}
}

func TestTCGCSVPriceBestPrice(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		price TCGCSVPrice
		want  float64
	}{
		{TCGCSVPrice{MarketPrice: f(3), MidPrice: f(2)}, 3},
		{TCGCSVPrice{MarketPrice: f(0), MidPrice: f(2)}, 2},
		{TCGCSVPrice{LowPrice: f(1)}, 1},
		{TCGCSVPrice{}, 0},
	}
	for _, tt := range tests {
		if got := tt.price.BestPrice(); got != tt.want {
			t.Errorf("BestPrice() = %v, want %v", got, tt.want)
		}
	}
}
