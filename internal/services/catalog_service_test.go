package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"booking-system/internal/apperror"
	"booking-system/internal/config"
	"booking-system/internal/models"
	"booking-system/internal/redis"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newCatalogRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.Connect(&config.RedisConfig{Host: "127.0.0.1", Port: mr.Port()}, newTestLogger())
	if err != nil {
		t.Fatalf("failed to connect to test redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func newOfflineCatalog(t *testing.T) (*CatalogService, *miniredis.Miniredis) {
	t.Helper()
	redisClient, mr := newCatalogRedis(t)
	return NewCatalogService(redisClient, newTestLogger(), &config.CatalogConfig{Provider: "offline"}), mr
}

func TestOfflineRateCardDeterministic(t *testing.T) {
	first := offlineRateCard(models.BookableTypeVessel, "yacht-1")
	second := offlineRateCard(models.BookableTypeVessel, "yacht-1")

	if first.HourlyRate != second.HourlyRate || first.Bookable.Capacity != second.Bookable.Capacity {
		t.Fatalf("expected deterministic card, got %+v vs %+v", first, second)
	}
	if first.Bookable.Scope != models.ScopeVessel {
		t.Errorf("expected vessel scope, got %s", first.Bookable.Scope)
	}
	if first.HourlyRate < 200 || first.HourlyRate > 999 {
		t.Errorf("hourly rate out of range: %.2f", first.HourlyRate)
	}
	if first.Bookable.Capacity < 4 || first.Bookable.Capacity > 15 {
		t.Errorf("capacity out of range: %d", first.Bookable.Capacity)
	}

	tour := offlineRateCard(models.BookableTypeTour, "sunset-tour")
	if tour.Bookable.Scope != models.ScopeTour {
		t.Errorf("expected tour scope, got %s", tour.Bookable.Scope)
	}
	if tour.HourlyRate < 50 || tour.HourlyRate > 249 {
		t.Errorf("tour rate out of range: %.2f", tour.HourlyRate)
	}
}

func TestBasePriceValidation(t *testing.T) {
	s, _ := newOfflineCatalog(t)
	ctx := context.Background()

	if _, err := s.BasePrice(ctx, models.BookableTypeVessel, "yacht-1", 0, 4); !apperror.Is(err, apperror.KindValidation) {
		t.Errorf("expected validation error for zero duration, got %v", err)
	}
	if _, err := s.BasePrice(ctx, models.BookableTypeVessel, "yacht-1", 2, 0); !apperror.Is(err, apperror.KindValidation) {
		t.Errorf("expected validation error for zero party size, got %v", err)
	}
	if _, err := s.BasePrice(ctx, models.BookableTypeVessel, "", 2, 4); !apperror.Is(err, apperror.KindValidation) {
		t.Errorf("expected validation error for empty id, got %v", err)
	}
}

func TestBasePriceMatchesRateCard(t *testing.T) {
	s, _ := newOfflineCatalog(t)

	card := offlineRateCard(models.BookableTypeVessel, "yacht-1")
	want := round2(card.HourlyRate*3 + card.PerGuest*2)

	got, err := s.BasePrice(context.Background(), models.BookableTypeVessel, "yacht-1", 3, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("expected price %.2f, got %.2f", want, got)
	}
}

func TestBasePricePartyExceedsCapacity(t *testing.T) {
	s, _ := newOfflineCatalog(t)

	_, err := s.BasePrice(context.Background(), models.BookableTypeVessel, "yacht-1", 2, 100)
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetBookableCachesCard(t *testing.T) {
	s, mr := newOfflineCatalog(t)

	bookable, err := s.GetBookable(context.Background(), models.BookableTypeVessel, "yacht-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bookable.ID != "yacht-1" {
		t.Errorf("unexpected bookable id: %s", bookable.ID)
	}

	if !mr.Exists("catalog:vessel:yacht-1") {
		t.Fatal("expected rate card to be cached")
	}
}

func TestFetchRateCardHTTP(t *testing.T) {
	redisClient, _ := newCatalogRedis(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bookables/vessel/yacht-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %s", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(rateCard{
			Bookable: models.Bookable{
				ID:       "yacht-1",
				Type:     models.BookableTypeVessel,
				Scope:    models.ScopeVessel,
				Capacity: 8,
			},
			HourlyRate: 400,
			PerGuest:   20,
		})
	}))
	defer ts.Close()

	s := NewCatalogService(redisClient, newTestLogger(), &config.CatalogConfig{
		Provider: "http",
		BaseURL:  ts.URL,
		APIKey:   "test-key",
	})

	price, err := s.BasePrice(context.Background(), models.BookableTypeVessel, "yacht-1", 2, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 880 { // 400*2 + 20*4
		t.Errorf("expected price 880, got %.2f", price)
	}
}

func TestFetchRateCardFallsBackToOffline(t *testing.T) {
	redisClient, _ := newCatalogRedis(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	s := NewCatalogService(redisClient, newTestLogger(), &config.CatalogConfig{
		Provider: "http",
		BaseURL:  ts.URL,
	})

	bookable, err := s.GetBookable(context.Background(), models.BookableTypeVessel, "yacht-1")
	if err != nil {
		t.Fatalf("expected offline fallback, got error: %v", err)
	}

	offline := offlineRateCard(models.BookableTypeVessel, "yacht-1")
	if bookable.Capacity != offline.Bookable.Capacity {
		t.Errorf("expected offline capacity %d, got %d", offline.Bookable.Capacity, bookable.Capacity)
	}
}
