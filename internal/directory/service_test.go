package directory

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"parchaoo-bot/internal/cache"
	"parchaoo-bot/internal/metrics"
	"parchaoo-bot/internal/repo"
)

// stubStore embeds the interface so only the methods a test exercises need
// overriding; anything else panics loudly.
type stubStore struct {
	repo.Repository
	categories       []repo.Category
	distinct         []string
	catalogCalls     int
	hoursForDay      *repo.Hours
	hoursForDayQuery string
	insertedReview   *repo.Review
	insertErr        error
}

func (s *stubStore) ListCategories(context.Context) ([]repo.Category, error) {
	s.catalogCalls++
	return s.categories, nil
}

func (s *stubStore) DistinctBusinessCategories(context.Context) ([]string, error) {
	return s.distinct, nil
}

func (s *stubStore) GetHoursForDay(_ context.Context, _, diaSemana string) (*repo.Hours, error) {
	s.hoursForDayQuery = diaSemana
	return s.hoursForDay, nil
}

func (s *stubStore) InsertReview(_ context.Context, rev repo.Review) (*repo.Review, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	rev.Aprobado = false
	s.insertedReview = &rev
	return &rev, nil
}

func newTestService(t *testing.T, store repo.Repository, redis *cache.Redis) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, redis, metrics.Registry("test"), logger, Config{
		Timezone:    "America/Bogota",
		DefaultCity: "Quibdó",
	})
}

func TestCategoriesPrefersCatalogAndCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	redis := cache.New(cache.Config{Addr: mr.Addr()}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = redis.Close() })

	store := &stubStore{categories: []repo.Category{{Nombre: "Restaurante"}, {Nombre: "Farmacia"}}}
	svc := newTestService(t, store, redis)

	first := svc.Categories(context.Background())
	if len(first) != 2 || first[0] != "Restaurante" {
		t.Fatalf("unexpected categories: %v", first)
	}

	second := svc.Categories(context.Background())
	if len(second) != 2 {
		t.Fatalf("unexpected cached categories: %v", second)
	}
	if store.catalogCalls != 1 {
		t.Fatalf("expected the second call to hit the cache, catalog calls = %d", store.catalogCalls)
	}
}

func TestCategoriesFallsBackToDistinct(t *testing.T) {
	store := &stubStore{distinct: []string{"comida rápida"}}
	svc := newTestService(t, store, nil)

	got := svc.Categories(context.Background())
	if len(got) != 1 || got[0] != "comida rápida" {
		t.Fatalf("unexpected fallback categories: %v", got)
	}
}

func TestReloadCategoriesInvalidatesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	redis := cache.New(cache.Config{Addr: mr.Addr()}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = redis.Close() })

	store := &stubStore{categories: []repo.Category{{Nombre: "Restaurante"}}}
	svc := newTestService(t, store, redis)

	svc.Categories(context.Background())
	svc.ReloadCategories(context.Background())
	if store.catalogCalls != 2 {
		t.Fatalf("expected reload to refetch, catalog calls = %d", store.catalogCalls)
	}
}

func TestIsOpenNowUsesLocalWeekday(t *testing.T) {
	store := &stubStore{hoursForDay: &repo.Hours{
		DiaSemana: "lunes", HoraApertura: "08:00:00", HoraCierre: "20:00:00",
	}}
	svc := newTestService(t, store, nil)
	loc := svc.loc
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, loc) }

	status := svc.IsOpenNow(context.Background(), "biz-1")
	if store.hoursForDayQuery != "lunes" {
		t.Fatalf("expected lunes lookup, got %q", store.hoursForDayQuery)
	}
	if status.Open == nil || !*status.Open {
		t.Fatalf("expected open at noon, got %+v", status)
	}
}

func TestCreateReviewSwallowsErrors(t *testing.T) {
	store := &stubStore{insertErr: context.DeadlineExceeded}
	svc := newTestService(t, store, nil)

	if rev := svc.CreateReview(context.Background(), "biz-1", "573001112233", 5, "rico", "Ana"); rev != nil {
		t.Fatalf("expected nil on insert failure, got %+v", rev)
	}
}

func TestCreateReviewPersistsUnapproved(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(t, store, nil)

	rev := svc.CreateReview(context.Background(), "biz-1", "573001112233", 4, "muy bueno", "Ana")
	if rev == nil {
		t.Fatal("expected a review")
	}
	if rev.Aprobado {
		t.Fatal("reviews must start unapproved")
	}
	if store.insertedReview.Calificacion != 4 {
		t.Fatalf("unexpected rating: %d", store.insertedReview.Calificacion)
	}
}
