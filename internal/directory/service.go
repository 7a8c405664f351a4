package directory

import (
	"context"
	"log/slog"
	"time"

	"parchaoo-bot/internal/cache"
	"parchaoo-bot/internal/metrics"
	"parchaoo-bot/internal/repo"
)

const (
	categoriesCacheKey = "directory:categories"
	categoriesCacheTTL = 5 * time.Minute
)

// Config holds directory service settings.
type Config struct {
	Timezone    string
	DefaultCity string
}

// Service exposes read/write operations over the directory store. It never
// returns errors to callers: internal failures are logged and surfaced as
// empty results (lists) or nil (single-entity lookups).
type Service struct {
	store   repo.Repository
	cache   *cache.Redis
	logger  *slog.Logger
	metrics *metrics.Metrics
	loc     *time.Location
	city    string
	now     func() time.Time
}

// New creates a directory service bound to the configured local timezone.
func New(store repo.Repository, redis *cache.Redis, metricRegistry *metrics.Metrics, logger *slog.Logger, cfg Config) *Service {
	logger = logger.With("component", "directory")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, falling back to UTC", "timezone", cfg.Timezone, "error", err)
		loc = time.UTC
	}

	city := cfg.DefaultCity
	if city == "" {
		city = "Quibdó"
	}

	s := &Service{
		store:   store,
		cache:   redis,
		logger:  logger,
		metrics: metricRegistry,
		loc:     loc,
		city:    city,
	}
	s.now = func() time.Time { return time.Now().In(s.loc) }
	return s
}

func (s *Service) observe(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		s.logger.Error("directory query failed", "operation", op, "error", err)
		s.metrics.Errors.WithLabelValues("directory").Inc()
	}
	s.metrics.DirectoryQueries.WithLabelValues(op, status).Inc()
}

// SearchBusinesses returns active businesses in the default city matching the
// free-text query and/or category, verified-first then alphabetical.
func (s *Service) SearchBusinesses(ctx context.Context, query, categoria string, limit int) []repo.Business {
	out, err := s.store.SearchBusinesses(ctx, repo.BusinessSearch{
		Query:      query,
		Categoria:  categoria,
		Ciudad:     s.city,
		ActiveOnly: true,
		Limit:      limit,
	})
	s.observe("search_businesses", err)
	if err != nil {
		return nil
	}
	return out
}

// Business returns one active business by id, or nil.
func (s *Service) Business(ctx context.Context, id string) *repo.Business {
	b, err := s.store.GetBusiness(ctx, id)
	s.observe("get_business", err)
	if err != nil {
		return nil
	}
	return b
}

// BusinessByName returns the best name match (exact first, then substring).
func (s *Service) BusinessByName(ctx context.Context, name string) *repo.Business {
	b, err := s.store.GetBusinessByName(ctx, name)
	s.observe("get_business_by_name", err)
	if err != nil {
		return nil
	}
	return b
}

// BusinessesByNeighborhood returns active businesses in a neighborhood.
func (s *Service) BusinessesByNeighborhood(ctx context.Context, barrio string, limit int) []repo.Business {
	out, err := s.store.SearchBusinessesByNeighborhood(ctx, barrio, limit)
	s.observe("search_by_neighborhood", err)
	if err != nil {
		return nil
	}
	return out
}

// Hours returns the full weekly schedule of a business, Monday first.
func (s *Service) Hours(ctx context.Context, negocioID string) []repo.Hours {
	out, err := s.store.ListHours(ctx, negocioID)
	s.observe("get_hours", err)
	if err != nil {
		return nil
	}
	return out
}

// IsOpenNow computes the tri-state open status of a business for the current
// local time: Open is nil when no hours row exists for today's weekday.
func (s *Service) IsOpenNow(ctx context.Context, negocioID string) OpenStatus {
	now := s.now()
	h, err := s.store.GetHoursForDay(ctx, negocioID, weekdaySpanish(now.Weekday()))
	s.observe("is_open_now", err)
	if err != nil {
		return OpenStatus{Message: "Error al verificar horario"}
	}
	return openStatusAt(h, now)
}

// Products returns the active products of a business, featured first.
func (s *Service) Products(ctx context.Context, negocioID string, limit int) []repo.Product {
	out, err := s.store.ListProducts(ctx, negocioID, true, limit)
	s.observe("get_products", err)
	if err != nil {
		return nil
	}
	return out
}

// SearchProductsGlobal matches products across every business.
func (s *Service) SearchProductsGlobal(ctx context.Context, query string, limit int) []repo.Product {
	out, err := s.store.SearchProductsGlobal(ctx, query, limit)
	s.observe("search_products", err)
	if err != nil {
		return nil
	}
	return out
}

// Categories returns the category names of the directory: the normalized
// catalog when non-empty, otherwise the distinct free-text categories seen on
// active businesses. Results are cached briefly in Redis.
func (s *Service) Categories(ctx context.Context) []string {
	if s.cache != nil {
		var cached []string
		if ok, err := s.cache.GetJSON(ctx, categoriesCacheKey, &cached); err == nil && ok {
			return cached
		}
	}
	names := s.fetchCategories(ctx)
	if s.cache != nil && len(names) > 0 {
		if err := s.cache.SetJSON(ctx, categoriesCacheKey, names, categoriesCacheTTL); err != nil {
			s.logger.Warn("failed caching categories", "error", err)
		}
	}
	return names
}

// ReloadCategories drops the cached catalog and fetches it again.
func (s *Service) ReloadCategories(ctx context.Context) []string {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, categoriesCacheKey); err != nil {
			s.logger.Warn("failed invalidating category cache", "error", err)
		}
	}
	return s.Categories(ctx)
}

func (s *Service) fetchCategories(ctx context.Context) []string {
	catalog, err := s.store.ListCategories(ctx)
	s.observe("get_categories", err)
	if err == nil && len(catalog) > 0 {
		names := make([]string, 0, len(catalog))
		for _, c := range catalog {
			names = append(names, c.Nombre)
		}
		return names
	}

	names, err := s.store.DistinctBusinessCategories(ctx)
	s.observe("distinct_categories", err)
	if err != nil {
		return nil
	}
	return names
}

// Reviews returns approved reviews for a business, newest first.
func (s *Service) Reviews(ctx context.Context, negocioID string, limit int) []repo.Review {
	out, err := s.store.ListReviews(ctx, negocioID, true, limit)
	s.observe("get_reviews", err)
	if err != nil {
		return nil
	}
	return out
}

// AverageRating returns the mean of approved ratings, or nil when none exist.
func (s *Service) AverageRating(ctx context.Context, negocioID string) *float64 {
	avg, err := s.store.AverageRating(ctx, negocioID)
	s.observe("average_rating", err)
	if err != nil {
		return nil
	}
	return avg
}

// CreateReview stores an unapproved review and returns it, or nil on failure.
func (s *Service) CreateReview(ctx context.Context, negocioID, customerPhone string, rating int, comment, customerName string) *repo.Review {
	rev, err := s.store.InsertReview(ctx, repo.Review{
		NegocioID:       negocioID,
		TelefonoCliente: customerPhone,
		NombreCliente:   customerName,
		Calificacion:    int32(rating),
		Comentario:      comment,
	})
	s.observe("create_review", err)
	if err != nil {
		return nil
	}
	return rev
}

// BusinessesOpenNow returns the active businesses whose schedule for today's
// weekday contains the current local time.
func (s *Service) BusinessesOpenNow(ctx context.Context, categoria string) []repo.Business {
	now := s.now()
	out, err := s.store.BusinessesOpenNow(ctx, categoria, weekdaySpanish(now.Weekday()), now.Format("15:04:05"))
	s.observe("businesses_open_now", err)
	if err != nil {
		return nil
	}
	return out
}

// UpcomingEvents returns active sporting events within the next `days` days.
func (s *Service) UpcomingEvents(ctx context.Context, days, limit int, tipoEvento string) []repo.Event {
	out, err := s.store.UpcomingEvents(ctx, s.now(), days, limit, tipoEvento)
	s.observe("upcoming_events", err)
	if err != nil {
		return nil
	}
	return out
}

// SearchEvents matches future events by free text.
func (s *Service) SearchEvents(ctx context.Context, query string, limit int) []repo.Event {
	out, err := s.store.SearchEvents(ctx, s.now(), query, limit)
	s.observe("search_events", err)
	if err != nil {
		return nil
	}
	return out
}

// Now returns the current time in the service's local timezone.
func (s *Service) Now() time.Time {
	return s.now()
}
