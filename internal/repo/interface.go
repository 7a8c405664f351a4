package repo

import (
	"context"
	"io/fs"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Conversations
	UpsertConversationByPhone(ctx context.Context, phoneNumber, name string) (*Conversation, error)

	// Messages
	InsertMessage(ctx context.Context, msg MessageRecord) error
	ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]MessageRecord, error)
	UpsertBotContext(ctx context.Context, conversationID, lastIntent string) error

	// Businesses
	SearchBusinesses(ctx context.Context, p BusinessSearch) ([]Business, error)
	GetBusiness(ctx context.Context, id string) (*Business, error)
	GetBusinessByName(ctx context.Context, name string) (*Business, error)
	SearchBusinessesByNeighborhood(ctx context.Context, barrio string, limit int) ([]Business, error)
	BusinessesOpenNow(ctx context.Context, categoria, diaSemana, hora string) ([]Business, error)

	// Hours
	ListHours(ctx context.Context, negocioID string) ([]Hours, error)
	GetHoursForDay(ctx context.Context, negocioID, diaSemana string) (*Hours, error)

	// Products
	ListProducts(ctx context.Context, negocioID string, availableOnly bool, limit int) ([]Product, error)
	SearchProductsGlobal(ctx context.Context, query string, limit int) ([]Product, error)

	// Categories
	ListCategories(ctx context.Context) ([]Category, error)
	DistinctBusinessCategories(ctx context.Context) ([]string, error)

	// Reviews
	ListReviews(ctx context.Context, negocioID string, approvedOnly bool, limit int) ([]Review, error)
	AverageRating(ctx context.Context, negocioID string) (*float64, error)
	InsertReview(ctx context.Context, rev Review) (*Review, error)

	// Events
	UpcomingEvents(ctx context.Context, now time.Time, days, limit int, tipoEvento string) ([]Event, error)
	SearchEvents(ctx context.Context, now time.Time, query string, limit int) ([]Event, error)
}
