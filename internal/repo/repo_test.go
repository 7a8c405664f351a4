package repo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWithDB(mock, logger), mock
}

func TestUpsertConversationByPhone(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	name := "Ana"

	mock.ExpectQuery("INSERT INTO conversations").
		WithArgs("573001112233", "Ana").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "phone_number", "name", "is_active", "created_at", "updated_at",
		}).AddRow("conv-1", "573001112233", &name, true, now, now))

	conv, err := repo.UpsertConversationByPhone(context.Background(), "573001112233", "Ana")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", conv.ID)
	require.NotNil(t, conv.Name)
	assert.Equal(t, "Ana", *conv.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMessageDuplicateProviderIDFails(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO messages").
		WithArgs("conv-1", "wamid.abc", "incoming", "text", "hola", pgxmock.AnyArg(), "received", pgxmock.AnyArg()).
		WillReturnError(errors.New(`duplicate key value violates unique constraint "messages_message_id_key"`))

	err := repo.InsertMessage(context.Background(), MessageRecord{
		ConversationID: "conv-1",
		MessageID:      "wamid.abc",
		Direction:      "incoming",
		Type:           "text",
		Content:        "hola",
		Status:         "received",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecentMessagesNewestFirst(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT direction, message_type, content, created_at").
		WithArgs("conv-1", 5).
		WillReturnRows(pgxmock.NewRows([]string{"direction", "message_type", "content", "created_at"}).
			AddRow("outgoing", "text", "¡Hola manit@!", now).
			AddRow("incoming", "text", "hola", now.Add(-time.Minute)))

	msgs, err := repo.ListRecentMessages(context.Background(), "conv-1", 5)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "outgoing", msgs[0].Direction)
	assert.Equal(t, "conv-1", msgs[0].ConversationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBusinessMissReturnsNil(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM negocios").
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)

	b, err := repo.GetBusiness(context.Background(), "missing-id")
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReviewAlwaysUnapproved(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO resenas_negocio").
		WithArgs("biz-1", "573001112233", "Ana", int32(5), "buena comida").
		WillReturnRows(pgxmock.NewRows([]string{"id", "fecha"}).AddRow("rev-1", now))

	rev, err := repo.InsertReview(context.Background(), Review{
		NegocioID:       "biz-1",
		TelefonoCliente: "573001112233",
		NombreCliente:   "Ana",
		Calificacion:    5,
		Comentario:      "buena comida",
		Aprobado:        true, // ignored, reviews always start unapproved
	})
	require.NoError(t, err)
	assert.False(t, rev.Aprobado)
	assert.Equal(t, "rev-1", rev.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAverageRatingNilWithoutApprovedReviews(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT AVG").
		WithArgs("biz-1").
		WillReturnRows(pgxmock.NewRows([]string{"avg"}).AddRow(nil))

	avg, err := repo.AverageRating(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Nil(t, avg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBotContext(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO bot_contexts").
		WithArgs("conv-1", "buscar_negocio").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.UpsertBotContext(context.Background(), "conv-1", "buscar_negocio")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
