package repo

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var businessColumnNames = []string{
	"id", "nombre", "descripcion", "categoria", "direccion", "ciudad", "barrio",
	"latitud", "longitud", "referencia_ubicacion", "telefono", "whatsapp", "email",
	"facebook", "instagram", "sitio_web", "logo", "imagen_portada", "activo", "verificado",
}

func businessRow(id, nombre, categoria string, verificado bool) []any {
	return []any{
		id, nombre, "", categoria, "Calle 26 #4-33", "Quibdó", "Centro",
		nil, nil, "", "3001112233", "3001112233", "",
		"", "", "", "", "", true, verificado,
	}
}

func TestGetBusinessByNameExactMatch(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE LOWER\(nombre\) = LOWER\(\$1\)`).
		WithArgs("BOGA").
		WillReturnRows(pgxmock.NewRows(businessColumnNames).
			AddRow(businessRow("biz-1", "BOGA", "Restaurante", true)...))

	b, err := repo.GetBusinessByName(context.Background(), "BOGA")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "BOGA", b.Nombre)
	assert.True(t, b.Verificado)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBusinessByNameFallsBackToSubstring(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE LOWER\(nombre\) = LOWER\(\$1\)`).
		WithArgs("boga").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("WHERE nombre ILIKE").
		WithArgs("%boga%").
		WillReturnRows(pgxmock.NewRows(businessColumnNames).
			AddRow(businessRow("biz-1", "Restaurante BOGA", "Restaurante", false)...))

	b, err := repo.GetBusinessByName(context.Background(), "boga")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "Restaurante BOGA", b.Nombre)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBusinessByNameMissReturnsNil(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE LOWER\(nombre\) = LOWER\(\$1\)`).
		WithArgs("fantasma").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("WHERE nombre ILIKE").
		WithArgs("%fantasma%").
		WillReturnError(pgx.ErrNoRows)

	b, err := repo.GetBusinessByName(context.Background(), "fantasma")
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBusinessesOpenNowFiltersByWeekdayAndClock(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("JOIN horarios_atencion").
		WithArgs("lunes", "12:30:00", "%farmacia%").
		WillReturnRows(pgxmock.NewRows(businessColumnNames).
			AddRow(businessRow("biz-2", "Farmacia La 20", "Farmacia", true)...))

	out, err := repo.BusinessesOpenNow(context.Background(), "farmacia", "lunes", "12:30:00")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Farmacia La 20", out[0].Nombre)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpcomingEventsWindow(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM eventos_deportivos").
		WithArgs(now, now.AddDate(0, 0, 7), 10).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "nombre", "descripcion", "tipo_evento", "equipo_local",
			"equipo_visitante", "lugar", "fecha_evento", "activo",
		}).AddRow("ev-1", "Maratón de Quibdó", "", "maraton", "", "", "Malecón", now.AddDate(0, 0, 3), true))

	events, err := repo.UpcomingEvents(context.Background(), now, 0, 0, "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Maratón de Quibdó", events[0].Nombre)
	assert.NoError(t, mock.ExpectationsWereMet())
}
