package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const eventColumns = `id, nombre, descripcion, tipo_evento, equipo_local, equipo_visitante, lugar, fecha_evento, activo`

func (r *PostgresRepository) collectEvents(rows pgx.Rows) ([]Event, error) {
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Nombre, &e.Descripcion, &e.TipoEvento, &e.EquipoLocal,
			&e.EquipoVisitante, &e.Lugar, &e.FechaEvento, &e.Activo); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// UpcomingEvents returns active sporting events within the next `days` days,
// soonest first, optionally filtered by event type.
func (r *PostgresRepository) UpcomingEvents(ctx context.Context, now time.Time, days, limit int, tipoEvento string) ([]Event, error) {
	if days <= 0 {
		days = 7
	}
	if limit <= 0 {
		limit = 10
	}
	until := now.AddDate(0, 0, days)

	q := "SELECT " + eventColumns + `
FROM eventos_deportivos
WHERE activo = TRUE AND fecha_evento >= $1 AND fecha_evento <= $2`
	args := []any{now, until}
	if tipoEvento != "" {
		args = append(args, "%"+tipoEvento+"%")
		q += fmt.Sprintf(" AND tipo_evento ILIKE $%d", len(args))
	}
	args = append(args, limit)
	q += fmt.Sprintf("\nORDER BY fecha_evento ASC\nLIMIT $%d;", len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("upcoming events: %w", err)
	}
	return r.collectEvents(rows)
}

// SearchEvents matches future active events by substring on name,
// description, teams and venue.
func (r *PostgresRepository) SearchEvents(ctx context.Context, now time.Time, query string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 10
	}
	q := "SELECT " + eventColumns + `
FROM eventos_deportivos
WHERE activo = TRUE AND fecha_evento >= $1
  AND (nombre ILIKE $2 OR descripcion ILIKE $2 OR equipo_local ILIKE $2 OR equipo_visitante ILIKE $2 OR lugar ILIKE $2)
ORDER BY fecha_evento ASC
LIMIT $3;
`
	rows, err := r.db.Query(ctx, q, now, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return r.collectEvents(rows)
}
