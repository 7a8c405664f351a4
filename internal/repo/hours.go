package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const hoursColumns = `id, negocio_id, dia_semana, hora_apertura::text, hora_cierre::text, cerrado, notas`

// weekday ordering for schedules (dia_semana is stored as text)
const weekdayOrder = `CASE dia_semana
    WHEN 'lunes' THEN 1 WHEN 'martes' THEN 2 WHEN 'miercoles' THEN 3
    WHEN 'jueves' THEN 4 WHEN 'viernes' THEN 5 WHEN 'sabado' THEN 6
    ELSE 7 END`

func scanHours(row pgx.Row) (*Hours, error) {
	var h Hours
	err := row.Scan(&h.ID, &h.NegocioID, &h.DiaSemana, &h.HoraApertura, &h.HoraCierre, &h.Cerrado, &h.Notas)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ListHours returns the weekly schedule of a business ordered Monday first.
func (r *PostgresRepository) ListHours(ctx context.Context, negocioID string) ([]Hours, error) {
	q := "SELECT " + hoursColumns + "\nFROM horarios_atencion\nWHERE negocio_id = $1\nORDER BY " + weekdayOrder + ";"
	rows, err := r.db.Query(ctx, q, negocioID)
	if err != nil {
		return nil, fmt.Errorf("list hours: %w", err)
	}
	defer rows.Close()

	var out []Hours
	for rows.Next() {
		h, err := scanHours(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hours: %w", err)
		}
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hours: %w", err)
	}
	return out, nil
}

// GetHoursForDay returns the hours row for one weekday, or nil when the
// business has no row for that day.
func (r *PostgresRepository) GetHoursForDay(ctx context.Context, negocioID, diaSemana string) (*Hours, error) {
	q := "SELECT " + hoursColumns + "\nFROM horarios_atencion\nWHERE negocio_id = $1 AND dia_semana = $2\nLIMIT 1;"
	h, err := scanHours(r.db.QueryRow(ctx, q, negocioID, diaSemana))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get hours for day: %w", err)
	}
	return h, nil
}
