package repo

import (
	"context"
	"fmt"
)

// ListReviews returns reviews for a business, newest first.
func (r *PostgresRepository) ListReviews(ctx context.Context, negocioID string, approvedOnly bool, limit int) ([]Review, error) {
	if limit <= 0 {
		limit = 1000
	}
	q := `
SELECT id, negocio_id, telefono_cliente, nombre_cliente, calificacion, comentario, fecha, aprobado
FROM resenas_negocio
WHERE negocio_id = $1`
	args := []any{negocioID}
	if approvedOnly {
		q += " AND aprobado = TRUE"
	}
	args = append(args, limit)
	q += fmt.Sprintf("\nORDER BY fecha DESC\nLIMIT $%d;", len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		var rev Review
		if err := rows.Scan(&rev.ID, &rev.NegocioID, &rev.TelefonoCliente, &rev.NombreCliente,
			&rev.Calificacion, &rev.Comentario, &rev.Fecha, &rev.Aprobado); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return out, nil
}

// AverageRating returns the arithmetic mean of approved ratings, or nil when
// the business has no approved reviews.
func (r *PostgresRepository) AverageRating(ctx context.Context, negocioID string) (*float64, error) {
	const q = `
SELECT AVG(calificacion)
FROM resenas_negocio
WHERE negocio_id = $1 AND aprobado = TRUE;
`
	var avg *float64
	if err := r.db.QueryRow(ctx, q, negocioID).Scan(&avg); err != nil {
		return nil, fmt.Errorf("average rating: %w", err)
	}
	return avg, nil
}

// InsertReview stores a customer review. Reviews always start unapproved and
// require moderation before they count toward averages or listings.
func (r *PostgresRepository) InsertReview(ctx context.Context, rev Review) (*Review, error) {
	const q = `
INSERT INTO resenas_negocio (negocio_id, telefono_cliente, nombre_cliente, calificacion, comentario, aprobado)
VALUES ($1, $2, $3, $4, $5, FALSE)
RETURNING id, fecha;
`
	err := r.db.QueryRow(ctx, q,
		rev.NegocioID,
		rev.TelefonoCliente,
		rev.NombreCliente,
		rev.Calificacion,
		rev.Comentario,
	).Scan(&rev.ID, &rev.Fecha)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	rev.Aprobado = false
	return &rev, nil
}
