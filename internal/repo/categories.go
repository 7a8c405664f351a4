package repo

import (
	"context"
	"fmt"
)

// ListCategories returns the normalized category catalog ordered for display.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	const q = `
SELECT id, nombre, descripcion, icono, orden, activo
FROM categorias_negocio
WHERE activo = TRUE
ORDER BY orden ASC, nombre ASC;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Nombre, &c.Descripcion, &c.Icono, &c.Orden, &c.Activo); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// DistinctBusinessCategories returns the distinct free-text categories
// observed on active businesses, used when the catalog table is empty.
func (r *PostgresRepository) DistinctBusinessCategories(ctx context.Context) ([]string, error) {
	const q = `
SELECT DISTINCT categoria
FROM negocios
WHERE activo = TRUE AND categoria <> ''
ORDER BY categoria ASC;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category name: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category names: %w", err)
	}
	return out, nil
}
