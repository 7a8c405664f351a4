package repo

import (
	"context"
	"fmt"
)

const productColumns = `id, negocio_id, nombre, descripcion, precio, precio_desde, precio_hasta,
       categoria, disponible, stock, imagen, destacado, orden, activo`

// ListProducts returns the active products of a business ordered
// featured-first, then explicit order, then name.
func (r *PostgresRepository) ListProducts(ctx context.Context, negocioID string, availableOnly bool, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 1000
	}
	q := "SELECT " + productColumns + `
FROM productos_negocio
WHERE negocio_id = $1 AND activo = TRUE`
	args := []any{negocioID}
	if availableOnly {
		q += " AND disponible = TRUE"
	}
	args = append(args, limit)
	q += fmt.Sprintf("\nORDER BY destacado DESC, orden ASC, nombre ASC\nLIMIT $%d;", len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.NegocioID, &p.Nombre, &p.Descripcion, &p.Precio, &p.PrecioDesde, &p.PrecioHasta,
			&p.Categoria, &p.Disponible, &p.Stock, &p.Imagen, &p.Destacado, &p.Orden, &p.Activo,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

// SearchProductsGlobal matches active, available products across every
// business by substring on name, description and category. The business
// name is joined in for display.
func (r *PostgresRepository) SearchProductsGlobal(ctx context.Context, query string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT p.id, p.negocio_id, p.nombre, p.descripcion, p.precio, p.precio_desde, p.precio_hasta,
       p.categoria, p.disponible, p.stock, p.imagen, p.destacado, p.orden, p.activo, n.nombre
FROM productos_negocio p
JOIN negocios n ON n.id = p.negocio_id
WHERE p.activo = TRUE AND p.disponible = TRUE AND n.activo = TRUE
  AND (p.nombre ILIKE $1 OR p.descripcion ILIKE $1 OR p.categoria ILIKE $1)
ORDER BY p.destacado DESC, p.nombre ASC
LIMIT $2;
`
	rows, err := r.db.Query(ctx, q, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.NegocioID, &p.Nombre, &p.Descripcion, &p.Precio, &p.PrecioDesde, &p.PrecioHasta,
			&p.Categoria, &p.Disponible, &p.Stock, &p.Imagen, &p.Destacado, &p.Orden, &p.Activo,
			&p.NegocioNombre,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}
