package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

const businessColumns = `id, nombre, descripcion, categoria, direccion, ciudad, barrio, latitud, longitud,
       referencia_ubicacion, telefono, whatsapp, email, facebook, instagram, sitio_web,
       logo, imagen_portada, activo, verificado`

func scanBusiness(row pgx.Row) (*Business, error) {
	var b Business
	err := row.Scan(
		&b.ID, &b.Nombre, &b.Descripcion, &b.Categoria, &b.Direccion, &b.Ciudad, &b.Barrio,
		&b.Latitud, &b.Longitud, &b.ReferenciaUbicacion, &b.Telefono, &b.Whatsapp, &b.Email,
		&b.Facebook, &b.Instagram, &b.SitioWeb, &b.Logo, &b.ImagenPortada, &b.Activo, &b.Verificado,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBusinesses(rows pgx.Rows) ([]Business, error) {
	defer rows.Close()
	var out []Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("scan business: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate businesses: %w", err)
	}
	return out, nil
}

// SearchBusinesses filters the directory by free text, category and city.
// Results are ordered verified-first, then alphabetically. The free-text
// filter is a case-insensitive substring OR across name, description,
// category and neighborhood.
func (r *PostgresRepository) SearchBusinesses(ctx context.Context, p BusinessSearch) ([]Business, error) {
	if p.Limit <= 0 {
		p.Limit = 1000
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + businessColumns + "\nFROM negocios")

	var conds []string
	var args []any
	if p.ActiveOnly {
		conds = append(conds, "activo = TRUE")
	}
	if p.Ciudad != "" {
		args = append(args, "%"+p.Ciudad+"%")
		conds = append(conds, fmt.Sprintf("ciudad ILIKE $%d", len(args)))
	}
	if p.Categoria != "" {
		args = append(args, "%"+p.Categoria+"%")
		conds = append(conds, fmt.Sprintf("categoria ILIKE $%d", len(args)))
	}
	if p.Query != "" {
		args = append(args, "%"+p.Query+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(nombre ILIKE $%d OR descripcion ILIKE $%d OR categoria ILIKE $%d OR barrio ILIKE $%d)",
			n, n, n, n))
	}
	if len(conds) > 0 {
		sb.WriteString("\nWHERE " + strings.Join(conds, " AND "))
	}
	args = append(args, p.Limit)
	sb.WriteString(fmt.Sprintf("\nORDER BY verificado DESC, nombre ASC\nLIMIT $%d;", len(args)))

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search businesses: %w", err)
	}
	return collectBusinesses(rows)
}

// GetBusiness returns an active business by id, or nil when not found.
func (r *PostgresRepository) GetBusiness(ctx context.Context, id string) (*Business, error) {
	q := "SELECT " + businessColumns + "\nFROM negocios\nWHERE id = $1 AND activo = TRUE\nLIMIT 1;"
	b, err := scanBusiness(r.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get business: %w", err)
	}
	return b, nil
}

// GetBusinessByName looks for an exact (case-insensitive) name match first,
// then falls back to a substring match. Returns nil when nothing matches.
func (r *PostgresRepository) GetBusinessByName(ctx context.Context, name string) (*Business, error) {
	qExact := "SELECT " + businessColumns + "\nFROM negocios\nWHERE LOWER(nombre) = LOWER($1) AND activo = TRUE\nORDER BY verificado DESC, nombre ASC\nLIMIT 1;"
	b, err := scanBusiness(r.db.QueryRow(ctx, qExact, name))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get business by name: %w", err)
	}

	qLike := "SELECT " + businessColumns + "\nFROM negocios\nWHERE nombre ILIKE $1 AND activo = TRUE\nORDER BY verificado DESC, nombre ASC\nLIMIT 1;"
	b, err = scanBusiness(r.db.QueryRow(ctx, qLike, "%"+name+"%"))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get business by name: %w", err)
	}
	return b, nil
}

// SearchBusinessesByNeighborhood returns active businesses whose barrio
// matches the given substring.
func (r *PostgresRepository) SearchBusinessesByNeighborhood(ctx context.Context, barrio string, limit int) ([]Business, error) {
	if limit <= 0 {
		limit = 1000
	}
	q := "SELECT " + businessColumns + "\nFROM negocios\nWHERE activo = TRUE AND barrio ILIKE $1\nORDER BY verificado DESC, nombre ASC\nLIMIT $2;"
	rows, err := r.db.Query(ctx, q, "%"+barrio+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search businesses by neighborhood: %w", err)
	}
	return collectBusinesses(rows)
}

// BusinessesOpenNow returns active businesses whose hours window for the
// given weekday contains the given clock value ("15:04:05") and is not
// marked closed.
func (r *PostgresRepository) BusinessesOpenNow(ctx context.Context, categoria, diaSemana, hora string) ([]Business, error) {
	var sb strings.Builder
	sb.WriteString("SELECT " + prefixedBusinessColumns("n") + `
FROM negocios n
JOIN horarios_atencion h ON h.negocio_id = n.id
WHERE n.activo = TRUE
  AND h.dia_semana = $1
  AND h.cerrado = FALSE
  AND h.hora_apertura <= $2::time
  AND h.hora_cierre >= $2::time`)
	args := []any{diaSemana, hora}
	if categoria != "" {
		args = append(args, "%"+categoria+"%")
		sb.WriteString(fmt.Sprintf("\n  AND n.categoria ILIKE $%d", len(args)))
	}
	sb.WriteString("\nORDER BY n.verificado DESC, n.nombre ASC;")

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("businesses open now: %w", err)
	}
	return collectBusinesses(rows)
}

func prefixedBusinessColumns(alias string) string {
	cols := strings.Split(businessColumns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}
