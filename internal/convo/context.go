package convo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"parchaoo-bot/internal/directory"
	"parchaoo-bot/internal/repo"
)

// Directory is the slice of the directory service the resolver consumes.
type Directory interface {
	SearchBusinesses(ctx context.Context, query, categoria string, limit int) []repo.Business
	BusinessesByNeighborhood(ctx context.Context, barrio string, limit int) []repo.Business
	Hours(ctx context.Context, negocioID string) []repo.Hours
	IsOpenNow(ctx context.Context, negocioID string) directory.OpenStatus
	Products(ctx context.Context, negocioID string, limit int) []repo.Product
	SearchProductsGlobal(ctx context.Context, query string, limit int) []repo.Product
	Categories(ctx context.Context) []string
	AverageRating(ctx context.Context, negocioID string) *float64
	CreateReview(ctx context.Context, negocioID, customerPhone string, rating int, comment, customerName string) *repo.Review
	UpcomingEvents(ctx context.Context, days, limit int, tipoEvento string) []repo.Event
}

// Resolver classifies inbound text and assembles the directory context block
// injected into the LLM prompt.
type Resolver struct {
	dir    Directory
	logger *slog.Logger
}

func NewResolver(dir Directory, logger *slog.Logger) *Resolver {
	return &Resolver{dir: dir, logger: logger.With("component", "convo")}
}

const (
	maxBusinessesInContext = 10
	maxProductsPerBusiness = 5
)

// BuildContext assembles the per-intent context block. A panic anywhere in
// assembly is logged and the partial block built so far is returned.
func (r *Resolver) BuildContext(ctx context.Context, intent, message string) (out string) {
	var b strings.Builder
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("context assembly panicked", "intent", intent, "panic", rec)
			out = b.String()
		}
	}()

	switch intent {
	case "horarios":
		r.appendHoursContext(ctx, &b, message)
	case "ubicacion", "contacto":
		r.appendLocationContext(ctx, &b, message)
	case "buscar_producto":
		r.appendProductContext(ctx, &b, message)
	case "categorias":
		r.appendCategoryContext(ctx, &b)
	case "resena":
		r.appendReviewInstructions(&b)
	case "eventos":
		r.appendEventContext(ctx, &b)
	default:
		r.appendBusinessContext(ctx, &b, message)
	}
	return b.String()
}

// appendBusinessContext handles buscar_negocio and the general fallback. When
// a known category name appears in the normalized message it takes precedence
// and the free-text filter is dropped entirely.
func (r *Resolver) appendBusinessContext(ctx context.Context, b *strings.Builder, message string) {
	normalized := normalize(message)

	var categoria string
	for _, name := range r.dir.Categories(ctx) {
		if name != "" && strings.Contains(normalized, strings.ToLower(name)) {
			categoria = name
			break
		}
	}

	query := normalized
	if categoria != "" {
		query = ""
	}

	businesses := r.dir.SearchBusinesses(ctx, query, categoria, maxBusinessesInContext)
	if len(businesses) == 0 {
		r.appendNeighborhoodFallback(ctx, b, message)
		return
	}

	b.WriteString("NEGOCIOS ENCONTRADOS:\n")
	for _, biz := range businesses {
		r.appendBusinessSummary(ctx, b, biz)
	}
}

func (r *Resolver) appendBusinessSummary(ctx context.Context, b *strings.Builder, biz repo.Business) {
	b.WriteString("\n- ")
	b.WriteString(biz.Nombre)
	if biz.Verificado {
		b.WriteString(" ✅")
	}
	b.WriteString("\n")
	if biz.Categoria != "" {
		fmt.Fprintf(b, "  Categoría: %s\n", biz.Categoria)
	}
	status := r.dir.IsOpenNow(ctx, biz.ID)
	if status.Message != "" {
		fmt.Fprintf(b, "  Estado: %s\n", status.Message)
	}
	if biz.Direccion != "" {
		fmt.Fprintf(b, "  Dirección: %s", biz.Direccion)
		if biz.Barrio != "" {
			fmt.Fprintf(b, ", barrio %s", biz.Barrio)
		}
		b.WriteString("\n")
	}
	if biz.Telefono != "" {
		fmt.Fprintf(b, "  Teléfono: %s\n", biz.Telefono)
	}
	if biz.Whatsapp != "" {
		fmt.Fprintf(b, "  WhatsApp: %s\n", biz.Whatsapp)
	}
	if avg := r.dir.AverageRating(ctx, biz.ID); avg != nil {
		fmt.Fprintf(b, "  Calificación: %.1f/5\n", *avg)
	}

	products := r.dir.Products(ctx, biz.ID, maxProductsPerBusiness)
	if len(products) > 0 {
		b.WriteString("  Productos destacados:\n")
		for _, p := range products {
			fmt.Fprintf(b, "    * %s: %s\n", p.Nombre, FormatPrice(p))
		}
	}
}

// appendHoursContext scans significant words for a business match and emits
// the first matched business's full weekly schedule.
func (r *Resolver) appendHoursContext(ctx context.Context, b *strings.Builder, message string) {
	for _, word := range significantWords(message) {
		matches := r.dir.SearchBusinesses(ctx, word, "", 1)
		if len(matches) == 0 {
			continue
		}
		biz := matches[0]
		hours := r.dir.Hours(ctx, biz.ID)
		if len(hours) == 0 {
			continue
		}
		fmt.Fprintf(b, "HORARIOS DE %s:\n", strings.ToUpper(biz.Nombre))
		for _, h := range hours {
			if h.Cerrado {
				fmt.Fprintf(b, "- %s: cerrado\n", h.DiaSemana)
				continue
			}
			fmt.Fprintf(b, "- %s: %s a %s\n", h.DiaSemana, h.HoraApertura, h.HoraCierre)
		}
		status := r.dir.IsOpenNow(ctx, biz.ID)
		if status.Message != "" {
			fmt.Fprintf(b, "Ahora mismo: %s\n", status.Message)
		}
		return
	}
	r.appendNeighborhoodFallback(ctx, b, message)
}

func (r *Resolver) appendLocationContext(ctx context.Context, b *strings.Builder, message string) {
	for _, word := range significantWords(message) {
		matches := r.dir.SearchBusinesses(ctx, word, "", 1)
		if len(matches) == 0 {
			continue
		}
		biz := matches[0]
		fmt.Fprintf(b, "UBICACIÓN DE %s:\n", strings.ToUpper(biz.Nombre))
		if biz.Direccion != "" {
			fmt.Fprintf(b, "- Dirección: %s\n", biz.Direccion)
		}
		if biz.Barrio != "" {
			fmt.Fprintf(b, "- Barrio: %s\n", biz.Barrio)
		}
		if biz.ReferenciaUbicacion != "" {
			fmt.Fprintf(b, "- Referencia: %s\n", biz.ReferenciaUbicacion)
		}
		if biz.Telefono != "" {
			fmt.Fprintf(b, "- Teléfono: %s\n", biz.Telefono)
		}
		if biz.Whatsapp != "" {
			fmt.Fprintf(b, "- WhatsApp: %s\n", biz.Whatsapp)
		}
		if biz.Latitud != nil && biz.Longitud != nil {
			fmt.Fprintf(b, "- Coordenadas: %f, %f\n", *biz.Latitud, *biz.Longitud)
		}
		return
	}
	r.appendNeighborhoodFallback(ctx, b, message)
}

func (r *Resolver) appendProductContext(ctx context.Context, b *strings.Builder, message string) {
	for _, word := range significantWords(message) {
		matches := r.dir.SearchBusinesses(ctx, word, "", 1)
		if len(matches) > 0 {
			biz := matches[0]
			products := r.dir.Products(ctx, biz.ID, maxProductsPerBusiness)
			if len(products) == 0 {
				continue
			}
			fmt.Fprintf(b, "PRODUCTOS DE %s:\n", strings.ToUpper(biz.Nombre))
			for _, p := range products {
				fmt.Fprintf(b, "- %s: %s\n", p.Nombre, FormatPrice(p))
				if p.Descripcion != "" {
					fmt.Fprintf(b, "  %s\n", truncate(p.Descripcion, 80))
				}
			}
			return
		}

		products := r.dir.SearchProductsGlobal(ctx, word, maxProductsPerBusiness)
		if len(products) == 0 {
			continue
		}
		b.WriteString("PRODUCTOS ENCONTRADOS:\n")
		for _, p := range products {
			fmt.Fprintf(b, "- %s (%s): %s\n", p.Nombre, p.NegocioNombre, FormatPrice(p))
			if p.Descripcion != "" {
				fmt.Fprintf(b, "  %s\n", truncate(p.Descripcion, 80))
			}
		}
		return
	}
}

func (r *Resolver) appendCategoryContext(ctx context.Context, b *strings.Builder) {
	names := r.dir.Categories(ctx)
	if len(names) == 0 {
		return
	}
	b.WriteString("CATEGORÍAS DISPONIBLES:\n")
	for _, name := range names {
		fmt.Fprintf(b, "- %s\n", name)
	}
}

func (r *Resolver) appendReviewInstructions(b *strings.Builder) {
	b.WriteString("CÓMO DEJAR UNA RESEÑA:\n")
	b.WriteString("El usuario puede calificar un negocio escribiendo el nombre del negocio,\n")
	b.WriteString("una calificación de 1 a 5 estrellas y un comentario opcional.\n")
	b.WriteString("Ejemplo: \"Quiero calificar a BOGA con 5 estrellas, buena comida\".\n")
}

func (r *Resolver) appendEventContext(ctx context.Context, b *strings.Builder) {
	events := r.dir.UpcomingEvents(ctx, 7, 10, "")
	if len(events) > 0 {
		b.WriteString("EVENTOS DEPORTIVOS PRÓXIMOS:\n")
		for _, e := range events {
			fmt.Fprintf(b, "- %s (%s)", e.Nombre, e.TipoEvento)
			if e.EquipoLocal != "" && e.EquipoVisitante != "" {
				fmt.Fprintf(b, ": %s vs %s", e.EquipoLocal, e.EquipoVisitante)
			}
			fmt.Fprintf(b, " el %s", e.FechaEvento.Format("02/01/2006 03:04 PM"))
			if e.Lugar != "" {
				fmt.Fprintf(b, " en %s", e.Lugar)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("La Maratón de Quibdó se corre cada año por las calles del centro;\n")
	b.WriteString("las inscripciones se anuncian en las redes de la alcaldía.\n")
}

// appendNeighborhoodFallback tries each significant word as a neighborhood
// name and emits any businesses found there.
func (r *Resolver) appendNeighborhoodFallback(ctx context.Context, b *strings.Builder, message string) {
	for _, word := range significantWords(message) {
		matches := r.dir.BusinessesByNeighborhood(ctx, word, maxBusinessesInContext)
		if len(matches) == 0 {
			continue
		}
		fmt.Fprintf(b, "NEGOCIOS EN EL BARRIO %s:\n", strings.ToUpper(word))
		for _, biz := range matches {
			fmt.Fprintf(b, "- %s (%s)\n", biz.Nombre, biz.Categoria)
		}
		return
	}
}
