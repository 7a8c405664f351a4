package convo

import "strings"

// IntentGeneral is the fallback when no keyword rule matches.
const IntentGeneral = "general"

type intentRule struct {
	Name     string
	Keywords []string
}

// intentRules is evaluated in order and the first matching rule wins, so
// broader rules placed earlier take precedence over more specific ones.
var intentRules = []intentRule{
	{"buscar_negocio", []string{"restaurante", "negocio", "lugar", "donde", "encuentra", "conoces", "hay"}},
	{"buscar_producto", []string{"producto", "plato", "vende", "menu", "menú", "comida", "precio", "cuanto cuesta"}},
	{"horarios", []string{"horario", "abierto", "cerrado", "abre", "cierra", "hora"}},
	{"resena", []string{"reseña", "calificar", "opinión", "comentario", "calificación", "experiencia"}},
	{"contacto", []string{"teléfono", "telefono", "whatsapp", "contacto", "llamar", "numero", "número"}},
	{"ubicacion", []string{"dirección", "direccion", "ubicación", "ubicacion", "cómo llegar", "como llegar", "donde queda"}},
	{"categorias", []string{"categoría", "categoria", "tipo", "qué hay", "que hay", "opciones"}},
	{"eventos", []string{"evento", "maratón", "maraton", "carrera", "partido", "torneo"}},
}

// synonyms rewrites colloquial phrasings onto canonical category words.
// Longer phrases come first so they win over their single-word suffixes.
var synonyms = []struct{ from, to string }{
	{"sitios de comida", "restaurante"},
	{"restaurantes", "restaurante"},
	{"comiditas", "restaurante"},
	{"droguerias", "farmacia"},
	{"droguerías", "farmacia"},
	{"farmacias", "farmacia"},
	{"supermercados", "supermercado"},
	{"mercados", "supermercado"},
	{"tiendas", "supermercado"},
}

// DetectIntent classifies a message by scanning the ordered keyword table.
// Matching is plain substring membership over the lowercased text.
func DetectIntent(text string) string {
	normalized := normalize(text)
	for _, rule := range intentRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(normalized, kw) {
				return rule.Name
			}
		}
	}
	return IntentGeneral
}

func normalize(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, syn := range synonyms {
		lowered = strings.ReplaceAll(lowered, syn.from, syn.to)
	}
	return lowered
}

// significantWords extracts the words worth feeding into a free-text search.
// Short words are dropped as likely connectors.
func significantWords(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?¿¡\"'")
		if len([]rune(w)) > 4 {
			out = append(out, w)
		}
	}
	return out
}
