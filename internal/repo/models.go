package repo

import "time"

// Conversation represents the conversations table row. One row per phone
// number, created on the first inbound message and never deleted.
type Conversation struct {
	ID          string
	PhoneNumber string
	Name        *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MessageRecord is used to persist conversation logs.
type MessageRecord struct {
	ID             string
	ConversationID string
	MessageID      string
	Direction      string
	Type           string
	Content        string
	MediaURL       *string
	Status         string
	ErrorMessage   *string
	Timestamp      time.Time
	CreatedAt      time.Time
}

// Business represents a row in negocios.
type Business struct {
	ID                  string
	Nombre              string
	Descripcion         string
	Categoria           string
	Direccion           string
	Ciudad              string
	Barrio              string
	Latitud             *float64
	Longitud            *float64
	ReferenciaUbicacion string
	Telefono            string
	Whatsapp            string
	Email               string
	Facebook            string
	Instagram           string
	SitioWeb            string
	Logo                string
	ImagenPortada       string
	Activo              bool
	Verificado          bool
}

// Hours represents a per-weekday open/close window for a business.
// Clock values are plain "15:04:05" strings as stored in the TIME columns.
type Hours struct {
	ID           string
	NegocioID    string
	DiaSemana    string
	HoraApertura string
	HoraCierre   string
	Cerrado      bool
	Notas        string
}

// Product represents a row in productos_negocio. NegocioNombre is only
// populated by cross-business searches that join negocios.
type Product struct {
	ID            string
	NegocioID     string
	Nombre        string
	Descripcion   string
	Precio        *float64
	PrecioDesde   *float64
	PrecioHasta   *float64
	Categoria     string
	Disponible    bool
	Stock         *int32
	Imagen        string
	Destacado     bool
	Orden         int32
	Activo        bool
	NegocioNombre string
}

// Category represents a row in the normalized categorias_negocio catalog.
type Category struct {
	ID          string
	Nombre      string
	Descripcion string
	Icono       string
	Orden       int32
	Activo      bool
}

// Review represents a row in resenas_negocio. Reviews require moderation
// (aprobado) before counting toward averages or listings.
type Review struct {
	ID              string
	NegocioID       string
	TelefonoCliente string
	NombreCliente   string
	Calificacion    int32
	Comentario      string
	Fecha           time.Time
	Aprobado        bool
}

// Event represents a row in eventos_deportivos.
type Event struct {
	ID              string
	Nombre          string
	Descripcion     string
	TipoEvento      string
	EquipoLocal     string
	EquipoVisitante string
	Lugar           string
	FechaEvento     time.Time
	Activo          bool
}

// BusinessSearch carries filters for SearchBusinesses.
type BusinessSearch struct {
	Query      string
	Categoria  string
	Ciudad     string
	ActiveOnly bool
	Limit      int
}
