package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"parchaoo-bot/internal/metrics"
)

const (
	notReadyReply = "Lo siento, manit@, el servicio no está listo."
	failureReply  = "¡Ey, manit@! Se me cruzaron los cables. ¿Me repites porfa?"

	temperature     = 0.4
	topP            = 0.95
	topK            = 40
	maxOutputTokens = 1500
)

// Config holds the Gemini connection settings.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gateway wraps a single blocking Gemini completion per user turn. It never
// returns errors: a missing key or a failed call maps to a fixed apology.
type Gateway struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	loc     *time.Location
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New builds the gateway. When the API key is absent the gateway is created
// in a degraded state instead of failing construction.
func New(ctx context.Context, cfg Config, loc *time.Location, m *metrics.Metrics, logger *slog.Logger) *Gateway {
	logger = logger.With("component", "llm")
	g := &Gateway{
		model:   cfg.Model,
		timeout: cfg.Timeout,
		loc:     loc,
		logger:  logger,
		metrics: m,
	}
	if g.model == "" {
		g.model = "gemini-2.0-flash"
	}
	if g.timeout <= 0 {
		g.timeout = 30 * time.Second
	}
	if g.loc == nil {
		g.loc = time.UTC
	}
	g.now = func() time.Time { return time.Now().In(g.loc) }

	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn("gemini api key not configured, replies will degrade to a fixed apology")
		return g
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		logger.Error("failed creating gemini client", "error", err)
		return g
	}
	g.client = client
	return g
}

// Close releases the underlying client.
func (g *Gateway) Close() {
	if g.client != nil {
		if err := g.client.Close(); err != nil {
			g.logger.Warn("failed closing gemini client", "error", err)
		}
	}
}

// Configured reports whether a usable client exists.
func (g *Gateway) Configured() bool {
	return g.client != nil
}

// GenerateReply performs one blocking completion. No retries, no streaming.
func (g *Gateway) GenerateReply(ctx context.Context, userMessage, contextBlock, history, intent string) string {
	if g.client == nil {
		return notReadyReply
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetTopK(topK)
	model.SetMaxOutputTokens(maxOutputTokens)

	prompt := g.buildPrompt(userMessage, contextBlock, history, intent)

	started := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	elapsed := time.Since(started).Seconds()
	if err != nil {
		g.metrics.GeminiRequests.WithLabelValues("error").Inc()
		g.metrics.GeminiLatency.WithLabelValues("error").Observe(elapsed)
		g.logger.Error("gemini completion failed", "model", g.model, "error", err)
		return failureReply
	}
	g.metrics.GeminiRequests.WithLabelValues("ok").Inc()
	g.metrics.GeminiLatency.WithLabelValues("ok").Observe(elapsed)

	text := extractText(resp)
	if text == "" {
		g.logger.Error("gemini returned no usable candidates", "model", g.model)
		return failureReply
	}
	return text
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}

// buildPrompt interpolates the persona preamble, the assembled directory
// context, the current local time, the prior turns and the raw message.
func (g *Gateway) buildPrompt(userMessage, contextBlock, history, intent string) string {
	var b strings.Builder

	b.WriteString("Eres Luisa, la asistente virtual de Parchaoo, el directorio comercial de Quibdó, Chocó.\n")
	b.WriteString("Hablas con la calidez y el acento del Pacífico colombiano, usando expresiones como \"manit@\" y \"ve coco\" con moderación.\n")
	b.WriteString("Tu trabajo es ayudar a la gente a encontrar negocios, productos, horarios y eventos de la ciudad.\n\n")

	if contextBlock != "" {
		b.WriteString("INFORMACIÓN IMPORTANTE:\n")
		b.WriteString(contextBlock)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "HORA ACTUAL: %s\n\n", g.now().Format("Monday 02/01/2006 03:04 PM"))

	if history != "" {
		b.WriteString("CONVERSACIÓN PREVIA:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "INTENCIÓN DETECTADA: %s\n\n", intent)

	b.WriteString("REGLAS:\n")
	b.WriteString("1. Responde solo con información del bloque INFORMACIÓN IMPORTANTE; si no hay datos, dilo con honestidad.\n")
	b.WriteString("2. Nunca inventes negocios, precios ni horarios.\n")
	b.WriteString("3. Respuestas cortas, amables y listas para WhatsApp (máximo unos pocos párrafos).\n")
	b.WriteString("4. Usa emojis con moderación.\n")
	b.WriteString("5. Responde siempre en español.\n\n")

	fmt.Fprintf(&b, "MENSAJE DEL USUARIO: %s\n", userMessage)
	return b.String()
}
