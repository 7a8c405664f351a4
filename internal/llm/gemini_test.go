package llm

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"parchaoo-bot/internal/metrics"
)

func newDegradedGateway(t *testing.T) *Gateway {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(context.Background(), Config{}, time.UTC, metrics.Registry("test"), logger)
}

func TestGenerateReplyWithoutCredentials(t *testing.T) {
	g := newDegradedGateway(t)
	if g.Configured() {
		t.Fatal("gateway must be degraded without an api key")
	}
	reply := g.GenerateReply(context.Background(), "hola", "", "", "general")
	if reply != notReadyReply {
		t.Fatalf("expected not-ready apology, got %q", reply)
	}
}

func TestBuildPromptSections(t *testing.T) {
	g := newDegradedGateway(t)
	g.now = func() time.Time {
		return time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	}

	prompt := g.buildPrompt(
		"¿Hay alguna farmacia abierta?",
		"NEGOCIOS ENCONTRADOS:\n- Farmacia La 20",
		"Usuario: hola\nBot: ¡Hola!\n",
		"buscar_negocio",
	)

	for _, want := range []string{
		"Eres Luisa",
		"INFORMACIÓN IMPORTANTE:",
		"Farmacia La 20",
		"HORA ACTUAL: Monday 02/03/2026 02:30 PM",
		"CONVERSACIÓN PREVIA:",
		"INTENCIÓN DETECTADA: buscar_negocio",
		"REGLAS:",
		"MENSAJE DEL USUARIO: ¿Hay alguna farmacia abierta?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptOmitsEmptySections(t *testing.T) {
	g := newDegradedGateway(t)

	prompt := g.buildPrompt("hola", "", "", "general")
	// The section headers must be absent; rule 1 still names the block.
	if strings.Contains(prompt, "INFORMACIÓN IMPORTANTE:\n") {
		t.Error("empty context must be omitted")
	}
	if strings.Contains(prompt, "CONVERSACIÓN PREVIA:\n") {
		t.Error("empty history must be omitted")
	}
}
