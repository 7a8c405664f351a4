package convo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"parchaoo-bot/internal/metrics"
	"parchaoo-bot/internal/repo"
)

type stubLLM struct {
	reply      string
	lastPrompt string
	lastIntent string
}

func (s *stubLLM) GenerateReply(_ context.Context, userMessage, contextBlock, history, intent string) string {
	s.lastPrompt = userMessage + "\n" + contextBlock + "\n" + history
	s.lastIntent = intent
	return s.reply
}

type stubSender struct {
	sent     []string
	sendErr  error
	markRead []string
}

func (s *stubSender) SendText(_ context.Context, _, body string) (string, error) {
	if s.sendErr != nil {
		return "", s.sendErr
	}
	s.sent = append(s.sent, body)
	return "wamid.out", nil
}

func (s *stubSender) MarkAsRead(_ context.Context, messageID string) error {
	s.markRead = append(s.markRead, messageID)
	return nil
}

type stubStore struct {
	messages   []repo.MessageRecord
	history    []repo.MessageRecord
	insertErr  error
	lastIntent string
}

func (s *stubStore) UpsertConversationByPhone(_ context.Context, phone, name string) (*repo.Conversation, error) {
	return &repo.Conversation{ID: "conv-1", PhoneNumber: phone, Name: &name}, nil
}

func (s *stubStore) InsertMessage(_ context.Context, msg repo.MessageRecord) error {
	if s.insertErr != nil && msg.Direction == "incoming" {
		return s.insertErr
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *stubStore) ListRecentMessages(context.Context, string, int) ([]repo.MessageRecord, error) {
	return s.history, nil
}

func (s *stubStore) UpsertBotContext(_ context.Context, _, lastIntent string) error {
	s.lastIntent = lastIntent
	return nil
}

func newTestEngine(dir *fakeDirectory, gateway *stubLLM, sender *stubSender, store *stubStore) *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := NewResolver(dir, logger)
	return NewEngine(resolver, gateway, sender, store, metrics.Registry("test"), logger)
}

func TestProcessInboundTextEndToEnd(t *testing.T) {
	gateway := &stubLLM{reply: "¡Claro manit@, mira estas opciones!"}
	sender := &stubSender{}
	store := &stubStore{
		history: []repo.MessageRecord{
			{Direction: "outgoing", Content: "¡Hola!"},
			{Direction: "incoming", Content: "hola"},
		},
	}
	engine := newTestEngine(&fakeDirectory{}, gateway, sender, store)

	err := engine.ProcessInbound(context.Background(), InboundMessage{
		MessageID: "wamid.abc",
		From:      "573001112233",
		Type:      "text",
		Content:   "¿Hay alguna farmacia abierta?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gateway.lastIntent != "buscar_negocio" {
		t.Errorf("expected buscar_negocio intent, got %s", gateway.lastIntent)
	}
	// History renders oldest first.
	if !strings.Contains(gateway.lastPrompt, "Usuario: hola\nBot: ¡Hola!") {
		t.Errorf("unexpected history in prompt:\n%s", gateway.lastPrompt)
	}
	if len(sender.sent) != 1 || sender.sent[0] != gateway.reply {
		t.Errorf("expected reply to be sent, got %v", sender.sent)
	}
	if len(sender.markRead) != 1 {
		t.Error("expected inbound message to be marked as read")
	}
	if store.lastIntent != "buscar_negocio" {
		t.Errorf("expected bot context update, got %q", store.lastIntent)
	}

	// Two rows: the inbound and the outbound with the provider id.
	if len(store.messages) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(store.messages))
	}
	if store.messages[1].MessageID != "wamid.out" || store.messages[1].Direction != "outgoing" {
		t.Errorf("unexpected outbound record: %+v", store.messages[1])
	}
}

func TestProcessInboundMediaGetsFixedReply(t *testing.T) {
	gateway := &stubLLM{reply: "no debería llamarse"}
	sender := &stubSender{}
	store := &stubStore{}
	engine := newTestEngine(&fakeDirectory{}, gateway, sender, store)

	err := engine.ProcessInbound(context.Background(), InboundMessage{
		MessageID: "wamid.img",
		From:      "573001112233",
		Type:      "image",
		Content:   "[Imagen recibida]",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0] != mediaNotSupportedReply {
		t.Fatalf("expected media reply, got %v", sender.sent)
	}
	if gateway.lastIntent != "" {
		t.Error("resolver must not run for media messages")
	}
}

func TestProcessInboundPersistFailurePropagates(t *testing.T) {
	store := &stubStore{insertErr: errors.New("duplicate key value")}
	engine := newTestEngine(&fakeDirectory{}, &stubLLM{}, &stubSender{}, store)

	err := engine.ProcessInbound(context.Background(), InboundMessage{
		MessageID: "wamid.dup",
		From:      "573001112233",
		Type:      "text",
		Content:   "hola",
	})
	if err == nil {
		t.Fatal("expected persistence error to propagate")
	}
}

func TestProcessInboundReviewTalkGoesToLLM(t *testing.T) {
	// "experiencia" classifies as resena, but without an intake word the
	// message gets the instructional context block and an LLM reply.
	gateway := &stubLLM{reply: "Cuéntame, ¿qué pasó?"}
	sender := &stubSender{}
	engine := newTestEngine(&fakeDirectory{}, gateway, sender, &stubStore{})

	err := engine.ProcessInbound(context.Background(), InboundMessage{
		MessageID: "wamid.exp",
		From:      "573001112233",
		Type:      "text",
		Content:   "Mi experiencia fue muy mala",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gateway.lastIntent != "resena" {
		t.Errorf("expected resena intent at the LLM, got %q", gateway.lastIntent)
	}
	if !strings.Contains(gateway.lastPrompt, "CÓMO DEJAR UNA RESEÑA") {
		t.Errorf("expected review instructions in context:\n%s", gateway.lastPrompt)
	}
	if len(sender.sent) != 1 || sender.sent[0] != gateway.reply {
		t.Fatalf("expected LLM reply to be sent, got %v", sender.sent)
	}
}

func TestProcessInboundReviewIntentSkipsLLM(t *testing.T) {
	dir := &fakeDirectory{
		businesses: map[string][]repo.Business{
			"boga": {{ID: "biz-1", Nombre: "BOGA"}},
		},
	}
	gateway := &stubLLM{}
	sender := &stubSender{}
	engine := newTestEngine(dir, gateway, sender, &stubStore{})

	err := engine.ProcessInbound(context.Background(), InboundMessage{
		MessageID: "wamid.rev",
		From:      "573001112233",
		Type:      "text",
		Content:   "Quiero calificar a BOGA con 5 estrellas, buena comida",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gateway.lastIntent != "" {
		t.Error("review intent must bypass the LLM")
	}
	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0], "5 estrellas") {
		t.Fatalf("expected review confirmation, got %v", sender.sent)
	}
	if len(dir.reviews) != 1 {
		t.Fatalf("expected stored review, got %d", len(dir.reviews))
	}
}
