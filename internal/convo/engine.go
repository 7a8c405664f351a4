package convo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"parchaoo-bot/internal/logging"
	"parchaoo-bot/internal/metrics"
	"parchaoo-bot/internal/repo"
)

const (
	mediaNotSupportedReply = "He recibido tu mensaje multimedia. Por ahora solo respondo textos."
	historyDepth           = 5
)

// InboundMessage is one normalized message lifted out of a webhook delivery.
type InboundMessage struct {
	MessageID   string
	From        string
	ProfileName string
	Type        string
	Content     string
	MediaID     *string
	Timestamp   time.Time
}

// LLM produces the reply text for one user turn. Implementations never
// return an error: failures map to fixed apology strings.
type LLM interface {
	GenerateReply(ctx context.Context, userMessage, contextBlock, history, intent string) string
}

// Sender is the outbound messaging surface the engine needs.
type Sender interface {
	SendText(ctx context.Context, to, body string) (string, error)
	MarkAsRead(ctx context.Context, messageID string) error
}

// Store is the persistence slice the engine needs.
type Store interface {
	UpsertConversationByPhone(ctx context.Context, phoneNumber, name string) (*repo.Conversation, error)
	InsertMessage(ctx context.Context, msg repo.MessageRecord) error
	ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]repo.MessageRecord, error)
	UpsertBotContext(ctx context.Context, conversationID, lastIntent string) error
}

// Engine runs the full per-message pipeline: persist, classify, assemble
// context, generate, reply, persist the reply.
type Engine struct {
	resolver *Resolver
	llm      LLM
	sender   Sender
	store    Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewEngine(resolver *Resolver, gateway LLM, sender Sender, store Store, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		resolver: resolver,
		llm:      gateway,
		sender:   sender,
		store:    store,
		logger:   logger.With("component", "engine"),
		metrics:  m,
	}
}

// log returns the engine logger annotated with the request correlation id
// when the context carries one.
func (e *Engine) log(ctx context.Context) *slog.Logger {
	if id := logging.RequestID(ctx); id != "" {
		return e.logger.With("request_id", id)
	}
	return e.logger
}

// ProcessInbound handles one inbound message synchronously. Persistence
// errors propagate to the caller; reply generation and delivery failures are
// logged and swallowed so the webhook still acknowledges the delivery.
func (e *Engine) ProcessInbound(ctx context.Context, msg InboundMessage) error {
	e.metrics.WAIncomingMessages.WithLabelValues(msg.Type).Inc()

	conv, err := e.store.UpsertConversationByPhone(ctx, msg.From, msg.ProfileName)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	if err := e.store.InsertMessage(ctx, repo.MessageRecord{
		ConversationID: conv.ID,
		MessageID:      msg.MessageID,
		Direction:      "incoming",
		Type:           msg.Type,
		Content:        msg.Content,
		Status:         "received",
	}); err != nil {
		return fmt.Errorf("persist inbound message: %w", err)
	}

	if err := e.sender.MarkAsRead(ctx, msg.MessageID); err != nil {
		e.log(ctx).Warn("mark as read failed", "message_id", msg.MessageID, "error", err)
	}

	if msg.Type != "text" {
		e.sendReply(ctx, conv.ID, msg.From, mediaNotSupportedReply)
		return nil
	}

	intent := DetectIntent(msg.Content)

	var reply string
	if intent == "resena" && wantsReviewIntake(msg.Content) {
		reply = e.resolver.HandleReview(ctx, msg.Content, msg.From, profileName(msg))
	} else {
		contextBlock := e.resolver.BuildContext(ctx, intent, msg.Content)
		history := e.buildHistory(ctx, conv.ID)
		reply = e.llm.GenerateReply(ctx, msg.Content, contextBlock, history, intent)
	}

	e.sendReply(ctx, conv.ID, msg.From, reply)

	if err := e.store.UpsertBotContext(ctx, conv.ID, intent); err != nil {
		e.log(ctx).Warn("failed saving bot context", "conversation_id", conv.ID, "error", err)
	}
	return nil
}

func profileName(msg InboundMessage) string {
	if msg.ProfileName != "" {
		return msg.ProfileName
	}
	return msg.From
}

// buildHistory renders the last few turns as "Usuario:/Bot:" lines, oldest
// first.
func (e *Engine) buildHistory(ctx context.Context, conversationID string) string {
	msgs, err := e.store.ListRecentMessages(ctx, conversationID, historyDepth)
	if err != nil {
		e.log(ctx).Warn("failed loading history", "conversation_id", conversationID, "error", err)
		return ""
	}

	var b strings.Builder
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		speaker := "Usuario"
		if m.Direction == "outgoing" {
			speaker = "Bot"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, m.Content)
	}
	return b.String()
}

// sendReply delivers the text and records the outbound message with the
// provider-assigned id, flagging delivery failures on the row.
func (e *Engine) sendReply(ctx context.Context, conversationID, to, body string) {
	providerID, err := e.sender.SendText(ctx, to, body)
	record := repo.MessageRecord{
		ConversationID: conversationID,
		MessageID:      providerID,
		Direction:      "outgoing",
		Type:           "text",
		Content:        body,
		Status:         "sent",
	}
	if err != nil {
		e.log(ctx).Error("send text failed", "to", to, "error", err)
		e.metrics.Errors.WithLabelValues("wa_send").Inc()
		errMsg := err.Error()
		record.Status = "failed"
		record.ErrorMessage = &errMsg
	} else {
		e.metrics.WAOutgoingMessages.WithLabelValues("text").Inc()
	}
	if record.MessageID == "" {
		record.MessageID = "out-" + uuid.NewString()
	}
	if err := e.store.InsertMessage(ctx, record); err != nil {
		e.log(ctx).Error("persist outbound message failed", "conversation_id", conversationID, "error", err)
	}
}
