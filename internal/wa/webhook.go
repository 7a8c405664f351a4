package wa

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"parchaoo-bot/internal/convo"
	"parchaoo-bot/internal/logging"
	"parchaoo-bot/internal/metrics"
)

// MessageProcessor consumes the normalized inbound messages lifted out of a
// webhook delivery.
type MessageProcessor interface {
	ProcessInbound(ctx context.Context, msg convo.InboundMessage) error
}

// WebhookHandler terminates the Meta webhook: GET for subscription
// verification, POST for message delivery.
type WebhookHandler struct {
	processor   MessageProcessor
	verifyToken string
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func NewWebhookHandler(processor MessageProcessor, verifyToken string, m *metrics.Metrics, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor:   processor,
		verifyToken: verifyToken,
		logger:      logger.With("component", "webhook"),
		metrics:     m,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleVerify(w, r)
	case http.MethodPost:
		h.handleDelivery(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *WebhookHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "" || token == "" || challenge == "" {
		http.Error(w, "missing verification parameter", http.StatusBadRequest)
		return
	}
	if mode != "subscribe" {
		http.Error(w, "unsupported hub.mode", http.StatusBadRequest)
		return
	}
	if token != h.verifyToken {
		h.logger.Warn("webhook verification token mismatch")
		http.Error(w, "verification token mismatch", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, challenge)
}

// webhookEnvelope mirrors the Cloud API message-delivery payload.
type webhookEnvelope struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string       `json:"field"`
			Value webhookValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookValue struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		WaID    string `json:"wa_id"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	} `json:"contacts"`
	Messages []webhookMessage `json:"messages"`
}

type webhookMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image    *webhookMedia `json:"image"`
	Audio    *webhookMedia `json:"audio"`
	Video    *webhookMedia `json:"video"`
	Sticker  *webhookMedia `json:"sticker"`
	Document *struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
	} `json:"document"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

type webhookMedia struct {
	ID string `json:"id"`
}

func (h *WebhookHandler) handleDelivery(w http.ResponseWriter, r *http.Request) {
	ctx, logger := logging.WithRequestID(r.Context(), h.logger)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("webhook handler panicked", "panic", rec)
			h.metrics.Errors.WithLabelValues("webhook").Inc()
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"status": "error", "message": "internal error",
			})
		}
	}()

	var envelope webhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		logger.Warn("malformed webhook payload", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status": "error", "message": "Invalid JSON",
		})
		return
	}

	if envelope.Object != "whatsapp_business_account" {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ignored", "reason": "unsupported object " + envelope.Object,
		})
		return
	}

	var failed bool
	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			name := ""
			if len(change.Value.Contacts) > 0 {
				name = change.Value.Contacts[0].Profile.Name
			}
			for _, msg := range change.Value.Messages {
				if err := h.processOne(ctx, logger, msg, name); err != nil {
					logger.Error("message processing failed",
						"message_id", msg.ID, "from", msg.From, "error", err)
					h.metrics.Errors.WithLabelValues("webhook").Inc()
					failed = true
				}
			}
		}
	}

	if failed {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error", "message": "internal error",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// processOne converts one raw message record and hands it to the processor.
// A panic here is contained so one bad record never aborts the batch.
func (h *WebhookHandler) processOne(ctx context.Context, logger *slog.Logger, msg webhookMessage, profileName string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("message processing panicked", "message_id", msg.ID, "panic", rec)
		}
	}()

	content, mediaID := parseContent(msg)
	return h.processor.ProcessInbound(ctx, convo.InboundMessage{
		MessageID:   msg.ID,
		From:        msg.From,
		ProfileName: profileName,
		Type:        msg.Type,
		Content:     content,
		MediaID:     mediaID,
		Timestamp:   parseTimestamp(msg.Timestamp),
	})
}

// parseContent extracts a content string per message type, with bracketed
// placeholders for media.
func parseContent(msg webhookMessage) (string, *string) {
	switch msg.Type {
	case "text":
		if msg.Text != nil {
			return msg.Text.Body, nil
		}
		return "", nil
	case "image":
		return "[Imagen recibida]", mediaIDOf(msg.Image)
	case "audio":
		return "[Audio recibido]", mediaIDOf(msg.Audio)
	case "video":
		return "[Video recibido]", mediaIDOf(msg.Video)
	case "sticker":
		return "[Sticker recibido]", mediaIDOf(msg.Sticker)
	case "document":
		filename := "sin nombre"
		var id *string
		if msg.Document != nil {
			if msg.Document.Filename != "" {
				filename = msg.Document.Filename
			}
			if msg.Document.ID != "" {
				docID := msg.Document.ID
				id = &docID
			}
		}
		return fmt.Sprintf("[Documento: %s]", filename), id
	case "location":
		if msg.Location != nil {
			return fmt.Sprintf("[Ubicación: %f, %f]", msg.Location.Latitude, msg.Location.Longitude), nil
		}
		return "[Ubicación]", nil
	default:
		return fmt.Sprintf("[%s recibido]", msg.Type), nil
	}
}

func mediaIDOf(m *webhookMedia) *string {
	if m == nil || m.ID == "" {
		return nil
	}
	id := m.ID
	return &id
}

func parseTimestamp(raw string) time.Time {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.Unix(secs, 0)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
