// Package http implements the HTTP transport for kartavyabot.
//
// This transport exposes a small REST API that answers messages exactly like
// the WhatsApp transport does. It is best suited for web widgets, testing the
// bot without a phone, and services that prefer HTTP.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/kartavyaai/kartavyabot/docs"
	"github.com/kartavyaai/kartavyabot/internal/message"
	"github.com/kartavyaai/kartavyabot/internal/transport"
)

const maxBodyBytes = 25 << 20

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port   int
	server *http.Server
}

// New creates a new HTTP transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           Routes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Routes builds the transport's request multiplexer.
func Routes(handler transport.Handler) http.Handler {
	mux := http.NewServeMux()

	// POST /messages: accepts a JSON message or raw audio, returns the reply.
	mux.HandleFunc("POST /messages", func(w http.ResponseWriter, r *http.Request) {
		handleMessage(w, r, handler)
	})

	// Swagger UI: serves the registered OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	return mux
}

// messageRequest is the JSON body of POST /messages.
type messageRequest struct {
	ID       string            `json:"id,omitempty"`
	Sender   string            `json:"sender"`
	PushName string            `json:"push_name,omitempty"`
	Body     string            `json:"body"`
	Type     message.MediaType `json:"type,omitempty"`
	Media    *message.Media    `json:"media,omitempty"`
}

func (req *messageRequest) event() *message.Event {
	ev := &message.Event{
		ID:        req.ID,
		Sender:    req.Sender,
		PushName:  req.PushName,
		Body:      req.Body,
		Type:      req.Type,
		Timestamp: time.Now(),
	}
	if ev.ID == "" {
		ev.ID = message.NewID()
	}
	if req.Media != nil && len(req.Media.Data) > 0 {
		ev.HasMedia = true
		ev.Download = message.StaticMedia(req.Media.Data, req.Media.MimeType)
		if ev.Type == "" || ev.Type == message.MediaTypeChat {
			ev.Type = mediaTypeFor(req.Media.MimeType)
		}
	}
	if ev.Type == "" {
		ev.Type = message.MediaTypeChat
	}
	return ev
}

// handleMessage processes a POST /messages request.
//
// @Summary     Answer a message
// @Description Accepts a JSON message (text, or base64 media with its MIME type) or raw audio bytes.
// @Description The message is answered exactly like a WhatsApp message: menu, assistant or relay mode.
// @Tags        messages
// @Accept      json
// @Accept      audio/ogg
// @Accept      audio/mpeg
// @Produce     json
// @Param       message               body    messageRequest  true   "Message (JSON). For raw audio, POST the bytes directly with the appropriate Content-Type."
// @Param       X-Kartavyabot-Sender  header  string          false  "Sender identifier (used with raw audio uploads)"
// @Success     200  {object}  message.Reply  "Reply for the sender"
// @Success     204  "Sender is not allowed; no reply"
// @Failure     400  {string}  string  "Invalid request body or headers"
// @Failure     500  {string}  string  "Internal processing error"
// @Router      /messages [post]
func handleMessage(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	var ev *message.Event

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		var req messageRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Sender) == "" {
			http.Error(w, "sender is required", http.StatusBadRequest)
			return
		}
		ev = req.event()
	default:
		// Treat body as a raw voice note; the sender comes from a header.
		sender := r.Header.Get("X-Kartavyabot-Sender")
		if sender == "" {
			http.Error(w, "X-Kartavyabot-Sender header is required for raw uploads", http.StatusBadRequest)
			return
		}
		audio, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "reading audio: "+err.Error(), http.StatusBadRequest)
			return
		}
		ev = &message.Event{
			ID:        message.NewID(),
			Sender:    sender,
			Type:      message.MediaTypePTT,
			HasMedia:  len(audio) > 0,
			Timestamp: time.Now(),
		}
		if ev.HasMedia {
			ev.Download = message.StaticMedia(audio, contentType)
		}
	}

	reply, err := handler(r.Context(), ev)
	if err != nil {
		slog.Error("handling message failed", "message_id", ev.ID, "error", err)
		http.Error(w, "handler error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if reply == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reply)
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

func mediaTypeFor(mimeType string) message.MediaType {
	switch {
	case strings.HasPrefix(mimeType, "audio/"):
		return message.MediaTypeAudio
	case strings.HasPrefix(mimeType, "image/webp"):
		return message.MediaTypeSticker
	case strings.HasPrefix(mimeType, "image/"):
		return message.MediaTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return message.MediaTypeVideo
	default:
		return message.MediaTypeDocument
	}
}
