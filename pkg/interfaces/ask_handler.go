package interfaces

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// AskRunner is the one-shot classify+answer pipeline.
type AskRunner interface {
	Ask(ctx context.Context, message string, limit int) (*AskResult, error)
}

// TokenStreamer is the language-model bridge in streaming mode.
type TokenStreamer interface {
	CompleteStream(ctx context.Context, userText string, onDelta func(string)) (string, error)
}

// AskHandler serves the one-shot /ai/ask endpoint and the streaming
// /ai/chat variant with its synchronous-fallback contract.
type AskHandler struct {
	service       AskRunner
	llm           TokenStreamer
	allowedOrigin string
}

// NewAskHandler creates the ask endpoints. llm may be nil, in which case
// /ai/chat always answers via the one-shot path.
func NewAskHandler(service AskRunner, llm TokenStreamer, allowedOrigin string) *AskHandler {
	return &AskHandler{
		service:       service,
		llm:           llm,
		allowedOrigin: allowedOrigin,
	}
}

func (h *AskHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ai/ask", h.HandleAsk).Methods("POST", "OPTIONS")
	router.HandleFunc("/ai/chat", h.HandleChat).Methods("GET", "POST", "OPTIONS")
}

type askRequest struct {
	Message string `json:"message"`
	Limit   int    `json:"limit"`
}

func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	h.setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondWithError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := h.service.Ask(ctx, req.Message, req.Limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// HandleChat streams hello -> hits -> text deltas -> done over an event
// stream. Failures before the first frame fall back transparently to the
// one-shot JSON answer; once frames have been written the handler commits
// to the stream and errors become in-band error frames. Never both, never
// neither.
func (h *AskHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	h.setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	message, limit := chatParams(r)
	if strings.TrimSpace(message) == "" {
		respondWithError(w, http.StatusBadRequest, "message is required")
		return
	}

	// The hits phase runs before any frame is written so its failures can
	// still produce a plain JSON response.
	result, err := h.service.Ask(r.Context(), message, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if h.llm == nil || !ok {
		respondWithJSON(w, http.StatusOK, result)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	requestID := uuid.New().String()
	writeFrame(w, flusher, "hello", map[string]string{"id": requestID})
	writeFrame(w, flusher, "hits", map[string]interface{}{"hits": result.Hits})

	full, err := h.llm.CompleteStream(r.Context(), message, func(delta string) {
		writeFrame(w, flusher, "text", map[string]string{"delta": delta})
	})
	if err != nil {
		log.Printf("Warning: chat stream %s failed: %v", requestID, err)
		writeFrame(w, flusher, "error", map[string]string{"error": err.Error()})
		return
	}

	writeFrame(w, flusher, "done", map[string]string{"text": full})
}

func chatParams(r *http.Request) (string, int) {
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("message"), 0
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", 0
	}
	return req.Message, req.Limit
}

func writeFrame(w http.ResponseWriter, flusher http.Flusher, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}

func (h *AskHandler) setCORS(w http.ResponseWriter) {
	if h.allowedOrigin == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", h.allowedOrigin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
