package interfaces

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/yair/whats-on/pkg/collectors"
)

// Invalidator busts the event cache.
type Invalidator interface {
	InvalidateAll()
}

// Broadcaster pushes a change notice to connected live clients.
type Broadcaster interface {
	Broadcast(source string, payload interface{})
}

// AskReader reads back recorded asks for the admin surface.
type AskReader interface {
	Recent(ctx context.Context, limit int) ([]collectors.AskRecord, error)
}

// WebhookHandler receives change notifications from the upstream content
// source, authenticates them with a shared secret, drops rapid duplicate
// deliveries, invalidates the cache and broadcasts to live clients.
type WebhookHandler struct {
	secret string
	ledger *collectors.DedupeLedger
	cache  Invalidator
	hub    Broadcaster
	askLog AskReader
}

// NewWebhookHandler creates the webhook and admin endpoints. askLog may be
// nil, in which case /admin/asks returns an empty list.
func NewWebhookHandler(secret string, ledger *collectors.DedupeLedger, cache Invalidator, hub Broadcaster, askLog AskReader) *WebhookHandler {
	return &WebhookHandler{
		secret: secret,
		ledger: ledger,
		cache:  cache,
		hub:    hub,
		askLog: askLog,
	}
}

func (h *WebhookHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/webhooks/wp", h.HandleWebhook).Methods("POST")
	router.HandleFunc("/admin/ping", h.HandlePing).Methods("GET")
	router.HandleFunc("/admin/asks", h.HandleAsks).Methods("GET")
}

func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	provided := r.Header.Get("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Payloads are untrusted hints; decode tolerantly and never reject on
	// shape. Numeric and string ids both occur.
	var payload struct {
		ID     interface{} `json:"id"`
		Action string      `json:"action"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		payload.ID = ""
	}
	if payload.Action == "" {
		payload.Action = "updated"
	}

	key := fmt.Sprintf("%v:%s", payload.ID, payload.Action)
	if h.ledger.Duplicate(key) {
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "dropped": true})
		return
	}

	h.cache.InvalidateAll()
	h.hub.Broadcast("webhook", map[string]interface{}{
		"id":     payload.ID,
		"action": payload.Action,
	})
	log.Printf("Webhook processed: %s", key)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "received": key})
}

// HandlePing is the manual cache bust: same effect as a webhook delivery,
// minus the secret and the de-dupe.
func (h *WebhookHandler) HandlePing(w http.ResponseWriter, r *http.Request) {
	h.cache.InvalidateAll()
	h.hub.Broadcast("admin-ping", nil)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "emitted": true})
}

func (h *WebhookHandler) HandleAsks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	if h.askLog == nil {
		respondWithJSON(w, http.StatusOK, []collectors.AskRecord{})
		return
	}

	records, err := h.askLog.Recent(ctx, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, records)
}
