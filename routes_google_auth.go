package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"roomsync/security"
)

// googleAuthHandler exposes the OAuth flow for the calendar account.
type googleAuthHandler struct {
	tokens  *security.TokenStore
	account string
}

func newGoogleAuthHandler(tokens *security.TokenStore, account string) *googleAuthHandler {
	return &googleAuthHandler{tokens: tokens, account: account}
}

func (h *googleAuthHandler) registerRoutes(r *mux.Router) {
	r.HandleFunc("/auth/google", h.startAuth).Methods("POST")
	r.HandleFunc("/auth/google/callback", h.handleCallback).Methods("GET")
	r.HandleFunc("/auth/status", h.getStatus).Methods("GET")
	r.HandleFunc("/auth/revoke", h.revoke).Methods("DELETE")
}

func (h *googleAuthHandler) resolveAccount(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return h.account
	}
	return raw
}

func (h *googleAuthHandler) startAuth(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	if !h.tokens.Configured() {
		http.Error(w, "calendar OAuth not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Account string `json:"account"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	account := h.resolveAccount(req.Account)

	authURL, state, err := h.tokens.AuthURL(r.Context(), account)
	if err != nil {
		log.Printf("auth: generate URL: %v", err)
		http.Error(w, "failed to generate authentication URL", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"auth_url": authURL,
		"state":    state,
		"account":  account,
	})
}

func (h *googleAuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		log.Printf("auth: OAuth error: %s", errParam)
		http.Error(w, fmt.Sprintf("OAuth failed: %s", errParam), http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		http.Error(w, "code and state parameters are required", http.StatusBadRequest)
		return
	}

	account, err := h.tokens.Exchange(ctx, code, state)
	if err != nil {
		log.Printf("auth: exchange failed: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Printf("auth: authenticated calendar account %s", account)

	if err := h.tokens.ValidateCalendarAccess(ctx, account); err != nil {
		log.Printf("auth: calendar access validation failed: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": "calendar authentication complete",
		"account": account,
	})
}

func (h *googleAuthHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	account := h.resolveAccount(r.URL.Query().Get("account"))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"account": account,
		"status":  h.tokens.Status(r.Context(), account),
	})
}

func (h *googleAuthHandler) revoke(w http.ResponseWriter, r *http.Request) {
	account := h.resolveAccount(r.URL.Query().Get("account"))

	err := h.tokens.DeleteToken(r.Context(), account)
	resp := map[string]any{
		"success": err == nil,
		"account": account,
	}
	if err != nil {
		resp["error"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
