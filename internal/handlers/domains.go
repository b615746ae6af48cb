package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"kollektor/internal/models"
	"kollektor/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// DomainsHandler manages the domain blacklist consulted by the
// collectors.
type DomainsHandler struct {
	domains *store.Domains
}

func NewDomainsHandler(domains *store.Domains) *DomainsHandler {
	return &DomainsHandler{domains: domains}
}

func (h *DomainsHandler) ListDomains(w http.ResponseWriter, r *http.Request) {
	list, err := h.domains.List(r.Context())
	if err != nil {
		log.Printf("Failed to list domains: %v", err)
		http.Error(w, "Failed to list domains", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.Domain{}
	}
	writeJSON(w, http.StatusOK, list)
}

type AddDomainRequest struct {
	Domain   string `json:"domain"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

func (h *DomainsHandler) AddDomain(w http.ResponseWriter, r *http.Request) {
	var req AddDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	domain := strings.ToLower(strings.TrimSpace(req.Domain))
	if domain == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "domain is required"})
		return
	}

	created, err := h.domains.Create(r.Context(), domain, req.Category, req.Reason, "api")
	if err != nil {
		log.Printf("Failed to add domain: %v", err)
		http.Error(w, "Failed to add domain", http.StatusInternalServerError)
		return
	}
	if created == nil {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("domain %q already exists", domain),
		})
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *DomainsHandler) DeleteDomain(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid domain ID", http.StatusBadRequest)
		return
	}

	deleted, err := h.domains.Delete(r.Context(), id)
	if err != nil {
		log.Printf("Failed to delete domain: %v", err)
		http.Error(w, "Failed to delete domain", http.StatusInternalServerError)
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "domain not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "domain deleted"})
}
