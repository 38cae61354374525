package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/takumidev/pricewatch/internal/database"
	"github.com/takumidev/pricewatch/internal/models"
)

// Scraper resolves a URL to a normalized result. It never returns an
// error; failures surface inside the result.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string) models.ScrapeResult
}

// ItemStore is the persistence surface the handlers need.
type ItemStore interface {
	Insert(ctx context.Context, item *models.Item) error
	Get(ctx context.Context, id uuid.UUID) (*models.Item, error)
	List(ctx context.Context) ([]*models.Item, error)
	Delete(ctx context.Context, id uuid.UUID) error
	History(ctx context.Context, itemID uuid.UUID) ([]*models.PricePoint, error)
	ApplyScrape(ctx context.Context, item *models.Item, result models.ScrapeResult) error
}

type Handlers struct {
	scraper Scraper
	store   ItemStore
	logger  *slog.Logger
}

func NewHandlers(scraper Scraper, store ItemStore, logger *slog.Logger) *Handlers {
	return &Handlers{
		scraper: scraper,
		store:   store,
		logger:  logger.With("component", "api"),
	}
}

// CreateItemRequest adds a URL to the tracked list.
type CreateItemRequest struct {
	URL string `json:"url"`
}

// PreviewRequest asks for a one-off scrape without persistence.
type PreviewRequest struct {
	URL string `json:"url"`
}

// CreateItem scrapes the submitted URL and stores it as a tracked
// item. A failed scrape still creates the item; the result's note
// tells the user what went wrong.
func (h *Handlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	url := strings.TrimSpace(req.URL)
	if url == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	result := h.scraper.Scrape(r.Context(), url)

	item := models.NewItem(url, result)
	if err := h.store.Insert(r.Context(), item); err != nil {
		if errors.Is(err, database.ErrDuplicateURL) {
			h.respondError(w, http.StatusConflict, "url is already tracked")
			return
		}
		h.logger.Error("failed to insert item", "error", err, "url", url)
		h.respondError(w, http.StatusInternalServerError, "failed to save item")
		return
	}

	h.respondJSON(w, http.StatusCreated, item)
}

// ListItems returns every tracked item.
func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list items", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []*models.Item{}
	}

	h.respondJSON(w, http.StatusOK, items)
}

// GetItem returns a single tracked item.
func (h *Handlers) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	item, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			h.respondError(w, http.StatusNotFound, "item not found")
			return
		}
		h.logger.Error("failed to get item", "error", err, "item_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to get item")
		return
	}

	h.respondJSON(w, http.StatusOK, item)
}

// DeleteItem removes an item and its history.
func (h *Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			h.respondError(w, http.StatusNotFound, "item not found")
			return
		}
		h.logger.Error("failed to delete item", "error", err, "item_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetHistory returns an item's recorded price points, newest first.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	if _, err := h.store.Get(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			h.respondError(w, http.StatusNotFound, "item not found")
			return
		}
		h.logger.Error("failed to get item", "error", err, "item_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to get item")
		return
	}

	points, err := h.store.History(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get history", "error", err, "item_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to get history")
		return
	}
	if points == nil {
		points = []*models.PricePoint{}
	}

	h.respondJSON(w, http.StatusOK, points)
}

// RefreshItem re-scrapes one item immediately and folds the result
// into the stored row.
func (h *Handlers) RefreshItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	item, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			h.respondError(w, http.StatusNotFound, "item not found")
			return
		}
		h.logger.Error("failed to get item", "error", err, "item_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to get item")
		return
	}

	result := h.scraper.Scrape(r.Context(), item.URL)

	if err := h.store.ApplyScrape(r.Context(), item, result); err != nil {
		h.logger.Error("failed to apply scrape", "error", err, "item_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	h.respondJSON(w, http.StatusOK, item)
}

// Preview scrapes a URL without persisting anything. The UI uses it
// to show what tracking a URL would capture.
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	url := strings.TrimSpace(req.URL)
	if url == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	result := h.scraper.Scrape(r.Context(), url)
	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) itemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "itemID")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid item ID")
		return uuid.Nil, false
	}
	return id, true
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
