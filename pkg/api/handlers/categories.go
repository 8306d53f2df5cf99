package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/stickerd/pkg/catalog"
	"github.com/marmos91/stickerd/pkg/catalog/models"
)

// CategoryHandler handles category and tag listing and mutation.
type CategoryHandler struct {
	catalog *catalog.Catalog
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(c *catalog.Catalog) *CategoryHandler {
	return &CategoryHandler{catalog: c}
}

// CategoryInfo is the JSON projection of a category row.
type CategoryInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	EmojiCount  int64     `json:"emojiCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

func categoryInfo(c *models.Category) CategoryInfo {
	return CategoryInfo{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		EmojiCount:  c.EmojiCount,
		CreatedAt:   c.CreatedAt,
	}
}

// List handles GET /categories.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		catalogError(w, err)
		return
	}

	infos := make([]CategoryInfo, 0, len(categories))
	for _, c := range categories {
		infos = append(infos, categoryInfo(c))
	}
	OK(w, Envelope{"categories": infos, "count": len(infos)})
}

// CreateCategoryRequest is the request body for POST /categories.
type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Create handles POST /categories.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		BadRequest(w, "Name is required")
		return
	}

	category, err := h.catalog.AddCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		catalogError(w, err)
		return
	}
	OK(w, Envelope{"category": categoryInfo(category)})
}

// Delete handles DELETE /categories/{id}.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		catalogError(w, err)
		return
	}
	OK(w, nil)
}

// Tags handles GET /tags.
func (h *CategoryHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.catalog.ListTags(r.Context())
	if err != nil {
		catalogError(w, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	OK(w, Envelope{"tags": tags, "count": len(tags)})
}
