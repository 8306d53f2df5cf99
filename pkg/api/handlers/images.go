package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/stickerd/pkg/catalog"
	"github.com/marmos91/stickerd/pkg/catalog/models"
)

// ImageHandler handles image listing, serving, upload and mutation.
type ImageHandler struct {
	catalog       *catalog.Catalog
	baseURL       string
	maxUploadSize int64
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(c *catalog.Catalog, baseURL string, maxUploadSize int64) *ImageHandler {
	return &ImageHandler{
		catalog:       c,
		baseURL:       strings.TrimRight(baseURL, "/"),
		maxUploadSize: maxUploadSize,
	}
}

// ImageInfo is the JSON projection of an image row.
type ImageInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	MimeType  string    `json:"mimeType"`
	Size      int64     `json:"size"`
	Hash      string    `json:"hash"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *ImageHandler) info(img *models.Image) ImageInfo {
	tags := img.Tags
	if tags == nil {
		tags = []string{}
	}
	return ImageInfo{
		ID:        img.ID,
		Name:      img.Name,
		Category:  img.Category,
		Tags:      tags,
		MimeType:  img.MimeType,
		Size:      img.Size,
		Hash:      img.ImageHash,
		URL:       h.baseURL + "/get/" + img.ID,
		CreatedAt: img.CreatedAt,
	}
}

func (h *ImageHandler) infos(images []*models.Image) []ImageInfo {
	out := make([]ImageInfo, 0, len(images))
	for _, img := range images {
		out = append(out, h.info(img))
	}
	return out
}

// List handles GET /list.
// Optional query params: category, tag (repeatable).
func (h *ImageHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := catalog.Filter{
		Category: r.URL.Query().Get("category"),
		Tags:     r.URL.Query()["tag"],
	}

	images, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		catalogError(w, err)
		return
	}
	OK(w, Envelope{"images": h.infos(images), "count": len(images)})
}

// Search handles GET /search?keyword=...
func (h *ImageHandler) Search(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		BadRequest(w, "Missing keyword parameter")
		return
	}

	images, err := h.catalog.Search(r.Context(), keyword)
	if err != nil {
		catalogError(w, err)
		return
	}
	OK(w, Envelope{"images": h.infos(images), "count": len(images)})
}

// Get handles GET /get/{id}. The id may also be an image name.
// Responds with the raw image bytes.
func (h *ImageHandler) Get(w http.ResponseWriter, r *http.Request) {
	img, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		catalogError(w, err)
		return
	}
	h.serveImage(w, r, img)
}

// Info handles GET /info/{id}: the JSON metadata for a single image.
func (h *ImageHandler) Info(w http.ResponseWriter, r *http.Request) {
	img, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		catalogError(w, err)
		return
	}
	OK(w, Envelope{"image": h.info(img)})
}

// Random handles GET /random: a random image's raw bytes.
func (h *ImageHandler) Random(w http.ResponseWriter, r *http.Request) {
	img, err := h.catalog.Random(r.Context(), "")
	if err != nil {
		catalogError(w, err)
		return
	}
	h.serveImage(w, r, img)
}

// RandomByCategory handles GET /categories/{category}: a random image from
// the category, served as raw bytes.
func (h *ImageHandler) RandomByCategory(w http.ResponseWriter, r *http.Request) {
	img, err := h.catalog.Random(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		catalogError(w, err)
		return
	}
	h.serveImage(w, r, img)
}

// RandomByTag handles GET /tags/{tag}: a random image carrying the tag,
// served as raw bytes.
func (h *ImageHandler) RandomByTag(w http.ResponseWriter, r *http.Request) {
	img, err := h.catalog.RandomByTag(r.Context(), chi.URLParam(r, "tag"))
	if err != nil {
		catalogError(w, err)
		return
	}
	h.serveImage(w, r, img)
}

// serveImage writes the stored bytes with the recorded content type.
func (h *ImageHandler) serveImage(w http.ResponseWriter, r *http.Request, img *models.Image) {
	data, err := h.catalog.Blobs().Read(r.Context(), img.Path)
	if err != nil {
		InternalServerError(w, "Failed to read image file")
		return
	}
	w.Header().Set("Content-Type", img.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Upload handles POST /upload (multipart form).
//
// Fields: file (required), name, category, tags (JSON-encoded string array),
// aiAnalysis ("true" requests enrichment).
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		BadRequest(w, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequest(w, "Missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		BadRequest(w, "Failed to read uploaded file")
		return
	}

	var tags []string
	if rawTags := r.FormValue("tags"); rawTags != "" {
		if err := json.Unmarshal([]byte(rawTags), &tags); err != nil {
			BadRequest(w, "Invalid tags field, expected a JSON string array")
			return
		}
	}

	name := r.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(header.Filename, pathExt(header.Filename))
	}

	opts := catalog.IngestOptions{
		Name:     name,
		Category: r.FormValue("category"),
		Tags:     tags,
	}
	enrich := r.FormValue("aiAnalysis") == "true"

	img, err := h.catalog.IngestBytes(r.Context(), opts, data, enrich)
	if err != nil {
		var dup *catalog.DuplicateError
		if errors.As(err, &dup) {
			Conflict(w, dup.Error())
			return
		}
		catalogError(w, err)
		return
	}
	OK(w, Envelope{"image": h.info(img)})
}

// Delete handles DELETE /images/{id}.
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		catalogError(w, err)
		return
	}
	OK(w, nil)
}

// UpdateNameRequest is the request body for PUT /images/{id}/name.
type UpdateNameRequest struct {
	Name string `json:"name"`
}

// UpdateName handles PUT /images/{id}/name.
func (h *ImageHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	var req UpdateNameRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		BadRequest(w, "Name is required")
		return
	}

	img, err := h.catalog.UpdateName(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		catalogError(w, err)
		return
	}
	OK(w, Envelope{"image": h.info(img)})
}

// UpdateCategoryRequest is the request body for PUT /images/{id}/category.
type UpdateCategoryRequest struct {
	Category string `json:"category"`
}

// UpdateCategory handles PUT /images/{id}/category.
func (h *ImageHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req UpdateCategoryRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	img, err := h.catalog.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req.Category)
	if err != nil {
		catalogError(w, err)
		return
	}
	OK(w, Envelope{"image": h.info(img)})
}

// UpdateTagsRequest is the request body for PUT /images/{id}/tags.
type UpdateTagsRequest struct {
	Tags []string `json:"tags"`
}

// UpdateTags handles PUT /images/{id}/tags.
func (h *ImageHandler) UpdateTags(w http.ResponseWriter, r *http.Request) {
	var req UpdateTagsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	img, err := h.catalog.UpdateTags(r.Context(), chi.URLParam(r, "id"), req.Tags)
	if err != nil {
		catalogError(w, err)
		return
	}
	OK(w, Envelope{"image": h.info(img)})
}

// pathExt returns the extension including the dot, or "".
func pathExt(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx:]
	}
	return ""
}
