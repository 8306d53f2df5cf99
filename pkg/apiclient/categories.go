package apiclient

import (
	"net/url"
	"time"
)

// Category is a named grouping of images.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	EmojiCount  int64     `json:"emojiCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

type categoryListResponse struct {
	Success    bool       `json:"success"`
	Categories []Category `json:"categories"`
	Count      int        `json:"count"`
}

type categoryResponse struct {
	Success  bool     `json:"success"`
	Category Category `json:"category"`
}

type tagListResponse struct {
	Success bool     `json:"success"`
	Tags    []string `json:"tags"`
	Count   int      `json:"count"`
}

// ListCategories lists all categories with their image counts.
func (c *Client) ListCategories() ([]Category, error) {
	var resp categoryListResponse
	if err := c.get("/categories", &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// CreateCategory creates a new category.
func (c *Client) CreateCategory(name, description string) (*Category, error) {
	body := map[string]string{"name": name}
	if description != "" {
		body["description"] = description
	}

	var resp categoryResponse
	if err := c.post("/categories", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Category, nil
}

// DeleteCategory removes a category by id. Images keep their category name
// and simply point at an unknown category afterwards.
func (c *Client) DeleteCategory(id string) error {
	return c.delete("/categories/"+url.PathEscape(id), nil)
}

// ListTags lists every distinct tag in the catalog.
func (c *Client) ListTags() ([]string, error) {
	var resp tagListResponse
	if err := c.get("/tags", &resp); err != nil {
		return nil, err
	}
	return resp.Tags, nil
}
