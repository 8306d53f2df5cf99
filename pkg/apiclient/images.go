package apiclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Image is the metadata of a catalogued image.
type Image struct {
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

type imageListResponse struct {
	Success bool    `json:"success"`
	Images  []Image `json:"images"`
	Count   int     `json:"count"`
}

type imageResponse struct {
	Success bool  `json:"success"`
	Image   Image `json:"image"`
}

// ListImages lists images, optionally filtered by category and tags.
func (c *Client) ListImages(category string, tags []string) ([]Image, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	for _, tag := range tags {
		q.Add("tag", tag)
	}

	path := "/list"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp imageListResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return resp.Images, nil
}

// SearchImages searches images by keyword across name, category and tags.
func (c *Client) SearchImages(keyword string) ([]Image, error) {
	path := "/search?keyword=" + url.QueryEscape(keyword)

	var resp imageListResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return resp.Images, nil
}

// GetImage returns the metadata of a single image by id or name.
func (c *Client) GetImage(id string) (*Image, error) {
	var resp imageResponse
	if err := c.get("/info/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return &resp.Image, nil
}

// DownloadImage returns the raw bytes and content type of an image.
func (c *Client) DownloadImage(id string) ([]byte, string, error) {
	return c.getBytes("/get/" + url.PathEscape(id))
}

// RandomImage returns the raw bytes of a random image. A non-empty category
// restricts the pick to that category.
func (c *Client) RandomImage(category string) ([]byte, string, error) {
	if category != "" {
		return c.getBytes("/categories/" + url.PathEscape(category))
	}
	return c.getBytes("/random")
}

// RandomImageByTag returns the raw bytes of a random image carrying the tag.
func (c *Client) RandomImageByTag(tag string) ([]byte, string, error) {
	return c.getBytes("/tags/" + url.PathEscape(tag))
}

// UploadOptions carries the optional metadata of an upload.
type UploadOptions struct {
	// Name overrides the filename-derived display name.
	Name string
	// Category assigns the image to a category.
	Category string
	// Tags are free-form labels attached to the image.
	Tags []string
	// Analyze requests AI enrichment after ingest.
	Analyze bool
}

// UploadImage uploads a local image file.
func (c *Client) UploadImage(path string, opts UploadOptions) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	fields := map[string]string{}
	if opts.Name != "" {
		fields["name"] = opts.Name
	}
	if opts.Category != "" {
		fields["category"] = opts.Category
	}
	if len(opts.Tags) > 0 {
		encoded, err := json.Marshal(opts.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tags: %w", err)
		}
		fields["tags"] = string(encoded)
	}
	if opts.Analyze {
		fields["aiAnalysis"] = "true"
	}

	var resp imageResponse
	if err := c.postMultipart("/upload", fields, "file", filepath.Base(path), data, &resp); err != nil {
		return nil, err
	}
	return &resp.Image, nil
}

// DeleteImage removes an image and its stored file.
func (c *Client) DeleteImage(id string) error {
	return c.delete("/images/"+url.PathEscape(id), nil)
}

// RenameImage changes the display name of an image.
func (c *Client) RenameImage(id, name string) (*Image, error) {
	var resp imageResponse
	body := map[string]string{"name": name}
	if err := c.put("/images/"+url.PathEscape(id)+"/name", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Image, nil
}

// SetImageCategory moves an image to a different category.
func (c *Client) SetImageCategory(id, category string) (*Image, error) {
	var resp imageResponse
	body := map[string]string{"category": category}
	if err := c.put("/images/"+url.PathEscape(id)+"/category", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Image, nil
}

// SetImageTags replaces the tag list of an image.
func (c *Client) SetImageTags(id string, tags []string) (*Image, error) {
	var resp imageResponse
	body := map[string][]string{"tags": tags}
	if err := c.put("/images/"+url.PathEscape(id)+"/tags", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Image, nil
}
