package models

import (
	"fmt"
	"time"
)

// DefaultCategory is the category assigned to images ingested without one
// and without an AI suggestion.
const DefaultCategory = "其他"

// Image represents a stored sticker with its metadata.
//
// The stored bytes live in the blob store at Path; the row only carries
// metadata. ImageHash is the SHA-256 of the exact stored bytes and is unique
// across all live images: the catalog rejects a second ingest of the same
// content.
type Image struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:255;index" json:"name"`
	Category  string    `gorm:"size:255;index" json:"category"`
	Tags      []string  `gorm:"serializer:json" json:"tags"`
	Path      string    `gorm:"not null" json:"path"`
	Size      int64     `gorm:"not null" json:"size"`
	MimeType  string    `gorm:"size:64;not null" json:"mime_type"`
	ImageHash string    `gorm:"uniqueIndex;size:64;not null" json:"image_hash"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Image.
func (Image) TableName() string {
	return "images"
}

// HasTag checks whether the image carries the given tag.
func (i *Image) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Validate checks if the image has valid metadata.
func (i *Image) Validate() error {
	if i.Path == "" {
		return fmt.Errorf("path is required")
	}
	if len(i.ImageHash) != 64 {
		return fmt.Errorf("image hash must be a sha256 hex digest")
	}
	switch i.MimeType {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
	default:
		return fmt.Errorf("unsupported mime type %q", i.MimeType)
	}
	return nil
}
