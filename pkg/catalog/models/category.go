package models

import "time"

// AutoCreatedDescription marks categories created automatically when an AI
// result proposes a category that does not exist yet.
const AutoCreatedDescription = "AI自动创建"

// Category groups images under a unique name.
//
// EmojiCount is derived state: the number of live images whose Category field
// equals Name. It is recomputed on image create, update, and delete rather
// than maintained transactionally, so transient drift after a crash is
// possible and tolerated.
type Category struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null;size:255" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	EmojiCount  int64     `gorm:"default:0" json:"emoji_count"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Category.
func (Category) TableName() string {
	return "categories"
}
