package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Social holds the public profile links of an entry. Every key is optional.
type Social struct {
	Instagram *string `json:"instagram"`
	Facebook  *string `json:"facebook"`
	Snapchat  *string `json:"snapchat"`
	Telegram  *string `json:"telegram"`
	TikTok    *string `json:"tiktok"`
}

// EntryType classifies an entry with a main category and a sub category.
type EntryType struct {
	Main string `json:"main"`
	Sub  string `json:"sub"`
}

type Entry struct {
	ID            uint                          `gorm:"primaryKey" json:"id"`
	Title         string                        `gorm:"not null" json:"title"`
	Description   *string                       `json:"description"`
	ProfileImage  *string                       `json:"profile_image"`
	Location      *string                       `json:"location"`
	Mobiles       datatypes.JSONSlice[string]   `gorm:"not null" json:"mobiles"`
	ReachingVideo *string                       `json:"reaching_video"`
	Social        datatypes.JSONType[Social]    `gorm:"not null" json:"social"`
	Type          datatypes.JSONType[EntryType] `gorm:"not null" json:"type"`
	CreatedAt     time.Time                     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time                     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Entry) TableName() string { return "entries" }

// AfterFind reports timestamps in UTC whatever zone the driver decoded them in.
func (e *Entry) AfterFind(*gorm.DB) error {
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return nil
}
