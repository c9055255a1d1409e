package models

import (
	"strings"

	"gorm.io/datatypes"
)

// EntryCreate is the body accepted by POST /entries.
type EntryCreate struct {
	Title         string     `json:"title" binding:"required,notblank"`
	Description   *string    `json:"description"`
	ProfileImage  *string    `json:"profile_image"`
	Location      *string    `json:"location"`
	Mobiles       []string   `json:"mobiles"`
	ReachingVideo *string    `json:"reaching_video"`
	Social        *Social    `json:"social"`
	Type          *EntryType `json:"type" binding:"required"`
}

func (p *EntryCreate) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return NewValidationError("title", "must not be empty")
	}
	if p.Type == nil {
		return NewValidationError("type", "is required")
	}
	return p.Type.validate()
}

// ToEntry builds the row to insert. Generated fields are left zero.
func (p *EntryCreate) ToEntry() *Entry {
	mobiles := datatypes.JSONSlice[string]{}
	if p.Mobiles != nil {
		mobiles = datatypes.NewJSONSlice(p.Mobiles)
	}

	var social Social
	if p.Social != nil {
		social = *p.Social
	}

	return &Entry{
		Title:         p.Title,
		Description:   p.Description,
		ProfileImage:  p.ProfileImage,
		Location:      p.Location,
		Mobiles:       mobiles,
		ReachingVideo: p.ReachingVideo,
		Social:        datatypes.NewJSONType(social),
		Type:          datatypes.NewJSONType(*p.Type),
	}
}

func (t EntryType) validate() error {
	if strings.TrimSpace(t.Main) == "" {
		return NewValidationError("type.main", "must not be empty")
	}
	if strings.TrimSpace(t.Sub) == "" {
		return NewValidationError("type.sub", "must not be empty")
	}
	return nil
}

// EntryUpdate is the body accepted by PUT /entries/{id}. Keys missing from
// the body leave the stored value untouched.
type EntryUpdate struct {
	Title         Optional[string]    `json:"title"`
	Description   Optional[string]    `json:"description"`
	ProfileImage  Optional[string]    `json:"profile_image"`
	Location      Optional[string]    `json:"location"`
	Mobiles       Optional[[]string]  `json:"mobiles"`
	ReachingVideo Optional[string]    `json:"reaching_video"`
	Social        Optional[Social]    `json:"social"`
	Type          Optional[EntryType] `json:"type"`
}

// Changes maps column names to their new values for every key that was
// sent. It returns ErrEmptyUpdate when nothing was sent.
func (p *EntryUpdate) Changes() (map[string]interface{}, error) {
	changes := make(map[string]interface{})

	if p.Title.Set {
		if p.Title.Null || strings.TrimSpace(p.Title.Value) == "" {
			return nil, NewValidationError("title", "must not be empty")
		}
		changes["title"] = p.Title.Value
	}

	nullable := []struct {
		column string
		value  Optional[string]
	}{
		{"description", p.Description},
		{"profile_image", p.ProfileImage},
		{"location", p.Location},
		{"reaching_video", p.ReachingVideo},
	}
	for _, f := range nullable {
		if !f.value.Set {
			continue
		}
		if f.value.Null {
			changes[f.column] = nil
		} else {
			changes[f.column] = f.value.Value
		}
	}

	if p.Mobiles.Set {
		mobiles := datatypes.JSONSlice[string]{}
		if !p.Mobiles.Null && p.Mobiles.Value != nil {
			mobiles = datatypes.NewJSONSlice(p.Mobiles.Value)
		}
		changes["mobiles"] = mobiles
	}

	if p.Social.Set {
		changes["social"] = datatypes.NewJSONType(p.Social.Value)
	}

	if p.Type.Set {
		if p.Type.Null {
			return nil, NewValidationError("type", "must not be null")
		}
		if err := p.Type.Value.validate(); err != nil {
			return nil, err
		}
		changes["type"] = datatypes.NewJSONType(p.Type.Value)
	}

	if len(changes) == 0 {
		return nil, ErrEmptyUpdate
	}
	return changes, nil
}
