package profiles

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/pkg/db/models"
)

// Address is the structured form of the profile's JSON address column.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Preferences holds per-user settings stored on the profile.
type Preferences struct {
	Language           string `json:"language,omitempty"`
	Timezone           string `json:"timezone,omitempty"`
	EmailNotifications *bool  `json:"email_notifications,omitempty"`
	PushNotifications  *bool  `json:"push_notifications,omitempty"`
}

// ProfileDTO is the transport shape of a profile. Email and Phone are
// populated subject to the owner's privacy flags.
type ProfileDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Bio       *string   `json:"bio,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Location  *string   `json:"location,omitempty"`
	Company   *string   `json:"company,omitempty"`
	JobTitle  *string   `json:"job_title,omitempty"`
	Website   *string   `json:"website,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	BirthYear *int      `json:"birth_year,omitempty"`

	IsPublic  bool `json:"is_public"`
	ShowEmail bool `json:"show_email"`
	ShowPhone bool `json:"show_phone"`

	Address     *Address          `json:"address,omitempty"`
	Preferences *Preferences      `json:"preferences,omitempty"`
	SocialLinks map[string]string `json:"social_links,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertProfileInput carries the mutable profile fields. Nil means
// unchanged on update; on first write absent fields stay empty.
type UpsertProfileInput struct {
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=2000"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Location  *string `json:"location,omitempty" validate:"omitempty,max=160"`
	Company   *string `json:"company,omitempty" validate:"omitempty,max=160"`
	JobTitle  *string `json:"job_title,omitempty" validate:"omitempty,max=160"`
	Website   *string `json:"website,omitempty" validate:"omitempty,url"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	BirthYear *int    `json:"birth_year,omitempty"`

	IsPublic  *bool `json:"is_public,omitempty"`
	ShowEmail *bool `json:"show_email,omitempty"`
	ShowPhone *bool `json:"show_phone,omitempty"`

	Address     *Address          `json:"address,omitempty"`
	Preferences *Preferences      `json:"preferences,omitempty"`
	SocialLinks map[string]string `json:"social_links,omitempty"`
}

// FromModel converts a persisted profile into its transport shape, without
// contact fields; the service fills those per visibility.
func FromModel(p *models.UserProfile) *ProfileDTO {
	if p == nil {
		return nil
	}

	dto := &ProfileDTO{
		ID:        p.ID,
		UserID:    p.UserID,
		Bio:       p.Bio,
		Location:  p.Location,
		Company:   p.Company,
		JobTitle:  p.JobTitle,
		Website:   p.Website,
		AvatarURL: p.AvatarURL,
		BirthYear: p.BirthYear,
		IsPublic:  p.IsPublic,
		ShowEmail: p.ShowEmail,
		ShowPhone: p.ShowPhone,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}

	dto.Address = decodeJSON[Address](p.Address)
	dto.Preferences = decodeJSON[Preferences](p.Preferences)
	if links := decodeJSON[map[string]string](p.SocialLinks); links != nil {
		dto.SocialLinks = *links
	}
	return dto
}

func decodeJSON[T any](raw *string) *T {
	if raw == nil || *raw == "" {
		return nil
	}
	var value T
	if err := json.Unmarshal([]byte(*raw), &value); err != nil {
		return nil
	}
	return &value
}

func encodeJSON(value any) (*string, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	text := string(data)
	return &text, nil
}
