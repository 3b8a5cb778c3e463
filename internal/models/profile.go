package models

import "time"

type Profile struct {
	ID             int        `json:"id"`
	Phone          string     `json:"phone"`
	TelegramChatID *int64     `json:"-"`
	DisplayName    string     `json:"display_name"`
	Email          string     `json:"email,omitempty"`
	RoleID         int        `json:"role_id"`
	City           string     `json:"city,omitempty"`
	Bio            string     `json:"bio,omitempty"`
	Skills         []string   `json:"skills,omitempty"`
	Rating         float64    `json:"rating"`
	CompletedCount int        `json:"completed_count"`
	Balance        int64      `json:"balance"` // в копейках
	PasswordHash   string     `json:"-"`       // только для админов
	IsBlocked      bool       `json:"is_blocked"`
	CreatedAt      time.Time  `json:"created_at"`

	// refresh-хранение в БД
	RefreshToken     *string    `json:"-"`
	RefreshExpiresAt *time.Time `json:"-"`
	RefreshRevoked   bool       `json:"-"`
}

// PublicProfile — то, что видно чужим пользователям.
type PublicProfile struct {
	ID             int       `json:"id"`
	DisplayName    string    `json:"display_name"`
	RoleID         int       `json:"role_id"`
	City           string    `json:"city,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	Skills         []string  `json:"skills,omitempty"`
	Rating         float64   `json:"rating"`
	CompletedCount int       `json:"completed_count"`
	CreatedAt      time.Time `json:"created_at"`
}

func (p *Profile) Public() *PublicProfile {
	return &PublicProfile{
		ID:             p.ID,
		DisplayName:    p.DisplayName,
		RoleID:         p.RoleID,
		City:           p.City,
		Bio:            p.Bio,
		Skills:         p.Skills,
		Rating:         p.Rating,
		CompletedCount: p.CompletedCount,
		CreatedAt:      p.CreatedAt,
	}
}

type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}
