package branches

import (
	"time"

	"github.com/google/uuid"

	"github.com/bizdirect/bizdirect-backend/pkg/db/models"
)

// BranchDTO is the transport shape for a business branch.
type BranchDTO struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	Name       string    `json:"name"`
	Address    *string   `json:"address,omitempty"`
	City       *string   `json:"city,omitempty"`
	Region     *string   `json:"region,omitempty"`
	Phone      *string   `json:"phone,omitempty"`
	Email      *string   `json:"email,omitempty"`
	IsActive   bool      `json:"is_active"`
	IsMain     bool      `json:"is_main"`
	CreatedAt  time.Time `json:"created_at"`
}

// BusinessSummary describes the tenant metadata returned after login.
type BusinessSummary struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	LogoURL *string   `json:"logo_url,omitempty"`
}

// FromModel converts the persistence model into the transport DTO.
func FromModel(b *models.BusinessBranch) *BranchDTO {
	if b == nil {
		return nil
	}
	return &BranchDTO{
		ID:         b.ID,
		BusinessID: b.BusinessID,
		Name:       b.Name,
		Address:    b.Address,
		City:       b.City,
		Region:     b.Region,
		Phone:      b.Phone,
		Email:      b.Email,
		IsActive:   b.IsActive,
		IsMain:     b.IsMain,
		CreatedAt:  b.CreatedAt,
	}
}
