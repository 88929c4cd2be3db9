package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Review-specific validation errors.
var (
	ErrReviewIDEmpty        = errors.New("review ID cannot be empty")
	ErrReviewWorksheetEmpty = errors.New("review worksheet ID cannot be empty")
	ErrReviewUserEmpty      = errors.New("review user ID cannot be empty")
)

// Review is a community rating for a worksheet: one per (worksheet, user)
// pair. The worksheet's averageRating/reviewCount aggregates are recomputed
// by the store inside the same transaction as review writes.
type Review struct {
	ID           uuid.UUID `json:"id"`
	WorksheetID  uuid.UUID `json:"worksheet_id"`
	UserID       uuid.UUID `json:"user_id"`
	Rating       int       `json:"rating"` // 1-5
	ReviewText   string    `json:"review_text,omitempty"`
	HelpfulCount int       `json:"helpful_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewReview creates a review with a bounded 1-5 rating.
func NewReview(worksheetID, userID uuid.UUID, rating int, text string) (*Review, error) {
	now := time.Now().UTC()
	r := &Review{
		ID:          uuid.New(),
		WorksheetID: worksheetID,
		UserID:      userID,
		Rating:      rating,
		ReviewText:  text,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks if the Review has valid data.
func (r *Review) Validate() error {
	if r.ID == uuid.Nil {
		return ErrReviewIDEmpty
	}
	if r.WorksheetID == uuid.Nil {
		return ErrReviewWorksheetEmpty
	}
	if r.UserID == uuid.Nil {
		return ErrReviewUserEmpty
	}
	if r.Rating < 1 || r.Rating > 5 {
		return ErrRatingOutOfRange
	}
	return nil
}
