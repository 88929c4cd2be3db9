package domain

import (
	"time"

	"github.com/google/uuid"
)

// DomainScore is a single screening observation: one developmental domain
// scored for one child at a point in time. Screening data is supplied by an
// external assessment provider; this engine only reads it for analytics.
type DomainScore struct {
	ScreeningID uuid.UUID           `json:"screening_id"`
	ChildID     uuid.UUID           `json:"child_id"`
	Domain      DevelopmentalDomain `json:"domain"`
	Score       float64             `json:"score"` // 0-100 normalized
	RecordedAt  time.Time           `json:"recorded_at"`
}

// WeakDomainThreshold is the normalized score under which a domain counts
// as flagged/weak for recommendation purposes.
const WeakDomainThreshold = 60.0
