package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EnrollmentPending = "pending_payment"
	EnrollmentActive  = "active"
	EnrollmentExpired = "expired"
)

type Enrollment struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	StudentID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"student_id"`
	SeriesID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"series_id"`
	Status      string     `gorm:"size:20;not null;default:'pending_payment'" json:"status"`
	ActivatedAt *time.Time `json:"activated_at"`

	Series Series `gorm:"foreignkey:SeriesID" json:"series"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

type Payment struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	EnrollmentID    uuid.UUID `gorm:"type:uuid;not null;unique" json:"enrollment_id"`
	ProviderOrderID *string   `gorm:"size:255;unique" json:"provider_order_id"`
	Amount          float64   `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency        string    `gorm:"size:3" json:"currency"`
	Provider        string    `gorm:"size:50;not null" json:"provider"`
	Status          string    `gorm:"size:20;not null" json:"status"`

	Enrollment Enrollment `gorm:"foreignkey:EnrollmentID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
