package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service is an entry of the public repair catalogue (`services` table).
type Service struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
	BasePrice       decimal.Decimal `json:"base_price"`
	DurationMinutes int             `json:"duration_minutes"`
	Active          bool            `json:"active"`
}

// TimeSlot is one row returned by the available_time_slots procedure.
type TimeSlot struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Time      string `json:"time"` // HH:MM
	Available bool   `json:"available"`
}

// ContentSection is a block of editable website copy.
type ContentSection struct {
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Position  int       `json:"position"`
	Published bool      `json:"published"`
	UpdatedAt time.Time `json:"updated_at"`
}
