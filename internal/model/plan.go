package model

import "time"

type Plan struct {
	ID           string
	Name         string
	Price        int
	DurationDays int
	Description  string
	Active       bool
	DisplayOrder int
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
