package db

import "time"

// GeneratedPage is a rendered page kept between regenerations.
type GeneratedPage struct {
	ID          uint      `gorm:"primaryKey"`
	Route       string    `gorm:"uniqueIndex;not null"`
	Status      int       `gorm:"not null"`
	ContentType string    `gorm:"not null"`
	Body        []byte    `gorm:"not null"`
	GeneratedAt time.Time `gorm:"index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
