package pagecache

import (
	"context"
	"errors"
	"time"

	"github.com/spacetraveling/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore keeps pages in the generated_pages table.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore creates a SQLStore instance.
func NewSQLStore(gdb *gorm.DB) *SQLStore {
	return &SQLStore{db: gdb}
}

func (s *SQLStore) Get(ctx context.Context, route string) (Page, error) {
	var row db.GeneratedPage
	err := s.db.WithContext(ctx).Where("route = ?", route).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Page{}, ErrMiss
	}
	if err != nil {
		return Page{}, err
	}
	return Page{
		Route:       row.Route,
		Status:      row.Status,
		ContentType: row.ContentType,
		Body:        row.Body,
		GeneratedAt: row.GeneratedAt,
	}, nil
}

func (s *SQLStore) Put(ctx context.Context, page Page) error {
	row := db.GeneratedPage{
		Route:       page.Route,
		Status:      page.Status,
		ContentType: page.ContentType,
		Body:        page.Body,
		GeneratedAt: page.GeneratedAt,
	}
	if row.GeneratedAt.IsZero() {
		row.GeneratedAt = time.Now()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "route"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "content_type", "body", "generated_at", "updated_at"}),
	}).Create(&row).Error
}

func (s *SQLStore) Delete(ctx context.Context, route string) error {
	return s.db.WithContext(ctx).Where("route = ?", route).Delete(&db.GeneratedPage{}).Error
}

func (s *SQLStore) Purge(ctx context.Context) error {
	return s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&db.GeneratedPage{}).Error
}
