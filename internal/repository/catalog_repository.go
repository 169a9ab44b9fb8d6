package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/smartfix/internal/model"
)

// CatalogRepo serves the public website data: repair services, bookable
// time slots and website content sections.
type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

func scanService(s rowScanner) (model.Service, error) {
	var sv model.Service
	err := s.Scan(&sv.ID, &sv.Name, &sv.Category, &sv.Description, &sv.BasePrice, &sv.DurationMinutes, &sv.Active)
	return sv, err
}

// ActiveServices lists services offered on the website.
func (r *CatalogRepo) ActiveServices(ctx context.Context) ([]model.Service, error) {
	return listRows(ctx, r.db, scanService,
		`SELECT id, name, category, description, base_price, duration_minutes, active
		   FROM services WHERE active = 1 ORDER BY category, name`)
}

// ServiceByID returns one service, active or not.
func (r *CatalogRepo) ServiceByID(ctx context.Context, id string) (model.Service, error) {
	sv, err := scanService(r.db.QueryRowContext(ctx,
		`SELECT id, name, category, description, base_price, duration_minutes, active FROM services WHERE id = ?`, id))
	return sv, notFound(err)
}

// AvailableTimeSlots calls the available_time_slots stored procedure for
// one day.
func (r *CatalogRepo) AvailableTimeSlots(ctx context.Context, day time.Time) ([]model.TimeSlot, error) {
	return listRows(ctx, r.db, func(s rowScanner) (model.TimeSlot, error) {
		var ts model.TimeSlot
		err := s.Scan(&ts.Date, &ts.Time, &ts.Available)
		return ts, err
	}, `CALL available_time_slots(?)`, day.Format("2006-01-02"))
}

// PublishedContent returns website sections in display order.
func (r *CatalogRepo) PublishedContent(ctx context.Context) ([]model.ContentSection, error) {
	return listRows(ctx, r.db, scanContent,
		`SELECT section_key, title, body, position, published, updated_at
		   FROM website_content_sections WHERE published = 1 ORDER BY position`)
}

// ContentByKey returns one published section.
func (r *CatalogRepo) ContentByKey(ctx context.Context, key string) (model.ContentSection, error) {
	cs, err := scanContent(r.db.QueryRowContext(ctx,
		`SELECT section_key, title, body, position, published, updated_at
		   FROM website_content_sections WHERE section_key = ? AND published = 1`, key))
	return cs, notFound(err)
}

func scanContent(s rowScanner) (model.ContentSection, error) {
	var cs model.ContentSection
	err := s.Scan(&cs.Key, &cs.Title, &cs.Body, &cs.Position, &cs.Published, &cs.UpdatedAt)
	return cs, err
}
