package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

type EntryRepository interface {
	Create(ctx context.Context, entry *models.Entry) error
	GetByID(ctx context.Context, id uint) (*models.Entry, error)
	List(ctx context.Context, limit, offset int) ([]models.Entry, error)
	Update(ctx context.Context, id uint, changes map[string]interface{}) (*models.Entry, error)
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

type entryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) EntryRepository {
	return &entryRepository{db: db}
}

func (r *entryRepository) now() time.Time {
	if r.db.NowFunc != nil {
		return r.db.NowFunc()
	}
	return time.Now().UTC()
}

func (r *entryRepository) Create(ctx context.Context, entry *models.Entry) error {
	now := r.now()
	entry.ID = 0
	entry.CreatedAt = now
	entry.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}
	return nil
}

func (r *entryRepository) GetByID(ctx context.Context, id uint) (*models.Entry, error) {
	var entry models.Entry
	err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if err != nil {
		return nil, mapError(err, id)
	}
	return &entry, nil
}

// List returns entries newest id first. A limit below 1 falls back to
// DefaultListLimit, one above MaxListLimit is capped, and negative offsets
// become zero.
func (r *entryRepository) List(ctx context.Context, limit, offset int) ([]models.Entry, error) {
	switch {
	case limit < 1:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	entries := make([]models.Entry, 0, limit)
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// Update applies changes (column name to value) to one row and returns the
// row as stored afterwards. updated_at always moves forward, even when the
// clock has not ticked since the previous write.
func (r *entryRepository) Update(ctx context.Context, id uint, changes map[string]interface{}) (*models.Entry, error) {
	if len(changes) == 0 {
		return nil, models.ErrEmptyUpdate
	}

	var updated models.Entry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the row lock orders concurrent updates so updated_at keeps rising
		var current models.Entry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "id = ?", id).Error; err != nil {
			return err
		}

		now := r.now()
		if !now.After(current.UpdatedAt) {
			now = current.UpdatedAt.Add(time.Microsecond)
		}

		values := make(map[string]interface{}, len(changes)+1)
		for column, value := range changes {
			values[column] = value
		}
		values["updated_at"] = now

		if err := tx.Model(&models.Entry{}).Where("id = ?", id).Updates(values).Error; err != nil {
			return err
		}

		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return nil, mapError(err, id)
	}
	return &updated, nil
}

func (r *entryRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Entry{}, "id = ?", id)
	if result.Error != nil {
		return mapError(result.Error, id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("entry %d: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *entryRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Entry{}).
		Count(&count).
		Error
	return count, err
}

func (r *entryRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// mapError converts gorm errors to model errors. Anything unknown is
// wrapped with the entry id and passed through.
func mapError(err error, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("entry %d: %w", id, models.ErrNotFound)
	}
	return fmt.Errorf("entry %d: %w", id, err)
}
