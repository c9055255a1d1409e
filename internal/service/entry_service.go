package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yell/internal/models"
	"yell/internal/repository"

	"github.com/rs/zerolog/log"
)

type EntryService interface {
	CreateEntry(ctx context.Context, payload *models.EntryCreate) (*models.Entry, error)
	ListEntries(ctx context.Context, limit, offset int) ([]models.Entry, error)
	GetEntry(ctx context.Context, id uint) (*models.Entry, error)
	UpdateEntry(ctx context.Context, id uint, payload *models.EntryUpdate) (*models.Entry, error)
	DeleteEntry(ctx context.Context, id uint) error
	CountEntries(ctx context.Context) (int64, error)
	ExportEntries(ctx context.Context, format string) (*Export, error)
}

type entryService struct {
	repo      repository.EntryRepository
	cacheRepo repository.CacheRepository
	cacheTTL  time.Duration
}

type EntryServiceConfig struct {
	// CacheTTL is how long a cached entry stays valid. Ignored without a cache.
	CacheTTL time.Duration
}

// NewEntryService wires the service. cacheRepo may be nil, in which case
// every read goes to the store.
func NewEntryService(
	repo repository.EntryRepository,
	cacheRepo repository.CacheRepository,
	config EntryServiceConfig,
) EntryService {
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &entryService{
		repo:      repo,
		cacheRepo: cacheRepo,
		cacheTTL:  ttl,
	}
}

func entryCacheKey(id uint) string {
	return fmt.Sprintf("entries:%d", id)
}

func entryVersionKey(id uint) string {
	return fmt.Sprintf("entries:%d:version", id)
}

func (s *entryService) CreateEntry(ctx context.Context, payload *models.EntryCreate) (*models.Entry, error) {
	if payload == nil {
		return nil, models.NewValidationError("body", "is required")
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	entry := payload.ToEntry()
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	log.Info().Uint("entry_id", entry.ID).Msg("Entry created")
	return entry, nil
}

func (s *entryService) ListEntries(ctx context.Context, limit, offset int) ([]models.Entry, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *entryService) GetEntry(ctx context.Context, id uint) (*models.Entry, error) {
	key := entryCacheKey(id)
	versionKey := entryVersionKey(id)

	// The version is read before the store so a write that lands while the
	// row is loaded keeps the stale row out of the cache.
	var version int64
	fill := false
	if s.cacheRepo != nil {
		var cached models.Entry
		found, err := s.cacheRepo.GetJSON(ctx, key, &cached)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to read entry cache")
		} else if found {
			return &cached, nil
		}

		version, err = s.cacheRepo.Version(ctx, versionKey)
		if err != nil {
			log.Warn().Err(err).Str("key", versionKey).Msg("Failed to read entry cache version")
		} else {
			fill = true
		}
	}

	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if fill {
		written, err := s.cacheRepo.SetJSONIfVersion(ctx, key, versionKey, version, entry, s.cacheTTL)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("key", key).Msg("Failed to cache entry")
		case !written:
			log.Debug().Uint("entry_id", id).Msg("Entry changed while loading, not cached")
		}
	}

	return entry, nil
}

func (s *entryService) UpdateEntry(ctx context.Context, id uint, payload *models.EntryUpdate) (*models.Entry, error) {
	if payload == nil {
		payload = &models.EntryUpdate{}
	}

	changes, err := payload.Changes()
	if err != nil {
		// unknown ids report NotFound whatever the body looks like
		if _, getErr := s.repo.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, err
	}

	entry, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		return nil, err
	}

	s.evict(ctx, id)
	log.Info().Uint("entry_id", id).Int("fields", len(changes)).Msg("Entry updated")
	return entry, nil
}

func (s *entryService) DeleteEntry(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.evict(ctx, id)
	log.Info().Uint("entry_id", id).Msg("Entry deleted")
	return nil
}

func (s *entryService) CountEntries(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *entryService) evict(ctx context.Context, id uint) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Invalidate(ctx, entryCacheKey(id), entryVersionKey(id)); err != nil {
		log.Warn().Err(err).Uint("entry_id", id).Msg("Failed to evict cached entry")
	}
}

// IsClientError reports whether err was caused by the request rather than
// by the store.
func IsClientError(err error) bool {
	return errors.Is(err, models.ErrValidation) ||
		errors.Is(err, models.ErrEmptyUpdate) ||
		errors.Is(err, models.ErrNotFound)
}
