package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"yell/internal/models"
	"yell/internal/repository"
	"yell/internal/utils"

	"github.com/rs/zerolog/log"
)

// Export is a rendered snapshot of every entry.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
	Records     int
}

func (s *entryService) ExportEntries(ctx context.Context, format string) (*Export, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}

	switch format {
	case "csv", "json", "excel", "xlsx":
	default:
		return nil, models.NewValidationError("format", fmt.Sprintf("unsupported format %q, use csv, xlsx or json", format))
	}

	entries, err := s.allEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for export: %w", err)
	}

	timestamp := time.Now().UTC().Format("20060102_150405")
	export := &Export{Records: len(entries)}

	switch format {
	case "csv":
		var buf bytes.Buffer
		if err := utils.WriteEntriesCSV(&buf, entries); err != nil {
			return nil, err
		}
		export.Filename = fmt.Sprintf("entries_export_%s.csv", timestamp)
		export.ContentType = "text/csv"
		export.Data = buf.Bytes()

	case "json":
		var buf bytes.Buffer
		if err := utils.WriteEntriesJSON(&buf, entries); err != nil {
			return nil, err
		}
		export.Filename = fmt.Sprintf("entries_export_%s.json", timestamp)
		export.ContentType = "application/json"
		export.Data = buf.Bytes()

	case "excel", "xlsx":
		data, err := utils.CreateEntriesWorkbook(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to create Excel file: %w", err)
		}
		export.Filename = fmt.Sprintf("entries_export_%s.xlsx", timestamp)
		export.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		export.Data = data
	}

	log.Info().Str("format", format).Int("records", export.Records).Msg("Entries exported")
	return export, nil
}

// allEntries pages through the table newest first.
func (s *entryService) allEntries(ctx context.Context) ([]models.Entry, error) {
	var all []models.Entry
	for offset := 0; ; offset += repository.MaxListLimit {
		page, err := s.repo.List(ctx, repository.MaxListLimit, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < repository.MaxListLimit {
			return all, nil
		}
	}
}
