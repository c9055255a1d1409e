package utils

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"yell/internal/models"
)

var entryHeaders = []string{
	"ID", "Title", "Description", "Profile Image", "Location", "Mobiles",
	"Reaching Video", "Instagram", "Facebook", "Snapchat", "Telegram", "TikTok",
	"Type Main", "Type Sub", "Created At", "Updated At",
}

func entryRow(e models.Entry) []string {
	social := e.Social.Data()
	kind := e.Type.Data()

	return []string{
		strconv.FormatUint(uint64(e.ID), 10),
		e.Title,
		deref(e.Description),
		deref(e.ProfileImage),
		deref(e.Location),
		strings.Join(e.Mobiles, "; "),
		deref(e.ReachingVideo),
		deref(social.Instagram),
		deref(social.Facebook),
		deref(social.Snapchat),
		deref(social.Telegram),
		deref(social.TikTok),
		kind.Main,
		kind.Sub,
		e.CreatedAt.Format(time.RFC3339Nano),
		e.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// WriteEntriesCSV writes a header line followed by one line per entry.
func WriteEntriesCSV(w io.Writer, entries []models.Entry) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(entryHeaders); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writer.Write(entryRow(e)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteEntriesJSON writes entries as an indented JSON array.
func WriteEntriesJSON(w io.Writer, entries []models.Entry) error {
	if entries == nil {
		entries = []models.Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
