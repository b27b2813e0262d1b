// package formatter provides functions to export unresolved tracks to various formats (CSV, JSON, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/jsi/internal/models"
	"github.com/desertthunder/jsi/internal/shared"
)

// Report formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatText = "txt"
)

// UnresolvedHeaders are the CSV columns of an unresolved report.
//
// The first three match the tabular import format so a corrected report can be imported again.
var UnresolvedHeaders = []string{"trackName", "artistName", "albumName", "playlistName", "reason"}

// UnresolvedToCSV converts unresolved records to CSV format
func UnresolvedToCSV(records []models.UnresolvedRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(UnresolvedHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, rec := range records {
		record := []string{
			rec.Track.TrackName,
			rec.Track.ArtistName,
			rec.Track.AlbumName,
			rec.Playlist,
			rec.Reason,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// UnresolvedToJSON converts unresolved records to an indented JSON array
func UnresolvedToJSON(records []models.UnresolvedRecord) ([]byte, error) {
	if records == nil {
		records = []models.UnresolvedRecord{}
	}
	return shared.MarshalJSON(records, true)
}

// UnresolvedToText converts unresolved records to plain text grouped by playlist
func UnresolvedToText(records []models.UnresolvedRecord) ([]byte, error) {
	var buf bytes.Buffer

	current := ""
	for i, rec := range records {
		if i == 0 || rec.Playlist != current {
			if i > 0 {
				buf.WriteString("\n")
			}
			current = rec.Playlist
			buf.WriteString(fmt.Sprintf("Playlist: %s\n", current))
		}
		buf.WriteString(fmt.Sprintf("  %s - %s (%s)", rec.Track.ArtistName, rec.Track.TrackName, rec.Track.AlbumName))
		if rec.Reason != "" {
			buf.WriteString(": " + rec.Reason)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// FormatForPath picks a report format from a file extension, defaulting to plain text
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	default:
		return FormatText
	}
}

// Render converts records to the given format
func Render(format string, records []models.UnresolvedRecord) ([]byte, error) {
	switch format {
	case FormatCSV:
		return UnresolvedToCSV(records)
	case FormatJSON:
		return UnresolvedToJSON(records)
	case FormatText, "":
		return UnresolvedToText(records)
	default:
		return nil, fmt.Errorf("%w: unsupported report format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteUnresolved renders records and writes them to w
func WriteUnresolved(w io.Writer, format string, records []models.UnresolvedRecord) error {
	data, err := Render(format, records)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteReport writes an unresolved report to path in the format implied by its extension.
//
// Parent directories are created as needed.
func WriteReport(path string, records []models.UnresolvedRecord) (string, error) {
	expanded, err := shared.ExpandPath(path)
	if err != nil {
		return "", err
	}

	data, err := Render(FormatForPath(expanded), records)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(expanded, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return expanded, nil
}
