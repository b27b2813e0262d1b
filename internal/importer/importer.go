// Package importer turns external playlist exports into [models.PlaylistImport] values.
//
// Two formats are understood:
//   - [FormatSpotify] : the JSON account export ("Playlist1.json") with playlists
//     holding items that wrap a track object
//   - [FormatCSV] : a tabular file with trackName, artistName and albumName columns;
//     the file stem names the playlist
//
// Parsing never touches the network, so malformed input fails before any remote call.
package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/jsi/internal/models"
	"github.com/desertthunder/jsi/internal/shared"
)

// Format identifies an import file layout.
type Format string

const (
	FormatSpotify Format = "spotify"
	FormatCSV     Format = "csv"
)

// RequiredColumns are the CSV header names every tabular import must contain.
var RequiredColumns = []string{"trackName", "artistName", "albumName"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ResolveFormat picks the import format from the --spotify and --csv flags, falling
// back to the file extension when neither is set.
func ResolveFormat(path string, spotify, tabular bool) (Format, error) {
	switch {
	case spotify && tabular:
		return "", fmt.Errorf("%w: --spotify and --csv are mutually exclusive", shared.ErrInvalidArgument)
	case spotify:
		return FormatSpotify, nil
	case tabular:
		return FormatCSV, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatSpotify, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: cannot detect format of %s, pass --spotify or --csv", shared.ErrMissingArgument, path)
}

// ParseFile reads the import file at path in the given format.
func ParseFile(path string, format Format) ([]models.PlaylistImport, error) {
	expanded, err := shared.ExpandPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	defer f.Close()

	switch format {
	case FormatSpotify:
		return ParseSpotify(f)
	case FormatCSV:
		playlist, err := ParseCSV(f, PlaylistName(expanded))
		if err != nil {
			return nil, err
		}
		return []models.PlaylistImport{*playlist}, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// PlaylistName returns the file stem used to name a tabular import.
func PlaylistName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type spotifyExport struct {
	Playlists []spotifyPlaylist `json:"playlists"`
}

type spotifyPlaylist struct {
	Name  string        `json:"name"`
	Items []spotifyItem `json:"items"`
}

type spotifyItem struct {
	Track *spotifyTrack `json:"track"`
}

type spotifyTrack struct {
	TrackName  string `json:"trackName"`
	ArtistName string `json:"artistName"`
	AlbumName  string `json:"albumName"`
	TrackURI   string `json:"trackUri"`
}

// ParseSpotify decodes a streaming-service JSON export.
//
// Playlists without items are skipped, as are items without a track (episodes, local files).
// Playlists sharing a name are merged in file order.
func ParseSpotify(r io.Reader) ([]models.PlaylistImport, error) {
	var export spotifyExport
	dec := json.NewDecoder(r)
	if err := dec.Decode(&export); err != nil {
		return nil, fmt.Errorf("%w: cannot decode json file: %v", shared.ErrInvalidInput, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after json document", shared.ErrInvalidInput)
	}

	var playlists []models.PlaylistImport
	index := make(map[string]int)
	for _, pl := range export.Playlists {
		var tracks []models.TrackDescriptor
		for _, item := range pl.Items {
			if item.Track == nil {
				continue
			}
			tracks = append(tracks, models.TrackDescriptor{
				TrackName:  item.Track.TrackName,
				ArtistName: item.Track.ArtistName,
				AlbumName:  item.Track.AlbumName,
			})
		}
		if len(tracks) == 0 {
			continue
		}

		if i, ok := index[pl.Name]; ok {
			playlists[i].Tracks = append(playlists[i].Tracks, tracks...)
			continue
		}
		index[pl.Name] = len(playlists)
		playlists = append(playlists, models.PlaylistImport{Name: pl.Name, Tracks: tracks})
	}
	return playlists, nil
}

// ParseCSV decodes a tabular import into a single playlist called name.
//
// The header must contain every one of [RequiredColumns]; other columns are ignored.
func ParseCSV(r io.Reader, name string) (*models.PlaylistImport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s", shared.ErrMissingColumns, strings.Join(RequiredColumns, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read csv header: %v", shared.ErrInvalidInput, err)
	}
	if len(header) > 0 {
		header[0] = string(bytes.TrimPrefix([]byte(header[0]), utf8BOM))
	}

	columns := make(map[string]int, len(header))
	for i, col := range header {
		if _, seen := columns[col]; !seen {
			columns[col] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrMissingColumns, strings.Join(missing, ", "))
	}

	playlist := &models.PlaylistImport{Name: name}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}

		field := func(col string) string {
			if i := columns[col]; i < len(record) {
				return record[i]
			}
			return ""
		}
		playlist.Tracks = append(playlist.Tracks, models.TrackDescriptor{
			TrackName:  field("trackName"),
			ArtistName: field("artistName"),
			AlbumName:  field("albumName"),
		})
	}
	return playlist, nil
}
