// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/jsi/internal/models"
	"github.com/desertthunder/jsi/internal/shared"
)

// MockLibrary is an in-memory test double for [services.Library].
//
// Artists are keyed by name, albums by artist id and tracks by album id.
// Every method call is counted in Calls; an entry in Errs makes that method fail.
type MockLibrary struct {
	Artists   map[string]models.LibraryArtist
	Albums    map[string][]models.LibraryAlbum
	Tracks    map[string][]models.LibraryTrack
	Playlists []models.Playlist
	Items     map[string][]string
	Errs      map[string]error
	Created   []models.PlaylistTarget
	User      string

	mu     sync.Mutex
	calls  map[string]int
	nextID int
}

// NewMockLibrary returns an empty library with all maps initialized.
func NewMockLibrary() *MockLibrary {
	return &MockLibrary{
		Artists: map[string]models.LibraryArtist{},
		Albums:  map[string][]models.LibraryAlbum{},
		Tracks:  map[string][]models.LibraryTrack{},
		Items:   map[string][]string{},
		Errs:    map[string]error{},
	}
}

// AddAlbum registers an artist (if new), an album and its tracks.
// Track ids are "<albumID>-<index>".
func (m *MockLibrary) AddAlbum(artist string, album models.LibraryAlbum, tracks ...string) {
	a, ok := m.Artists[artist]
	if !ok {
		a = models.LibraryArtist{ID: "artist-" + artist, Name: artist}
		m.Artists[artist] = a
	}
	m.Albums[a.ID] = append(m.Albums[a.ID], album)
	for i, name := range tracks {
		m.Tracks[album.ID] = append(m.Tracks[album.ID], models.LibraryTrack{
			ID:      fmt.Sprintf("%s-%d", album.ID, i+1),
			Name:    name,
			Album:   album.Name,
			Artists: []string{artist},
		})
	}
}

func (m *MockLibrary) record(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[method]++
	return m.Errs[method]
}

// Calls returns how many times method was invoked.
func (m *MockLibrary) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// TotalCalls returns the number of invocations across all methods.
func (m *MockLibrary) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// Writes returns the number of create and append calls.
func (m *MockLibrary) Writes() int {
	return m.Calls("CreatePlaylist") + m.Calls("AddToPlaylist")
}

func (m *MockLibrary) Name() string { return "mock" }

func (m *MockLibrary) Authenticate(ctx context.Context, credentials map[string]string) error {
	if err := m.record("Authenticate"); err != nil {
		return err
	}
	if credentials["user"] == "" {
		return shared.ErrMissingCredentials
	}
	m.User = credentials["user"]
	return nil
}

func (m *MockLibrary) Artist(ctx context.Context, name string) (*models.LibraryArtist, error) {
	if err := m.record("Artist"); err != nil {
		return nil, err
	}
	a, ok := m.Artists[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrArtistNotFound, name)
	}
	return &a, nil
}

func (m *MockLibrary) ArtistAlbums(ctx context.Context, artistID string) ([]models.LibraryAlbum, error) {
	if err := m.record("ArtistAlbums"); err != nil {
		return nil, err
	}
	return m.Albums[artistID], nil
}

func (m *MockLibrary) AlbumTracks(ctx context.Context, albumID string) ([]models.LibraryTrack, error) {
	if err := m.record("AlbumTracks"); err != nil {
		return nil, err
	}
	return m.Tracks[albumID], nil
}

func (m *MockLibrary) FindPlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	if err := m.record("FindPlaylist"); err != nil {
		return nil, err
	}
	for _, pl := range m.Playlists {
		if pl.Name == name {
			return &pl, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
}

func (m *MockLibrary) PlaylistItems(ctx context.Context, playlistID string) ([]string, error) {
	if err := m.record("PlaylistItems"); err != nil {
		return nil, err
	}
	return append([]string(nil), m.Items[playlistID]...), nil
}

func (m *MockLibrary) CreatePlaylist(ctx context.Context, target models.PlaylistTarget) (*models.Playlist, error) {
	if err := m.record("CreatePlaylist"); err != nil {
		return nil, err
	}
	m.nextID++
	m.Created = append(m.Created, target)
	pl := models.Playlist{ID: fmt.Sprintf("playlist-%d", m.nextID), Name: target.Name}
	m.Playlists = append(m.Playlists, pl)
	m.Items[pl.ID] = append([]string(nil), target.TrackIDs...)
	return &pl, nil
}

func (m *MockLibrary) AddToPlaylist(ctx context.Context, playlistID string, itemIDs []string) error {
	if err := m.record("AddToPlaylist"); err != nil {
		return err
	}
	m.Items[playlistID] = append(m.Items[playlistID], itemIDs...)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
