// package services defines interface Library for interacting with media server APIs
//
// Jellyfin
package services

import (
	"context"

	"github.com/desertthunder/jsi/internal/models"
)

// Library defines the interface for media servers that can resolve tracks and manage playlists.
type Library interface {
	// Name returns the name of the server implementation (e.g., "Jellyfin")
	Name() string

	// Authenticate resolves the acting user from credentials["user"].
	// Returns an error if the user does not exist or the token is rejected.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// Artist looks up an artist by exact name.
	Artist(ctx context.Context, name string) (*models.LibraryArtist, error)

	// ArtistAlbums lists an artist's albums in ascending production year.
	ArtistAlbums(ctx context.Context, artistID string) ([]models.LibraryAlbum, error)

	// AlbumTracks lists every audio item below an album.
	AlbumTracks(ctx context.Context, albumID string) ([]models.LibraryTrack, error)

	// FindPlaylist finds a playlist owned by the user by exact name.
	FindPlaylist(ctx context.Context, name string) (*models.Playlist, error)

	// PlaylistItems lists the item ids currently in a playlist.
	PlaylistItems(ctx context.Context, playlistID string) ([]string, error)

	// CreatePlaylist creates a playlist populated with target's tracks.
	CreatePlaylist(ctx context.Context, target models.PlaylistTarget) (*models.Playlist, error)

	// AddToPlaylist appends items to an existing playlist.
	AddToPlaylist(ctx context.Context, playlistID string, itemIDs []string) error
}
