// package models defines the data model for the playlist importer
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// TrackDescriptor is a track as spelled by an external export.
type TrackDescriptor struct {
	TrackName  string `json:"trackName"`
	ArtistName string `json:"artistName"`
	AlbumName  string `json:"albumName"`
}

func (d TrackDescriptor) String() string {
	return fmt.Sprintf("%s - %s (%s)", d.ArtistName, d.TrackName, d.AlbumName)
}

// PlaylistImport is one playlist parsed from an import file.
type PlaylistImport struct {
	Name   string            `json:"name"`
	Tracks []TrackDescriptor `json:"tracks"`
}

// LibraryArtist is an artist item owned by the media server.
type LibraryArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LibraryAlbum is an album item owned by the media server.
type LibraryAlbum struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ProductionYear int    `json:"production_year,omitempty"`
}

// LibraryTrack is an audio item owned by the media server.
type LibraryTrack struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Album   string   `json:"album,omitempty"`
	Artists []string `json:"artists,omitempty"`
}

// Playlist is an existing playlist on the media server.
type Playlist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlaylistTarget describes a playlist to create.
type PlaylistTarget struct {
	Name     string   `json:"name"`
	TrackIDs []string `json:"track_ids"`
	Public   bool     `json:"public"`
}
