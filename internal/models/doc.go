// Package models defines the domain entities shared by the importer, the reconciler and the Jellyfin client.
//
// The package contains three groups of types:
//
// 1. Import side: what an external export describes
//   - [TrackDescriptor] : track, artist and album names in the external spelling
//   - [PlaylistImport] : a named, ordered list of descriptors
//
// 2. Library side: what the media server owns
//   - [LibraryArtist], [LibraryAlbum], [LibraryTrack] : remote identifiers plus display names
//   - [Playlist] : an existing remote playlist
//   - [PlaylistTarget] : a playlist to create, with its resolved track identifiers
//
// 3. Run history: persisted outcomes of an import
//   - [RunRecord] : one import invocation, implements [Model]
//   - [PlaylistRecord] : what happened to one playlist in a run
//   - [UnresolvedRecord] : a descriptor that could not be matched
package models
