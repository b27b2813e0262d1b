// Package services defines the [Library] interface for media servers and implements it for Jellyfin.
//
// # Library Interface
//
// The reconciler only needs read access to artists, albums and tracks plus create/append on playlists,
// so the interface stays narrow and is easy to fake in tests.
//
// # Jellyfin Implementation
//
// [JellyfinService] talks to the Jellyfin REST API through a resty client:
//   - every request carries "Authorization: MediaBrowser Token=<token>"
//   - transient failures (network errors, 429, 5xx) are retried
//   - an optional token bucket limits the request rate
//
// The user id is resolved once by [JellyfinService.Authenticate] and then reused by the playlist endpoints.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingCredentials] : Authenticate() not called, or no token
//   - [shared.ErrAuthFailed] : token rejected (401/403)
//   - [shared.ErrUserNotFound] : user name not present on the server
//   - [shared.ErrArtistNotFound] : artist lookup returned 404
//   - [shared.ErrPlaylistNotFound] : no playlist with the requested name
//   - [shared.ErrAPIRequest] : any other failed request
package services
