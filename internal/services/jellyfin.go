// Jellyfin REST implementation of [Library]
//
// Response types based on https://api.jellyfin.org/
package services

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jsi/internal/models"
	"github.com/desertthunder/jsi/internal/shared"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	defaultPageSize   = 100
	playlistBatchSize = 100
	playlistFolder    = "ManualPlaylistsFolder"
)

// JellyfinItem is the subset of BaseItemDto fields the importer reads.
type JellyfinItem struct {
	ID             string   `json:"Id"`
	Name           string   `json:"Name"`
	Type           string   `json:"Type"`
	ProductionYear int      `json:"ProductionYear"`
	Album          string   `json:"Album"`
	Artists        []string `json:"Artists"`
}

// JellyfinItemsResult is a page of items returned by the /Items endpoints.
type JellyfinItemsResult struct {
	Items            []JellyfinItem `json:"Items"`
	TotalRecordCount int            `json:"TotalRecordCount"`
	StartIndex       int            `json:"StartIndex"`
}

// JellyfinUser represents an account returned by GET /Users.
type JellyfinUser struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

type createPlaylistRequest struct {
	Name      string   `json:"Name"`
	Ids       []string `json:"Ids"`
	UserID    string   `json:"UserId"`
	MediaType string   `json:"MediaType"`
	IsPublic  bool     `json:"IsPublic"`
}

type createPlaylistResponse struct {
	ID string `json:"Id"`
}

// JellyfinOpts configures a [JellyfinService].
type JellyfinOpts struct {
	BaseURL   string
	Token     string
	SkipTLS   bool
	Timeout   time.Duration // zero disables the client timeout
	Retries   int
	RetryWait time.Duration
	RateLimit float64 // requests per second, zero disables limiting
	PageSize  int
	Logger    *log.Logger
}

// JellyfinService implements [Library] for a Jellyfin server.
type JellyfinService struct {
	client   *resty.Client
	logger   *log.Logger
	pageSize int
	userID   string
	folderID string
}

// NewJellyfinService creates a Jellyfin client with the given options.
func NewJellyfinService(opts JellyfinOpts) (*JellyfinService, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: jellyfin url", shared.ErrMissingConfig)
	}
	if opts.Token == "" {
		return nil, fmt.Errorf("%w: jellyfin token", shared.ErrMissingCredentials)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Authorization", "MediaBrowser Token="+opts.Token).
		SetHeader("Accept", "application/json").
		SetLogger(opts.Logger).
		SetRetryCount(opts.Retries).
		AddRetryCondition(retryable)

	if opts.RetryWait > 0 {
		client.SetRetryWaitTime(opts.RetryWait).SetRetryMaxWaitTime(opts.RetryWait * 4)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.SkipTLS {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec
	}
	if opts.RateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
		client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			return limiter.Wait(r.Context())
		})
	}

	logger := opts.Logger
	client.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
		logger.Debug("jellyfin", "method", r.Request.Method, "url", r.Request.URL, "status", r.StatusCode(), "took", r.Time())
		return nil
	})

	return &JellyfinService{client: client, logger: logger, pageSize: opts.PageSize}, nil
}

func retryable(r *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if r == nil {
		return false
	}
	return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
}

// Name returns the display name of the server implementation.
func (j *JellyfinService) Name() string {
	return "Jellyfin"
}

// UserID returns the id resolved by [JellyfinService.Authenticate].
func (j *JellyfinService) UserID() string {
	return j.userID
}

// Authenticate resolves credentials["user"] to a Jellyfin user id.
//
// The token itself is validated by the request: a 401/403 surfaces as [shared.ErrAuthFailed].
func (j *JellyfinService) Authenticate(ctx context.Context, credentials map[string]string) error {
	name, ok := credentials["user"]
	if !ok || name == "" {
		return fmt.Errorf("%w: missing user in credentials", shared.ErrMissingCredentials)
	}

	var users []JellyfinUser
	if err := j.execute(j.client.R().SetContext(ctx), http.MethodGet, "/Users", &users); err != nil {
		return err
	}

	for _, u := range users {
		if u.Name == name {
			j.userID = u.ID
			j.folderID = ""
			return nil
		}
	}
	return fmt.Errorf("%w: %s", shared.ErrUserNotFound, name)
}

func (j *JellyfinService) execute(req *resty.Request, method, endpoint string, result any) error {
	resp, err := req.Execute(method, endpoint)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, method, endpoint, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s (status %d)", shared.ErrAuthFailed, method, endpoint, code)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, method, endpoint)
	case resp.IsError() || code >= http.StatusMultipleChoices:
		return fmt.Errorf("%w: %s %s (status %d): %s", shared.ErrAPIRequest, method, endpoint, code, snippet(resp.Body()))
	}

	if result == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrAPIRequest, endpoint, err)
	}
	return nil
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

func (j *JellyfinService) requireUser() error {
	if j.userID == "" {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrMissingCredentials)
	}
	return nil
}

// Artist looks up an artist by name.
//
// Calls GET /Artists/{name}. A 404 is reported as [shared.ErrArtistNotFound].
func (j *JellyfinService) Artist(ctx context.Context, name string) (*models.LibraryArtist, error) {
	var item JellyfinItem
	req := j.client.R().SetContext(ctx).SetPathParam("name", name)
	if err := j.execute(req, http.MethodGet, "/Artists/{name}", &item); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrArtistNotFound, name)
		}
		return nil, err
	}

	if item.ID == "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrArtistNotFound, name)
	}
	return &models.LibraryArtist{ID: item.ID, Name: item.Name}, nil
}

// ArtistAlbums lists albums below an artist ordered by production year.
//
// Calls GET /Items?parentId={id}&includeItemTypes=MusicAlbum&sortBy=ProductionYear&sortOrder=Ascending.
func (j *JellyfinService) ArtistAlbums(ctx context.Context, artistID string) ([]models.LibraryAlbum, error) {
	var result JellyfinItemsResult
	req := j.client.R().SetContext(ctx).SetQueryParams(map[string]string{
		"parentId":         artistID,
		"includeItemTypes": "MusicAlbum",
		"sortBy":           "ProductionYear",
		"sortOrder":        "Ascending",
	})
	if err := j.execute(req, http.MethodGet, "/Items", &result); err != nil {
		return nil, err
	}

	albums := make([]models.LibraryAlbum, len(result.Items))
	for i, item := range result.Items {
		albums[i] = models.LibraryAlbum{ID: item.ID, Name: item.Name, ProductionYear: item.ProductionYear}
	}
	return albums, nil
}

// AlbumTracks lists every audio item below an album, following pages of PageSize items.
//
// Calls GET /Items?parentId={id}&recursive=true&mediaTypes=Audio&startIndex=&limit=.
func (j *JellyfinService) AlbumTracks(ctx context.Context, albumID string) ([]models.LibraryTrack, error) {
	var tracks []models.LibraryTrack
	for start := 0; ; {
		var page JellyfinItemsResult
		req := j.client.R().SetContext(ctx).SetQueryParams(map[string]string{
			"parentId":   albumID,
			"recursive":  "true",
			"mediaTypes": "Audio",
			"startIndex": strconv.Itoa(start),
			"limit":      strconv.Itoa(j.pageSize),
		})
		if err := j.execute(req, http.MethodGet, "/Items", &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			tracks = append(tracks, models.LibraryTrack{
				ID:      item.ID,
				Name:    item.Name,
				Album:   item.Album,
				Artists: item.Artists,
			})
		}

		start += len(page.Items)
		if len(page.Items) < j.pageSize || (page.TotalRecordCount > 0 && start >= page.TotalRecordCount) {
			break
		}
	}
	return tracks, nil
}

func (j *JellyfinService) userItems(ctx context.Context, parentID string) (*JellyfinItemsResult, error) {
	var result JellyfinItemsResult
	req := j.client.R().SetContext(ctx).SetPathParam("user", j.userID)
	if parentID != "" {
		req.SetQueryParam("ParentId", parentID)
	}
	if err := j.execute(req, http.MethodGet, "/Users/{user}/Items", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FindPlaylist finds a playlist in the user's playlists folder by exact name.
//
// Calls GET /Users/{user}/Items to locate the ManualPlaylistsFolder, then lists its children.
func (j *JellyfinService) FindPlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	if err := j.requireUser(); err != nil {
		return nil, err
	}

	if j.folderID == "" {
		root, err := j.userItems(ctx, "")
		if err != nil {
			return nil, err
		}
		for _, item := range root.Items {
			if item.Type == playlistFolder {
				j.folderID = item.ID
				break
			}
		}
		if j.folderID == "" {
			return nil, fmt.Errorf("%w: %s (no playlists folder)", shared.ErrPlaylistNotFound, name)
		}
	}

	children, err := j.userItems(ctx, j.folderID)
	if err != nil {
		return nil, err
	}
	for _, item := range children.Items {
		if item.Name == name {
			return &models.Playlist{ID: item.ID, Name: item.Name}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
}

// PlaylistItems lists the item ids of a playlist.
//
// Calls GET /Playlists/{id}/Items?userId={user}.
func (j *JellyfinService) PlaylistItems(ctx context.Context, playlistID string) ([]string, error) {
	if err := j.requireUser(); err != nil {
		return nil, err
	}

	var result JellyfinItemsResult
	req := j.client.R().SetContext(ctx).
		SetPathParam("id", playlistID).
		SetQueryParam("userId", j.userID)
	if err := j.execute(req, http.MethodGet, "/Playlists/{id}/Items", &result); err != nil {
		return nil, err
	}

	ids := make([]string, len(result.Items))
	for i, item := range result.Items {
		ids[i] = item.ID
	}
	return ids, nil
}

// CreatePlaylist creates an audio playlist owned by the user.
//
// Calls POST /Playlists.
func (j *JellyfinService) CreatePlaylist(ctx context.Context, target models.PlaylistTarget) (*models.Playlist, error) {
	if err := j.requireUser(); err != nil {
		return nil, err
	}

	var created createPlaylistResponse
	req := j.client.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(createPlaylistRequest{
			Name:      target.Name,
			Ids:       target.TrackIDs,
			UserID:    j.userID,
			MediaType: "Audio",
			IsPublic:  target.Public,
		})
	if err := j.execute(req, http.MethodPost, "/Playlists", &created); err != nil {
		return nil, err
	}

	return &models.Playlist{ID: created.ID, Name: target.Name}, nil
}

// AddToPlaylist appends items to a playlist in batches.
//
// Calls POST /Playlists/{id}/Items?ids=a,b&userId={user}.
func (j *JellyfinService) AddToPlaylist(ctx context.Context, playlistID string, itemIDs []string) error {
	if err := j.requireUser(); err != nil {
		return err
	}

	for start := 0; start < len(itemIDs); start += playlistBatchSize {
		end := min(start+playlistBatchSize, len(itemIDs))
		req := j.client.R().SetContext(ctx).
			SetPathParam("id", playlistID).
			SetQueryParams(map[string]string{
				"ids":    strings.Join(itemIDs[start:end], ","),
				"userId": j.userID,
			})
		if err := j.execute(req, http.MethodPost, "/Playlists/{id}/Items", nil); err != nil {
			return err
		}
	}
	return nil
}

var _ Library = (*JellyfinService)(nil)
