// YouTube Data API v3 [PlaylistItemService] implementation
//
// Talks to the playlistItems resource directly. Write access needs an OAuth2 token with the youtube scope;
// the service refreshes it from a stored refresh token.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"golang.org/x/oauth2"
)

const (
	defaultYTBaseURL  = "https://www.googleapis.com/youtube/v3"
	defaultYTTokenURL = "https://oauth2.googleapis.com/token"
	youtubeScope      = "https://www.googleapis.com/auth/youtube"

	// PageSize is the maximum page size accepted by playlistItems.list.
	PageSize = 50
)

// YouTubeService implements [PlaylistItemService] against the YouTube Data API.
type YouTubeService struct {
	baseURL    string
	httpClient *http.Client
}

// NewYouTubeService creates a service authenticated with the OAuth2 refresh token from conf.
//
// The returned client refreshes access tokens on demand through [oauth2.Config.Client].
func NewYouTubeService(ctx context.Context, conf shared.YouTubeConfig) (*YouTubeService, error) {
	if conf.ClientID == "" || conf.ClientSecret == "" || conf.RefreshToken == "" {
		return nil, fmt.Errorf("%w: youtube client_id, client_secret and refresh_token are required", shared.ErrMissingCredentials)
	}

	tokenURL := conf.TokenURL
	if tokenURL == "" {
		tokenURL = defaultYTTokenURL
	}

	oauthConf := &oauth2.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		Scopes:       []string{youtubeScope},
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}

	token := &oauth2.Token{RefreshToken: conf.RefreshToken}
	return NewYouTubeServiceWithClient(conf.BaseURL, oauthConf.Client(ctx, token)), nil
}

// NewYouTubeServiceWithClient creates a service that sends every request through client.
// The client is expected to add authorization itself.
func NewYouTubeServiceWithClient(baseURL string, client *http.Client) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &YouTubeService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube"
}

type playlistItemListResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type resourceID struct {
	Kind    string `json:"kind"`
	VideoID string `json:"videoId"`
}

type playlistItemSnippet struct {
	PlaylistID string     `json:"playlistId"`
	ResourceID resourceID `json:"resourceId"`
	Position   *int       `json:"position,omitempty"`
}

type playlistItemResource struct {
	ID      string              `json:"id,omitempty"`
	Snippet playlistItemSnippet `json:"snippet"`
}

// ListPage retrieves one page of up to [PageSize] items.
//
// Calls GET /playlistItems?part=id,contentDetails.
func (y *YouTubeService) ListPage(ctx context.Context, playlistID, pageToken string) (*PlaylistItemPage, error) {
	query := url.Values{}
	query.Set("part", "id,contentDetails")
	query.Set("playlistId", playlistID)
	query.Set("maxResults", strconv.Itoa(PageSize))
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	var resp playlistItemListResponse
	if err := y.doRequest(ctx, "list", http.MethodGet, query, nil, &resp); err != nil {
		return nil, err
	}

	page := &PlaylistItemPage{
		Items:         make([]RemoteItem, 0, len(resp.Items)),
		NextPageToken: resp.NextPageToken,
	}
	for _, item := range resp.Items {
		if item.ContentDetails.VideoID == "" {
			continue
		}
		page.Items = append(page.Items, RemoteItem{
			ItemID:  item.ID,
			VideoID: models.VideoID(item.ContentDetails.VideoID),
		})
	}

	return page, nil
}

// Insert adds videoID to the playlist.
//
// Calls POST /playlistItems?part=snippet. A nil position appends to the end.
func (y *YouTubeService) Insert(ctx context.Context, playlistID string, videoID models.VideoID, position *int) (string, error) {
	query := url.Values{}
	query.Set("part", "snippet")

	body := playlistItemResource{
		Snippet: playlistItemSnippet{
			PlaylistID: playlistID,
			ResourceID: resourceID{Kind: "youtube#video", VideoID: string(videoID)},
			Position:   position,
		},
	}

	var created playlistItemResource
	if err := y.doRequest(ctx, "insert", http.MethodPost, query, body, &created); err != nil {
		return "", err
	}

	return created.ID, nil
}

// Delete removes a playlist item by its handle.
//
// Calls DELETE /playlistItems?id=. playlistID is only used for error context.
func (y *YouTubeService) Delete(ctx context.Context, playlistID, itemID string) error {
	query := url.Values{}
	query.Set("id", itemID)

	if err := y.doRequest(ctx, "delete", http.MethodDelete, query, nil, nil); err != nil {
		return fmt.Errorf("playlist %s: %w", playlistID, err)
	}
	return nil
}

// doRequest performs one request against /playlistItems and decodes the JSON response into result.
//
// Transport failures are wrapped as [shared.ErrTransientRemote] unless ctx is done.
func (y *YouTubeService) doRequest(ctx context.Context, op, method string, query url.Values, body, result any) error {
	apiURL := y.baseURL + "/playlistItems?" + query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := y.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return fmt.Errorf("%w: youtube %s: token refresh failed: %v", shared.ErrPermanentRemote, op, err)
		}
		return fmt.Errorf("%w: youtube %s: %v", shared.ErrTransientRemote, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(op, resp)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}

	return nil
}

func decodeAPIError(op string, resp *http.Response) *APIError {
	apiErr := &APIError{Op: op, StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope googleError
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Code != 0 {
		apiErr.Message = envelope.Error.Message
		if len(envelope.Error.Errors) > 0 {
			apiErr.Reason = envelope.Error.Errors[0].Reason
		}
	} else if text := strings.TrimSpace(string(data)); text != "" {
		apiErr.Message = text
	}

	return apiErr
}
