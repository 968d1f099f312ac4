// Package twitch implements the Helix API collaborator used to discover
// live streams and capture preview frames.
package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"logowatch/internal/config"
	"logowatch/internal/services"
)

// tokenSlack is subtracted from the advertised token lifetime so a token is
// refreshed before Helix starts rejecting it mid-pass.
const tokenSlack = 5 * time.Minute

// streamsBatchSize is the Helix per-request user_login cap.
const streamsBatchSize = 100

// HTTPDoer describes the HTTP client used by the Twitch service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// LiveStream describes one currently live broadcast as reported by Helix.
type LiveStream struct {
	UserLogin    string
	UserName     string
	Title        string
	GameName     string
	ViewerCount  int
	StartedAt    time.Time
	ThumbnailURL string
}

// Client talks to the Helix API with an app access token obtained through
// the client-credentials grant. The token is cached and refreshed early.
type Client struct {
	clientID     string
	clientSecret string
	authURL      string
	apiURL       string
	httpClient   HTTPDoer
	frameClient  HTTPDoer
	now          func() time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient builds a Helix client from configured credentials.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg == nil || cfg.Twitch.ClientID == "" || cfg.Twitch.ClientSecret == "" {
		return nil, services.Wrap(services.ErrConfiguration, "twitch", "new client", "client_id and client_secret are required", nil)
	}
	timeout := time.Duration(cfg.Twitch.RequestTimeout) * time.Second
	frameTimeout := time.Duration(cfg.Monitor.FrameTimeout) * time.Second
	return &Client{
		clientID:     cfg.Twitch.ClientID,
		clientSecret: cfg.Twitch.ClientSecret,
		authURL:      strings.TrimRight(cfg.Twitch.AuthURL, "/"),
		apiURL:       strings.TrimRight(cfg.Twitch.APIURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		frameClient:  &http.Client{Timeout: frameTimeout},
		now:          time.Now,
	}, nil
}

// NewClientWithHTTP builds a client against explicit endpoints and transport,
// used by tests.
func NewClientWithHTTP(clientID, clientSecret, authURL, apiURL string, doer HTTPDoer) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		authURL:      strings.TrimRight(authURL, "/"),
		apiURL:       strings.TrimRight(apiURL, "/"),
		httpClient:   doer,
		frameClient:  doer,
		now:          time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "twitch", "token", "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "twitch", "token", "request app access token", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", services.Wrap(services.ErrConfiguration, "twitch", "token", fmt.Sprintf("credentials rejected (%d)", resp.StatusCode), nil)
	default:
		return "", services.Wrap(services.ErrTransient, "twitch", "token", fmt.Sprintf("token endpoint returned %d", resp.StatusCode), nil)
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", services.Wrap(services.ErrTransient, "twitch", "token", "decode token response", err)
	}
	if payload.AccessToken == "" {
		return "", services.Wrap(services.ErrTransient, "twitch", "token", "empty access token", nil)
	}

	lifetime := time.Duration(payload.ExpiresIn) * time.Second
	if lifetime > tokenSlack {
		lifetime -= tokenSlack
	}
	c.accessToken = payload.AccessToken
	c.tokenExpiry = c.now().Add(lifetime)
	return c.accessToken, nil
}

// invalidateToken drops the cached token so the next call re-authenticates.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

type streamPayload struct {
	UserLogin    string `json:"user_login"`
	UserName     string `json:"user_name"`
	Title        string `json:"title"`
	GameName     string `json:"game_name"`
	ViewerCount  int    `json:"viewer_count"`
	StartedAt    string `json:"started_at"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type streamsResponse struct {
	Data []streamPayload `json:"data"`
}

// GetLiveStreams reports which of the given logins are currently live, in the
// order Helix returns them. Offline logins are simply absent from the result.
func (c *Client) GetLiveStreams(ctx context.Context, logins []string) ([]LiveStream, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var streams []LiveStream
	for start := 0; start < len(logins); start += streamsBatchSize {
		end := start + streamsBatchSize
		if end > len(logins) {
			end = len(logins)
		}
		batch, err := c.fetchStreamsBatch(ctx, token, logins[start:end])
		if err != nil {
			return nil, err
		}
		streams = append(streams, batch...)
	}
	return streams, nil
}

func (c *Client) fetchStreamsBatch(ctx context.Context, token string, logins []string) ([]LiveStream, error) {
	query := url.Values{}
	for _, login := range logins {
		query.Add("user_login", login)
	}
	endpoint := c.apiURL + "/streams?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "twitch", "get streams", "build request", err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "twitch", "get streams", "query streams", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		c.invalidateToken()
		return nil, services.Wrap(services.ErrConfiguration, "twitch", "get streams", "authorization rejected", nil)
	default:
		return nil, services.Wrap(services.ErrTransient, "twitch", "get streams", fmt.Sprintf("streams endpoint returned %d", resp.StatusCode), nil)
	}

	var payload streamsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrTransient, "twitch", "get streams", "decode streams response", err)
	}

	streams := make([]LiveStream, 0, len(payload.Data))
	for _, entry := range payload.Data {
		stream := LiveStream{
			UserLogin:    entry.UserLogin,
			UserName:     entry.UserName,
			Title:        entry.Title,
			GameName:     entry.GameName,
			ViewerCount:  entry.ViewerCount,
			ThumbnailURL: entry.ThumbnailURL,
		}
		if started, err := time.Parse(time.RFC3339, entry.StartedAt); err == nil {
			stream.StartedAt = started
		}
		streams = append(streams, stream)
	}
	return streams, nil
}

// frameWidth and frameHeight select the largest preview Helix renders, so the
// matcher sees the logo at close to broadcast scale.
const (
	frameWidth  = 1920
	frameHeight = 1080
)

// GetFrame downloads and decodes the current preview frame for a live stream.
// Thumbnail URLs are cached aggressively by the CDN, so a cache-busting query
// parameter forces a fresh capture.
func (c *Client) GetFrame(ctx context.Context, stream LiveStream) (image.Image, error) {
	if stream.ThumbnailURL == "" {
		return nil, services.Wrap(services.ErrNotFound, "twitch", "get frame", "stream has no thumbnail", nil)
	}
	frameURL := FrameURL(stream.ThumbnailURL, c.now())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, frameURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "twitch", "get frame", "build request", err)
	}

	resp, err := c.frameClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "twitch", "get frame", "download frame", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "twitch", "get frame", "frame not available", nil)
	default:
		return nil, services.Wrap(services.ErrTransient, "twitch", "get frame", fmt.Sprintf("frame endpoint returned %d", resp.StatusCode), nil)
	}

	frame, _, err := image.Decode(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidImage, "twitch", "get frame", "decode frame", err)
	}
	return frame, nil
}

// FrameURL fills the thumbnail size template and appends a cache buster.
func FrameURL(template string, now time.Time) string {
	filled := strings.ReplaceAll(template, "{width}", strconv.Itoa(frameWidth))
	filled = strings.ReplaceAll(filled, "{height}", strconv.Itoa(frameHeight))
	sep := "?"
	if strings.Contains(filled, "?") {
		sep = "&"
	}
	return filled + sep + "t=" + strconv.FormatInt(now.Unix(), 10)
}
