// Package videosdk talks to the hosted video conferencing service: it signs
// participant access tokens and creates meeting rooms.
package videosdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotConfigured is returned when the API key or secret is missing.
var ErrNotConfigured = errors.New("videosdk: api key and secret must be configured")

// Claims are the access token claims the video service expects.
type Claims struct {
	APIKey        string   `json:"apikey"`
	Roles         []string `json:"roles,omitempty"`
	Permissions   []string `json:"permissions"`
	Version       int      `json:"version"`
	RoomID        string   `json:"roomId,omitempty"`
	ParticipantID string   `json:"participantId,omitempty"`
	jwt.RegisteredClaims
}

type Client struct {
	apiKey     string
	secret     string
	baseURL    string
	tokenTTL   time.Duration
	httpClient *http.Client
	now        func() time.Time
}

func New(apiKey, secret, baseURL string, tokenTTL time.Duration) *Client {
	if tokenTTL <= 0 {
		tokenTTL = 2 * time.Hour
	}
	return &Client{
		apiKey:     apiKey,
		secret:     secret,
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokenTTL:   tokenTTL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
}

// Token signs an HS256 access token. roomID and participantID scope the token
// when non-empty; an unscoped token may create rooms.
func (c *Client) Token(roomID, participantID string) (string, error) {
	if c.apiKey == "" || c.secret == "" {
		return "", ErrNotConfigured
	}
	now := c.now()
	claims := &Claims{
		APIKey:        c.apiKey,
		Permissions:   []string{"allow_join"},
		Version:       2,
		RoomID:        roomID,
		ParticipantID: participantID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.tokenTTL)),
		},
	}
	if roomID == "" {
		claims.Roles = []string{"crawler"}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.secret))
	if err != nil {
		return "", fmt.Errorf("videosdk: sign token: %w", err)
	}
	return signed, nil
}

// Room is a created meeting room.
type Room struct {
	RoomID string `json:"roomId"`
}

// CreateRoom asks the video service for a new room.
func (c *Client) CreateRoom(ctx context.Context) (Room, error) {
	token, err := c.Token("", "")
	if err != nil {
		return Room{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/rooms", strings.NewReader("{}"))
	if err != nil {
		return Room{}, fmt.Errorf("videosdk: build request: %w", err)
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Room{}, fmt.Errorf("videosdk: create room: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Room{}, fmt.Errorf("videosdk: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Room{}, fmt.Errorf("videosdk: create room: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var room Room
	if err := json.Unmarshal(body, &room); err != nil {
		return Room{}, fmt.Errorf("videosdk: decode room: %w", err)
	}
	if room.RoomID == "" {
		return Room{}, fmt.Errorf("videosdk: response missing roomId")
	}
	return room, nil
}
