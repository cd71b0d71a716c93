package announcer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/rs/zerolog/log"
)

// TwitterCredentials are the static OAuth 1.0a user-context keys
type TwitterCredentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// TwitterAnnouncer posts through the X API v2
type TwitterAnnouncer struct {
	baseURL    string
	httpClient *http.Client
}

// NewTwitterAnnouncer creates an announcer whose requests are OAuth1-signed
func NewTwitterAnnouncer(baseURL string, creds TwitterCredentials, timeout time.Duration) *TwitterAnnouncer {
	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)

	httpClient := config.Client(context.Background(), token)
	httpClient.Timeout = timeout

	return &TwitterAnnouncer{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type userResponse struct {
	Data struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
}

// VerifyCredentials checks the keys and returns the account's username
func (a *TwitterAnnouncer) VerifyCredentials(ctx context.Context) (string, error) {
	body, err := a.do(ctx, http.MethodGet, "/2/users/me", nil, http.StatusOK)
	if err != nil {
		return "", err
	}

	var user userResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return "", &PublishError{Channel: "twitter", Kind: KindRejected, Err: fmt.Errorf("failed to decode user: %w", err)}
	}

	return user.Data.Username, nil
}

// Publish posts text as a new tweet
func (a *TwitterAnnouncer) Publish(ctx context.Context, text string) error {
	payload, err := json.Marshal(tweetRequest{Text: text})
	if err != nil {
		return &PublishError{Channel: "twitter", Kind: KindRejected, Err: err}
	}

	body, err := a.do(ctx, http.MethodPost, "/2/tweets", payload, http.StatusCreated)
	if err != nil {
		return err
	}

	var tweet tweetResponse
	if err := json.Unmarshal(body, &tweet); err != nil {
		// Already posted; a bad body must not trigger a repost
		log.Warn().Err(err).Msg("Failed to decode tweet response")
		return nil
	}

	log.Info().Str("tweet_id", tweet.Data.ID).Msg("Tweet posted")
	return nil
}

func (a *TwitterAnnouncer) do(ctx context.Context, method, path string, payload []byte, want int) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return nil, &PublishError{Channel: "twitter", Kind: KindRejected, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &PublishError{Channel: "twitter", Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &PublishError{Channel: "twitter", Kind: KindNetwork, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != want {
		return nil, &PublishError{
			Channel:    "twitter",
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        errors.New(truncate(body)),
		}
	}

	return body, nil
}

// classifyStatus maps an HTTP status to a publish error kind
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 500:
		return KindNetwork
	default:
		return KindRejected
	}
}

func truncate(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
