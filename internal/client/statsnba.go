package client

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
	"time"

	"finalscore/bot/internal/metrics"
	"finalscore/bot/internal/models"

	"github.com/rs/zerolog/log"
)

// Endpoints
const (
	EndpointLeagueGameFinder = "leaguegamefinder"
	EndpointLeagueStandings  = "leaguestandingsv3"
)

// LeagueNBA is the provider's league id for the NBA
const LeagueNBA = "00"

// Client is the NBA stats API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a new NBA stats API client
func NewClient(baseURL string, timeout time.Duration, maxRetries int, retryDelay time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// resultSet is the tabular block every stats endpoint returns
type resultSet struct {
	Name    string          `json:"name"`
	Headers []string        `json:"headers"`
	RowSet  [][]interface{} `json:"rowSet"`
}

type statsResponse struct {
	ResultSets []resultSet `json:"resultSets"`
}

// get performs a GET request to the stats API with retry logic
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			var ra *retryAfterError
			if errors.As(lastErr, &ra) {
				backoff = ra.delay
			}
			log.Info().
				Str("url", reqURL).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, retry, err := c.do(ctx, reqURL)
		if err == nil {
			metrics.RecordAPICall(endpoint, "success", time.Since(start).Seconds())
			return body, nil
		}

		lastErr = err
		if !retry || attempt == c.maxRetries {
			break
		}
	}

	metrics.RecordAPICall(endpoint, "error", time.Since(start).Seconds())
	return nil, lastErr
}

// retryAfterError carries a server-provided delay before the next attempt
type retryAfterError struct {
	status int
	delay  time.Duration
}

func (e *retryAfterError) Error() string {
	return fmt.Sprintf("API returned status %d, retry after %s", e.status, e.delay)
}

// do performs one attempt. The bool reports whether the failure is retryable.
func (c *Client) do(ctx context.Context, reqURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	// stats.nba.com drops requests that do not look like they come from nba.com
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Referer", "https://www.nba.com/")
	req.Header.Set("Origin", "https://www.nba.com")
	req.Header.Set("x-nba-stats-origin", "stats")
	req.Header.Set("x-nba-stats-token", "true")

	log.Debug().
		Str("url", reqURL).
		Str("method", req.Method).
		Msg("Making API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Retry on network errors
		return nil, ctx.Err() == nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		log.Debug().
			Str("url", reqURL).
			Int("status", resp.StatusCode).
			Int("size", len(body)).
			Msg("API request successful")
		return body, false, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				return nil, true, &retryAfterError{status: resp.StatusCode, delay: time.Duration(secs) * time.Second}
			}
		}
		log.Warn().
			Str("url", reqURL).
			Int("status", resp.StatusCode).
			Msg("Received retryable error, will retry")
		return nil, true, fmt.Errorf("API returned retryable status %d: %s", resp.StatusCode, truncate(body))

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Don't retry auth errors
		return nil, false, fmt.Errorf("API rejected request (status %d): %s", resp.StatusCode, truncate(body))

	default:
		return nil, false, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(body))
	}
}

func truncate(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// FetchTeamGames fetches every team's game line for one date
func (c *Client) FetchTeamGames(ctx context.Context, date time.Time) ([]models.TeamGameRow, error) {
	day := date.Format("01/02/2006")
	params := url.Values{}
	params.Set("PlayerOrTeam", "T")
	params.Set("LeagueID", LeagueNBA)
	params.Set("DateFrom", day)
	params.Set("DateTo", day)

	body, err := c.get(ctx, EndpointLeagueGameFinder, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch team games: %w", err)
	}

	set, err := decodeResultSet(body, "LeagueGameFinderResults")
	if err != nil {
		return nil, fmt.Errorf("failed to decode team games: %w", err)
	}

	rows := make([]models.TeamGameRow, 0, len(set.RowSet))
	for _, raw := range set.RowSet {
		r := newRowReader(set.Headers, raw)
		pts, err := r.integer("PTS")
		if err != nil {
			log.Warn().Err(err).Str("game_id", r.str("GAME_ID")).Msg("Skipping row with unreadable points")
			continue
		}
		rows = append(rows, models.TeamGameRow{
			SeasonID:         r.str("SEASON_ID"),
			TeamID:           r.str("TEAM_ID"),
			TeamAbbreviation: r.str("TEAM_ABBREVIATION"),
			TeamName:         r.str("TEAM_NAME"),
			GameID:           r.str("GAME_ID"),
			GameDate:         r.str("GAME_DATE"),
			Matchup:          r.str("MATCHUP"),
			WL:               r.str("WL"),
			Points:           pts,
		})
	}

	log.Debug().Int("count", len(rows)).Str("date", models.FormatDate(date)).Msg("Team games fetched")
	return rows, nil
}

// FetchStandings fetches current standings for the season containing date
func (c *Client) FetchStandings(ctx context.Context, date time.Time) ([]models.Standing, error) {
	params := url.Values{}
	params.Set("LeagueID", LeagueNBA)
	params.Set("Season", SeasonForDate(date))
	params.Set("SeasonType", "Regular Season")

	body, err := c.get(ctx, EndpointLeagueStandings, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch standings: %w", err)
	}

	set, err := decodeResultSet(body, "Standings")
	if err != nil {
		return nil, fmt.Errorf("failed to decode standings: %w", err)
	}

	standings := make([]models.Standing, 0, len(set.RowSet))
	for _, raw := range set.RowSet {
		r := newRowReader(set.Headers, raw)
		standings = append(standings, models.Standing{
			TeamID:   r.str("TeamID"),
			TeamName: r.str("TeamName"),
			Record:   r.str("Record"),
		})
	}

	return standings, nil
}

// SeasonForDate returns the provider's season label, e.g. "2023-24".
// Seasons start in October.
func SeasonForDate(date time.Time) string {
	start := date.Year()
	if date.Month() < time.October {
		start--
	}
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}

func decodeResultSet(body []byte, name string) (*resultSet, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber() // Keep numeric ids exact

	var resp statsResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, err
	}

	for i := range resp.ResultSets {
		if resp.ResultSets[i].Name == name {
			return &resp.ResultSets[i], nil
		}
	}
	if len(resp.ResultSets) == 1 {
		return &resp.ResultSets[0], nil
	}

	return nil, fmt.Errorf("result set %q not found", name)
}

// rowReader reads cells of one row by header name
type rowReader struct {
	index map[string]int
	row   []interface{}
}

func newRowReader(headers []string, row []interface{}) rowReader {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}
	return rowReader{index: index, row: row}
}

func (r rowReader) str(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.row) {
		return ""
	}
	switch v := r.row[i].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (r rowReader) integer(column string) (int, error) {
	s := r.str(column)
	if s == "" {
		return 0, fmt.Errorf("column %s is empty", column)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", column, err)
	}
	return n, nil
}
