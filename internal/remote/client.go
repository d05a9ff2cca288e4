// Package remote provides the HTTP client for the cloud habit store. The
// client performs single-record atomic upserts and deletes scoped to a user
// id; batch semantics (cascading habit deletes) are the server's concern.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/strideapp/habitsync/internal/models"
)

// Store defines the remote operations the sync engine depends on
type Store interface {
	UpsertHabit(ctx context.Context, habit *models.Habit, userID uuid.UUID) error
	FetchHabits(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error)
	DeleteHabit(ctx context.Context, id uuid.UUID, userID uuid.UUID) error

	UpsertCompletion(ctx context.Context, completion *models.Completion, userID uuid.UUID) error
	FetchCompletions(ctx context.Context, userID uuid.UUID) ([]*models.Completion, error)
	DeleteCompletion(ctx context.Context, habitID uuid.UUID, date time.Time, userID uuid.UUID) error
}

// Client is the HTTP implementation of Store
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a remote store client. token is sent as a bearer token on
// every request.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// UpsertHabit creates or replaces a habit document remotely
func (c *Client) UpsertHabit(ctx context.Context, habit *models.Habit, userID uuid.UUID) error {
	path := fmt.Sprintf("/v1/users/%s/habits/%s", userID, habit.ID)
	return c.do(ctx, http.MethodPut, path, habit, nil)
}

// FetchHabits retrieves all habit documents for a user
func (c *Client) FetchHabits(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error) {
	path := fmt.Sprintf("/v1/users/%s/habits", userID)
	var habits []*models.Habit
	if err := c.do(ctx, http.MethodGet, path, nil, &habits); err != nil {
		return nil, err
	}
	return habits, nil
}

// DeleteHabit deletes a habit document and all its completion documents as a
// single atomic batch on the remote side.
func (c *Client) DeleteHabit(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	path := fmt.Sprintf("/v1/users/%s/habits/%s", userID, id)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// UpsertCompletion creates or replaces a completion document remotely
func (c *Client) UpsertCompletion(ctx context.Context, completion *models.Completion, userID uuid.UUID) error {
	path := fmt.Sprintf("/v1/users/%s/completions/%s", userID, completion.ID)
	return c.do(ctx, http.MethodPut, path, completion, nil)
}

// FetchCompletions retrieves all completion documents for a user
func (c *Client) FetchCompletions(ctx context.Context, userID uuid.UUID) ([]*models.Completion, error) {
	path := fmt.Sprintf("/v1/users/%s/completions", userID)
	var completions []*models.Completion
	if err := c.do(ctx, http.MethodGet, path, nil, &completions); err != nil {
		return nil, err
	}
	return completions, nil
}

// DeleteCompletion deletes the completion document for a habit on a date
func (c *Client) DeleteCompletion(ctx context.Context, habitID uuid.UUID, date time.Time, userID uuid.UUID) error {
	path := fmt.Sprintf("/v1/users/%s/habits/%s/completions/%s",
		userID, habitID, url.PathEscape(models.FormatDate(date)))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, ErrUnavailable)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusNotFound && method == http.MethodDelete:
		// Deleting an absent record is a no-op, not an error
		return nil
	default:
		return statusError(fmt.Sprintf("%s %s", method, path), resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Ensure Client implements Store
var _ Store = (*Client)(nil)
