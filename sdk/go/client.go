package spycatssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Spy Cat Agency HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Cat represents the API spy cat model.
type Cat struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	YearsOfExperience int     `json:"years_of_experience"`
	Breed             string  `json:"breed"`
	Salary            float64 `json:"salary"`
	MissionID         *string `json:"mission_id,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

// Target represents a mission sub-objective.
type Target struct {
	ID          string `json:"id"`
	MissionID   string `json:"mission_id"`
	Name        string `json:"name"`
	Country     string `json:"country"`
	Notes       string `json:"notes"`
	IsCompleted bool   `json:"is_completed"`
	CreatedAt   string `json:"created_at"`
}

// Mission represents a mission with its targets.
type Mission struct {
	ID          string   `json:"id"`
	CatID       *string  `json:"cat_id,omitempty"`
	IsCompleted bool     `json:"is_completed"`
	Targets     []Target `json:"targets"`
	CreatedAt   string   `json:"created_at"`
}

// TargetInput is a target proposed at mission creation.
type TargetInput struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Message wraps confirmation responses.
type Message struct {
	Message string `json:"message"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

type catList struct {
	Items []Cat `json:"items"`
}

type missionList struct {
	Items []Mission `json:"items"`
}

// CreateCat recruits a cat.
func (c *Client) CreateCat(ctx context.Context, name string, years int, breed string, salary float64) (Cat, error) {
	body := map[string]any{
		"name":                name,
		"years_of_experience": years,
		"breed":               breed,
		"salary":              salary,
	}
	var resp Cat
	err := c.do(ctx, http.MethodPost, "cats", nil, body, &resp)
	return resp, err
}

// ListCats pages through cats.
func (c *Client) ListCats(ctx context.Context, skip, limit int) ([]Cat, error) {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", fmt.Sprint(skip))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	var resp catList
	err := c.do(ctx, http.MethodGet, "cats", q, nil, &resp)
	return resp.Items, err
}

// GetCat fetches one cat.
func (c *Client) GetCat(ctx context.Context, id string) (Cat, error) {
	var resp Cat
	err := c.do(ctx, http.MethodGet, "cats/"+id, nil, nil, &resp)
	return resp, err
}

// UpdateSalary sets a cat's salary.
func (c *Client) UpdateSalary(ctx context.Context, id string, salary float64) (Cat, error) {
	var resp Cat
	err := c.do(ctx, http.MethodPut, "cats/"+id, nil, map[string]any{"salary": salary}, &resp)
	return resp, err
}

// DeleteCat dismisses a cat; fails while it is assigned to a mission.
func (c *Client) DeleteCat(ctx context.Context, id string) error {
	var resp Message
	return c.do(ctx, http.MethodDelete, "cats/"+id, nil, nil, &resp)
}

// CreateMission creates a mission with 1-3 targets, optionally assigning a cat.
func (c *Client) CreateMission(ctx context.Context, catID string, targets []TargetInput) (Mission, error) {
	body := map[string]any{"targets": targets}
	if catID != "" {
		body["cat_id"] = catID
	}
	var resp Mission
	err := c.do(ctx, http.MethodPost, "missions", nil, body, &resp)
	return resp, err
}

// ListMissions pages through missions.
func (c *Client) ListMissions(ctx context.Context, skip, limit int) ([]Mission, error) {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", fmt.Sprint(skip))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	var resp missionList
	err := c.do(ctx, http.MethodGet, "missions", q, nil, &resp)
	return resp.Items, err
}

// GetMission fetches a mission with its targets.
func (c *Client) GetMission(ctx context.Context, id string) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodGet, "missions/"+id, nil, nil, &resp)
	return resp, err
}

// DeleteMission removes a mission and its targets.
func (c *Client) DeleteMission(ctx context.Context, id string) error {
	var resp Message
	return c.do(ctx, http.MethodDelete, "missions/"+id, nil, nil, &resp)
}

// UpdateTarget changes target notes and/or completion.
func (c *Client) UpdateTarget(ctx context.Context, id string, notes *string, isCompleted *bool) (Target, error) {
	body := map[string]any{}
	if notes != nil {
		body["notes"] = *notes
	}
	if isCompleted != nil {
		body["is_completed"] = *isCompleted
	}
	var resp Target
	err := c.do(ctx, http.MethodPut, "targets/"+id, nil, body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, p string, query url.Values, body, out any) error {
	base := strings.TrimSuffix(c.BaseURL, "/")
	u := base + "/" + p
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := c.HTTPClient
	if client == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &APIError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
