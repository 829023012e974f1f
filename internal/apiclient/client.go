package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/brk3/routines/internal/server"
	"github.com/brk3/routines/internal/view"
	"github.com/brk3/routines/pkg/habit"
	"github.com/brk3/routines/pkg/versioninfo"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    http.DefaultClient,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.HTTP.Do(req)
}

func decodeErr(res *http.Response, op string) error {
	var e server.ErrorResponse
	if err := json.NewDecoder(res.Body).Decode(&e); err == nil && e.Error != "" {
		return fmt.Errorf("%s: %s", op, e.Error)
	}
	return fmt.Errorf("%s: %s", op, res.Status)
}

func (c *Client) Version(ctx context.Context) (*versioninfo.VersionInfo, error) {
	res, err := c.do(ctx, "GET", "/version", nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		return nil, decodeErr(res, "version")
	}
	var out versioninfo.VersionInfo
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListHabits(ctx context.Context) ([]habit.Habit, error) {
	res, err := c.do(ctx, "GET", "/habits", nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		return nil, decodeErr(res, "list habits")
	}
	var response server.HabitListResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, err
	}
	return response.Habits, nil
}

func (c *Client) CreateHabit(ctx context.Context, h habit.Habit) (*habit.Habit, error) {
	res, err := c.do(ctx, "POST", "/habits/", h)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != 201 {
		return nil, decodeErr(res, "create habit")
	}
	var out habit.Habit
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartHabit(ctx context.Context, id int) (*server.StartResponse, error) {
	res, err := c.do(ctx, "POST", fmt.Sprintf("/habits/%d/start", id), nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		return nil, decodeErr(res, fmt.Sprintf("start habit %d", id))
	}
	var out server.StartResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CompleteHabit(ctx context.Context, id int, notes string) (*habit.HabitCompletion, error) {
	body := map[string]string{"notes": notes}
	res, err := c.do(ctx, "POST", fmt.Sprintf("/habits/%d/complete", id), body)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		return nil, decodeErr(res, fmt.Sprintf("complete habit %d", id))
	}
	var out habit.HabitCompletion
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ExcuseHabit(ctx context.Context, id int, reason string) (*habit.HabitCompletion, error) {
	body := map[string]string{"reason": reason}
	res, err := c.do(ctx, "POST", fmt.Sprintf("/habits/%d/excuse", id), body)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		return nil, decodeErr(res, fmt.Sprintf("excuse habit %d", id))
	}
	var out habit.HabitCompletion
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Day(ctx context.Context, date string) (*habit.DailyRecord, error) {
	res, err := c.do(ctx, "GET", "/days/"+date, nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		return nil, decodeErr(res, "day "+date)
	}
	var out server.DayResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Record, nil
}

func (c *Client) DayProgress(ctx context.Context, date string) (*view.Progress, error) {
	res, err := c.do(ctx, "GET", "/days/"+date+"/progress", nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		return nil, decodeErr(res, "progress "+date)
	}
	var out view.Progress
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
