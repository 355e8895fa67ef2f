// Package kie implements whiteboard.Generator against the kie.ai job API:
// a task is created with POST /createTask and polled with GET /recordInfo
// until it succeeds or fails.
package kie

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3/client"
	"golang.org/x/sync/errgroup"

	"github.com/meikuraledutech/whiteboard"
)

const (
	DefaultBaseURL      = "https://api.kie.ai/api/v1/jobs"
	DefaultPollInterval = 2 * time.Second
)

// Client is safe for concurrent use.
type Client struct {
	http     *client.Client
	settings whiteboard.Settings
	baseURL  string
	poll     time.Duration
	log      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another job endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithPollInterval sets the delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.poll = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client that reads its API key from settings on every call.
func New(settings whiteboard.Settings, opts ...Option) *Client {
	c := &Client{
		http:     client.New(),
		settings: settings,
		baseURL:  DefaultBaseURL,
		poll:     DefaultPollInterval,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Generate runs req.BatchSize tasks concurrently and returns one URL per
// task. If any task fails the whole batch fails.
func (c *Client) Generate(ctx context.Context, req whiteboard.GenerateRequest) ([]string, error) {
	key, err := c.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	batch := req.BatchSize
	if batch < 1 {
		batch = 1
	}
	c.log.Info("submitting generation batch", "batch", batch, "model", req.Model)

	urls := make([]string, batch)
	g, gctx := errgroup.WithContext(ctx)
	for i := range batch {
		g.Go(func() error {
			u, err := c.runTask(gctx, key, req)
			if err != nil {
				return err
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

func (c *Client) apiKey(ctx context.Context) (string, error) {
	key, err := whiteboard.SettingOrEmpty(ctx, c.settings, whiteboard.SettingKieAPIKey)
	if err != nil {
		return "", fmt.Errorf("kie: read api key: %w", err)
	}
	key = strings.TrimSpace(key)
	if len(key) >= 7 && strings.EqualFold(key[:7], "bearer ") {
		key = strings.TrimSpace(key[7:])
	}
	if key == "" {
		return "", whiteboard.ErrMissingAPIKey
	}
	return key, nil
}

// ── Request payload ───────────────────────────────────────────────────

type taskRequest struct {
	Model string         `json:"model"`
	Input map[string]any `json:"input"`
}

// buildTask maps a request onto the model's parameter mode. Pro models take
// aspect_ratio, resolution and image_input; standard models take image_size
// and switch to their edit variant when reference images are present.
func buildTask(req whiteboard.GenerateRequest) taskRequest {
	m := whiteboard.LookupModel(req.Model)
	input := map[string]any{
		"prompt":        req.Prompt,
		"output_format": "png",
	}
	model := m.APIValue

	switch m.ParamMode {
	case whiteboard.ParamModePro:
		if req.AspectRatio != whiteboard.RatioDefault {
			input["aspect_ratio"] = string(req.AspectRatio)
		}
		input["resolution"] = string(req.Resolution)
		if len(req.InputImages) > 0 {
			input["image_input"] = req.InputImages
		}
	default:
		if req.AspectRatio == whiteboard.RatioDefault || req.AspectRatio == "" {
			input["image_size"] = "auto"
		} else {
			input["image_size"] = string(req.AspectRatio)
		}
		if len(req.InputImages) > 0 {
			if m.EditAPIValue != "" {
				model = m.EditAPIValue
			}
			input["image_urls"] = req.InputImages
		}
	}
	return taskRequest{Model: model, Input: input}
}

// ── Task lifecycle ────────────────────────────────────────────────────

type createResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

type recordResponse struct {
	Data json.RawMessage `json:"data"`
}

type recordData struct {
	State      string `json:"state"`
	ResultJSON string `json:"resultJson"`
}

type resultPayload struct {
	ResultURLs []string `json:"resultUrls"`
}

func (c *Client) runTask(ctx context.Context, key string, req whiteboard.GenerateRequest) (string, error) {
	taskID, err := c.createTask(ctx, key, buildTask(req))
	if err != nil {
		return "", err
	}
	return c.waitTask(ctx, key, taskID)
}

func (c *Client) createTask(ctx context.Context, key string, task taskRequest) (string, error) {
	c.log.Info("creating task", "apiModel", task.Model, "inputKeys", len(task.Input))

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+key).
		SetJSON(task).
		Post(c.baseURL + "/createTask")
	if err != nil {
		return "", fmt.Errorf("network request failed: %w", err)
	}
	defer resp.Close()

	body := resp.Body()
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		msg := ErrorMessage(decode(body), fmt.Sprintf("HTTP error %d", resp.StatusCode()))
		if strings.Contains(msg, "access permissions") {
			msg += " (the input image link may have expired or the API key lacks permission)"
		}
		c.log.Error("create task rejected", "status", resp.StatusCode(), "message", msg)
		return "", errors.New(msg)
	}

	var created createResponse
	if err := json.Unmarshal(body, &created); err != nil || created.Code != 200 || created.Data.TaskID == "" {
		msg := ErrorMessage(decode(body), "task creation failed")
		c.log.Error("create task failed", "message", msg)
		return "", errors.New(msg)
	}
	return created.Data.TaskID, nil
}

func (c *Client) waitTask(ctx context.Context, key, taskID string) (string, error) {
	for {
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+key).
			SetParam("taskId", taskID).
			Get(c.baseURL + "/recordInfo")
		if err != nil {
			return "", fmt.Errorf("polling request failed: %w", err)
		}
		status, body := resp.StatusCode(), append([]byte(nil), resp.Body()...)
		resp.Close()
		if status < 200 || status > 299 {
			return "", fmt.Errorf("polling request failed: HTTP %d", status)
		}

		var rec recordResponse
		var data recordData
		if err := json.Unmarshal(body, &rec); err != nil || len(rec.Data) == 0 {
			return "", errors.New("polling response could not be parsed")
		}
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return "", errors.New("polling response could not be parsed")
		}

		switch data.State {
		case "success":
			var res resultPayload
			if err := json.Unmarshal([]byte(data.ResultJSON), &res); err != nil {
				return "", errors.New("result could not be parsed")
			}
			if len(res.ResultURLs) == 0 {
				return "", errors.New("no image URL returned")
			}
			return res.ResultURLs[0], nil
		case "fail":
			msg := ErrorMessage(decode(rec.Data), "generation failed")
			c.log.Error("task failed", "task", taskID, "message", msg)
			return "", errors.New(msg)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.poll):
		}
	}
}

func decode(body []byte) any {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		if s := strings.TrimSpace(string(body)); s != "" {
			return s
		}
		return nil
	}
	return v
}
