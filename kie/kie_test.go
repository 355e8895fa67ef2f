package kie

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/whiteboard"
)

type mapSettings map[string]string

func (m mapSettings) CreateSchema(context.Context) error { return nil }
func (m mapSettings) DropSchema(context.Context) error { return nil }
func (m mapSettings) Get(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", whiteboard.ErrSettingNotFound
	}
	return v, nil
}
func (m mapSettings) Set(_ context.Context, key, value string) error { m[key] = value; return nil }
func (m mapSettings) Delete(_ context.Context, key string) error { delete(m, key); return nil }
func (m mapSettings) List(context.Context) (map[string]string, error) {
	return m, nil
}

// fakeAPI serves createTask and recordInfo. Tasks report "generating" once
// before succeeding. failOn makes the n-th created task fail.
type fakeAPI struct {
	created atomic.Int32
	failOn  int32
	auth    atomic.Value
	body    atomic.Value
	polls   atomic.Int32
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.auth.Store(r.Header.Get("Authorization"))
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/createTask":
		raw, _ := io.ReadAll(r.Body)
		f.body.Store(raw)
		n := f.created.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": map[string]any{"taskId": "task-" + string(rune('0'+n))},
		})
	case "/recordInfo":
		id := r.URL.Query().Get("taskId")
		if f.polls.Add(1) == 1 {
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"state": "generating"}})
			return
		}
		if f.failOn > 0 && id == "task-"+string(rune('0'+f.failOn)) {
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"state": "fail", "failMsg": "content policy"}})
			return
		}
		result, _ := json.Marshal(map[string]any{"resultUrls": []string{"https://out/" + id + ".png"}})
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"state": "success", "resultJson": string(result)}})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, h http.Handler, settings whiteboard.Settings) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(settings,
		WithBaseURL(srv.URL+"/"),
		WithPollInterval(time.Millisecond),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
}

func TestGenerate_Success(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, mapSettings{whiteboard.SettingKieAPIKey: "Bearer secret-key"})

	urls, err := c.Generate(context.Background(), whiteboard.GenerateRequest{
		Prompt:      "cat astronaut",
		Model:       whiteboard.ModelNanoBananaPro,
		AspectRatio: whiteboard.Ratio1x1,
		Resolution:  whiteboard.Res2K,
		BatchSize:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://out/task-1.png"}, urls)
	assert.Equal(t, "Bearer secret-key", api.auth.Load())

	var sent taskRequest
	require.NoError(t, json.Unmarshal(api.body.Load().([]byte), &sent))
	assert.Equal(t, "nano-banana-pro", sent.Model)
	assert.Equal(t, "1:1", sent.Input["aspect_ratio"])
	assert.Equal(t, "cat astronaut", sent.Input["prompt"])
}

func TestGenerate_Batch(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, mapSettings{whiteboard.SettingKieAPIKey: "k"})

	urls, err := c.Generate(context.Background(), whiteboard.GenerateRequest{Prompt: "p", BatchSize: 4})
	require.NoError(t, err)
	assert.Len(t, urls, 4)
	assert.EqualValues(t, 4, api.created.Load())
	for _, u := range urls {
		assert.NotEmpty(t, u)
	}
}

func TestGenerate_BatchAllOrNothing(t *testing.T) {
	api := &fakeAPI{failOn: 2}
	c := newTestClient(t, api, mapSettings{whiteboard.SettingKieAPIKey: "k"})

	urls, err := c.Generate(context.Background(), whiteboard.GenerateRequest{Prompt: "p", BatchSize: 2})
	require.Error(t, err)
	assert.Nil(t, urls)
	assert.Equal(t, "content policy", err.Error())
}

func TestGenerate_MissingKey(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, mapSettings{whiteboard.SettingKieAPIKey: "  "})

	_, err := c.Generate(context.Background(), whiteboard.GenerateRequest{Prompt: "p", BatchSize: 1})
	assert.ErrorIs(t, err, whiteboard.ErrMissingAPIKey)

	c = newTestClient(t, api, mapSettings{})
	_, err = c.Generate(context.Background(), whiteboard.GenerateRequest{Prompt: "p", BatchSize: 1})
	assert.ErrorIs(t, err, whiteboard.ErrMissingAPIKey)
	assert.Zero(t, api.created.Load())
}

func TestGenerate_HTTPError(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"You do not have access permissions"}}`))
	})
	c := newTestClient(t, h, mapSettings{whiteboard.SettingKieAPIKey: "k"})

	_, err := c.Generate(context.Background(), whiteboard.GenerateRequest{Prompt: "p", BatchSize: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "You do not have access permissions")
	assert.Contains(t, err.Error(), "may have expired")
}

func TestGenerate_CreateRejected(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":402,"msg":"insufficient credits"}`))
	})
	c := newTestClient(t, h, mapSettings{whiteboard.SettingKieAPIKey: "k"})

	_, err := c.Generate(context.Background(), whiteboard.GenerateRequest{Prompt: "p", BatchSize: 1})
	require.Error(t, err)
	assert.Equal(t, "insufficient credits", err.Error())
}

func TestBuildTask(t *testing.T) {
	t.Run("pro with inherit ratio", func(t *testing.T) {
		task := buildTask(whiteboard.GenerateRequest{
			Prompt:      "p",
			Model:       whiteboard.ModelNanoBananaPro,
			AspectRatio: whiteboard.RatioDefault,
			Resolution:  whiteboard.Res4K,
			InputImages: []string{"https://in/a.png"},
		})
		assert.Equal(t, "nano-banana-pro", task.Model)
		assert.NotContains(t, task.Input, "aspect_ratio")
		assert.Equal(t, "4K", task.Input["resolution"])
		assert.Equal(t, []string{"https://in/a.png"}, task.Input["image_input"])
		assert.Equal(t, "png", task.Input["output_format"])
	})

	t.Run("standard text only", func(t *testing.T) {
		task := buildTask(whiteboard.GenerateRequest{
			Prompt:      "p",
			Model:       whiteboard.ModelNanoBanana,
			AspectRatio: whiteboard.Ratio16x9,
		})
		assert.Equal(t, "google/nano-banana", task.Model)
		assert.Equal(t, "16:9", task.Input["image_size"])
		assert.NotContains(t, task.Input, "image_urls")
		assert.NotContains(t, task.Input, "resolution")
	})

	t.Run("standard with inputs uses edit model", func(t *testing.T) {
		task := buildTask(whiteboard.GenerateRequest{
			Prompt:      "p",
			Model:       whiteboard.ModelNanoBanana,
			AspectRatio: whiteboard.RatioDefault,
			InputImages: []string{"https://in/a.png"},
		})
		assert.Equal(t, "google/nano-banana-edit", task.Model)
		assert.Equal(t, "auto", task.Input["image_size"])
		assert.Equal(t, []string{"https://in/a.png"}, task.Input["image_urls"])
	})
}

func TestErrorMessage(t *testing.T) {
	cases := []struct {
		name string
		data any
		want string
	}{
		{"plain string", "rate limited", "rate limited"},
		{"message", map[string]any{"message": "bad prompt"}, "bad prompt"},
		{"msg", map[string]any{"msg": "bad key"}, "bad key"},
		{"error string", map[string]any{"error": "denied"}, "denied"},
		{"error object", map[string]any{"error": map[string]any{"message": "nested"}}, "nested"},
		{"fail message", map[string]any{"state": "fail", "failMsg": "nsfw"}, "nsfw"},
		{"failure reason", map[string]any{"failure_reason": "timeout"}, "timeout"},
		{"errors list", map[string]any{"errors": []any{map[string]any{"message": "first"}}}, "first"},
		{"errors raw", map[string]any{"errors": []any{"x"}}, `["x"]`},
		{"nothing useful", map[string]any{"code": 500}, "fallback"},
		{"nil", nil, "fallback"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ErrorMessage(tc.data, "fallback"))
		})
	}
}
