package whiteboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/meikuraledutech/whiteboard/logsink"
)

// Runner executes generation requests for nodes and writes the outcome
// back through the Board loop in one update per request.
type Runner struct {
	ctx     context.Context
	board   *Board
	gen     Generator
	hosting UploaderSource
	log     *slog.Logger

	wg sync.WaitGroup
}

// NewRunner wires a runner to the board. Jobs run under ctx; hosting may be
// nil when no image hosting is available.
func NewRunner(ctx context.Context, b *Board, gen Generator, hosting UploaderSource, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{ctx: ctx, board: b, gen: gen, hosting: hosting, log: logger}
}

// Generate starts a job for the node. It must be called from the Board
// loop. Upload nodes and nodes already generating are ignored.
func (r *Runner) Generate(id string) bool {
	n := r.board.Graph.node(id)
	if n == nil || n.Kind != KindGeneration || n.Status == StatusGenerating {
		return false
	}

	var images []string
	for _, in := range r.board.Graph.ResolveInputs(id) {
		images = append(images, in.URL)
	}
	req := GenerateRequest{
		Prompt:      n.Prompt,
		Model:       n.Model,
		AspectRatio: n.AspectRatio,
		Resolution:  n.Resolution,
		InputImages: images,
		BatchSize:   n.BatchSize,
	}

	r.board.Graph.UpdateNode(id, NodePatch{
		Status:   ptr(StatusGenerating),
		Error:    ptr(""),
		Progress: ptr(fmt.Sprintf("generating x%d...", req.BatchSize)),
	})
	r.log.Info("starting generation", "node", id, "batch", req.BatchSize, "inputs", len(images))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		urls, err := r.run(req)
		r.board.Post(func() { r.finish(id, urls, err) })
	}()
	return true
}

// DismissError returns a failed node to idle. Call it from the Board loop.
func (r *Runner) DismissError(id string) bool {
	n := r.board.Graph.node(id)
	if n == nil || n.Status != StatusError {
		return false
	}
	return r.board.Graph.UpdateNode(id, NodePatch{Status: ptr(StatusIdle), Error: ptr("")})
}

// Wait blocks until every started job has posted its result.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(req GenerateRequest) ([]string, error) {
	inputs, err := r.prepareInputs(req.InputImages)
	if err != nil {
		return nil, err
	}
	req.InputImages = inputs
	return r.gen.Generate(r.ctx, req)
}

// prepareInputs uploads local data URIs so the remote service can fetch
// them. Inputs that are already URLs pass through.
func (r *Runner) prepareInputs(images []string) ([]string, error) {
	var up Uploader
	out := make([]string, 0, len(images))
	for i, img := range images {
		if !strings.HasPrefix(img, "data:") {
			out = append(out, img)
			continue
		}
		if up == nil {
			if r.hosting == nil {
				return nil, ErrNoHosting
			}
			var err error
			if up, err = r.hosting(r.ctx); err != nil {
				return nil, err
			}
		}
		r.log.Info("uploading input image", "index", i+1, "of", len(images), "bytes", len(img))
		url, err := up.Upload(r.ctx, img)
		if err != nil {
			r.log.Error("input upload failed", "error", err)
			return nil, err
		}
		r.log.Log(r.ctx, logsink.LevelSuccess, "input uploaded", "url", url)
		out = append(out, url)
	}
	return out, nil
}

func (r *Runner) finish(id string, urls []string, err error) {
	if err != nil {
		r.log.Error("generation failed", "node", id, "error", err)
		r.board.Graph.UpdateNode(id, NodePatch{
			Status:   ptr(StatusError),
			Error:    ptr(err.Error()),
			Progress: ptr(""),
		})
		return
	}
	r.board.Graph.UpdateNode(id, NodePatch{
		GeneratedImages:    urls,
		SelectedImageIndex: ptr(0),
		Status:             ptr(StatusIdle),
		Progress:           ptr(""),
	})
	r.board.History.Record(urls...)
	r.log.Log(r.ctx, logsink.LevelSuccess, "generation finished", "node", id, "images", len(urls))
}
