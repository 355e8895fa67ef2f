package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/meikuraledutech/whiteboard"
	"github.com/meikuraledutech/whiteboard/logsink"
)

// echoGenerator stands in for the remote API: every batch unit returns a
// URL derived from the prompt.
type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, req whiteboard.GenerateRequest) ([]string, error) {
	out := make([]string, req.BatchSize)
	for i := range out {
		out[i] = fmt.Sprintf("https://example.invalid/%s-%d.png", strings.ReplaceAll(req.Prompt, " ", "-"), i)
	}
	return out, nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := logsink.New(0)
	logger := slog.New(sink.Handler(slog.NewTextHandler(os.Stderr, nil)))

	board := whiteboard.NewBoard(whiteboard.Size{Width: 1440, Height: 900})
	go board.Run(ctx)
	runner := whiteboard.NewRunner(ctx, board, echoGenerator{}, nil, logger)

	do := func(fn func()) {
		if err := board.Do(ctx, fn); err != nil {
			log.Fatalf("board: %v", err)
		}
	}

	// ── Place an upload and a generation node ─────────────────────────
	var upload, gen string
	do(func() {
		upload = board.Graph.AddNode(whiteboard.Point{X: 100, Y: 100}, whiteboard.NodeTemplate{
			Kind:          whiteboard.KindUpload,
			UploadedImage: "https://example.invalid/cat.png",
		})
		gen = board.Graph.AddNode(whiteboard.Point{X: 400, Y: 100}, whiteboard.NodeTemplate{
			Prompt:    "cat astronaut",
			BatchSize: 2,
		})
	})
	fmt.Printf("upload node: %s\ngeneration node: %s\n", upload, gen)

	// ── Connect and watch the ratio switch to inherit ─────────────────
	var conn string
	do(func() {
		conn, _ = board.Graph.AddConnection(upload, gen)
		n, _ := board.Graph.Node(gen)
		fmt.Printf("after connect, aspect ratio: %s\n", n.AspectRatio)
	})

	// ── Generate ──────────────────────────────────────────────────────
	do(func() { runner.Generate(gen) })
	runner.Wait()
	do(func() {
		n, _ := board.Graph.Node(gen)
		fmt.Println("\ngenerated:")
		printJSON(n.GeneratedImages)
	})

	// ── Disconnect and watch it revert ────────────────────────────────
	do(func() {
		board.Graph.DeleteConnection(conn)
		n, _ := board.Graph.Node(gen)
		fmt.Printf("\nafter disconnect, aspect ratio: %s\n", n.AspectRatio)
	})

	// ── Board snapshot ────────────────────────────────────────────────
	do(func() {
		fmt.Println("\nboard:")
		printJSON(board.Snapshot())
	})

	fmt.Println("\nlog:")
	printJSON(sink.Entries())
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
