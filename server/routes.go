package main

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/whiteboard"
	"github.com/meikuraledutech/whiteboard/logsink"
)

// api holds what the handlers need. Every board access goes through
// board.Do so it runs on the board loop.
type api struct {
	board    *whiteboard.Board
	runner   *whiteboard.Runner
	settings whiteboard.Settings
	logs     *logsink.Sink
}

type createNodeRequest struct {
	X             float64                `json:"x"`
	Y             float64                `json:"y"`
	Kind          whiteboard.NodeKind    `json:"type"`
	Prompt        string                 `json:"prompt"`
	Model         string                 `json:"model"`
	AspectRatio   whiteboard.AspectRatio `json:"aspectRatio"`
	Resolution    whiteboard.Resolution  `json:"resolution"`
	BatchSize     int                    `json:"batchSize"`
	UploadedImage string                 `json:"uploadedImage"`
	Color         whiteboard.ColorTag    `json:"colorTag"`
}

// patchNodeRequest carries the user-editable fields only. Status, error,
// progress and results belong to the generation job.
type patchNodeRequest struct {
	X                  *float64                `json:"x"`
	Y                  *float64                `json:"y"`
	Prompt             *string                 `json:"prompt"`
	Model              *string                 `json:"model"`
	AspectRatio        *whiteboard.AspectRatio `json:"aspectRatio"`
	Resolution         *whiteboard.Resolution  `json:"resolution"`
	BatchSize          *int                    `json:"batchSize"`
	SelectedImageIndex *int                    `json:"selectedImageIndex"`
	UploadedImage      *string                 `json:"uploadedImage"`
	Color              *whiteboard.ColorTag    `json:"colorTag"`
}

func (r patchNodeRequest) patch() whiteboard.NodePatch {
	return whiteboard.NodePatch{
		X:                  r.X,
		Y:                  r.Y,
		Prompt:             r.Prompt,
		Model:              r.Model,
		AspectRatio:        r.AspectRatio,
		Resolution:         r.Resolution,
		BatchSize:          r.BatchSize,
		SelectedImageIndex: r.SelectedImageIndex,
		UploadedImage:      r.UploadedImage,
		Color:              r.Color,
	}
}

type connectionRequest struct {
	FromNodeID string `json:"fromNodeId"`
	ToNodeID   string `json:"toNodeId"`
}

type indexRequest struct {
	Index int `json:"index"`
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type pointerRequest struct {
	Type string `json:"type"` // "down", "move", "up"
	whiteboard.PointerEvent
}

type keyRequest struct {
	Type string `json:"type"` // "down", "up"
	whiteboard.KeyEvent
}

type pointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type dropRequest struct {
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Images []string `json:"images"`
}

type imageRequest struct {
	Image string `json:"image"`
}

type settingsPanelRequest struct {
	Open bool `json:"open"`
}

type settingRequest struct {
	Value string `json:"value"`
}

func newApp(a *api) *fiber.App {
	app := fiber.New()

	// ── Board ─────────────────────────────────────────────────────────
	app.Get("/board", func(c fiber.Ctx) error {
		var snap whiteboard.Snapshot
		if err := a.do(c, func() { snap = a.board.Snapshot() }); err != nil {
			return err
		}
		return c.JSON(snap)
	})

	app.Get("/models", func(c fiber.Ctx) error {
		return c.JSON(whiteboard.Models())
	})

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/nodes", func(c fiber.Ctx) error {
		var req createNodeRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c)
		}
		var id string
		err := a.do(c, func() {
			id = a.board.Graph.AddNode(whiteboard.Point{X: req.X, Y: req.Y}, whiteboard.NodeTemplate{
				Kind:          req.Kind,
				Prompt:        req.Prompt,
				Model:         req.Model,
				AspectRatio:   req.AspectRatio,
				Resolution:    req.Resolution,
				BatchSize:     req.BatchSize,
				UploadedImage: req.UploadedImage,
				Color:         req.Color,
			})
		})
		if err != nil {
			return err
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Get("/nodes/:id", func(c fiber.Ctx) error {
		var (
			n  whiteboard.Node
			ok bool
		)
		if err := a.do(c, func() { n, ok = a.board.Graph.Node(c.Params("id")) }); err != nil {
			return err
		}
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": whiteboard.ErrNodeNotFound.Error()})
		}
		return c.JSON(n)
	})

	app.Patch("/nodes/:id", func(c fiber.Ctx) error {
		var req patchNodeRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c)
		}
		var ok bool
		if err := a.do(c, func() { ok = a.board.Graph.UpdateNode(c.Params("id"), req.patch()) }); err != nil {
			return err
		}
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": whiteboard.ErrNodeNotFound.Error()})
		}
		return c.SendStatus(204)
	})

	app.Delete("/nodes/:id", func(c fiber.Ctx) error {
		if err := a.do(c, func() { a.board.Graph.DeleteNode(c.Params("id")) }); err != nil {
			return err
		}
		return c.SendStatus(204)
	})

	app.Post("/nodes/:id/select", func(c fiber.Ctx) error {
		var ok bool
		if err := a.do(c, func() { ok = a.board.Graph.SelectNode(c.Params("id")) }); err != nil {
			return err
		}
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": whiteboard.ErrNodeNotFound.Error()})
		}
		return c.SendStatus(204)
	})

	app.Post("/nodes/:id/unstack", func(c fiber.Ctx) error {
		var req indexRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c)
		}
		var (
			id string
			ok bool
		)
		if err := a.do(c, func() { id, ok = a.board.Graph.Unstack(c.Params("id"), req.Index) }); err != nil {
			return err
		}
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": "image not found"})
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Post("/nodes/:id/select-image", func(c fiber.Ctx) error {
		var req indexRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c)
		}
		var ok bool
		if err := a.do(c, func() { ok = a.board.Graph.SelectImage(c.Params("id"), req.Index) }); err != nil {
			return err
		}
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": "image not found"})
		}
		return c.SendStatus(204)
	})

	app.Get("/nodes/:id/inputs", func(c fiber.Ctx) error {
		var in []whiteboard.Input
		if err := a.do(c, func() { in = a.board.Graph.ResolveInputs(c.Params("id")) }); err != nil {
			return err
		}
		if in == nil {
			in = []whiteboard.Input{}
		}
		return c.JSON(in)
	})

	app.Post("/nodes/:id/inputs/reorder", func(c fiber.Ctx) error {
		var req reorderRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c)
		}
		var ok bool
		if err := a.do(c, func() { ok = a.board.Graph.ReorderInputs(c.Params("id"), req.From, req.To) }); err != nil {
			return err
		}
		if !ok {
			return c.Status(422).JSON(fiber.Map{"error": "invalid input positions"})
		}
		return c.SendStatus(204)
	})

	app.Post("/nodes/:id/generate", func(c fiber.Ctx) error {
		var ok bool
		if err := a.do(c, func() { ok = a.runner.Generate(c.Params("id")) }); err != nil {
			return err
		}
		if !ok {
			return c.Status(409).JSON(fiber.Map{"error": "node cannot generate now"})
		}
		return c.SendStatus(202)
	})

	app.Post("/nodes/:id/dismiss-error", func(c fiber.Ctx) error {
		if err := a.do(c, func() { a.runner.DismissError(c.Params("id")) }); err != nil {
			return err
		}
		return c.SendStatus(204)
	})

	// ── Connections ───────────────────────────────────────────────────
	app.Post("/connections", func(c fiber.Ctx) error {
		var req connectionRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c)
		}
		var (
			id string
			ok bool
		)
		if err := a.do(c, func() { id, ok = a.board.Graph.AddConnection(req.FromNodeID, req.ToNodeID) }); err != nil {
			return err
		}
		if !ok {
			return c.Status(422).JSON(fiber.Map{"error": "connection rejected"})
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Post("/connections/:id/select", func(c fiber.Ctx) error {
		var ok bool
		if err := a.do(c, func() { ok = a.board.Graph.SelectConnection(c.Params("id")) }); err != nil {
			return err
		}
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": whiteboard.ErrConnectionNotFound.Error()})
		}
		return c.SendStatus(204)
	})

	app.Delete("/connections/:id", func(c fiber.Ctx) error {
		if err := a.do(c, func() { a.board.Graph.DeleteConnection(c.Params("id")) }); err != nil {
			return err
		}
		return c.SendStatus(204)
	})

	// ── Interaction events ────────────────────────────────────────────
	app.Post("/events/pointer", func(c fiber.Ctx) error {
		var req pointerRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c)
		}
		ctrl := a.board.Controller
		return a.event(c, func() {
			switch req.Type {
			case "down":
				ctrl.PointerDown(req.PointerEvent)
			case "move":
				ctrl.PointerMove(req.PointerEvent)
			case "up":
				ctrl.PointerUp(req.PointerEvent)
			}
		})
	})

	app.Post("/events/key", func(c fiber.Ctx) error {
		var req keyRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c)
		}
		ctrl := a.board.Controller
		return a.event(c, func() {
			if req.Type == "up" {
				ctrl.KeyUp(req.KeyEvent)
				return
			}
			ctrl.KeyDown(req.KeyEvent)
		})
	})

	app.Post("/events/wheel", func(c fiber.Ctx) error {
		var req whiteboard.WheelEvent
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c)
		}
		return a.event(c, func() { a.board.Controller.Wheel(req) })
	})

	app.Post("/events/resize", func(c fiber.Ctx) error {
		var req whiteboard.Size
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c)
		}
		return a.event(c, func() { a.board.Controller.Resize(req) })
	})

	app.Post("/events/settings", func(c fiber.Ctx) error {
		var req settingsPanelRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c)
		}
		return a.event(c, func() {
			if req.Open {
				a.board.Controller.OpenSettings()
				return
			}
			a.board.Controller.CloseSettings()
		})
	})

	app.Post("/events/dblclick", func(c fiber.Ctx) error {
		var req pointRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c)
		}
		var id string
		if err := a.do(c, func() { id = a.board.Controller.DoubleClick(req.X, req.Y) }); err != nil {
			return err
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Post("/events/drop", func(c fiber.Ctx) error {
		var req dropRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c)
		}
		var ids []string
		if err := a.do(c, func() { ids = a.board.Controller.DropImages(req.X, req.Y, req.Images) }); err != nil {
			return err
		}
		if ids == nil {
			ids = []string{}
		}
		return c.Status(201).JSON(fiber.Map{"ids": ids})
	})

	app.Post("/menu/confirm", func(c fiber.Ctx) error {
		var (
			id string
			ok bool
		)
		if err := a.do(c, func() { id, ok = a.board.Controller.ConfirmMenu() }); err != nil {
			return err
		}
		if !ok {
			return c.Status(409).JSON(fiber.Map{"error": "no context menu open"})
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Post("/menu/cancel", func(c fiber.Ctx) error {
		return a.event(c, func() { a.board.Controller.CancelMenu() })
	})

	// ── Uploads & history ─────────────────────────────────────────────
	app.Post("/uploads", func(c fiber.Ctx) error {
		var req imageRequest
		if err := c.Bind().JSON(&req); err != nil || req.Image == "" {
			return badRequest(c)
		}
		var id string
		if err := a.do(c, func() { id = a.board.Controller.UploadImage(req.Image) }); err != nil {
			return err
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Get("/history", func(c fiber.Ctx) error {
		var items []whiteboard.HistoryItem
		if err := a.do(c, func() { items = a.board.History.Items() }); err != nil {
			return err
		}
		if items == nil {
			items = []whiteboard.HistoryItem{}
		}
		return c.JSON(items)
	})

	app.Post("/history/:id/restore", func(c fiber.Ctx) error {
		var (
			id    string
			found bool
		)
		err := a.do(c, func() {
			item, ok := a.board.History.Item(c.Params("id"))
			if !ok {
				return
			}
			found = true
			id = a.board.Controller.RestoreFromHistory(item.URL)
		})
		if err != nil {
			return err
		}
		if !found {
			return c.Status(404).JSON(fiber.Map{"error": "history item not found"})
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	// ── Logs ──────────────────────────────────────────────────────────
	app.Get("/logs", func(c fiber.Ctx) error {
		entries := a.logs.Entries()
		if entries == nil {
			entries = []logsink.Entry{}
		}
		return c.JSON(entries)
	})

	app.Delete("/logs", func(c fiber.Ctx) error {
		a.logs.Clear()
		return c.SendStatus(204)
	})

	// ── Settings ──────────────────────────────────────────────────────
	app.Get("/settings", func(c fiber.Ctx) error {
		all, err := a.settings.List(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		for k, v := range all {
			all[k] = maskSetting(k, v)
		}
		return c.JSON(all)
	})

	app.Put("/settings/:key", func(c fiber.Ctx) error {
		var req settingRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c)
		}
		value := strings.TrimSpace(req.Value)
		if c.Params("key") == whiteboard.SettingTheme && value != whiteboard.ThemeLight && value != whiteboard.ThemeDark {
			return c.Status(422).JSON(fiber.Map{"error": "theme must be light or dark"})
		}
		if err := a.settings.Set(c.Context(), c.Params("key"), value); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})

	app.Delete("/settings/:key", func(c fiber.Ctx) error {
		if err := a.settings.Delete(c.Context(), c.Params("key")); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})

	return app
}

// do runs fn on the board loop for the lifetime of the request.
func (a *api) do(c fiber.Ctx, fn func()) error {
	if err := a.board.Do(c.Context(), fn); err != nil {
		status := 500
		if errors.Is(err, whiteboard.ErrBoardStopped) {
			status = 503
		}
		return fiber.NewError(status, err.Error())
	}
	return nil
}

// event applies an interaction event and replies with the new UI state.
func (a *api) event(c fiber.Ctx, fn func()) error {
	var state whiteboard.UIState
	if err := a.do(c, func() {
		fn()
		state = a.board.Controller.State()
	}); err != nil {
		return err
	}
	return c.JSON(state)
}

func badRequest(c fiber.Ctx) error {
	return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
}

// maskSetting hides all but the last four characters of credentials.
func maskSetting(key, value string) string {
	if !strings.Contains(key, "key") && !strings.Contains(key, "secret") {
		return value
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
