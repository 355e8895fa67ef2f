package whiteboard

import "strings"

// Mode is the interaction state of the canvas.
type Mode string

const (
	ModeIdle        Mode = "idle"
	ModePanning     Mode = "panning"
	ModeDragging    Mode = "dragging-node"
	ModeConnecting  Mode = "connecting"
	ModeContextMenu Mode = "context-menu"
)

// PortKind names the attachment point a connect gesture started from.
type PortKind string

const (
	PortInput  PortKind = "input"
	PortOutput PortKind = "output"
)

// TargetKind is what the pointer is over, as reported by the hit test of
// the presentation layer.
type TargetKind string

const (
	TargetNone       TargetKind = "none"
	TargetCanvas     TargetKind = "canvas"
	TargetNodeHeader TargetKind = "node-header"
	TargetNodeBody   TargetKind = "node-body"
	TargetPort       TargetKind = "port"
	TargetConnection TargetKind = "connection"
)

// ButtonPrimary is the main pointer button.
const ButtonPrimary = 0

// Key codes the controller reacts to.
const (
	KeySpace     = "Space"
	KeyEscape    = "Escape"
	KeyDelete    = "Delete"
	KeyBackspace = "Backspace"
)

// Target identifies the element under the pointer.
type Target struct {
	Kind         TargetKind `json:"kind"`
	NodeID       string     `json:"nodeId,omitempty"`
	Port         PortKind   `json:"port,omitempty"`
	ConnectionID string     `json:"connectionId,omitempty"`
}

// PointerEvent carries screen coordinates and the hit target.
type PointerEvent struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button int     `json:"button"`
	Target Target  `json:"target"`
}

// KeyEvent is a key press or release. InTextField is true while focus is in
// an editable element.
type KeyEvent struct {
	Code        string `json:"code"`
	InTextField bool   `json:"inTextField"`
}

// WheelEvent is a scroll gesture; Ctrl is set for ctrl or meta.
type WheelEvent struct {
	DX   float64 `json:"dx"`
	DY   float64 `json:"dy"`
	Ctrl bool    `json:"ctrl"`
}

// Size is a screen-space extent.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PortRef is the origin of an in-progress connect gesture.
type PortRef struct {
	NodeID string   `json:"nodeId"`
	Port   PortKind `json:"port"`
}

// ContextMenu is anchored at a screen position and remembers the node the
// abandoned connect gesture started from.
type ContextMenu struct {
	Position     Point  `json:"position"`
	SourceNodeID string `json:"sourceNodeId"`
}

// UIState is the transient interaction state exposed to the presentation.
type UIState struct {
	Mode           Mode         `json:"mode"`
	DraggingNodeID string       `json:"draggingNodeId,omitempty"`
	Connecting     *PortRef     `json:"connecting,omitempty"`
	Pointer        Point        `json:"pointer"`
	Menu           *ContextMenu `json:"menu,omitempty"`
	SpaceHeld      bool         `json:"spaceHeld"`
	SettingsOpen   bool         `json:"settingsOpen"`
	Selection      Selection    `json:"selection"`
}

// Controller turns pointer and keyboard input into Graph mutations and
// transient UI state. Like Graph, it is driven only from the Board loop.
type Controller struct {
	graph    *Graph
	viewport Viewport
	canvas   Size

	mode         Mode
	dragging     string
	connecting   PortRef
	menu         ContextMenu
	last         Point // screen position of the previous pan step
	pointer      Point // world position, rubber-band endpoint
	spaceHeld    bool
	settingsOpen bool
}

// NewController returns an idle controller over g with the identity
// viewport.
func NewController(g *Graph, canvas Size) *Controller {
	return &Controller{
		graph:    g,
		viewport: NewViewport(),
		canvas:   canvas,
		mode:     ModeIdle,
	}
}

// Graph returns the graph the controller mutates.
func (c *Controller) Graph() *Graph { return c.graph }

// Viewport returns the current viewport.
func (c *Controller) Viewport() Viewport { return c.viewport }

// Resize records the canvas size used to find the viewport centre.
func (c *Controller) Resize(s Size) { c.canvas = s }

// State returns a copy of the interaction state.
func (c *Controller) State() UIState {
	s := UIState{
		Mode:         c.mode,
		Pointer:      c.pointer,
		SpaceHeld:    c.spaceHeld,
		SettingsOpen: c.settingsOpen,
		Selection:    c.graph.Selection(),
	}
	switch c.mode {
	case ModeDragging:
		s.DraggingNodeID = c.dragging
	case ModeConnecting:
		ref := c.connecting
		s.Connecting = &ref
	case ModeContextMenu:
		m := c.menu
		s.Menu = &m
	}
	return s
}

// ── Keyboard ──────────────────────────────────────────────────────────

// KeyDown handles Space, Escape and Delete/Backspace.
func (c *Controller) KeyDown(e KeyEvent) {
	switch e.Code {
	case KeySpace:
		if !e.InTextField {
			c.spaceHeld = true
		}
	case KeyEscape:
		c.graph.ClearSelection()
		if c.mode == ModeConnecting || c.mode == ModeContextMenu {
			c.toIdle()
		}
		c.settingsOpen = false
	case KeyDelete, KeyBackspace:
		if e.InTextField {
			return
		}
		sel := c.graph.Selection()
		if sel.NodeID != "" {
			c.graph.DeleteNode(sel.NodeID)
			if c.dragging == sel.NodeID && c.mode == ModeDragging {
				c.toIdle()
			}
		}
		if sel.ConnectionID != "" {
			c.graph.DeleteConnection(sel.ConnectionID)
		}
	}
}

// KeyUp releases Space.
func (c *Controller) KeyUp(e KeyEvent) {
	if e.Code == KeySpace {
		c.spaceHeld = false
	}
}

// ── Pointer ───────────────────────────────────────────────────────────

// PointerDown starts a pan, drag or connect gesture, or changes selection.
// An open context menu is dismissed by any press outside it.
func (c *Controller) PointerDown(e PointerEvent) {
	if c.mode == ModeContextMenu {
		c.toIdle()
	}
	if c.mode != ModeIdle {
		return
	}

	switch e.Target.Kind {
	case TargetCanvas:
		if c.spaceHeld && e.Button == ButtonPrimary {
			c.mode = ModePanning
			c.last = Point{X: e.X, Y: e.Y}
			return
		}
		c.graph.ClearSelection()
	case TargetNodeHeader:
		if e.Button != ButtonPrimary || !c.graph.SelectNode(e.Target.NodeID) {
			return
		}
		c.mode = ModeDragging
		c.dragging = e.Target.NodeID
	case TargetNodeBody:
		c.graph.SelectNode(e.Target.NodeID)
	case TargetPort:
		if _, ok := c.graph.Node(e.Target.NodeID); !ok {
			return
		}
		if e.Target.Port != PortInput && e.Target.Port != PortOutput {
			return
		}
		c.mode = ModeConnecting
		c.connecting = PortRef{NodeID: e.Target.NodeID, Port: e.Target.Port}
		c.pointer = c.viewport.ScreenToWorld(e.X, e.Y)
	case TargetConnection:
		c.graph.SelectConnection(e.Target.ConnectionID)
	}
}

// PointerMove pans, drags or moves the rubber-band endpoint. Connecting
// never mutates the graph.
func (c *Controller) PointerMove(e PointerEvent) {
	world := c.viewport.ScreenToWorld(e.X, e.Y)
	c.pointer = world

	switch c.mode {
	case ModePanning:
		c.viewport.Pan(e.X-c.last.X, e.Y-c.last.Y)
		c.last = Point{X: e.X, Y: e.Y}
	case ModeDragging:
		x := world.X - NodeWidth/2
		y := world.Y - DragHeaderOffset
		c.graph.UpdateNode(c.dragging, NodePatch{X: &x, Y: &y})
	}
}

// PointerUp finishes the current gesture. Releasing an output drag on a
// compatible input commits the connection. Releasing any drag on empty
// canvas opens the context menu for its source node. Anything else cancels.
func (c *Controller) PointerUp(e PointerEvent) {
	switch c.mode {
	case ModePanning, ModeDragging:
		c.toIdle()
	case ModeConnecting:
		from := c.connecting
		c.toIdle()
		switch e.Target.Kind {
		case TargetPort:
			if from.Port == PortOutput && e.Target.Port == PortInput && e.Target.NodeID != from.NodeID {
				c.graph.AddConnection(from.NodeID, e.Target.NodeID)
			}
		case TargetNodeBody, TargetNodeHeader:
			if from.Port == PortOutput && e.Target.NodeID != from.NodeID {
				c.graph.AddConnection(from.NodeID, e.Target.NodeID)
			}
		case TargetCanvas:
			c.mode = ModeContextMenu
			c.menu = ContextMenu{
				Position:     Point{X: e.X, Y: e.Y},
				SourceNodeID: from.NodeID,
			}
		}
	}
}

// Wheel zooms with ctrl/meta held and pans otherwise.
func (c *Controller) Wheel(e WheelEvent) {
	if e.Ctrl {
		c.viewport.Zoom(e.DY)
		return
	}
	c.viewport.Pan(-e.DX, -e.DY)
}

// ── Context menu ──────────────────────────────────────────────────────

// ConfirmMenu creates a generation node at the menu position that inherits
// its ratio from the remembered source, and wires the source into it. If
// the source was deleted while the menu was open the menu just closes.
func (c *Controller) ConfirmMenu() (string, bool) {
	if c.mode != ModeContextMenu {
		return "", false
	}
	menu := c.menu
	c.toIdle()
	if _, ok := c.graph.Node(menu.SourceNodeID); !ok {
		return "", false
	}

	world := c.viewport.ScreenToWorld(menu.Position.X, menu.Position.Y)
	id := c.graph.AddNode(Point{X: world.X + NodeWidth/2, Y: world.Y + NodeHeaderOffset}, NodeTemplate{
		Kind:        KindGeneration,
		AspectRatio: RatioDefault,
	})
	c.graph.AddConnection(menu.SourceNodeID, id)
	return id, true
}

// CancelMenu closes the context menu without touching the graph.
func (c *Controller) CancelMenu() {
	if c.mode == ModeContextMenu {
		c.toIdle()
	}
}

// ── Node creation gestures ────────────────────────────────────────────

// DoubleClick creates a generation node centred under the pointer.
func (c *Controller) DoubleClick(sx, sy float64) string {
	return c.graph.AddNode(c.viewport.ScreenToWorld(sx, sy), NodeTemplate{Kind: KindGeneration})
}

// DropImages creates one upload node per image payload, staggered from the
// drop point. Payloads that are not image data URIs are skipped.
func (c *Controller) DropImages(sx, sy float64, images []string) []string {
	world := c.viewport.ScreenToWorld(sx, sy)
	var ids []string
	for i, img := range images {
		if !isImageDataURI(img) {
			continue
		}
		off := float64(i) * DropStagger
		ids = append(ids, c.graph.AddNode(Point{X: world.X + off, Y: world.Y + off}, NodeTemplate{
			Kind:          KindUpload,
			UploadedImage: img,
			Model:         DefaultModel,
		}))
	}
	return ids
}

// UploadImage places an upload node at the centre of the visible canvas.
func (c *Controller) UploadImage(image string) string {
	return c.graph.AddNode(c.viewport.Center(c.canvas.Width, c.canvas.Height), NodeTemplate{
		Kind:          KindUpload,
		UploadedImage: image,
	})
}

// RestoreFromHistory places a history image as an upload node at the
// centre of the visible canvas.
func (c *Controller) RestoreFromHistory(url string) string {
	return c.graph.AddNode(c.viewport.Center(c.canvas.Width, c.canvas.Height), NodeTemplate{
		Kind:          KindUpload,
		UploadedImage: url,
		Color:         ColorChocolate,
	})
}

// OpenSettings shows the settings panel.
func (c *Controller) OpenSettings() { c.settingsOpen = true }

// CloseSettings hides the settings panel.
func (c *Controller) CloseSettings() { c.settingsOpen = false }

func (c *Controller) toIdle() {
	c.mode = ModeIdle
	c.dragging = ""
	c.connecting = PortRef{}
	c.menu = ContextMenu{}
}

func isImageDataURI(s string) bool {
	return strings.HasPrefix(s, "data:image/")
}
