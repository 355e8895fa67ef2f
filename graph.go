package whiteboard

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Graph is the authoritative set of nodes and connections. It is not safe
// for concurrent use: every call must come from the Board loop.
//
// All mutations are silent no-ops on unknown ids or indices; the bool or id
// results only report whether anything changed.
type Graph struct {
	nodes       []*Node
	connections []*Connection

	selectedNode       string
	selectedConnection string

	seq int64
	now func() time.Time
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{now: time.Now}
}

// ── Nodes ─────────────────────────────────────────────────────────────

// AddNode creates a node whose visual centre is at pos and returns its id.
// Zero template fields keep the defaults; generation nodes are coerced
// against the model capability table.
func (g *Graph) AddNode(pos Point, tmpl NodeTemplate) string {
	kind := tmpl.Kind
	if kind == "" {
		kind = KindGeneration
	}
	model := tmpl.Model
	if model == "" {
		model = DefaultModel
	}
	capab := LookupModel(model)

	n := &Node{
		ID:                 uuid.NewString(),
		Kind:               kind,
		X:                  pos.X - NodeWidth/2,
		Y:                  pos.Y - NodeHeaderOffset,
		Color:              ColorDefault,
		Prompt:             tmpl.Prompt,
		Model:              model,
		AspectRatio:        FixedDefaultRatio,
		Resolution:         capab.DefaultResolution,
		BatchSize:          1,
		GeneratedImages:    append([]string(nil), tmpl.GeneratedImages...),
		SelectedImageIndex: 0,
		Status:             StatusIdle,
		UploadedImage:      tmpl.UploadedImage,
	}
	if tmpl.AspectRatio != "" {
		n.AspectRatio = tmpl.AspectRatio
	}
	if tmpl.Resolution != "" {
		n.Resolution = tmpl.Resolution
	}
	if validBatchSize(tmpl.BatchSize) {
		n.BatchSize = tmpl.BatchSize
	}
	if tmpl.Color != "" {
		n.Color = tmpl.Color
	}
	coerce(n)

	g.nodes = append(g.nodes, n)
	return n.ID
}

// UpdateNode merges the non-nil fields of p into the node.
func (g *Graph) UpdateNode(id string, p NodePatch) bool {
	n := g.node(id)
	if n == nil {
		return false
	}
	if p.X != nil {
		n.X = *p.X
	}
	if p.Y != nil {
		n.Y = *p.Y
	}
	if p.Prompt != nil {
		n.Prompt = *p.Prompt
	}
	if p.Model != nil {
		n.Model = *p.Model
	}
	if p.AspectRatio != nil {
		n.AspectRatio = *p.AspectRatio
	}
	if p.Resolution != nil {
		n.Resolution = *p.Resolution
	}
	if p.BatchSize != nil && validBatchSize(*p.BatchSize) {
		n.BatchSize = *p.BatchSize
	}
	if p.GeneratedImages != nil {
		n.GeneratedImages = append([]string(nil), p.GeneratedImages...)
	}
	if p.SelectedImageIndex != nil {
		n.SelectedImageIndex = *p.SelectedImageIndex
	}
	if p.UploadedImage != nil {
		n.UploadedImage = *p.UploadedImage
	}
	if p.Color != nil {
		n.Color = *p.Color
	}
	if p.Status != nil {
		n.Status = *p.Status
	}
	if p.Error != nil {
		n.Error = *p.Error
	}
	if p.Progress != nil {
		n.Progress = *p.Progress
	}
	coerce(n)
	return true
}

// coerce keeps a generation node's resolution and ratio inside its model's
// valid sets.
func coerce(n *Node) {
	if n.Kind != KindGeneration {
		return
	}
	n.Resolution, n.AspectRatio = LookupModel(n.Model).Coerce(n.Resolution, n.AspectRatio)
}

// DeleteNode removes the node and every connection touching it. A
// destination that loses its last input while inheriting its ratio goes
// back to FixedDefaultRatio.
func (g *Graph) DeleteNode(id string) bool {
	i := slices.IndexFunc(g.nodes, func(n *Node) bool { return n.ID == id })
	if i < 0 {
		return false
	}
	g.nodes = slices.Delete(g.nodes, i, i+1)

	var orphaned []string
	g.connections = slices.DeleteFunc(g.connections, func(c *Connection) bool {
		if c.FromNodeID == id {
			orphaned = append(orphaned, c.ToNodeID)
			if g.selectedConnection == c.ID {
				g.selectedConnection = ""
			}
			return true
		}
		if c.ToNodeID == id {
			if g.selectedConnection == c.ID {
				g.selectedConnection = ""
			}
			return true
		}
		return false
	})
	for _, dest := range orphaned {
		g.resetInheritedRatio(dest)
	}

	if g.selectedNode == id {
		g.selectedNode = ""
	}
	return true
}

// SelectImage makes index the node's "top" result.
func (g *Graph) SelectImage(id string, index int) bool {
	n := g.node(id)
	if n == nil || index < 0 || index >= len(n.GeneratedImages) {
		return false
	}
	n.SelectedImageIndex = index
	return true
}

// Unstack copies one result of a generation node into a new, unconnected
// generation node placed to its right.
func (g *Graph) Unstack(id string, index int) (string, bool) {
	src := g.node(id)
	if src == nil || index < 0 || index >= len(src.GeneratedImages) {
		return "", false
	}
	pos := Point{
		X: src.X + NodeWidth + UnstackGap,
		Y: src.Y + NodeHeaderOffset,
	}
	return g.AddNode(pos, NodeTemplate{
		Kind:            KindGeneration,
		GeneratedImages: []string{src.GeneratedImages[index]},
	}), true
}

// ── Connections ───────────────────────────────────────────────────────

// AddConnection wires from's output into to's input. Self loops,
// duplicates, unknown endpoints and upload destinations are rejected. The
// first input of a generation node switches it to the inherit ratio.
func (g *Graph) AddConnection(from, to string) (string, bool) {
	if from == to {
		return "", false
	}
	src, dst := g.node(from), g.node(to)
	if src == nil || dst == nil || dst.Kind == KindUpload {
		return "", false
	}
	for _, c := range g.connections {
		if c.FromNodeID == from && c.ToNodeID == to {
			return "", false
		}
	}

	if g.inputCount(to) == 0 && dst.Kind == KindGeneration {
		dst.AspectRatio = RatioDefault
		coerce(dst)
	}

	g.seq++
	c := &Connection{
		ID:         uuid.NewString(),
		FromNodeID: from,
		ToNodeID:   to,
		Order:      g.seq,
		CreatedAt:  g.now(),
	}
	g.connections = append(g.connections, c)
	return c.ID, true
}

// DeleteConnection removes the edge and re-checks the destination's ratio.
func (g *Graph) DeleteConnection(id string) bool {
	i := slices.IndexFunc(g.connections, func(c *Connection) bool { return c.ID == id })
	if i < 0 {
		return false
	}
	dest := g.connections[i].ToNodeID
	g.connections = slices.Delete(g.connections, i, i+1)
	g.resetInheritedRatio(dest)

	if g.selectedConnection == id {
		g.selectedConnection = ""
	}
	return true
}

func (g *Graph) resetInheritedRatio(dest string) {
	n := g.node(dest)
	if n == nil || n.Kind != KindGeneration {
		return
	}
	if g.inputCount(dest) == 0 && n.AspectRatio == RatioDefault {
		n.AspectRatio = FixedDefaultRatio
		coerce(n)
	}
}

func (g *Graph) inputCount(dest string) int {
	count := 0
	for _, c := range g.connections {
		if c.ToNodeID == dest {
			count++
		}
	}
	return count
}

// inputs returns the destination's incoming edges sorted by Order.
func (g *Graph) inputs(dest string) []*Connection {
	var in []*Connection
	for _, c := range g.connections {
		if c.ToNodeID == dest {
			in = append(in, c)
		}
	}
	slices.SortStableFunc(in, func(a, b *Connection) int {
		switch {
		case a.Order < b.Order:
			return -1
		case a.Order > b.Order:
			return 1
		}
		return 0
	})
	return in
}

// Inputs returns copies of the destination's incoming edges in input order.
func (g *Graph) Inputs(dest string) []Connection {
	in := g.inputs(dest)
	out := make([]Connection, len(in))
	for i, c := range in {
		out[i] = *c
	}
	return out
}

// ReorderInputs exchanges the input positions from and to of dest by
// swapping their Order values. Other inputs keep their positions.
func (g *Graph) ReorderInputs(dest string, from, to int) bool {
	in := g.inputs(dest)
	if from < 0 || to < 0 || from >= len(in) || to >= len(in) || from == to {
		return false
	}
	in[from].Order, in[to].Order = in[to].Order, in[from].Order
	return true
}

// ResolveInputs returns the current output image of every input of dest in
// input order. Sources without an output are skipped.
func (g *Graph) ResolveInputs(dest string) []Input {
	var out []Input
	for _, c := range g.inputs(dest) {
		src := g.node(c.FromNodeID)
		if src == nil {
			continue
		}
		if url, ok := src.Output(); ok {
			out = append(out, Input{SourceID: src.ID, URL: url})
		}
	}
	return out
}

// ── Selection ─────────────────────────────────────────────────────────

// Selection holds at most one selected node or connection.
type Selection struct {
	NodeID       string `json:"nodeId,omitempty"`
	ConnectionID string `json:"connectionId,omitempty"`
}

// SelectNode selects a node and clears any selected connection.
func (g *Graph) SelectNode(id string) bool {
	if g.node(id) == nil {
		return false
	}
	g.selectedNode, g.selectedConnection = id, ""
	return true
}

// SelectConnection selects a connection and clears any selected node.
func (g *Graph) SelectConnection(id string) bool {
	if g.connection(id) == nil {
		return false
	}
	g.selectedNode, g.selectedConnection = "", id
	return true
}

// ClearSelection deselects everything.
func (g *Graph) ClearSelection() {
	g.selectedNode, g.selectedConnection = "", ""
}

// Selection returns the current selection.
func (g *Graph) Selection() Selection {
	return Selection{NodeID: g.selectedNode, ConnectionID: g.selectedConnection}
}

// ── Read access ───────────────────────────────────────────────────────

// Node returns a copy of the node.
func (g *Graph) Node(id string) (Node, bool) {
	n := g.node(id)
	if n == nil {
		return Node{}, false
	}
	return n.clone(), true
}

// Output returns the image node id currently feeds downstream.
func (g *Graph) Output(id string) (string, bool) {
	n := g.node(id)
	if n == nil {
		return "", false
	}
	return n.Output()
}

// Nodes returns copies of all nodes in creation order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.clone()
	}
	return out
}

// Connections returns copies of all connections in creation order.
func (g *Graph) Connections() []Connection {
	out := make([]Connection, len(g.connections))
	for i, c := range g.connections {
		out[i] = *c
	}
	return out
}

// Connection returns a copy of the connection.
func (g *Graph) Connection(id string) (Connection, bool) {
	c := g.connection(id)
	if c == nil {
		return Connection{}, false
	}
	return *c, true
}

func (g *Graph) node(id string) *Node {
	for _, n := range g.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func (g *Graph) connection(id string) *Connection {
	for _, c := range g.connections {
		if c.ID == id {
			return c
		}
	}
	return nil
}
