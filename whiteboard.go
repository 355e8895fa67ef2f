package whiteboard

import "time"

// NodeKind distinguishes image sources from generation requests.
type NodeKind string

const (
	KindUpload     NodeKind = "upload"
	KindGeneration NodeKind = "generation"
)

// AspectRatio is the requested output ratio of a generation node.
// RatioDefault is the inherit sentinel: take the ratio of the connected input.
type AspectRatio string

const (
	RatioDefault AspectRatio = "default"
	Ratio1x1     AspectRatio = "1:1"
	Ratio2x3     AspectRatio = "2:3"
	Ratio3x2     AspectRatio = "3:2"
	Ratio3x4     AspectRatio = "3:4"
	Ratio4x3     AspectRatio = "4:3"
	Ratio9x16    AspectRatio = "9:16"
	Ratio16x9    AspectRatio = "16:9"
	Ratio21x9    AspectRatio = "21:9"
	Ratio5x4     AspectRatio = "5:4"
	Ratio4x5     AspectRatio = "4:5"
)

// FixedDefaultRatio is the explicit ratio a generation node falls back to
// when it has no inputs.
const FixedDefaultRatio = Ratio9x16

// Resolution is the output size class of a generation node.
type Resolution string

const (
	Res1K Resolution = "1K"
	Res2K Resolution = "2K"
	Res4K Resolution = "4K"
)

// ColorTag is a cosmetic label and has no graph semantics.
type ColorTag string

const (
	ColorDefault   ColorTag = "default"
	ColorRed       ColorTag = "red"
	ColorYellow    ColorTag = "yellow"
	ColorGreen     ColorTag = "green"
	ColorChocolate ColorTag = "chocolate"
)

// Status is the transient generation state of a node.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusGenerating Status = "generating"
	StatusError      Status = "error"
)

// Node layout constants, in world units.
const (
	NodeWidth        = 320.0
	NodeHeaderOffset = 100.0
	DragHeaderOffset = 20.0
	UnstackGap       = 150.0
	DropStagger      = 20.0
)

// Point is a 2D coordinate, screen or world depending on context.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a placed unit on the canvas. X and Y are the world coordinates of
// its top-left corner.
type Node struct {
	ID    string   `json:"id"`
	Kind  NodeKind `json:"type"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Color ColorTag `json:"colorTag"`

	Prompt             string      `json:"prompt"`
	Model              string      `json:"model"`
	AspectRatio        AspectRatio `json:"aspectRatio"`
	Resolution         Resolution  `json:"resolution"`
	BatchSize          int         `json:"batchSize"`
	GeneratedImages    []string    `json:"generatedImages"`
	SelectedImageIndex int         `json:"selectedImageIndex"`
	Status             Status      `json:"status"`
	Error              string      `json:"error,omitempty"`
	Progress           string      `json:"progress,omitempty"`

	UploadedImage string `json:"uploadedImage,omitempty"`
}

// Output returns the image this node feeds downstream: the selected result
// if any results exist, else the uploaded image. ok is false when neither
// is present.
func (n *Node) Output() (string, bool) {
	if len(n.GeneratedImages) > 0 {
		i := n.SelectedImageIndex
		if i < 0 || i >= len(n.GeneratedImages) {
			i = 0
		}
		return n.GeneratedImages[i], true
	}
	if n.UploadedImage != "" {
		return n.UploadedImage, true
	}
	return "", false
}

func (n *Node) clone() Node {
	c := *n
	c.GeneratedImages = append([]string(nil), n.GeneratedImages...)
	return c
}

// Connection is a directed edge from one node's output port to another
// node's input port. Order ranks the inputs of a single destination.
type Connection struct {
	ID         string    `json:"id"`
	FromNodeID string    `json:"fromNodeId"`
	ToNodeID   string    `json:"toNodeId"`
	Order      int64     `json:"order"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Input is one resolved input image of a generation node.
type Input struct {
	SourceID string `json:"id"`
	URL      string `json:"url"`
}

// NodeTemplate carries the caller's overrides for AddNode. Zero values keep
// the defaults.
type NodeTemplate struct {
	Kind            NodeKind
	Prompt          string
	Model           string
	AspectRatio     AspectRatio
	Resolution      Resolution
	BatchSize       int
	GeneratedImages []string
	UploadedImage   string
	Color           ColorTag
}

// NodePatch is a partial update. Nil fields are left untouched.
type NodePatch struct {
	X                  *float64     `json:"x,omitempty"`
	Y                  *float64     `json:"y,omitempty"`
	Prompt             *string      `json:"prompt,omitempty"`
	Model              *string      `json:"model,omitempty"`
	AspectRatio        *AspectRatio `json:"aspectRatio,omitempty"`
	Resolution         *Resolution  `json:"resolution,omitempty"`
	BatchSize          *int         `json:"batchSize,omitempty"`
	GeneratedImages    []string     `json:"generatedImages,omitempty"`
	SelectedImageIndex *int         `json:"selectedImageIndex,omitempty"`
	UploadedImage      *string      `json:"uploadedImage,omitempty"`
	Color              *ColorTag    `json:"colorTag,omitempty"`
	Status             *Status      `json:"status,omitempty"`
	Error              *string      `json:"error,omitempty"`
	Progress           *string      `json:"progress,omitempty"`
}

// HistoryItem is one previously produced result image.
type HistoryItem struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"timestamp"`
}

// Snapshot is a read-only copy of the board for rendering or serialisation.
type Snapshot struct {
	Nodes       []Node        `json:"nodes"`
	Connections []Connection  `json:"connections"`
	Viewport    Viewport      `json:"viewport"`
	State       UIState       `json:"state"`
	History     []HistoryItem `json:"history"`
}

func ptr[T any](v T) *T { return &v }
