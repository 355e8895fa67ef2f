package whiteboard

import "slices"

// ParamMode decides how the generation client builds the request payload.
type ParamMode string

const (
	ParamModePro      ParamMode = "pro"
	ParamModeStandard ParamMode = "standard"
)

// Capability describes what one model accepts. It is the single source for
// option rendering and for coercing node settings.
type Capability struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	APIValue          string        `json:"apiValue"`
	EditAPIValue      string        `json:"editApiValue,omitempty"`
	Badge             string        `json:"badge"`
	ParamMode         ParamMode     `json:"paramMode"`
	ValidResolutions  []Resolution  `json:"validResolutions"`
	ValidRatios       []AspectRatio `json:"validRatios"`
	DefaultResolution Resolution    `json:"defaultResolution"`
	DefaultRatio      AspectRatio   `json:"defaultRatio"`
}

const (
	ModelNanoBananaPro = "nano-banana-pro"
	ModelNanoBanana    = "nano-banana"

	DefaultModel = ModelNanoBananaPro
)

var models = []Capability{
	{
		ID:                ModelNanoBananaPro,
		Name:              "Nano Banana Pro",
		APIValue:          "nano-banana-pro",
		Badge:             "Pro",
		ParamMode:         ParamModePro,
		ValidResolutions:  []Resolution{Res1K, Res2K, Res4K},
		ValidRatios:       []AspectRatio{RatioDefault, Ratio1x1, Ratio9x16, Ratio16x9, Ratio3x4, Ratio4x3, Ratio21x9},
		DefaultResolution: Res2K,
		DefaultRatio:      Ratio9x16,
	},
	{
		ID:                ModelNanoBanana,
		Name:              "Nano Banana",
		APIValue:          "google/nano-banana",
		EditAPIValue:      "google/nano-banana-edit",
		Badge:             "Banana",
		ParamMode:         ParamModeStandard,
		ValidResolutions:  []Resolution{Res1K},
		ValidRatios:       []AspectRatio{RatioDefault, Ratio1x1, Ratio9x16, Ratio16x9, Ratio3x4, Ratio4x3, Ratio3x2, Ratio2x3, Ratio21x9, Ratio5x4, Ratio4x5},
		DefaultResolution: Res1K,
		DefaultRatio:      RatioDefault,
	},
}

// Models lists the known models in display order.
func Models() []Capability {
	return slices.Clone(models)
}

// LookupModel returns the capability for id, falling back to DefaultModel.
func LookupModel(id string) Capability {
	for _, m := range models {
		if m.ID == id {
			return m
		}
	}
	return models[0]
}

// Coerce replaces a resolution or ratio the model does not accept with the
// model's default for that axis.
func (c Capability) Coerce(res Resolution, ratio AspectRatio) (Resolution, AspectRatio) {
	if !slices.Contains(c.ValidResolutions, res) {
		res = c.DefaultResolution
	}
	if !slices.Contains(c.ValidRatios, ratio) {
		ratio = c.DefaultRatio
	}
	return res, ratio
}

func validBatchSize(n int) bool {
	return n == 1 || n == 2 || n == 4
}
