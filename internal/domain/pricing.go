package domain

import "math"

// Image generation is flat-priced per model. Video pricing is the model's
// base cost scaled by the requested priority multiplier, rounded up.
var imageCosts = map[string]int{
	"qwen_image":      6,
	"qwen_image_plus": 8,
}

var videoBaseCosts = map[string]int{
	"wan_2_1_turbo": 12,
	"wan_2_2":       24,
	"wan_2_5":       38,
}

// Priority multipliers applied to video base costs.
const (
	PriorityStandard = 1.0
	PriorityHigh     = 1.5
)

const (
	DefaultImageModel = "qwen_image"
	DefaultVideoModel = "wan_2_5"
)

// ImageCost returns the credit cost of one image for the given model.
func ImageCost(model string) (int, error) {
	if model == "" {
		model = DefaultImageModel
	}
	cost, ok := imageCosts[model]
	if !ok {
		return 0, ErrUnknownModel
	}
	return cost, nil
}

// VideoCost returns ceil(base model cost x priority multiplier).
func VideoCost(model string, multiplier float64) (int, error) {
	if model == "" {
		model = DefaultVideoModel
	}
	base, ok := videoBaseCosts[model]
	if !ok {
		return 0, ErrUnknownModel
	}
	if multiplier <= 0 {
		multiplier = PriorityStandard
	}
	return int(math.Ceil(float64(base) * multiplier)), nil
}

// VideoBaseCost exposes the unscaled cost for spend-record auditing.
func VideoBaseCost(model string) int {
	if model == "" {
		model = DefaultVideoModel
	}
	return videoBaseCosts[model]
}
