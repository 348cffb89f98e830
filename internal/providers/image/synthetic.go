package image

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SyntheticGenerator produces deterministic placeholder URLs so local and CI
// environments stay fully operational without provider credentials.
type SyntheticGenerator struct {
	BaseURL string
}

func NewSyntheticGenerator() *SyntheticGenerator {
	return &SyntheticGenerator{BaseURL: "https://synthetic.storyreel.local/images"}
}

func (g *SyntheticGenerator) Generate(ctx context.Context, req GenerateRequest) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(req.RequestID + "|" + req.Prompt + "|" + req.IdentityAnchor))
	return &Asset{
		URL:    fmt.Sprintf("%s/%s.png", g.BaseURL, hex.EncodeToString(sum[:8])),
		Width:  1328,
		Height: 1328,
	}, nil
}

var _ Generator = (*SyntheticGenerator)(nil)
