package adapters

import (
	"context"
)

// ImageScorer rates how explicit an image is, from 0 (safe) to 1 (explicit).
type ImageScorer interface {
	ScoreImage(ctx context.Context, image []byte, mimeType string) (float64, error)
}
