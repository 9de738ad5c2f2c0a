//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"lid-inspector/internal/domain/entity"
)

// Enabled сообщает, собран ли пакет с OpenCV.
const Enabled = false

// clean без OpenCV только проверяет изображение и отдаёт его как есть.
func (g *GlareRemover) clean(data []byte) (entity.ImagePayload, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return entity.ImagePayload{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width < g.MinImageSide || cfg.Height < g.MinImageSide {
		return entity.ImagePayload{}, fmt.Errorf("image is too small (%dx%d)", cfg.Width, cfg.Height)
	}
	return entity.ImagePayload{Data: data, MediaType: "image/" + format}, nil
}
