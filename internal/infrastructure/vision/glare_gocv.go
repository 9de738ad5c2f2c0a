//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"lid-inspector/internal/domain/entity"
)

// Enabled сообщает, собран ли пакет с OpenCV.
const Enabled = true

func (g *GlareRemover) clean(data []byte) (entity.ImagePayload, error) {
	mat, err := decodeToMat(data)
	if err != nil {
		return entity.ImagePayload{}, err
	}
	defer mat.Close()

	if mat.Cols() < g.MinImageSide || mat.Rows() < g.MinImageSide {
		return entity.ImagePayload{}, fmt.Errorf("image is too small (%dx%d)", mat.Cols(), mat.Rows())
	}

	// Приводим изображение к стандартному размеру, чтобы не раздувать запрос.
	if mat.Cols() > g.MaxSide || mat.Rows() > g.MaxSide {
		scale := float64(g.MaxSide) / float64(max(mat.Cols(), mat.Rows()))
		newW := int(float64(mat.Cols()) * scale)
		newH := int(float64(mat.Rows()) * scale)
		resized := gocv.NewMat()
		gocv.Resize(mat, &resized, image.Pt(newW, newH), 0, 0, gocv.InterpolationArea)
		mat.Close()
		mat = resized
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(mat, &hsv, gocv.ColorBGRToHSV)
	channels := gocv.Split(hsv)
	for i := range channels {
		defer channels[i].Close()
	}
	if len(channels) < 3 {
		return entity.ImagePayload{}, errors.New("invalid hsv channels")
	}

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(channels[2], &mask, float32(g.ValueThreshold), 255, gocv.ThresholdBinary)

	// Открытие убирает одиночные яркие точки, оставляя крупные блики.
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(g.KernelSize, g.KernelSize))
	defer kernel.Close()
	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(mask, &opened, gocv.MorphOpen, kernel)

	cleaned := gocv.NewMat()
	defer cleaned.Close()
	if gocv.CountNonZero(opened) > 0 {
		gocv.Inpaint(mat, opened, &cleaned, g.InpaintRadius, gocv.Telea)
	} else {
		mat.CopyTo(&cleaned)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, cleaned, []int{gocv.IMWriteJpegQuality, g.JPEGQuality})
	if err != nil {
		return entity.ImagePayload{}, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return entity.ImagePayload{Data: out, MediaType: "image/jpeg"}, nil
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), errors.New("failed to decode image")
}
