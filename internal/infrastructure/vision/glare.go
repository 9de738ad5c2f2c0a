package vision

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

// GlareRemover готовит снимок крышки для классификатора:
// проверяет его, убирает блики и приводит к стандартному размеру.
type GlareRemover struct {
	ValueThreshold int // яркость (канал V в HSV), выше которой пиксель считается бликом
	KernelSize     int // размер эллиптического ядра для морфологического открытия маски
	InpaintRadius  float32
	MaxSide        int
	MinImageSide   int
	JPEGQuality    int

	readFile func(string) ([]byte, error)
}

// NewGlareRemover создаёт препроцессор с параметрами по умолчанию.
func NewGlareRemover() *GlareRemover {
	return &GlareRemover{
		ValueThreshold: 240,
		KernelSize:     7,
		InpaintRadius:  5,
		MaxSide:        1024,
		MinImageSide:   64,
		JPEGQuality:    90,
		readFile:       os.ReadFile,
	}
}

// Prepare читает файл и возвращает очищенное изображение.
func (g *GlareRemover) Prepare(ctx context.Context, path string) (entity.ImagePayload, error) {
	if err := ctx.Err(); err != nil {
		return entity.ImagePayload{}, err
	}

	data, err := g.readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %w", entity.ErrVanishedFile, err)
		}
		return entity.ImagePayload{}, entity.Wrap(entity.ErrPreprocessing, "read image", err)
	}
	if len(data) == 0 {
		return entity.ImagePayload{}, entity.Wrap(entity.ErrPreprocessing, "read image", errors.New("empty file"))
	}

	payload, err := g.clean(data)
	if err != nil {
		return entity.ImagePayload{}, entity.Wrap(entity.ErrPreprocessing, path, err)
	}
	return payload, nil
}

var _ port.Preprocessor = (*GlareRemover)(nil)
