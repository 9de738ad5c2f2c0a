package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransientClassification = errors.New("transient classification failure")
	ErrPermanentClassification = errors.New("permanent classification failure")
	ErrPreprocessing           = errors.New("preprocessing failure")
	ErrDiscoveryIO             = errors.New("discovery io error")
	ErrVanishedFile            = errors.New("file vanished")
	ErrStrictnessOutOfRange    = errors.New("strictness out of range")
	ErrConfiguration           = errors.New("configuration error")
)

// Wrap помечает ошибку маркером таксономии, сохраняя исходную причину.
func Wrap(marker error, op string, err error) error {
	if marker == nil {
		marker = ErrPermanentClassification
	}
	op = strings.TrimSpace(op)
	switch {
	case err != nil && op != "":
		return fmt.Errorf("%w: %s: %w", marker, op, err)
	case err != nil:
		return fmt.Errorf("%w: %w", marker, err)
	case op != "":
		return fmt.Errorf("%w: %s", marker, op)
	default:
		return marker
	}
}

// IsTransient сообщает, стоит ли повторять вызов классификатора.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientClassification)
}
