package app

import (
	"cmp"
	"slices"
	"strings"

	"lid-inspector/internal/domain/entity"
)

// Sequence упорядочивает имена пачки в порядке съёмки:
// числовые основы по возрастанию, затем остальные лексикографически.
// Исходный срез не изменяется.
func Sequence(names []string) []string {
	out := slices.Clone(names)
	slices.SortStableFunc(out, compareNames)
	return out
}

func compareNames(a, b string) int {
	ka, okA := entity.NumericKey(a)
	kb, okB := entity.NumericKey(b)
	switch {
	case okA && okB:
		if c := cmp.Compare(ka, kb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
