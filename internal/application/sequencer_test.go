package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequence_NumericOrder(t *testing.T) {
	require.Equal(t, []string{"1.jpg", "2.jpg", "3.jpg"}, Sequence([]string{"3.jpg", "1.jpg", "2.jpg"}))
}

func TestSequence_NumericBeforeNamed(t *testing.T) {
	in := []string{"b.jpg", "10.jpg", "a.png", "9.jpeg", "010.jpg"}
	require.Equal(t, []string{"9.jpeg", "010.jpg", "10.jpg", "a.png", "b.jpg"}, Sequence(in))
	require.Equal(t, "b.jpg", in[0], "input must not be modified")
}

func TestSequence_Empty(t *testing.T) {
	require.Empty(t, Sequence(nil))
}
