package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNumericKey(t *testing.T) {
	cases := []struct {
		name string
		key  int64
		ok   bool
	}{
		{"3.jpg", 3, true},
		{"0012.JPEG", 12, true},
		{"-1.jpg", 0, false},
		{"1a.jpg", 0, false},
		{"lid.png", 0, false},
		{".jpg", 0, false},
	}
	for _, tc := range cases {
		key, ok := NumericKey(tc.name)
		require.Equal(t, tc.ok, ok, tc.name)
		require.Equal(t, tc.key, key, tc.name)
	}
}

func TestIsImageName(t *testing.T) {
	require.True(t, IsImageName("1.jpg"))
	require.True(t, IsImageName("1.JPEG"))
	require.True(t, IsImageName("a.png"))
	require.False(t, IsImageName("1.jpg.part"))
	require.False(t, IsImageName("notes.txt"))
}

func TestImageRecord_DecideAndFail(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewImageRecord("/in", "7.jpg", now)
	require.Equal(t, StateDiscovered, r.State)
	require.Equal(t, "/in/7.jpg", r.Path)
	require.True(t, r.HasNumeric)
	require.Equal(t, int64(7), r.NumericKey)

	r.Decide(Classification{Verdict: VerdictReject, Reason: "streak", Confidence: 80}, now)
	require.Equal(t, StateDecided, r.State)
	require.True(t, r.State.Terminal())
	require.Equal(t, VerdictReject, r.Verdict)

	r.Fail(errors.New("boom"), now)
	require.Equal(t, StateFailed, r.State)
	require.Equal(t, VerdictNone, r.Verdict)
	require.Equal(t, 0, r.Confidence)
	require.Equal(t, "boom", r.Reason)
}

func TestSignalFor(t *testing.T) {
	require.Equal(t, Signal{Accept: true}, SignalFor(VerdictAccept))
	require.Equal(t, Signal{Reject: true}, SignalFor(VerdictReject))
	require.True(t, SignalFor(VerdictNone).Neutral())
}

func TestValidateStrictness(t *testing.T) {
	require.NoError(t, ValidateStrictness(1))
	require.NoError(t, ValidateStrictness(5))
	require.ErrorIs(t, ValidateStrictness(0), ErrStrictnessOutOfRange)
	require.ErrorIs(t, ValidateStrictness(6), ErrStrictnessOutOfRange)
}
