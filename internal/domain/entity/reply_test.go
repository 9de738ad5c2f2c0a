package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseReply_Accept(t *testing.T) {
	c, err := ParseReply("ACCEPT - clean sticker (Confidence: 95%)")
	require.NoError(t, err)
	require.Equal(t, VerdictAccept, c.Verdict)
	require.Equal(t, "clean sticker", c.Reason)
	require.Equal(t, 95, c.Confidence)
}

func TestParseReply_CaseInsensitiveReject(t *testing.T) {
	c, err := ParseReply("  reject – white streaks in print layer. Confidence 70%  ")
	require.NoError(t, err)
	require.Equal(t, VerdictReject, c.Verdict)
	require.Equal(t, "white streaks in print layer", c.Reason)
	require.Equal(t, 70, c.Confidence)
}

func TestParseReply_MissingConfidence(t *testing.T) {
	c, err := ParseReply("REJECT: hole in lid")
	require.NoError(t, err)
	require.Equal(t, "hole in lid", c.Reason)
	require.Equal(t, 0, c.Confidence)
}

func TestParseReply_ClampsConfidence(t *testing.T) {
	c, err := ParseReply("ACCEPT - ok (Confidence: 250%)")
	require.NoError(t, err)
	require.Equal(t, 100, c.Confidence)
}

func TestParseReply_Malformed(t *testing.T) {
	for _, text := range []string{
		"",
		"The lid looks fine. ACCEPT",
		"ACCEPTED - fine",
		"ERROR - quota",
		"**ACCEPT** - markdown",
	} {
		_, err := ParseReply(text)
		require.Error(t, err, text)
		require.True(t, errors.Is(err, ErrPermanentClassification), text)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("429 too many requests")
	err := Wrap(ErrTransientClassification, "classify", cause)
	require.True(t, IsTransient(err))
	require.ErrorIs(t, err, cause)
	require.Equal(t, "transient classification failure: classify: 429 too many requests", err.Error())

	require.False(t, IsTransient(Wrap(ErrPreprocessing, "read", cause)))
	require.Equal(t, ErrVanishedFile, Wrap(ErrVanishedFile, "", nil))
}
