package dcmerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormattingWithoutTag(t *testing.T) {
	e := New(InvalidLength, 128, Err, "length exceeds remaining data")
	assert.Equal(t, "InvalidLength at offset 128: length exceeds remaining data", e.Error())
	assert.False(t, e.HasTag)
}

func TestErrorFormattingWithTag(t *testing.T) {
	e := WithTag(OddLength, 64, Tag(0x00080060), Warning, "value length is odd")
	assert.Equal(t, "OddLength at offset 64, tag (0008,0060): value length is odd", e.Error())
}

func TestCodecErrorCarriesFrameAndFragOffset(t *testing.T) {
	e := Codec(3, 17, "unexpected end of entropy-coded segment")
	assert.Equal(t, CodecError, e.Kind)
	assert.Equal(t, Err, e.Severity)
	assert.Equal(t, 3, e.Frame)
	assert.EqualValues(t, 17, e.FragOffset)
}

func TestIsMatchesKindOfDcmerrError(t *testing.T) {
	e := New(NestingTooDeep, 0, Critical, "exceeded configured nesting depth")
	assert.True(t, Is(e, NestingTooDeep))
	assert.False(t, Is(e, OddLength))
}

func TestIsFalseForNonDcmerrError(t *testing.T) {
	assert.False(t, Is(errors.New("plain error"), InvalidLength))
}

func TestReportDeliversToNonNilHandler(t *testing.T) {
	var got *Issue
	h := func(i Issue) { got = &i }

	Report(h, Issue{Kind: OrphanPrivateData, Severity: Warning, Message: "orphan private element"})

	require.NotNil(t, got)
	assert.Equal(t, OrphanPrivateData, got.Kind)
	assert.Equal(t, "orphan private element", got.Message)
}

func TestReportIsNoOpWithNilHandler(t *testing.T) {
	assert.NotPanics(t, func() {
		Report(nil, Issue{Kind: UnknownCharacterSet})
	})
}

func TestKindAndSeverityStringers(t *testing.T) {
	assert.Equal(t, "DecodeError", DecodeError.String())
	assert.Equal(t, "Unknown", Kind(999).String())
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "unknown", Severity(999).String())
}
