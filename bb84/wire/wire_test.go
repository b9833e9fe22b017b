package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasisAnnouncementRoundTrip(t *testing.T) {
	msg := &BasisAnnouncement{
		Bases:    &DenseBitArray{Bits: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, Len: 70},
		Detected: &DenseBitArray{Bits: []byte{10, 11, 12, 13, 14, 15, 16, 17, 18}, Len: 70},
	}
	data, err := msg.MarshalBinary()
	require.NoError(t, err)

	got := new(BasisAnnouncement)
	require.NoError(t, got.UnmarshalBinary(data))
	assert.Equal(t, msg, got)
}

func TestBasisAnnouncementOmitsNilFields(t *testing.T) {
	msg := &BasisAnnouncement{
		Bases: &DenseBitArray{Bits: []byte{0xAB}, Len: 8},
	}
	data, err := msg.MarshalBinary()
	require.NoError(t, err)

	got := new(BasisAnnouncement)
	require.NoError(t, got.UnmarshalBinary(data))
	assert.Equal(t, msg.Bases, got.Bases)
	assert.Nil(t, got.Detected)
}

func TestSampleAnnouncementRoundTrip(t *testing.T) {
	msg := &SampleAnnouncement{
		Bits: &DenseBitArray{Bits: []byte{0b1011}, Len: 4},
		Seed: 987654321,
	}
	data, err := msg.MarshalBinary()
	require.NoError(t, err)

	got := new(SampleAnnouncement)
	require.NoError(t, got.UnmarshalBinary(data))
	assert.Equal(t, msg, got)
}

func TestQberAnnouncementRoundTrip(t *testing.T) {
	msg := &QberAnnouncement{Qber: 0.239}
	data, err := msg.MarshalBinary()
	require.NoError(t, err)

	got := new(QberAnnouncement)
	require.NoError(t, got.UnmarshalBinary(data))
	assert.InDelta(t, msg.Qber, got.Qber, 1e-12)
}

func TestEmptyMessagesDecode(t *testing.T) {
	// Zero values encode to zero bytes and decode back to zero values.
	for _, m := range []Message{new(DenseBitArray), new(BasisAnnouncement), new(SampleAnnouncement), new(QberAnnouncement)} {
		data, err := m.MarshalBinary()
		require.NoError(t, err)
		assert.Empty(t, data)
		require.NoError(t, m.UnmarshalBinary(nil))
	}
}

func TestDenseBitArrayLengthValidation(t *testing.T) {
	msg := &DenseBitArray{Bits: []byte{0xFF}, Len: 9}
	data, err := msg.MarshalBinary()
	require.NoError(t, err)

	got := new(DenseBitArray)
	assert.Error(t, got.UnmarshalBinary(data), "bit length beyond payload must be rejected")
}

func TestUnknownFieldsSkipped(t *testing.T) {
	// A message from a newer peer may carry fields we do not know; they
	// must be skipped, not treated as corruption.
	base := &QberAnnouncement{Qber: 0.125}
	data, err := base.MarshalBinary()
	require.NoError(t, err)
	// field 15, varint 7
	data = append(data, 0x78, 0x07)

	got := new(QberAnnouncement)
	require.NoError(t, got.UnmarshalBinary(data))
	assert.InDelta(t, 0.125, got.Qber, 1e-12)
}
