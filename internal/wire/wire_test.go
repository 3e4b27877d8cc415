package wire

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMessage_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Message{
		Header: Header{
			Version:    1,
			Code:       MsgConfigureDx,
			ActivityID: 42,
			Timestamp:  time.Unix(1000, 0),
		},
		Body: []byte("hello"),
	}
	require.NoError(t, WriteMessage(&buf, want))

	got, err := ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, want.Header.Version, got.Header.Version)
	assert.Equal(t, want.Header.Code, got.Header.Code)
	assert.Equal(t, want.Header.ActivityID, got.Header.ActivityID)
	assert.Equal(t, want.Body, got.Body)
}

func TestPacket_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 64).Draw(t, "n")
		samples := make([]complex64, n)
		for i := range samples {
			re := rapid.Int32Range(-30000, 30000).Draw(t, "re")
			im := rapid.Int32Range(-30000, 30000).Draw(t, "im")
			samples[i] = complex(float32(re), float32(im))
		}
		hdr := PacketHeader{
			Version: 1,
			Src:     7,
			Chan:    3,
			Seq:     rapid.Uint32().Draw(t, "seq"),
			AbsTime: time.Unix(100, 0),
			Flags:   FlagDataValid,
			PolCode: 0,
			FreqHz:  1420.4e6,
		}
		raw := EncodePacket(hdr, samples)
		gotHdr, pkt, err := DecodePacket(raw)
		require.NoError(t, err)
		assert.Equal(t, hdr.Seq, gotHdr.Seq)
		assert.Equal(t, hdr.Src, gotHdr.Src)
		assert.True(t, pkt.Valid)
		require.Len(t, pkt.Samples, n)
		for i := range samples {
			assert.Equal(t, samples[i], pkt.Samples[i])
		}
	})
}

func TestDecodePacket_RejectsShortDatagram(t *testing.T) {
	_, _, err := DecodePacket([]byte{1, 2, 3})
	assert.Error(t, err)
}
