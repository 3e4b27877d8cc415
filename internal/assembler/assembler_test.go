package assembler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensonata/dxcore/internal/model"
)

func mkPacket(seq uint32, pol model.Polarization, n int) *model.SamplePacket {
	s := make([]complex64, n)
	for i := range s {
		s[i] = complex(1, 0)
	}
	return &model.SamplePacket{
		Seq: seq, Pol: pol, SourceID: 1, ChannelID: 1, Valid: true,
		AbsTime: time.Unix(100, 0), Samples: s,
	}
}

func TestAssembler_SynchronizedPairsAdvanceCurSeq(t *testing.T) {
	a := New(1, 1, 4096, time.Unix(0, 0), false, model.PolUnknown)
	for seq := uint32(0); seq < 5; seq++ {
		require.NoError(t, a.OnPacket(mkPacket(seq, model.PolLeftCircular, 8)))
		require.NoError(t, a.OnPacket(mkPacket(seq, model.PolRightCircular, 8)))
	}
	assert.EqualValues(t, 5, a.Stats.Processed)
	assert.EqualValues(t, 0, a.Stats.Missed)
	assert.Equal(t, uint32(5), a.curSeq)
}

func TestAssembler_MissingPolSubstitutesZeroPacket(t *testing.T) {
	a := New(1, 1, 4096, time.Unix(0, 0), false, model.PolUnknown)
	require.NoError(t, a.OnPacket(mkPacket(0, model.PolLeftCircular, 8)))
	require.NoError(t, a.OnPacket(mkPacket(1, model.PolRightCircular, 8))) // R skipped seq 0
	assert.EqualValues(t, 1, a.Stats.Missed)
}

func TestAssembler_WrongChannelPacketCounted(t *testing.T) {
	a := New(1, 1, 4096, time.Unix(0, 0), false, model.PolUnknown)
	pkt := mkPacket(0, model.PolLeftCircular, 8)
	pkt.ChannelID = 99
	require.NoError(t, a.OnPacket(pkt))
	assert.EqualValues(t, 1, a.Stats.Wrong)
}

func TestAssembler_SinglePolClonesToInactiveRail(t *testing.T) {
	a := New(1, 1, 4096, time.Unix(0, 0), true, model.PolRightCircular)
	require.NoError(t, a.OnPacket(mkPacket(0, model.PolRightCircular, 8)))
	assert.EqualValues(t, 1, a.Stats.Processed)
}

func TestAssembler_LargeImbalanceAbortsWithStreamDesync(t *testing.T) {
	a := New(1, 1, 1<<20, time.Unix(0, 0), false, model.PolUnknown)
	require.NoError(t, a.OnPacket(mkPacket(0, model.PolLeftCircular, 8)))
	var lastErr error
	for seq := uint32(1); seq <= MaxPacketError+1; seq++ {
		lastErr = a.OnPacket(mkPacket(seq, model.PolRightCircular, 8))
		if lastErr != nil {
			break
		}
	}
	require.Error(t, lastErr)
}
