// Package wire implements the bit-exact wire formats of spec.md §6: the
// control-channel message framing, the UDP multicast sample-packet codec,
// and the archive TCP output framing. All multi-byte fields are
// big-endian on the wire.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/opensonata/dxcore/internal/dxerr"
)

// MessageCode enumerates the control-channel message codes relevant to
// the core, per spec.md §6.
type MessageCode uint16

const (
	MsgUnknown MessageCode = iota
	MsgRequestIntrinsics
	MsgConfigureDx
	MsgPermRFIMask
	MsgBirdieMask
	MsgRcvrBirdieMask
	MsgRecentRFIMask
	MsgTestSignalMask
	MsgSendDxActivityParameters
	MsgDxTuned
	MsgStartTime
	MsgBaselineInitAccumStarted
	MsgBaselineInitAccumComplete
	MsgDataCollectionStarted
	MsgDataCollectionComplete
	MsgBeginSendingCandidates
	MsgDoneSendingCandidates
	MsgBeginSendingSignals
	MsgDoneSendingSignals
	MsgBeginSendingBadBands
	MsgDoneSendingBadBands
	MsgBeginSendingCwCoherentSignals
	MsgDoneSendingCwCoherentSignals
	MsgSendCwPowerSignal
	MsgSendPulseSignal
	MsgSendCwCoherentSignal
	MsgRequestArchiveData
	MsgDiscardArchiveData
	MsgDxActivityComplete
	MsgShutdownDx
	MsgRestartDx
	MsgStopDxActivity
)

var msgNames = map[MessageCode]string{
	MsgRequestIntrinsics:             "REQUEST_INTRINSICS",
	MsgConfigureDx:                   "CONFIGURE_DX",
	MsgPermRFIMask:                   "PERM_RFI_MASK",
	MsgBirdieMask:                    "BIRDIE_MASK",
	MsgRcvrBirdieMask:                "RCVR_BIRDIE_MASK",
	MsgRecentRFIMask:                 "RECENT_RFI_MASK",
	MsgTestSignalMask:                "TEST_SIGNAL_MASK",
	MsgSendDxActivityParameters:      "SEND_DX_ACTIVITY_PARAMETERS",
	MsgDxTuned:                       "DX_TUNED",
	MsgStartTime:                     "START_TIME",
	MsgBaselineInitAccumStarted:      "BASELINE_INIT_ACCUM_STARTED",
	MsgBaselineInitAccumComplete:     "BASELINE_INIT_ACCUM_COMPLETE",
	MsgDataCollectionStarted:         "DATA_COLLECTION_STARTED",
	MsgDataCollectionComplete:        "DATA_COLLECTION_COMPLETE",
	MsgBeginSendingCandidates:        "BEGIN_SENDING_CANDIDATES",
	MsgDoneSendingCandidates:         "DONE_SENDING_CANDIDATES",
	MsgBeginSendingSignals:           "BEGIN_SENDING_SIGNALS",
	MsgDoneSendingSignals:            "DONE_SENDING_SIGNALS",
	MsgBeginSendingBadBands:          "BEGIN_SENDING_BAD_BANDS",
	MsgDoneSendingBadBands:           "DONE_SENDING_BAD_BANDS",
	MsgBeginSendingCwCoherentSignals: "BEGIN_SENDING_CW_COHERENT_SIGNALS",
	MsgDoneSendingCwCoherentSignals:  "DONE_SENDING_CW_COHERENT_SIGNALS",
	MsgSendCwPowerSignal:             "SEND_CW_POWER_SIGNAL",
	MsgSendPulseSignal:               "SEND_PULSE_SIGNAL",
	MsgSendCwCoherentSignal:          "SEND_CW_COHERENT_SIGNAL",
	MsgRequestArchiveData:            "REQUEST_ARCHIVE_DATA",
	MsgDiscardArchiveData:            "DISCARD_ARCHIVE_DATA",
	MsgDxActivityComplete:            "DX_ACTIVITY_COMPLETE",
	MsgShutdownDx:                    "SHUTDOWN_DX",
	MsgRestartDx:                     "RESTART_DX",
	MsgStopDxActivity:                "STOP_DX_ACTIVITY",
}

func (c MessageCode) String() string {
	if n, ok := msgNames[c]; ok {
		return n
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint16(c))
}

// headerWireLen is the fixed control-message header size: version(2) +
// code(2) + dataLength(4) + activityId(4) + timestamp(8) = 20 bytes.
const headerWireLen = 20

// Header is the fixed control-channel message header of spec.md §6.
type Header struct {
	Version    uint16
	Code       MessageCode
	DataLength uint32
	ActivityID uint32
	Timestamp  time.Time
}

// Message is a fully framed control-channel message: a header plus its
// code-specific body bytes.
type Message struct {
	Header Header
	Body   []byte
}

// WriteMessage frames and writes one control message to w.
func WriteMessage(w io.Writer, m Message) error {
	var hdr [headerWireLen]byte
	binary.BigEndian.PutUint16(hdr[0:2], m.Header.Version)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(m.Header.Code))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(m.Body)))
	binary.BigEndian.PutUint32(hdr[8:12], m.Header.ActivityID)
	binary.BigEndian.PutUint64(hdr[12:20], uint64(m.Header.Timestamp.UnixNano()))
	if _, err := w.Write(hdr[:]); err != nil {
		return dxerr.Wrap(dxerr.KindTransport, err, "writing control message header")
	}
	if len(m.Body) > 0 {
		if _, err := w.Write(m.Body); err != nil {
			return dxerr.Wrap(dxerr.KindTransport, err, "writing control message body")
		}
	}
	return nil
}

// ReadMessage reads one framed control message from r.
func ReadMessage(r io.Reader) (Message, error) {
	var hdr [headerWireLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Message{}, dxerr.Wrap(dxerr.KindTransport, err, "reading control message header")
	}
	h := Header{
		Version:    binary.BigEndian.Uint16(hdr[0:2]),
		Code:       MessageCode(binary.BigEndian.Uint16(hdr[2:4])),
		DataLength: binary.BigEndian.Uint32(hdr[4:8]),
		ActivityID: binary.BigEndian.Uint32(hdr[8:12]),
		Timestamp:  time.Unix(0, int64(binary.BigEndian.Uint64(hdr[12:20]))),
	}
	body := make([]byte, h.DataLength)
	if h.DataLength > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return Message{}, dxerr.Wrap(dxerr.KindTransport, err, "reading control message body")
		}
	}
	return Message{Header: h, Body: body}, nil
}

