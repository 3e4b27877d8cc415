package wire

import (
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/opensonata/dxcore/internal/dxerr"
	"github.com/opensonata/dxcore/internal/model"
)

// PacketFlags is the sample-packet flags field; bit 0 is DATA_VALID.
type PacketFlags uint16

const FlagDataValid PacketFlags = 1 << 0

// packetHeaderLen is the fixed UDP multicast sample-packet header size:
// version(2) + src(4) + chan(4) + seq(4) + absTime(8) + flags(2) +
// polCode(2) + freq(8) + len(4) = 38 bytes.
const packetHeaderLen = 38

// PacketHeader is the fixed sample-packet header of spec.md §6.
type PacketHeader struct {
	Version  uint16
	Src      uint32
	Chan     uint32
	Seq      uint32
	AbsTime  time.Time
	Flags    PacketFlags
	PolCode  uint16
	FreqHz   float64
	Len      uint32 // sample count following the header
}

// DecodePacket parses one UDP multicast datagram into a PacketHeader and
// its complex-int16 sample payload, expanded to complex64.
func DecodePacket(datagram []byte) (PacketHeader, *model.SamplePacket, error) {
	if len(datagram) < packetHeaderLen {
		return PacketHeader{}, nil, dxerr.New(dxerr.KindData, "packet too short: %d bytes", len(datagram))
	}
	h := PacketHeader{
		Version: binary.BigEndian.Uint16(datagram[0:2]),
		Src:     binary.BigEndian.Uint32(datagram[2:6]),
		Chan:    binary.BigEndian.Uint32(datagram[6:10]),
		Seq:     binary.BigEndian.Uint32(datagram[10:14]),
		AbsTime: time.Unix(0, int64(binary.BigEndian.Uint64(datagram[14:22]))),
		Flags:   PacketFlags(binary.BigEndian.Uint16(datagram[22:24])),
		PolCode: binary.BigEndian.Uint16(datagram[24:26]),
		FreqHz:  math.Float64frombits(binary.BigEndian.Uint64(datagram[26:34])),
		Len:     binary.BigEndian.Uint32(datagram[34:38]),
	}
	payload := datagram[packetHeaderLen:]
	wantBytes := int(h.Len) * 4 // complex-int16: 2 bytes re + 2 bytes im
	if len(payload) < wantBytes {
		return h, nil, dxerr.New(dxerr.KindData, "packet declares %d samples but has %d payload bytes", h.Len, len(payload))
	}
	samples := make([]complex64, h.Len)
	for i := 0; i < int(h.Len); i++ {
		re := int16(binary.BigEndian.Uint16(payload[i*4 : i*4+2]))
		im := int16(binary.BigEndian.Uint16(payload[i*4+2 : i*4+4]))
		samples[i] = complex(float32(re), float32(im))
	}
	pkt := &model.SamplePacket{
		Seq:       h.Seq,
		AbsTime:   h.AbsTime,
		Pol:       polFromCode(h.PolCode),
		SourceID:  h.Src,
		ChannelID: h.Chan,
		Valid:     h.Flags&FlagDataValid != 0,
		Samples:   samples,
	}
	return h, pkt, nil
}

// EncodePacket marshals a header and complex64 samples (clamped to
// int16) into one UDP multicast datagram, the inverse of DecodePacket.
func EncodePacket(h PacketHeader, samples []complex64) []byte {
	h.Len = uint32(len(samples))
	buf := make([]byte, packetHeaderLen+len(samples)*4)
	binary.BigEndian.PutUint16(buf[0:2], h.Version)
	binary.BigEndian.PutUint32(buf[2:6], h.Src)
	binary.BigEndian.PutUint32(buf[6:10], h.Chan)
	binary.BigEndian.PutUint32(buf[10:14], h.Seq)
	binary.BigEndian.PutUint64(buf[14:22], uint64(h.AbsTime.UnixNano()))
	binary.BigEndian.PutUint16(buf[22:24], uint16(h.Flags))
	binary.BigEndian.PutUint16(buf[24:26], h.PolCode)
	binary.BigEndian.PutUint64(buf[26:34], math.Float64bits(h.FreqHz))
	binary.BigEndian.PutUint32(buf[34:38], h.Len)
	for i, s := range samples {
		re := clampInt16(real(s))
		im := clampInt16(imag(s))
		off := packetHeaderLen + i*4
		binary.BigEndian.PutUint16(buf[off:off+2], uint16(re))
		binary.BigEndian.PutUint16(buf[off+2:off+4], uint16(im))
	}
	return buf
}

func clampInt16(v float32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func polFromCode(code uint16) model.Polarization {
	switch code {
	case 0:
		return model.PolLeftCircular
	case 1:
		return model.PolRightCircular
	default:
		return model.PolUnknown
	}
}

// archiveHeaderLen is the fixed ArchiveDataHeader size: activityId(4) +
// subchannel(4) + count(4) = 12 bytes, followed by Count
// ComplexAmplitudeHeader+payload records.
const archiveHeaderLen = 12

// ArchiveHeader precedes a run of archive complex-amplitude records for
// one activity/subchannel.
type ArchiveHeader struct {
	ActivityID uint32
	Subchannel uint32
	Count      uint32
}

// WriteArchiveHeader writes the archive stream's leading header.
func WriteArchiveHeader(w io.Writer, h ArchiveHeader) error {
	var buf [archiveHeaderLen]byte
	binary.BigEndian.PutUint32(buf[0:4], h.ActivityID)
	binary.BigEndian.PutUint32(buf[4:8], h.Subchannel)
	binary.BigEndian.PutUint32(buf[8:12], h.Count)
	if _, err := w.Write(buf[:]); err != nil {
		return dxerr.Wrap(dxerr.KindTransport, err, "writing archive header")
	}
	return nil
}

// complexAmplitudeHeaderLen: halfFrameIndex(8) + numSub(4) + samplesPerHF(4).
const complexAmplitudeHeaderLen = 16

// WriteComplexAmplitudes writes one ComplexAmplitudeHeader followed by
// the CD grid's packed bytes for one half-frame.
func WriteComplexAmplitudes(w io.Writer, halfFrameIndex int64, numSub, samplesPerHF int, packed []byte) error {
	var buf [complexAmplitudeHeaderLen]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(halfFrameIndex))
	binary.BigEndian.PutUint32(buf[8:12], uint32(numSub))
	binary.BigEndian.PutUint32(buf[12:16], uint32(samplesPerHF))
	if _, err := w.Write(buf[:]); err != nil {
		return dxerr.Wrap(dxerr.KindTransport, err, "writing complex-amplitude header")
	}
	if _, err := w.Write(packed); err != nil {
		return dxerr.Wrap(dxerr.KindTransport, err, "writing complex-amplitude payload")
	}
	return nil
}

// WriteDoneSendingArchiveComplexAmplitudes writes the sentinel that ends
// an archive stream: a ComplexAmplitudeHeader whose halfFrameIndex is all
// ones and whose other fields are zero, per
// spec.md §6's "... ending with a DONE_SENDING_ARCHIVE_COMPLEX_AMPLITUDES
// sentinel."
func WriteDoneSendingArchiveComplexAmplitudes(w io.Writer) error {
	var buf [complexAmplitudeHeaderLen]byte
	// all-zero header with halfFrameIndex = -1 is the sentinel.
	binary.BigEndian.PutUint64(buf[0:8], ^uint64(0))
	if _, err := w.Write(buf[:]); err != nil {
		return dxerr.Wrap(dxerr.KindTransport, err, "writing archive sentinel")
	}
	return nil
}
