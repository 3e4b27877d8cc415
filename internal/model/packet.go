package model

import "time"

// SamplePacket is one ordered, dual-polarization-tagged packet of
// complex-int16 baseband samples for a single polarization, as described
// in spec §3 "Sample packet".
type SamplePacket struct {
	Seq     uint32 // monotonic per polarization
	AbsTime time.Time
	Pol     Polarization
	SourceID uint32
	ChannelID uint32
	Valid   bool // DATA_VALID flag
	Samples []complex64
}

// Len reports the number of samples carried by the packet.
func (p *SamplePacket) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Samples)
}

// ZeroPacket builds a substitute packet of the given length for a gap in
// the sequence, matching the assembler's zero-padding rule (spec §4.2).
func ZeroPacket(seq uint32, pol Polarization, length int, at time.Time) *SamplePacket {
	return &SamplePacket{
		Seq:     seq,
		AbsTime: at,
		Pol:     pol,
		Valid:   true,
		Samples: make([]complex64, length),
	}
}
