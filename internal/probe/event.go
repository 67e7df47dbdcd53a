package probe

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Wire layout of an exported transaction record. Readers decode by offset.
const (
	offType     = 0
	offOutcome  = 4
	offDuration = 8
	offID       = 16

	// IDSize is the size of the correlation identifier.
	IDSize = 32
	// EventSize is the encoded size of an ExportedEvent.
	EventSize = offID + IDSize
)

// ExportedEvent is one completed transaction.
type ExportedEvent struct {
	Type     uint32
	Outcome  int32
	Duration uint64
	ID       [IDSize]byte
}

// MarshalTo writes the 48-byte little-endian record into b, which must be at
// least EventSize long.
func (e *ExportedEvent) MarshalTo(b []byte) {
	_ = b[EventSize-1]
	binary.LittleEndian.PutUint32(b[offType:], e.Type)
	binary.LittleEndian.PutUint32(b[offOutcome:], uint32(e.Outcome))
	binary.LittleEndian.PutUint64(b[offDuration:], e.Duration)
	copy(b[offID:offID+IDSize], e.ID[:])
}

// DecodeEvent parses a record produced by MarshalTo or by the kernel probe.
// Trailing bytes (perf buffers pad samples to 8 bytes) are ignored.
func DecodeEvent(b []byte) (ExportedEvent, error) {
	var e ExportedEvent
	if len(b) < EventSize {
		return e, fmt.Errorf("probe: short event record: %d bytes, want %d", len(b), EventSize)
	}
	e.Type = binary.LittleEndian.Uint32(b[offType:])
	e.Outcome = int32(binary.LittleEndian.Uint32(b[offOutcome:]))
	e.Duration = binary.LittleEndian.Uint64(b[offDuration:])
	copy(e.ID[:], b[offID:offID+IDSize])
	return e, nil
}

// HexID renders the identifier as 64 uppercase hex characters, the form
// transaction hashes are stored and looked up in.
func (e *ExportedEvent) HexID() string {
	var buf [IDSize * 2]byte
	hex.Encode(buf[:], e.ID[:])
	for i, c := range buf {
		if c >= 'a' && c <= 'f' {
			buf[i] = c - ('a' - 'A')
		}
	}
	return string(buf[:])
}
