package probe

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportedEvent_RoundTrip(t *testing.T) {
	ev := ExportedEvent{Type: 3, Outcome: -2, Duration: 500000}
	for i := range ev.ID {
		ev.ID[i] = byte(0xA0 + i)
	}

	var buf [EventSize]byte
	ev.MarshalTo(buf[:])

	got, err := DecodeEvent(buf[:])
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}

func TestExportedEvent_Layout(t *testing.T) {
	ev := ExportedEvent{Type: 0x01020304, Outcome: -1, Duration: 0x1122334455667788}
	ev.ID[0] = 0xEE
	ev.ID[31] = 0xFF

	var buf [EventSize]byte
	ev.MarshalTo(buf[:])

	assert.Equal(t, 48, EventSize)
	assert.Equal(t, uint32(0x01020304), binary.LittleEndian.Uint32(buf[0:]))
	assert.Equal(t, uint32(0xFFFFFFFF), binary.LittleEndian.Uint32(buf[4:]))
	assert.Equal(t, uint64(0x1122334455667788), binary.LittleEndian.Uint64(buf[8:]))
	assert.Equal(t, byte(0xEE), buf[16])
	assert.Equal(t, byte(0xFF), buf[47])
}

func TestDecodeEvent_ShortAndPadded(t *testing.T) {
	_, err := DecodeEvent(make([]byte, EventSize-1))
	assert.Error(t, err)

	padded := make([]byte, EventSize+4)
	padded[0] = 9
	ev, err := DecodeEvent(padded)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), ev.Type)
}

func TestExportedEvent_HexID(t *testing.T) {
	var ev ExportedEvent
	ev.ID[0] = 0xAB
	ev.ID[31] = 0x0f

	hexID := ev.HexID()
	assert.Len(t, hexID, 64)
	assert.Equal(t, "AB", hexID[:2])
	assert.Equal(t, "0F", hexID[62:])
}
