package packet

import (
	"encoding/binary"
	"fmt"
	"math"
)

// HeaderLength is the size of the frame header: u16 packet id followed
// by u32 payload length, both little-endian.
const HeaderLength = 6

// MaxPayloadLength bounds how large a single inbound payload may claim
// to be. Anything larger is treated as a framing error.
const MaxPayloadLength = 1 << 20

// Writer accumulates one packet's payload and frames it on Finish.
// Encoding is infallible for in-range values; values that cannot be
// represented on the wire (list counts or match ids beyond u16) are
// programming errors and panic.
type Writer struct {
	id  ServerPacketID
	buf []byte
}

func NewWriter(id ServerPacketID) *Writer {
	return &Writer{id: id}
}

func (w *Writer) WriteU8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) WriteBool(v bool) *Writer {
	if v {
		return w.WriteU8(1)
	}
	return w.WriteU8(0)
}

func (w *Writer) WriteU16(v uint16) *Writer {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}

func (w *Writer) WriteI16(v int16) *Writer {
	return w.WriteU16(uint16(v))
}

func (w *Writer) WriteU32(v uint32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}

func (w *Writer) WriteI32(v int32) *Writer {
	return w.WriteU32(uint32(v))
}

func (w *Writer) WriteU64(v uint64) *Writer {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	return w
}

func (w *Writer) WriteI64(v int64) *Writer {
	return w.WriteU64(uint64(v))
}

func (w *Writer) WriteF32(v float32) *Writer {
	return w.WriteU32(math.Float32bits(v))
}

// WriteString encodes a length-prefixed string: 0x00 for empty, else
// 0x0b followed by a ULEB128 byte length and the UTF-8 bytes.
func (w *Writer) WriteString(s string) *Writer {
	if s == "" {
		return w.WriteU8(0x00)
	}
	w.buf = append(w.buf, 0x0b)
	n := uint64(len(s))
	for n >= 0x80 {
		w.buf = append(w.buf, byte(n)|0x80)
		n >>= 7
	}
	w.buf = append(w.buf, byte(n))
	w.buf = append(w.buf, s...)
	return w
}

// WriteI32List encodes a u16 count followed by the values.
func (w *Writer) WriteI32List(vs []int32) *Writer {
	if len(vs) > math.MaxUint16 {
		panic(fmt.Sprintf("packet: i32 list of %d entries exceeds u16 count", len(vs)))
	}
	w.WriteU16(uint16(len(vs)))
	for _, v := range vs {
		w.WriteI32(v)
	}
	return w
}

func (w *Writer) WriteMessage(m Message) *Writer {
	return w.WriteString(m.Sender).
		WriteString(m.Text).
		WriteString(m.Recipient).
		WriteI32(m.SenderID)
}

// WriteMatch encodes a match composite. The password is replaced with a
// single space when sendPassword is false and the match has one, so
// non-members learn that the room is locked without learning the secret.
func (w *Writer) WriteMatch(m MatchData, sendPassword bool) *Writer {
	if m.ID < 0 || m.ID > math.MaxUint16 {
		panic(fmt.Sprintf("packet: match id %d out of u16 range", m.ID))
	}
	w.WriteU16(uint16(m.ID))
	w.WriteBool(m.InProgress)
	w.WriteU8(uint8(m.MatchType))
	w.WriteU32(uint32(m.Mods))
	w.WriteString(m.Name)
	switch {
	case m.Password == "":
		w.WriteString("")
	case sendPassword:
		w.WriteString(m.Password)
	default:
		w.WriteString(" ")
	}
	w.WriteString(m.MapName)
	w.WriteI32(m.MapID)
	w.WriteString(m.MapMD5)
	for _, st := range m.SlotStatuses {
		w.WriteU8(uint8(st))
	}
	for _, t := range m.SlotTeams {
		w.WriteU8(uint8(t))
	}
	for i, st := range m.SlotStatuses {
		if st.HasPlayer() {
			w.WriteI32(int32(m.SlotUserIDs[i]))
		}
	}
	w.WriteI32(int32(m.HostID))
	w.WriteU8(uint8(m.Mode))
	w.WriteU8(uint8(m.WinCondition))
	w.WriteU8(uint8(m.TeamType))
	w.WriteBool(m.Freemods)
	if m.Freemods {
		for _, mods := range m.SlotMods {
			w.WriteU32(uint32(mods))
		}
	}
	return w.WriteI32(m.Seed)
}

func (w *Writer) WriteRaw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// Finish prepends the frame header and returns the complete frame.
func (w *Writer) Finish() []byte {
	out := make([]byte, HeaderLength+len(w.buf))
	binary.LittleEndian.PutUint16(out[0:2], uint16(w.id))
	binary.LittleEndian.PutUint32(out[2:6], uint32(len(w.buf)))
	copy(out[HeaderLength:], w.buf)
	return out
}
