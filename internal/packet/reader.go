package packet

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/NESSBZID/bncho/internal/model"
)

// ErrTruncated is returned when a payload ends before a field's declared
// length is satisfied.
var ErrTruncated = fmt.Errorf("packet: payload truncated")

// Reader decodes primitive and composite fields from a single packet
// payload. All integers are little-endian. Reads past the end of the
// payload return ErrTruncated rather than panicking, so a malformed
// packet from one client never takes down the connection loop.
type Reader struct {
	buf []byte
	off int
}

func NewReader(payload []byte) *Reader {
	return &Reader{buf: payload}
}

// Remaining reports how many undecoded bytes are left in the payload.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadU8()
	return v != 0, err
}

// readULEB128 decodes an unsigned LEB128 length prefix.
func (r *Reader) readULEB128() (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := r.ReadU8()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
		if shift > 63 {
			return 0, fmt.Errorf("packet: uleb128 length overflows")
		}
	}
}

// ReadString decodes a length-prefixed string. A 0x00 marker byte means
// the empty string; 0x0b means a ULEB128 byte length follows.
func (r *Reader) ReadString() (string, error) {
	marker, err := r.ReadU8()
	if err != nil {
		return "", err
	}
	switch marker {
	case 0x00:
		return "", nil
	case 0x0b:
		n, err := r.readULEB128()
		if err != nil {
			return "", err
		}
		if n > uint64(r.Remaining()) {
			return "", fmt.Errorf("%w: string length %d exceeds remaining %d", ErrTruncated, n, r.Remaining())
		}
		b, err := r.take(int(n))
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("packet: invalid string marker 0x%02x", marker)
	}
}

// ReadI32List decodes a u16 count followed by that many i32 values.
func (r *Reader) ReadI32List() ([]int32, error) {
	n, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	out := make([]int32, 0, n)
	for i := 0; i < int(n); i++ {
		v, err := r.ReadI32()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Message is the chat message composite: sender name, text, recipient
// name, sender id.
type Message struct {
	Sender    string
	Text      string
	Recipient string
	SenderID  int32
}

func (r *Reader) ReadMessage() (Message, error) {
	var m Message
	var err error
	if m.Sender, err = r.ReadString(); err != nil {
		return m, err
	}
	if m.Text, err = r.ReadString(); err != nil {
		return m, err
	}
	if m.Recipient, err = r.ReadString(); err != nil {
		return m, err
	}
	m.SenderID, err = r.ReadI32()
	return m, err
}

// MatchData is the wire form of a multiplayer match. It carries the
// full settings and per-slot layout of a room in a single composite.
type MatchData struct {
	ID           int32
	InProgress   bool
	MatchType    model.MatchType
	Mods         model.Mods
	Name         string
	Password     string
	MapName      string
	MapID        int32
	MapMD5       string
	SlotStatuses [model.MaxMatchSlots]model.SlotStatus
	SlotTeams    [model.MaxMatchSlots]model.Team
	SlotUserIDs  [model.MaxMatchSlots]model.UserID
	HostID       model.UserID
	Mode         model.GameMode
	WinCondition model.WinCondition
	TeamType     model.TeamType
	Freemods     bool
	SlotMods     [model.MaxMatchSlots]model.Mods
	Seed         int32
}

// ReadMatch decodes a match composite as sent by the client. The id and
// in-progress fields are present on the wire but carry no authority from
// the client; they are decoded and surfaced for completeness.
func (r *Reader) ReadMatch() (MatchData, error) {
	var m MatchData

	id, err := r.ReadU16()
	if err != nil {
		return m, err
	}
	m.ID = int32(id)
	if m.InProgress, err = r.ReadBool(); err != nil {
		return m, err
	}
	mt, err := r.ReadU8()
	if err != nil {
		return m, err
	}
	m.MatchType = model.MatchType(mt)
	mods, err := r.ReadU32()
	if err != nil {
		return m, err
	}
	m.Mods = model.Mods(mods)
	if m.Name, err = r.ReadString(); err != nil {
		return m, err
	}
	if m.Password, err = r.ReadString(); err != nil {
		return m, err
	}
	if m.MapName, err = r.ReadString(); err != nil {
		return m, err
	}
	if m.MapID, err = r.ReadI32(); err != nil {
		return m, err
	}
	if m.MapMD5, err = r.ReadString(); err != nil {
		return m, err
	}
	for i := range m.SlotStatuses {
		v, err := r.ReadU8()
		if err != nil {
			return m, err
		}
		m.SlotStatuses[i] = model.SlotStatus(v)
	}
	for i := range m.SlotTeams {
		v, err := r.ReadU8()
		if err != nil {
			return m, err
		}
		m.SlotTeams[i] = model.Team(v)
	}
	for i, st := range m.SlotStatuses {
		if !st.HasPlayer() {
			continue
		}
		uid, err := r.ReadI32()
		if err != nil {
			return m, err
		}
		m.SlotUserIDs[i] = model.UserID(uid)
	}
	host, err := r.ReadI32()
	if err != nil {
		return m, err
	}
	m.HostID = model.UserID(host)
	mode, err := r.ReadU8()
	if err != nil {
		return m, err
	}
	m.Mode = model.GameMode(mode)
	wc, err := r.ReadU8()
	if err != nil {
		return m, err
	}
	m.WinCondition = model.WinCondition(wc)
	tt, err := r.ReadU8()
	if err != nil {
		return m, err
	}
	m.TeamType = model.TeamType(tt)
	if m.Freemods, err = r.ReadBool(); err != nil {
		return m, err
	}
	if m.Freemods {
		for i := range m.SlotMods {
			v, err := r.ReadU32()
			if err != nil {
				return m, err
			}
			m.SlotMods[i] = model.Mods(v)
		}
	}
	m.Seed, err = r.ReadI32()
	return m, err
}

// ReadRaw returns all remaining payload bytes without copying. Used for
// opaque passthrough payloads such as replay frame bundles.
func (r *Reader) ReadRaw() []byte {
	b := r.buf[r.off:]
	r.off = len(r.buf)
	return b
}
