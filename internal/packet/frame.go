package packet

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame is one decoded inbound frame: the packet id and its raw payload.
type Frame struct {
	ID      ClientPacketID
	Payload []byte
}

// ReadFrame reads a single frame from the stream. It blocks until a
// complete header and payload arrive, and rejects payloads claiming
// more than MaxPayloadLength bytes before allocating for them.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [HeaderLength]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	id := ClientPacketID(binary.LittleEndian.Uint16(hdr[0:2]))
	n := binary.LittleEndian.Uint32(hdr[2:6])
	if n > MaxPayloadLength {
		return Frame{}, fmt.Errorf("packet: payload length %d exceeds limit", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("packet: reading %d-byte payload for %s: %w", n, id, err)
	}
	return Frame{ID: id, Payload: payload}, nil
}

// Split parses a contiguous buffer of frames, as found in a bundled
// request body. Frames decoded before any malformed trailer are
// returned alongside the error.
func Split(buf []byte) ([]Frame, error) {
	var frames []Frame
	for len(buf) > 0 {
		if len(buf) < HeaderLength {
			return frames, fmt.Errorf("%w: %d trailing bytes, header needs %d", ErrTruncated, len(buf), HeaderLength)
		}
		id := ClientPacketID(binary.LittleEndian.Uint16(buf[0:2]))
		n := binary.LittleEndian.Uint32(buf[2:6])
		if n > MaxPayloadLength {
			return frames, fmt.Errorf("packet: payload length %d exceeds limit", n)
		}
		buf = buf[HeaderLength:]
		if uint32(len(buf)) < n {
			return frames, fmt.Errorf("%w: payload for %s declares %d bytes, %d remain", ErrTruncated, id, n, len(buf))
		}
		frames = append(frames, Frame{ID: id, Payload: buf[:n]})
		buf = buf[n:]
	}
	return frames, nil
}
