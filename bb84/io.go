package bb84

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/qkdlab/qkdsim/bb84/wire"
)

// maxFrameBytes bounds how large an announcement we are willing to
// decode, protecting against nonsense length prefixes.
const maxFrameBytes = 1 << 24

// A framer reads and writes framed announcement messages to the
// classical channel. The structure of the frame is trivial:
// little-endian payload length, then the protobuf-encoded payload. The
// channel is assumed reliable; message authentication is out of scope.
type framer struct {
	rw io.ReadWriter
}

func (f *framer) Write(m wire.Message, s *Stats) error {
	payload, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	if err := binary.Write(f.rw, binary.LittleEndian, int32(len(payload))); err != nil {
		return err
	}
	// Skip zero-length writes: they carry no bytes, and net.Pipe blocks
	// empty writes until a reader arrives that io.ReadFull never issues.
	if len(payload) > 0 {
		if _, err := f.rw.Write(payload); err != nil {
			return err
		}
	}
	s.MessagesSent++
	s.BytesSent += 4 + len(payload)
	return nil
}

func (f *framer) Read(m wire.Message, s *Stats) error {
	var mLen int32
	if err := binary.Read(f.rw, binary.LittleEndian, &mLen); err != nil {
		return err
	}
	if mLen < 0 || mLen > maxFrameBytes {
		return fmt.Errorf("bad frame length: %d", mLen)
	}
	payload := make([]byte, mLen)
	if _, err := io.ReadFull(f.rw, payload); err != nil {
		return err
	}
	if err := m.UnmarshalBinary(payload); err != nil {
		return err
	}
	s.MessagesReceived++
	s.BytesRead += 4 + int(mLen)
	return nil
}
