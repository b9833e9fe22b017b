// Package wire defines the classical-channel messages exchanged during a
// BB84 run, encoded in protobuf wire format via protowire. The messages
// are small and fixed, so they are maintained by hand rather than
// generated.
package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// A Message can round-trip itself through protobuf wire format.
type Message interface {
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// A DenseBitArray carries a packed bit vector along with its exact bit
// length, since the byte encoding alone is only accurate to within 7
// bits.
type DenseBitArray struct {
	Bits []byte
	Len  int32
}

// MarshalBinary implements the Message interface.
func (m *DenseBitArray) MarshalBinary() ([]byte, error) {
	var b []byte
	if len(m.Bits) > 0 {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Bits)
	}
	if m.Len != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(m.Len)))
	}
	return b, nil
}

// UnmarshalBinary implements the Message interface.
func (m *DenseBitArray) UnmarshalBinary(data []byte) error {
	*m = DenseBitArray{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Bits = append([]byte(nil), v...)
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Len = int32(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	if int(m.Len) > len(m.Bits)*8 {
		return fmt.Errorf("bit array claims %d bits, carries %d", m.Len, len(m.Bits)*8)
	}
	return nil
}

// A BasisAnnouncement publishes the measurement (or preparation) bases a
// participant used, plus a mask of which pulses were detected at all.
type BasisAnnouncement struct {
	Bases    *DenseBitArray
	Detected *DenseBitArray
}

// MarshalBinary implements the Message interface.
func (m *BasisAnnouncement) MarshalBinary() ([]byte, error) {
	var b []byte
	var err error
	if b, err = appendSubMessage(b, 1, m.Bases); err != nil {
		return nil, err
	}
	if b, err = appendSubMessage(b, 2, m.Detected); err != nil {
		return nil, err
	}
	return b, nil
}

// UnmarshalBinary implements the Message interface.
func (m *BasisAnnouncement) UnmarshalBinary(data []byte) error {
	*m = BasisAnnouncement{}
	return consumeFields(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.Bases = new(DenseBitArray)
			return consumeSubMessage(data, m.Bases)
		case num == 2 && typ == protowire.BytesType:
			m.Detected = new(DenseBitArray)
			return consumeSubMessage(data, m.Detected)
		}
		return protowire.ConsumeFieldValue(num, typ, data), nil
	})
}

// A SampleAnnouncement publishes the bits a participant sampled for
// error-rate estimation, along with the shuffle seed that selected them.
type SampleAnnouncement struct {
	Bits *DenseBitArray
	Seed int64
}

// MarshalBinary implements the Message interface.
func (m *SampleAnnouncement) MarshalBinary() ([]byte, error) {
	var b []byte
	var err error
	if b, err = appendSubMessage(b, 1, m.Bits); err != nil {
		return nil, err
	}
	if m.Seed != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Seed))
	}
	return b, nil
}

// UnmarshalBinary implements the Message interface.
func (m *SampleAnnouncement) UnmarshalBinary(data []byte) error {
	*m = SampleAnnouncement{}
	return consumeFields(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.Bits = new(DenseBitArray)
			return consumeSubMessage(data, m.Bits)
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n >= 0 {
				m.Seed = int64(v)
			}
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, data), nil
	})
}

// A QberAnnouncement publishes the error rate observed on the publicly
// compared sample of the sifted key.
type QberAnnouncement struct {
	Qber float64
}

// MarshalBinary implements the Message interface.
func (m *QberAnnouncement) MarshalBinary() ([]byte, error) {
	var b []byte
	if m.Qber != 0 {
		b = protowire.AppendTag(b, 1, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(m.Qber))
	}
	return b, nil
}

// UnmarshalBinary implements the Message interface.
func (m *QberAnnouncement) UnmarshalBinary(data []byte) error {
	*m = QberAnnouncement{}
	return consumeFields(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		if num == 1 && typ == protowire.Fixed64Type {
			v, n := protowire.ConsumeFixed64(data)
			if n >= 0 {
				m.Qber = math.Float64frombits(v)
			}
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, data), nil
	})
}

func appendSubMessage(b []byte, num protowire.Number, m *DenseBitArray) ([]byte, error) {
	if m == nil {
		return b, nil
	}
	sub, err := m.MarshalBinary()
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, sub)
	return b, nil
}

func consumeSubMessage(data []byte, m *DenseBitArray) (int, error) {
	v, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return n, nil
	}
	return n, m.UnmarshalBinary(v)
}

func consumeFields(data []byte, f func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		n, err := f(num, typ, data)
		if err != nil {
			return err
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
	}
	return nil
}
