package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxMessageSize is the read ceiling for a single frame. A logical message
// that does not fit is a framing error, not a retryable condition.
const MaxMessageSize = 4096

var (
	// ErrConnectionClosed covers zero-length reads, reset peers, and frames
	// that cannot be parsed at all. The caller decides whether anything can
	// still be sent before closing.
	ErrConnectionClosed = errors.New("connection terminated")

	// ErrFrameTooLarge is returned when a single frame exceeds MaxMessageSize.
	ErrFrameTooLarge = fmt.Errorf("frame exceeds %d bytes", MaxMessageSize)

	// ErrMalformedPayload is returned by Frame.Decode when the frame body
	// does not match the expected payload shape.
	ErrMalformedPayload = errors.New("malformed payload")
)

// Frame is one received message: the decoded envelope plus the raw bytes,
// so the kind-specific payload can be decoded after dispatch.
type Frame struct {
	// Type is the envelope type_code, or TypeInvalid when the envelope did
	// not carry a usable integer code.
	Type MessageType

	// Label is the envelope type string as transmitted. Informational; the
	// numeric code is authoritative.
	Label string

	raw []byte
}

// Decode unmarshals the frame body into the given payload struct and
// validates its required fields. Returns ErrMalformedPayload on any mismatch.
func (f *Frame) Decode(v any) error {
	return decodePayload(f.raw, v)
}

// Raw returns the frame bytes as received.
func (f *Frame) Raw() []byte {
	return f.raw
}

// envelope mirrors the two fields every message carries. The pointer
// distinguishes a missing type_code from code zero.
type envelope struct {
	TypeCode *int   `json:"type_code"`
	Type     string `json:"type"`
}

// Encoder writes frames to a stream, one JSON object per send.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode sends one message: the envelope for t merged with the payload
// fields. A nil payload sends the bare envelope. The whole object goes out
// in a single write.
func (e *Encoder) Encode(t MessageType, payload any) error {
	obj := map[string]any{}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", t, err)
		}
		if err := json.Unmarshal(body, &obj); err != nil {
			return fmt.Errorf("failed to flatten %s payload: %w", t, err)
		}
	}
	obj["type_code"] = int(t)
	obj["type"] = t.Label()

	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal %s frame: %w", t, err)
	}
	if len(data) > MaxMessageSize {
		return ErrFrameTooLarge
	}
	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("%w: write: %v", ErrConnectionClosed, err)
	}
	return nil
}

// EncodeError sends an ERROR frame for the given kind with its default
// human message.
func (e *Encoder) EncodeError(code ErrorCode) error {
	return e.Encode(TypeError, NewErrorPayload(code))
}

// Decoder reads frames from a stream under the MaxMessageSize ceiling.
// Frames split across packets are reassembled; frames coalesced into one
// packet are returned one at a time.
type Decoder struct {
	r   io.Reader
	buf [MaxMessageSize]byte
	n   int
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next blocks until one complete frame has been read and returns it.
//
// A buffer that can never begin a JSON object, a zero-length read, and
// transport errors all map to ErrConnectionClosed; a frame overflowing the
// ceiling maps to ErrFrameTooLarge.
func (d *Decoder) Next() (*Frame, error) {
	for {
		if d.n > 0 {
			end, complete, err := scanObject(d.buf[:d.n])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
			}
			if complete {
				data := d.buf[:end]
				if !json.Valid(data) {
					return nil, fmt.Errorf("%w: invalid JSON frame", ErrConnectionClosed)
				}
				frame := decodeFrame(data)
				d.n = copy(d.buf[:], d.buf[end:d.n])
				return frame, nil
			}
		}

		if d.n == MaxMessageSize {
			return nil, ErrFrameTooLarge
		}

		n, err := d.r.Read(d.buf[d.n:])
		if n > 0 {
			d.n += n
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) && d.n == 0 {
				return nil, fmt.Errorf("%w: peer closed", ErrConnectionClosed)
			}
			return nil, fmt.Errorf("%w: read: %v", ErrConnectionClosed, err)
		}
	}
}

// scanObject finds the end offset of the first complete JSON object in buf.
// complete is false while the object may still be finished by further reads;
// the error is non-nil when the buffer can never begin a JSON object.
func scanObject(buf []byte) (end int, complete bool, err error) {
	i := 0
	for i < len(buf) {
		b := buf[i]
		if b == ' ' || b == '\t' || b == '\r' || b == '\n' {
			i++
			continue
		}
		break
	}
	if i == len(buf) {
		return 0, false, nil
	}
	if buf[i] != '{' {
		return 0, false, errors.New("frame does not begin a JSON object")
	}

	depth := 0
	inString := false
	escaped := false
	for ; i < len(buf); i++ {
		b := buf[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1, true, nil
			}
		}
	}
	return 0, false, nil
}

func decodeFrame(data []byte) *Frame {
	frame := &Frame{Type: TypeInvalid, raw: make([]byte, len(data))}
	copy(frame.raw, data)

	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.TypeCode != nil {
		frame.Type = MessageType(*env.TypeCode)
		frame.Label = env.Type
	}
	return frame
}
