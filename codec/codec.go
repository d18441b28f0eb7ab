// Package codec encodes fragment metadata.
//
// Codec selection is a format boundary. EncodeTagged prefixes the payload
// with the codec name, and DecodeTagged picks the codec by that name, so a
// reader decodes metadata written with any built-in codec.
package codec

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	// ErrUnknownCodec is returned for a codec name this build does not know.
	ErrUnknownCodec = errors.New("codec: unknown codec")

	// ErrMissingTag is returned when tagged data has no codec name.
	ErrMissingTag = errors.New("codec: missing codec tag")
)

// Codec encodes and decodes values. Implementations must be safe for
// concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Appender is implemented by codecs that can encode into an existing buffer.
type Appender interface {
	Append(dst []byte, v any) ([]byte, error)
}

// Default is the codec used for newly written fragment metadata.
var Default Codec = GoJSON{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	case "cbor":
		return CBOR{}, true
	default:
		return nil, false
	}
}

const tagSep = '\n'

// EncodeTagged encodes v as "<codec name>\n<payload>".
func EncodeTagged(c Codec, v any) ([]byte, error) {
	if c == nil {
		c = Default
	}
	dst := make([]byte, 0, 256)
	dst = append(dst, c.Name()...)
	dst = append(dst, tagSep)

	if a, ok := c.(Appender); ok {
		out, err := a.Append(dst, v)
		if err != nil {
			return nil, fmt.Errorf("codec %s: %w", c.Name(), err)
		}
		return out, nil
	}
	payload, err := c.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec %s: %w", c.Name(), err)
	}
	return append(dst, payload...), nil
}

// DecodeTagged decodes data written by EncodeTagged into v and returns the
// codec it used.
func DecodeTagged(data []byte, v any) (Codec, error) {
	name, payload, ok := bytes.Cut(data, []byte{tagSep})
	if !ok {
		return nil, ErrMissingTag
	}
	c, ok := ByName(string(name))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	if err := c.Unmarshal(payload, v); err != nil {
		return nil, fmt.Errorf("codec %s: %w", c.Name(), err)
	}
	return c, nil
}
