package codec

import gojson "github.com/goccy/go-json"

// GoJSON is the default codec. It writes the same bytes as JSON, only
// faster, so metadata written by either decodes with the other.
type GoJSON struct{}

func (GoJSON) Name() string { return "go-json" }

func (GoJSON) Marshal(v any) ([]byte, error) { return gojson.Marshal(v) }

func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

// Append is Marshal into the tail of dst.
func (c GoJSON) Append(dst []byte, v any) ([]byte, error) {
	out, err := c.Marshal(v)
	if err != nil {
		return dst, err
	}
	return append(dst, out...), nil
}
