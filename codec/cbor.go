package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOR uses github.com/fxamacker/cbor/v2 with core deterministic encoding,
// so equal metadata always encodes to equal bytes. Byte slices such as the
// present-tile bitmap are stored raw instead of base64. Struct fields take
// their names from json tags.
type CBOR struct{}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	// Commit timestamps keep nanoseconds.
	opts.Time = cbor.TimeRFC3339Nano

	var err error
	if cborEnc, err = opts.EncMode(); err != nil {
		panic("codec: cbor encoder: " + err.Error())
	}
	if cborDec, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic("codec: cbor decoder: " + err.Error())
	}
}

func (CBOR) Marshal(v any) ([]byte, error) { return cborEnc.Marshal(v) }

func (CBOR) Unmarshal(data []byte, v any) error { return cborDec.Unmarshal(data, v) }

func (CBOR) Name() string { return "cbor" }
