package tile

import (
	"fmt"
	"strings"
)

// Datatype tags the element type stored in a tile. The numeric values are
// persisted in tile headers and must not be reordered.
type Datatype uint8

const (
	Int32 Datatype = iota
	Int64
	Float32
	Float64
	Char
	Int8
	Uint8
	Int16
	Uint16
	Uint32
	Uint64
	StringASCII
	StringUTF8
	StringUTF16
	StringUTF32
	StringUCS2
	StringUCS4
	Any
)

var datatypeNames = [...]string{
	Int32:       "INT32",
	Int64:       "INT64",
	Float32:     "FLOAT32",
	Float64:     "FLOAT64",
	Char:        "CHAR",
	Int8:        "INT8",
	Uint8:       "UINT8",
	Int16:       "INT16",
	Uint16:      "UINT16",
	Uint32:      "UINT32",
	Uint64:      "UINT64",
	StringASCII: "STRING_ASCII",
	StringUTF8:  "STRING_UTF8",
	StringUTF16: "STRING_UTF16",
	StringUTF32: "STRING_UTF32",
	StringUCS2:  "STRING_UCS2",
	StringUCS4:  "STRING_UCS4",
	Any:         "ANY",
}

// Size returns the byte width of one element of d.
func (d Datatype) Size() uint64 {
	switch d {
	case Int8, Uint8, Char, StringASCII, StringUTF8, Any:
		return 1
	case Int16, Uint16, StringUTF16, StringUCS2:
		return 2
	case Int32, Uint32, Float32, StringUTF32, StringUCS4:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// Valid reports whether d is a known datatype.
func (d Datatype) Valid() bool {
	return int(d) < len(datatypeNames)
}

func (d Datatype) String() string {
	if d.Valid() {
		return datatypeNames[d]
	}
	return fmt.Sprintf("Datatype(%d)", uint8(d))
}

// ParseDatatype returns the datatype named s (case-insensitive).
func ParseDatatype(s string) (Datatype, error) {
	for i, name := range datatypeNames {
		if strings.EqualFold(name, s) {
			return Datatype(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown datatype %q", ErrInvalidArgument, s)
}
