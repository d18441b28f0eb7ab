package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Parse builds filters from a comma separated list of filter names such as
// "shuffle,zstd:3,crc32c". zstd and gzip take an optional level after a
// colon. The encryption filter cannot be parsed since it needs a key.
func Parse(list string) ([]Filter, error) {
	var filters []Filter
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, arg, hasArg := strings.Cut(item, ":")

		level := 0
		if hasArg {
			if name != TypeZSTD.String() && name != TypeGZIP.String() {
				return nil, fmt.Errorf("filter: %s takes no level", name)
			}
			n, err := strconv.Atoi(arg)
			if err != nil {
				return nil, fmt.Errorf("filter: %s level %q: %w", name, arg, err)
			}
			level = n
		}

		switch name {
		case TypeNone.String():
			filters = append(filters, None{})
		case TypeLZ4.String():
			filters = append(filters, LZ4{})
		case TypeZSTD.String():
			filters = append(filters, NewZSTD(level))
		case TypeGZIP.String():
			if level < gzip.HuffmanOnly || level > gzip.BestCompression {
				return nil, fmt.Errorf("filter: gzip level %d out of range", level)
			}
			filters = append(filters, NewGZIP(level))
		case TypeS2.String():
			filters = append(filters, S2{})
		case TypeShuffle.String():
			filters = append(filters, Shuffle{})
		case TypeCRC32C.String():
			filters = append(filters, CRC32C{})
		case TypeBLAKE3.String():
			filters = append(filters, BLAKE3{})
		case TypeXChaCha20Poly1305.String():
			return nil, fmt.Errorf("%w: %s is configured with a key, not by name", ErrMissingKey, name)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
		}
	}
	return filters, nil
}
