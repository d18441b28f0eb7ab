package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC32C(t *testing.T) {
	// Check value from RFC 3720, B.4.
	assert.Equal(t, uint32(0x8a9136aa), CRC32C(make([]byte, 32)))
	assert.Equal(t, uint32(0xe3069283), CRC32C([]byte("123456789")))
}

func TestAppendVerify(t *testing.T) {
	rec := []byte("TDBT header")
	rec = AppendCRC32C(rec, rec)
	require.Len(t, rec, 11+Size)

	body, sum := rec[:11], rec[11:]
	require.NoError(t, VerifyCRC32C(body, sum))

	bad := append([]byte(nil), body...)
	bad[0] ^= 1
	err := VerifyCRC32C(bad, sum)
	var mm *MismatchError
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, CRC32C(body), mm.Want)
	assert.Equal(t, CRC32C(bad), mm.Got)

	assert.Error(t, VerifyCRC32C(body, sum[:3]))
}
