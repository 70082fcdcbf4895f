package sdcard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory(t *testing.T) {
	in := []Entry{
		{Name: "CUBE.GCO", Block: 1, Size: 1300},
		{Name: "BENCHY.GCO", Block: 4, Size: 512},
	}
	block, err := MarshalDirectory(in)
	require.NoError(t, err)
	require.Len(t, block, BlockSize)

	out, err := ParseDirectory(block)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, uint32(3), out[0].Blocks())
	assert.Equal(t, uint32(1), out[1].Blocks())
}

func TestDirectoryErrors(t *testing.T) {
	_, err := ParseDirectory(make([]byte, BlockSize))
	assert.ErrorIs(t, err, ErrNoDirectory)

	_, err = MarshalDirectory([]Entry{{Name: strings.Repeat("A", MaxNameLen+1)}})
	assert.Error(t, err)

	_, err = MarshalDirectory(make([]Entry, MaxEntries+1))
	assert.Error(t, err)
}
