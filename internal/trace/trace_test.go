package trace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := "0 40\n1 80\n2 a\n0 100\n"
	entries, err := Parse("t.data", strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, Entry{Kind: Load, Address: 0x40}, entries[0])
	assert.Equal(t, Entry{Kind: Store, Address: 0x80}, entries[1])
	assert.Equal(t, Entry{Kind: Other, Cycles: 0xa}, entries[2])
	assert.Equal(t, Entry{Kind: Load, Address: 0x100}, entries[3])
}

func TestParse_badOpcode(t *testing.T) {
	_, err := Parse("t.data", strings.NewReader("9 40\n"))
	require.Error(t, err)
	var ierr *InputError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "t.data", ierr.File)
	assert.Equal(t, 1, ierr.Line)
}

func TestParse_badFieldCount(t *testing.T) {
	_, err := Parse("t.data", strings.NewReader("0 40 extra\n"))
	require.Error(t, err)
}

func TestParse_badHex(t *testing.T) {
	_, err := Parse("t.data", strings.NewReader("0 zzzz\n"))
	require.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "bodytrack_2.data", FileName("bodytrack", 2))
}
