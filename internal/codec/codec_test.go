package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderPlaced struct {
	ID     string `json:"id"`
	Amount int    `json:"amount"`
}

func TestMarshalAndUnmarshal(t *testing.T) {
	in := orderPlaced{ID: "o-1", Amount: 42}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out orderPlaced
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)

	indented, err := MarshalIndent(in, "", "  ")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(indented), "\n  \"id\""), "expected indented output, got %s", indented)
}

func TestEncode(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Encode(buf, orderPlaced{ID: "o-2", Amount: 7}))

	var out orderPlaced
	require.NoError(t, Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "o-2", out.ID)
}

func TestMarshalUnsupported(t *testing.T) {
	_, err := Marshal(make(chan int))
	assert.Error(t, err)
}
