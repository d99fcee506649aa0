package p2p

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"action":"get_chain","params":[]}`)

	require.NoError(t, WriteFrame(&buf, payload))

	got, err := ReadFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadFrameToleratesShortReads(t *testing.T) {
	payload := []byte(`{"a":1}`)
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, payload))

	full := buf.Bytes()
	// feed the reader one byte at a time to simulate a fragmented stream.
	r := bufio.NewReader(&trickleReader{data: full})

	got, err := ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadFrameRejectsGarbageHeader(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("not-a-number~body")
	_, err := ReadFrame(bufio.NewReader(&buf))
	assert.Error(t, err)
}

func TestWriteFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte{}))

	got, err := ReadFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Empty(t, got)
}

// trickleReader hands back one byte per Read call.
type trickleReader struct {
	data []byte
	pos  int
}

func (r *trickleReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}
