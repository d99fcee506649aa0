// Package p2p is the framed connection layer (spec §4.1, §6): every message
// on the wire is "<ascii-decimal byte-length>~<utf-8 json>", read fully
// before being decoded. SingleConnectionHandler drives one peer connection;
// MultipleConnectionHandler fans the same call out across a peer list.
package p2p

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const frameDelimiter = '~'

// WriteFrame writes payload as a single length-prefixed frame.
func WriteFrame(w io.Writer, payload []byte) error {
	header := fmt.Sprintf("%d%c", len(payload), frameDelimiter)
	if _, err := io.WriteString(w, header); err != nil {
		return errors.Wrap(err, "writing frame header")
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "writing frame body")
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r, looping until the
// declared number of body bytes have been consumed (spec §4.1: "fully
// consumed from the stream before decoding", "tolerating short reads").
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	sizeStr, err := r.ReadString(frameDelimiter)
	if err != nil {
		return nil, errors.Wrap(err, "reading frame header")
	}
	sizeStr = sizeStr[:len(sizeStr)-1] // drop the delimiter

	var size int
	if _, err := fmt.Sscanf(sizeStr, "%d", &size); err != nil {
		return nil, errors.Wrapf(err, "parsing frame size %q", sizeStr)
	}
	if size < 0 {
		return nil, errors.Errorf("negative frame size %d", size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.Wrap(err, "reading frame body")
	}
	return body, nil
}
