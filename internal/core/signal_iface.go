//go:generate go run go.uber.org/mock/mockgen -source=signal_iface.go -destination=../mocks/mock_signal_iface.go -package=mocks
package core

import (
	"bytes"
	"encoding/json"
)

// Frame is a raw text payload.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// Send blocks until the frame is written or the write fails.
	Send(f Frame) error
	Close()
}

// EncodeFrame marshals v without HTML escaping so SDP bodies come back
// out exactly as they went in.
func EncodeFrame(v any) (Frame, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return Frame(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
