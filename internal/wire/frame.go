// Package wire implements the frame-level subset of the PostgreSQL v3.0
// frontend/backend protocol this tool needs: startup/auth, simple and
// extended query execution, and the COPY IN/OUT/BOTH sub-protocol.
//
// It deliberately does not wrap github.com/jackc/pgx: the wire client is
// a hard-core subsystem of this module, so frames are encoded and
// decoded by hand here.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Backend message kind tags.
const (
	backendAuthentication   = 'R'
	backendBackendKeyData   = 'K'
	backendBindComplete     = '2'
	backendCloseComplete    = '3'
	backendCommandComplete  = 'C'
	backendCopyData         = 'd'
	backendCopyDone         = 'c'
	backendCopyInResponse   = 'G'
	backendCopyOutResponse  = 'H'
	backendCopyBothResponse = 'W'
	backendDataRow          = 'D'
	backendEmptyQuery       = 'I'
	backendErrorResponse    = 'E'
	backendNoData           = 'n'
	backendNoticeResponse   = 'N'
	backendParameterDesc    = 't'
	backendParameterStatus  = 'S'
	backendParseComplete    = '1'
	backendReadyForQuery    = 'Z'
	backendRowDescription   = 'T'
)

// Frontend message kind tags.
const (
	frontendBind            = 'B'
	frontendClose           = 'C'
	frontendCopyData        = 'd'
	frontendCopyDone        = 'c'
	frontendCopyFail        = 'f'
	frontendDescribe        = 'D'
	frontendExecute         = 'E'
	frontendFlush           = 'H'
	frontendParse           = 'P'
	frontendPasswordMessage = 'p'
	frontendQuery           = 'Q'
	frontendSync            = 'S'
	frontendTerminate       = 'X'
)

// protoVersion3 is the v3.0 startup protocol number: major 3, minor 0.
const protoVersion3 = 196608

// sslRequestCode is the magic number sent in lieu of a protocol version
// to request SSL negotiation before the real startup message.
const sslRequestCode = 80877103

// cancelRequestCode is the magic number that introduces a CancelRequest,
// sent over a brand-new connection dedicated solely to the cancel request.
const cancelRequestCode = 80877102

// Frame is a single backend or frontend message: {kind, length, payload}.
// Startup-phase frames (StartupMessage, SSLRequest, CancelRequest) have no
// kind byte on the wire; readBackendFrame/writeFrame handle the ordinary
// tagged case used by every message after startup.
type Frame struct {
	Kind    byte
	Payload []byte
}

// writeFrame writes a tagged frontend frame: kind byte, u32 length
// (includes itself, excludes the kind byte), then payload.
func writeFrame(w io.Writer, kind byte, payload []byte) error {
	header := make([]byte, 5)
	header[0] = kind
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)+4))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("write frame payload: %w", err)
		}
	}
	return nil
}

// writeUntaggedFrame writes a frame that omits the kind byte (used only
// for StartupMessage, SSLRequest and CancelRequest).
func writeUntaggedFrame(w io.Writer, payload []byte) error {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(payload)+4))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	_, err := w.Write(payload)
	return err
}

// readBackendFrame reads one tagged backend message.
func readBackendFrame(r io.Reader) (Frame, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}
	length := binary.BigEndian.Uint32(header[1:])
	if length < 4 {
		return Frame{}, fmt.Errorf("malformed frame: length %d < 4", length)
	}
	payload := make([]byte, length-4)
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Kind: header[0], Payload: payload}, nil
}

// msgBuilder accumulates a frontend message payload with PostgreSQL's
// usual C-string and length-prefixed field conventions.
type msgBuilder struct {
	buf []byte
}

func (b *msgBuilder) int32(v int32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	b.buf = append(b.buf, tmp[:]...)
}

func (b *msgBuilder) int16(v int16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(v))
	b.buf = append(b.buf, tmp[:]...)
}

func (b *msgBuilder) byte1(v byte) { b.buf = append(b.buf, v) }

func (b *msgBuilder) cstring(s string) {
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
}

func (b *msgBuilder) bytes(v []byte) { b.buf = append(b.buf, v...) }

// msgReader parses a backend message payload sequentially.
type msgReader struct {
	buf []byte
	pos int
}

func newMsgReader(payload []byte) *msgReader { return &msgReader{buf: payload} }

func (r *msgReader) int32() int32 {
	v := int32(binary.BigEndian.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v
}

func (r *msgReader) int16() int16 {
	v := int16(binary.BigEndian.Uint16(r.buf[r.pos:]))
	r.pos += 2
	return v
}

func (r *msgReader) byte1() byte {
	v := r.buf[r.pos]
	r.pos++
	return v
}

func (r *msgReader) cstring() string {
	start := r.pos
	for r.buf[r.pos] != 0 {
		r.pos++
	}
	s := string(r.buf[start:r.pos])
	r.pos++
	return s
}

func (r *msgReader) remaining() []byte { return r.buf[r.pos:] }

func (r *msgReader) take(n int) []byte {
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v
}

func (r *msgReader) eof() bool { return r.pos >= len(r.buf) }
