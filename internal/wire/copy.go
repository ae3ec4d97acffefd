package wire

import (
	"fmt"
	"io"

	"github.com/elefant-tools/elefant-sync/internal/errs"
)

// CopyOutStream is returned by CopyOut; Read yields raw COPY binary-format
// bytes framed by CopyData messages until CopyDone/CommandComplete.
type CopyOutStream struct {
	c      *Connection
	buf    []byte
	done   bool
	finErr error
}

func (s *CopyOutStream) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		if s.done {
			if s.finErr != nil {
				return 0, s.finErr
			}
			return 0, io.EOF
		}
		f, err := readBackendFrame(s.c.r)
		if err != nil {
			s.done = true
			s.finErr = errs.Network(err)
			return 0, s.finErr
		}
		switch f.Kind {
		case backendCopyData:
			s.buf = f.Payload
		case backendCopyDone:
			// CommandComplete and ReadyForQuery still to come
		case backendCommandComplete:
		case backendErrorResponse:
			s.done = true
			s.finErr = parseErrorResponse(f.Payload)
		case backendReadyForQuery:
			s.c.txState = TxStatus(f.Payload[0])
			s.c.state = StateReady
			s.done = true
		default:
			s.done = true
			s.finErr = errs.ProtocolViolation(fmt.Errorf("unexpected message %q during copy out", f.Kind))
		}
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// CopyOut issues `COPY ... TO STDOUT (FORMAT BINARY)` and returns a stream
// of the raw bytes, terminated by CopyDone then CommandComplete.
func (c *Connection) CopyOut(query string) (*CopyOutStream, error) {
	c.setDeadline()

	b := &msgBuilder{}
	b.cstring(query)
	if err := writeFrame(c.w, frontendQuery, b.buf); err != nil {
		return nil, errs.Network(err)
	}
	if err := c.w.Flush(); err != nil {
		return nil, errs.Network(err)
	}

	for {
		f, err := readBackendFrame(c.r)
		if err != nil {
			return nil, errs.Network(err)
		}
		switch f.Kind {
		case backendCopyOutResponse, backendCopyBothResponse:
			c.state = StateBusyCopyOut
			return &CopyOutStream{c: c}, nil
		case backendErrorResponse:
			c.drainToReady()
			return nil, parseErrorResponse(f.Payload)
		case backendNoticeResponse:
		default:
			return nil, errs.ProtocolViolation(fmt.Errorf("unexpected message %q awaiting CopyOutResponse", f.Kind))
		}
	}
}

// CopyIn issues `COPY ... FROM STDIN (FORMAT BINARY)`, streams bytes read
// from src as CopyData frames, then sends CopyDone and awaits
// CommandComplete. On any read error from src it sends CopyFail instead.
func (c *Connection) CopyIn(query string, src io.Reader) (rowsAffected int64, err error) {
	c.setDeadline()
	defer c.clearDeadline()

	b := &msgBuilder{}
	b.cstring(query)
	if err := writeFrame(c.w, frontendQuery, b.buf); err != nil {
		return 0, errs.Network(err)
	}
	if err := c.w.Flush(); err != nil {
		return 0, errs.Network(err)
	}

	for {
		f, err := readBackendFrame(c.r)
		if err != nil {
			return 0, errs.Network(err)
		}
		switch f.Kind {
		case backendCopyInResponse:
			c.state = StateBusyCopyIn
			return c.streamCopyIn(src)
		case backendErrorResponse:
			c.drainToReady()
			return 0, parseErrorResponse(f.Payload)
		case backendNoticeResponse:
		default:
			return 0, errs.ProtocolViolation(fmt.Errorf("unexpected message %q awaiting CopyInResponse", f.Kind))
		}
	}
}

func (c *Connection) streamCopyIn(src io.Reader) (int64, error) {
	chunk := make([]byte, 64*1024)
	for {
		n, readErr := src.Read(chunk)
		if n > 0 {
			if err := writeFrame(c.w, frontendCopyData, chunk[:n]); err != nil {
				return 0, errs.Network(err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return 0, c.abortCopyIn(readErr)
		}
	}
	if err := writeFrame(c.w, frontendCopyDone, nil); err != nil {
		return 0, errs.Network(err)
	}
	if err := c.w.Flush(); err != nil {
		return 0, errs.Network(err)
	}
	return c.awaitCopyInComplete()
}

func (c *Connection) abortCopyIn(cause error) error {
	b := &msgBuilder{}
	b.cstring(cause.Error())
	_ = writeFrame(c.w, frontendCopyFail, b.buf)
	_ = c.w.Flush()
	_, _ = c.awaitCopyInComplete()
	return errs.Network(fmt.Errorf("copy in aborted: %w", cause))
}

func (c *Connection) awaitCopyInComplete() (int64, error) {
	var rows int64
	for {
		f, err := readBackendFrame(c.r)
		if err != nil {
			return 0, errs.Network(err)
		}
		switch f.Kind {
		case backendCommandComplete:
			r := newMsgReader(f.Payload)
			tag := r.cstring()
			rows = parseRowsAffected(tag)
		case backendErrorResponse:
			c.drainToReady()
			return 0, parseErrorResponse(f.Payload)
		case backendReadyForQuery:
			c.txState = TxStatus(f.Payload[0])
			c.state = StateReady
			return rows, nil
		case backendNoticeResponse:
		default:
			return 0, errs.ProtocolViolation(fmt.Errorf("unexpected message %q finishing copy in", f.Kind))
		}
	}
}

func parseRowsAffected(tag string) int64 {
	var n int64
	var verb string
	if _, err := fmt.Sscanf(tag, "COPY %d", &n); err == nil {
		return n
	}
	fmt.Sscanf(tag, "%s %d", &verb, &n)
	return n
}
