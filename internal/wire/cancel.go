package wire

import (
	"context"
	"net"
	"time"

	"github.com/elefant-tools/elefant-sync/internal/errs"
)

// CancelRequest opens a brand-new connection to endpoint and sends a
// protocol-level CancelRequest carrying pid/secretKey: "each
// worker issues a protocol-level CancelRequest using the source
// connection's BackendKeyData". The server does not reply; the new
// connection is closed immediately after sending.
func CancelRequest(ctx context.Context, endpoint string, pid, secretKey int32) error {
	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return errs.Network(err)
	}
	defer conn.Close()

	b := &msgBuilder{}
	b.int32(cancelRequestCode)
	b.int32(pid)
	b.int32(secretKey)
	if err := writeUntaggedFrame(conn, b.buf); err != nil {
		return errs.Network(err)
	}
	return nil
}
