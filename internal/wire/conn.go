package wire

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"hash/fnv"
	"net"
	"time"

	"github.com/elefant-tools/elefant-sync/internal/errs"
)

// State is the connection state machine:
// Unauthenticated → Authenticating → Ready{Idle|InTx|Failed} → BusyQuery →
// BusyCopyIn|BusyCopyOut|BusyCopyBoth → Ready … Terminal Closed.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateReady
	StateBusyQuery
	StateBusyCopyIn
	StateBusyCopyOut
	StateBusyCopyBoth
	StateClosed
)

// TxStatus is the transaction status carried on every ReadyForQuery.
type TxStatus byte

const (
	TxIdle   TxStatus = 'I'
	TxInTx   TxStatus = 'T'
	TxFailed TxStatus = 'E'
)

// Credentials authenticates a Connect call.
type Credentials struct {
	User     string
	Password string
	Database string
}

// Options controls TLS and timeouts for Connect.
type Options struct {
	SSLMode        string // disable|prefer|require
	ConnectTimeout time.Duration
	IOTimeout      time.Duration // per-operation I/O timeout, default 30s
}

// FieldDescription describes one column of a RowDescription.
type FieldDescription struct {
	Name         string
	TableOID     uint32
	ColumnAttNo  int16
	TypeOID      uint32
	TypeSize     int16
	TypeModifier int32
	FormatCode   int16 // 0=text, 1=binary
}

// PreparedStatement is a server-side prepared statement, cached by the
// connection for the lifetime of the connection.
type PreparedStatement struct {
	Name        string
	ParamOIDs   []uint32
	RowDesc     []FieldDescription
	sourceQuery string
}

// Connection is a single PostgreSQL v3 protocol session. It is not safe
// for concurrent use: the protocol requires a connection be used strictly
// sequentially (a second query cannot begin before the prior
// ReadyForQuery is observed), and the Copy Orchestrator gives each worker
// its own Connection pair for exactly this reason.
type Connection struct {
	conn     net.Conn
	r        *bufio.Reader
	w        *bufio.Writer
	state    State
	txState  TxStatus
	endpoint string

	backendPID       int32
	backendSecretKey int32
	serverVersion    int
	parameters       map[string]string

	stmtCache map[uint64]*PreparedStatement
	ioTimeout time.Duration
}

// Connect performs SSL negotiation (if requested), the startup handshake,
// authentication, and drains ParameterStatus/BackendKeyData messages until
// ReadyForQuery.
func Connect(ctx context.Context, endpoint string, creds Credentials, opts Options) (*Connection, error) {
	dialer := net.Dialer{Timeout: opts.ConnectTimeout}
	if dialer.Timeout == 0 {
		dialer.Timeout = 10 * time.Second
	}
	raw, err := dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, errs.Network(fmt.Errorf("dial %s: %w", endpoint, err))
	}

	if opts.SSLMode == "require" || opts.SSLMode == "prefer" {
		raw, err = negotiateTLS(raw, opts.SSLMode, endpoint)
		if err != nil {
			return nil, errs.New(errs.KindTls, endpoint, "connect", err)
		}
	}

	ioTimeout := opts.IOTimeout
	if ioTimeout == 0 {
		ioTimeout = 30 * time.Second
	}

	c := &Connection{
		conn:       raw,
		r:          bufio.NewReader(raw),
		w:          bufio.NewWriter(raw),
		state:      StateUnauthenticated,
		endpoint:   endpoint,
		stmtCache:  make(map[uint64]*PreparedStatement),
		ioTimeout:  ioTimeout,
		parameters: make(map[string]string),
	}

	if err := c.sendStartup(creds); err != nil {
		c.conn.Close()
		return nil, errs.Network(err)
	}

	c.state = StateAuthenticating
	if err := c.runAuthentication(creds); err != nil {
		c.conn.Close()
		return nil, err
	}

	if err := c.drainUntilReady(); err != nil {
		c.conn.Close()
		return nil, err
	}

	c.state = StateReady
	return c, nil
}

func negotiateTLS(raw net.Conn, mode, endpoint string) (net.Conn, error) {
	if err := writeUntaggedFrame(raw, int32Bytes(sslRequestCode)); err != nil {
		return nil, err
	}
	var reply [1]byte
	if _, err := raw.Read(reply[:]); err != nil {
		return nil, err
	}
	if reply[0] != 'S' {
		if mode == "require" {
			return nil, fmt.Errorf("server rejected SSL negotiation")
		}
		return raw, nil
	}
	host, _, _ := splitHostPort(endpoint)
	tlsConn := tls.Client(raw, &tls.Config{ServerName: host})
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	return tlsConn, nil
}

func splitHostPort(endpoint string) (string, string, error) {
	return net.SplitHostPort(endpoint)
}

func int32Bytes(v int32) []byte {
	b := &msgBuilder{}
	b.int32(v)
	return b.buf
}

func (c *Connection) sendStartup(creds Credentials) error {
	b := &msgBuilder{}
	b.int32(protoVersion3)
	b.cstring("user")
	b.cstring(creds.User)
	b.cstring("database")
	b.cstring(creds.Database)
	b.cstring("")
	if err := writeUntaggedFrame(c.w, b.buf); err != nil {
		return err
	}
	return c.w.Flush()
}

// drainUntilReady consumes ParameterStatus/BackendKeyData/NoticeResponse
// messages until ReadyForQuery, recording server_version and BackendKeyData.
func (c *Connection) drainUntilReady() error {
	for {
		f, err := readBackendFrame(c.r)
		if err != nil {
			return errs.Network(err)
		}
		switch f.Kind {
		case backendParameterStatus:
			r := newMsgReader(f.Payload)
			name := r.cstring()
			value := r.cstring()
			c.parameters[name] = value
			if name == "server_version" {
				c.serverVersion = parseServerVersion(value)
			}
		case backendBackendKeyData:
			r := newMsgReader(f.Payload)
			c.backendPID = r.int32()
			c.backendSecretKey = r.int32()
		case backendReadyForQuery:
			c.txState = TxStatus(f.Payload[0])
			return nil
		case backendNoticeResponse:
			// best-effort: ignored at this layer, surfaced via logging by callers
		case backendErrorResponse:
			return parseErrorResponse(f.Payload)
		default:
			return errs.ProtocolViolation(fmt.Errorf("unexpected message %q during startup", f.Kind))
		}
	}
}

func parseServerVersion(s string) int {
	major, minor := 0, 0
	fmt.Sscanf(s, "%d.%d", &major, &minor)
	if major >= 10 {
		// PG10+ dropped the minor component from semantics that matter here.
		return major * 10000
	}
	return major*10000 + minor*100
}

// ServerVersion returns the numeric server version (e.g. 150000 for
// 15.3, 90600 for 9.6: major*10000, plus minor*100 only before PG10; the
// patch level is not recorded), feeding the Introspector's catalog-dialect
// choice.
func (c *Connection) ServerVersion() int { return c.serverVersion }

// BackendKeyData returns the PID/secret key needed to issue a CancelRequest.
func (c *Connection) BackendKeyData() (pid, secretKey int32) {
	return c.backendPID, c.backendSecretKey
}

// Cancel sends a protocol-level CancelRequest for whatever query this
// connection currently has in flight, over a throwaway second connection
// to the same endpoint, per the protocol's requirement that a cancel never
// travels on the connection it targets. A no-op, from the server's
// perspective, if the connection is already idle or closed.
func (c *Connection) Cancel(ctx context.Context) error {
	return CancelRequest(ctx, c.endpoint, c.backendPID, c.backendSecretKey)
}

// State returns the connection's current state machine position.
func (c *Connection) State() State { return c.state }

// TxStatus returns the transaction status observed on the last ReadyForQuery.
func (c *Connection) TxStatus() TxStatus { return c.txState }

// Close sends Terminate and closes the socket. Idempotent.
func (c *Connection) Close(ctx context.Context) error {
	if c.state == StateClosed {
		return nil
	}
	_ = writeFrame(c.w, frontendTerminate, nil)
	_ = c.w.Flush()
	c.state = StateClosed
	return c.conn.Close()
}

func parseErrorResponse(payload []byte) error {
	r := newMsgReader(payload)
	se := &errs.ServerError{}
	for !r.eof() {
		field := r.byte1()
		if field == 0 {
			break
		}
		val := r.cstring()
		switch field {
		case 'C':
			se.SQLState = val
		case 'M':
			se.Message = val
		case 'D':
			se.Detail = val
		}
	}
	return se
}

// fingerprint hashes statement text for the per-connection prepared
// statement cache; the cache is never shared across connections.
func fingerprint(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return h.Sum64()
}

func (c *Connection) setDeadline() {
	if c.ioTimeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.ioTimeout))
	}
}

func (c *Connection) clearDeadline() {
	c.conn.SetDeadline(time.Time{})
}
