package wire

import (
	"fmt"

	"github.com/elefant-tools/elefant-sync/internal/errs"
)

// ToSql encodes a bound parameter into its binary wire representation
// ( per-value codec capability).
type ToSql interface {
	ToSqlBinary() ([]byte, error)
}

// QueryResult is the result of Execute: binary-format rows.
type QueryResult struct {
	Fields  []FieldDescription
	Rows    []Row
	Command string
}

// Prepare runs Parse + Describe and returns the cached PreparedStatement,
// reusing a previously parsed statement of the identical text via a
// fingerprint-keyed cache.
func (c *Connection) Prepare(text string) (*PreparedStatement, error) {
	fp := fingerprint(text)
	if cached, ok := c.stmtCache[fp]; ok {
		return cached, nil
	}

	c.setDeadline()
	defer c.clearDeadline()

	name := fmt.Sprintf("es_%x", fp)

	pb := &msgBuilder{}
	pb.cstring(name)
	pb.cstring(text)
	pb.int16(0) // no explicit parameter OIDs; server infers
	if err := writeFrame(c.w, frontendParse, pb.buf); err != nil {
		return nil, errs.Network(err)
	}

	db := &msgBuilder{}
	db.byte1('S')
	db.cstring(name)
	if err := writeFrame(c.w, frontendDescribe, db.buf); err != nil {
		return nil, errs.Network(err)
	}

	if err := writeFrame(c.w, frontendSync, nil); err != nil {
		return nil, errs.Network(err)
	}
	if err := c.w.Flush(); err != nil {
		return nil, errs.Network(err)
	}

	stmt := &PreparedStatement{Name: name, sourceQuery: text}
	for {
		f, err := readBackendFrame(c.r)
		if err != nil {
			return nil, errs.Network(err)
		}
		switch f.Kind {
		case backendParseComplete:
		case backendParameterDesc:
			r := newMsgReader(f.Payload)
			n := int(r.int16())
			stmt.ParamOIDs = make([]uint32, n)
			for i := range stmt.ParamOIDs {
				stmt.ParamOIDs[i] = uint32(r.int32())
			}
		case backendRowDescription:
			stmt.RowDesc = parseRowDescription(f.Payload)
		case backendNoData:
			stmt.RowDesc = nil
		case backendErrorResponse:
			c.drainToReady()
			return nil, parseErrorResponse(f.Payload)
		case backendReadyForQuery:
			c.txState = TxStatus(f.Payload[0])
			c.stmtCache[fp] = stmt
			return stmt, nil
		default:
			return nil, errs.ProtocolViolation(fmt.Errorf("unexpected message %q during prepare", f.Kind))
		}
	}
}

// Execute runs Bind + Execute + Sync against a prepared statement. Every
// returned value is binary-format.
func (c *Connection) Execute(stmt *PreparedStatement, params []ToSql) (*QueryResult, error) {
	c.setDeadline()
	defer c.clearDeadline()

	b := &msgBuilder{}
	b.cstring("") // unnamed portal
	b.cstring(stmt.Name)
	b.int16(int16(len(params)))
	for range params {
		b.int16(1) // binary format for every parameter
	}
	b.int16(int16(len(params)))
	for _, p := range params {
		if p == nil {
			b.int32(-1)
			continue
		}
		encoded, err := p.ToSqlBinary()
		if err != nil {
			return nil, errs.New(errs.KindEncoding, "", "execute", err)
		}
		b.int32(int32(len(encoded)))
		b.bytes(encoded)
	}
	resultFormats := 1
	if len(stmt.RowDesc) == 0 {
		resultFormats = 0
	}
	b.int16(int16(resultFormats))
	if resultFormats == 1 {
		b.int16(1) // binary
	}
	if err := writeFrame(c.w, frontendBind, b.buf); err != nil {
		return nil, errs.Network(err)
	}

	eb := &msgBuilder{}
	eb.cstring("")
	eb.int32(0)
	if err := writeFrame(c.w, frontendExecute, eb.buf); err != nil {
		return nil, errs.Network(err)
	}

	if err := writeFrame(c.w, frontendSync, nil); err != nil {
		return nil, errs.Network(err)
	}
	if err := c.w.Flush(); err != nil {
		return nil, errs.Network(err)
	}

	result := &QueryResult{Fields: stmt.RowDesc}
	for {
		f, err := readBackendFrame(c.r)
		if err != nil {
			return nil, errs.Network(err)
		}
		switch f.Kind {
		case backendBindComplete:
		case backendDataRow:
			result.Rows = append(result.Rows, parseDataRow(f.Payload))
		case backendCommandComplete:
			r := newMsgReader(f.Payload)
			result.Command = r.cstring()
		case backendEmptyQuery:
		case backendErrorResponse:
			c.drainToReady()
			return nil, parseErrorResponse(f.Payload)
		case backendNoticeResponse:
		case backendReadyForQuery:
			c.txState = TxStatus(f.Payload[0])
			return result, nil
		default:
			return nil, errs.ProtocolViolation(fmt.Errorf("unexpected message %q during execute", f.Kind))
		}
	}
}

// CloseStatement releases a server-side prepared statement name and drops it from
// the cache.
func (c *Connection) CloseStatement(stmt *PreparedStatement) error {
	delete(c.stmtCache, fingerprint(stmt.sourceQuery))

	b := &msgBuilder{}
	b.byte1('S')
	b.cstring(stmt.Name)
	if err := writeFrame(c.w, frontendClose, b.buf); err != nil {
		return errs.Network(err)
	}
	if err := writeFrame(c.w, frontendSync, nil); err != nil {
		return errs.Network(err)
	}
	if err := c.w.Flush(); err != nil {
		return errs.Network(err)
	}
	for {
		f, err := readBackendFrame(c.r)
		if err != nil {
			return errs.Network(err)
		}
		switch f.Kind {
		case backendCloseComplete:
		case backendReadyForQuery:
			c.txState = TxStatus(f.Payload[0])
			return nil
		case backendErrorResponse:
			c.drainToReady()
			return parseErrorResponse(f.Payload)
		}
	}
}

// drainToReady reads and discards messages until ReadyForQuery, used
// after an ErrorResponse interrupts an extended-query sequence: the
// server keeps sending messages (including a trailing ReadyForQuery)
// until Sync is acknowledged.
func (c *Connection) drainToReady() {
	for {
		f, err := readBackendFrame(c.r)
		if err != nil {
			return
		}
		if f.Kind == backendReadyForQuery {
			c.txState = TxStatus(f.Payload[0])
			return
		}
	}
}
