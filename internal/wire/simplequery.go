package wire

import (
	"fmt"

	"github.com/elefant-tools/elefant-sync/internal/errs"
)

// Row is one DataRow's worth of column values, either text or binary
// bytes depending on which entry point produced it: the simple query
// protocol always yields text, the extended protocol always binary.
type Row struct {
	Values [][]byte // nil entry = SQL NULL
}

// SimpleQueryResult is one {RowDescription, DataRow*, CommandComplete}
// grouping of a (possibly multi-statement) simple query.
type SimpleQueryResult struct {
	Fields  []FieldDescription
	Rows    []Row
	Command string
}

// QuerySimple issues a Query frame and returns every result grouping
// produced, text-format. Accepts no parameters; multi-statement
// scripts are permitted by the protocol.
func (c *Connection) QuerySimple(text string) ([]SimpleQueryResult, error) {
	c.setDeadline()
	defer c.clearDeadline()

	b := &msgBuilder{}
	b.cstring(text)
	if err := writeFrame(c.w, frontendQuery, b.buf); err != nil {
		return nil, errs.Network(err)
	}
	if err := c.w.Flush(); err != nil {
		return nil, errs.Network(err)
	}
	c.state = StateBusyQuery

	var results []SimpleQueryResult
	var current *SimpleQueryResult

	for {
		f, err := readBackendFrame(c.r)
		if err != nil {
			return nil, errs.Network(err)
		}
		switch f.Kind {
		case backendRowDescription:
			fields := parseRowDescription(f.Payload)
			current = &SimpleQueryResult{Fields: fields}
		case backendDataRow:
			if current == nil {
				current = &SimpleQueryResult{}
			}
			current.Rows = append(current.Rows, parseDataRow(f.Payload))
		case backendCommandComplete:
			r := newMsgReader(f.Payload)
			tag := r.cstring()
			if current == nil {
				current = &SimpleQueryResult{}
			}
			current.Command = tag
			results = append(results, *current)
			current = nil
		case backendEmptyQuery:
			results = append(results, SimpleQueryResult{})
			current = nil
		case backendNoticeResponse:
			// best-effort, surfaced via logging by the caller
		case backendParameterStatus, backendBackendKeyData:
			// can change mid-session (e.g. SET statements)
		case backendErrorResponse:
			c.state = StateReady
			return results, parseErrorResponse(f.Payload)
		case backendReadyForQuery:
			c.txState = TxStatus(f.Payload[0])
			c.state = StateReady
			return results, nil
		default:
			return nil, errs.ProtocolViolation(fmt.Errorf("unexpected message %q during simple query", f.Kind))
		}
	}
}

func parseRowDescription(payload []byte) []FieldDescription {
	r := newMsgReader(payload)
	n := int(r.int16())
	fields := make([]FieldDescription, n)
	for i := 0; i < n; i++ {
		fields[i] = FieldDescription{
			Name:         r.cstring(),
			TableOID:     uint32(r.int32()),
			ColumnAttNo:  r.int16(),
			TypeOID:      uint32(r.int32()),
			TypeSize:     r.int16(),
			TypeModifier: r.int32(),
			FormatCode:   r.int16(),
		}
	}
	return fields
}

func parseDataRow(payload []byte) Row {
	r := newMsgReader(payload)
	n := int(r.int16())
	values := make([][]byte, n)
	for i := 0; i < n; i++ {
		length := r.int32()
		if length < 0 {
			values[i] = nil
			continue
		}
		values[i] = r.take(int(length))
	}
	return Row{Values: values}
}
