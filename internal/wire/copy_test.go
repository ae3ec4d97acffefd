package wire

import (
	"bufio"
	"net"
	"strings"
	"testing"
)

// fakeCopyInServer answers a sequence of simple-query COPY FROM STDIN
// cycles: CopyInResponse, drain CopyData/CopyDone, then
// CommandComplete+ReadyForQuery, exactly as a real backend would.
func fakeCopyInServer(t *testing.T, conn net.Conn, cycles int) {
	t.Helper()
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	for i := 0; i < cycles; i++ {
		if _, err := readBackendFrame(r); err != nil {
			t.Errorf("server: read query frame %d: %v", i, err)
			return
		}
		if err := writeFrame(w, backendCopyInResponse, []byte{0, 0, 0}); err != nil {
			t.Errorf("server: write CopyInResponse: %v", err)
			return
		}
		if err := w.Flush(); err != nil {
			t.Errorf("server: flush CopyInResponse: %v", err)
			return
		}
		for {
			f, err := readBackendFrame(r)
			if err != nil {
				t.Errorf("server: read copy data frame %d: %v", i, err)
				return
			}
			if f.Kind == frontendCopyDone {
				break
			}
		}
		tagBuilder := &msgBuilder{}
		tagBuilder.cstring("COPY 3")
		if err := writeFrame(w, backendCommandComplete, tagBuilder.buf); err != nil {
			t.Errorf("server: write CommandComplete: %v", err)
			return
		}
		if err := writeFrame(w, backendReadyForQuery, []byte{'I'}); err != nil {
			t.Errorf("server: write ReadyForQuery: %v", err)
			return
		}
		if err := w.Flush(); err != nil {
			t.Errorf("server: flush completion: %v", err)
			return
		}
	}
}

func newTestConnection(conn net.Conn) *Connection {
	return &Connection{
		conn:      conn,
		r:         bufio.NewReader(conn),
		w:         bufio.NewWriter(conn),
		state:     StateReady,
		stmtCache: make(map[uint64]*PreparedStatement),
	}
}

// TestCopyIn_SequentialCallsOnSameConnection guards against
// awaitCopyInComplete returning before ReadyForQuery is drained: a worker
// connection in the copy orchestrator issues CopyIn repeatedly, one chunk
// per job, and a stale ReadyForQuery left in the buffer would desync the
// second call's CopyInResponse wait loop.
func TestCopyIn_SequentialCallsOnSameConnection(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fakeCopyInServer(t, server, 2)
	}()

	c := newTestConnection(client)

	n, err := c.CopyIn("COPY t FROM STDIN (FORMAT BINARY)", strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("first CopyIn() error: %v", err)
	}
	if n != 3 {
		t.Errorf("first CopyIn() rows = %d, want 3", n)
	}
	if c.state != StateReady {
		t.Errorf("state after first CopyIn = %v, want StateReady", c.state)
	}

	n, err = c.CopyIn("COPY t FROM STDIN (FORMAT BINARY)", strings.NewReader("def"))
	if err != nil {
		t.Fatalf("second CopyIn() error: %v", err)
	}
	if n != 3 {
		t.Errorf("second CopyIn() rows = %d, want 3", n)
	}

	<-done
}
