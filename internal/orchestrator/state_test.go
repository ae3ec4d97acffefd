package orchestrator

import (
	"strings"
	"testing"

	"github.com/elefant-tools/elefant-sync/internal/wire"
	"github.com/google/uuid"
)

type fakeStateExecutor struct {
	queries []string
	results []wire.SimpleQueryResult
	err     error
}

func (f *fakeStateExecutor) QuerySimple(text string) ([]wire.SimpleQueryResult, error) {
	f.queries = append(f.queries, text)
	return f.results, f.err
}

func TestRunState_EnsureTable(t *testing.T) {
	fake := &fakeStateExecutor{}
	s := newRunState(fake, uuid.New())
	if err := s.ensureTable(); err != nil {
		t.Fatalf("ensureTable() error: %v", err)
	}
	if len(fake.queries) != 1 || !strings.Contains(fake.queries[0], "CREATE TABLE IF NOT EXISTS") {
		t.Errorf("queries = %v, want a CREATE TABLE statement", fake.queries)
	}
}

func TestRunState_CompletedIdentifiers(t *testing.T) {
	fake := &fakeStateExecutor{
		results: []wire.SimpleQueryResult{
			{Rows: []wire.Row{{Values: [][]byte{[]byte("public.users")}}, {Values: [][]byte{[]byte("public.orders")}}}},
		},
	}
	s := newRunState(fake, uuid.New())
	got, err := s.completedIdentifiers("table")
	if err != nil {
		t.Fatalf("completedIdentifiers() error: %v", err)
	}
	if !got["public.users"] || !got["public.orders"] {
		t.Errorf("completedIdentifiers() = %v, want both tables marked done", got)
	}
}

func TestRunState_CompletedIdentifiers_MissingTableIsEmptySet(t *testing.T) {
	fake := &fakeStateExecutor{err: errTestQueryFailed}
	s := newRunState(fake, uuid.New())
	got, err := s.completedIdentifiers("table")
	if err != nil {
		t.Fatalf("completedIdentifiers() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("completedIdentifiers() = %v, want empty", got)
	}
}

func TestRunState_MarkComplete(t *testing.T) {
	fake := &fakeStateExecutor{}
	s := newRunState(fake, uuid.New())
	if err := s.markComplete("table", "public.users", "data", ""); err != nil {
		t.Fatalf("markComplete() error: %v", err)
	}
	if len(fake.queries) != 1 || !strings.Contains(fake.queries[0], "ON CONFLICT") {
		t.Errorf("queries = %v, want an upsert statement", fake.queries)
	}
}

func TestRunState_MarkComplete_RecordsSignature(t *testing.T) {
	fake := &fakeStateExecutor{}
	s := newRunState(fake, uuid.New())
	if err := s.markComplete("pre-data", "public.users", "pre-data", "abc123"); err != nil {
		t.Fatalf("markComplete() error: %v", err)
	}
	if len(fake.queries) != 1 || !strings.Contains(fake.queries[0], "'abc123'") {
		t.Errorf("queries = %v, want the signature literal present", fake.queries)
	}
}

func TestRunState_ObjectSignatures(t *testing.T) {
	fake := &fakeStateExecutor{
		results: []wire.SimpleQueryResult{
			{Rows: []wire.Row{
				{Values: [][]byte{[]byte("public.users"), []byte("abc123")}},
				{Values: [][]byte{[]byte("public.orders"), []byte("def456")}},
			}},
		},
	}
	s := newRunState(fake, uuid.New())
	got, err := s.objectSignatures("pre-data")
	if err != nil {
		t.Fatalf("objectSignatures() error: %v", err)
	}
	if got["public.users"] != "abc123" || got["public.orders"] != "def456" {
		t.Errorf("objectSignatures() = %v, want both signatures populated", got)
	}
}

func TestRunState_ObjectSignatures_MissingTableIsEmptySet(t *testing.T) {
	fake := &fakeStateExecutor{err: errTestQueryFailed}
	s := newRunState(fake, uuid.New())
	got, err := s.objectSignatures("pre-data")
	if err != nil {
		t.Fatalf("objectSignatures() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("objectSignatures() = %v, want empty", got)
	}
}

var errTestQueryFailed = &testQueryError{}

type testQueryError struct{}

func (*testQueryError) Error() string { return "relation does not exist" }
