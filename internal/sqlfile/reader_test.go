package sqlfile

import (
	"bytes"
	"strings"
	"testing"
)

func TestSniff_ParsesHeaderAndSections(t *testing.T) {
	input := `-- ELEFANT_SYNC format=InsertStatements version=1
-- ELEFANT_SYNC:section=pre-data
CREATE TABLE public.t (id integer);
-- ELEFANT_SYNC:section=data
INSERT INTO public.t (id) VALUES (1);
-- ELEFANT_SYNC:section=post-data
ALTER TABLE public.t ADD CONSTRAINT t_pkey PRIMARY KEY (id);
`
	p, err := Sniff(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Sniff() error: %v", err)
	}
	if p.Format != FormatInsertStatements || p.Version != 1 {
		t.Errorf("Format/Version = %v/%d, want InsertStatements/1", p.Format, p.Version)
	}
	if !strings.Contains(p.Section("pre-data"), "CREATE TABLE") {
		t.Errorf("pre-data section = %q", p.Section("pre-data"))
	}
	if !strings.Contains(p.Section("data"), "INSERT INTO") {
		t.Errorf("data section = %q", p.Section("data"))
	}
	if !strings.Contains(p.Section("post-data"), "ADD CONSTRAINT") {
		t.Errorf("post-data section = %q", p.Section("post-data"))
	}
}

func TestSniff_RejectsEmptyFile(t *testing.T) {
	if _, err := Sniff(strings.NewReader("")); err == nil {
		t.Fatal("expected an error for an empty file, got nil")
	}
}

func TestSniff_RejectsUnrecognizedHeader(t *testing.T) {
	if _, err := Sniff(strings.NewReader("not a header\n")); err == nil {
		t.Fatal("expected an error for an unrecognized header, got nil")
	}
}

func TestSniff_RejectsUnknownFormat(t *testing.T) {
	if _, err := Sniff(strings.NewReader("-- ELEFANT_SYNC format=Bogus version=1\n")); err == nil {
		t.Fatal("expected an error for an unknown format, got nil")
	}
}

func TestParsed_Section_MissingReturnsEmpty(t *testing.T) {
	p := &Parsed{Format: FormatInsertStatements, Version: 1}
	if got := p.Section("data"); got != "" {
		t.Errorf("Section() = %q, want empty", got)
	}
}

func TestParsed_Section_ConcatenatesRolledChunks(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WriterOptions{Format: FormatCopyStatements, MaxCommandsPerChunk: 1})
	if err := w.BeginData(); err != nil {
		t.Fatalf("BeginData() error: %v", err)
	}
	if err := w.WriteCopyBlock("public.a", []string{"id"}, []string{"1"}); err != nil {
		t.Fatalf("WriteCopyBlock() error: %v", err)
	}
	if err := w.WriteCopyBlock("public.b", []string{"id"}, []string{"2"}); err != nil {
		t.Fatalf("WriteCopyBlock() error: %v", err)
	}
	if err := w.WriteCopyBlock("public.c", []string{"id"}, []string{"3"}); err != nil {
		t.Fatalf("WriteCopyBlock() error: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	p, err := Sniff(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Sniff() error: %v", err)
	}
	if got := len(p.Sections); got != 3 {
		t.Fatalf("got %d sections, want 3 separately-marked data chunks", got)
	}

	data := p.Section("data")
	for _, want := range []string{"COPY public.a", "COPY public.b", "COPY public.c"} {
		if !strings.Contains(data, want) {
			t.Errorf("Section(\"data\") = %q, missing %q", data, want)
		}
	}
}
