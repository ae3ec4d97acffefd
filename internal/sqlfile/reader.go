package sqlfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Section is one parsed "-- ELEFANT_SYNC:section=..." block's raw text.
type Section struct {
	Name string // pre-data|data|post-data
	Body string
}

// Parsed is the result of sniffing and splitting a file.
type Parsed struct {
	Format   Format
	Version  int
	Sections []Section
}

// Sniff reads the header line to determine format/version, then splits
// the remainder into sections keyed by marker, driving the same sink
// interface regardless of which format produced the file.
func Sniff(r io.Reader) (*Parsed, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("empty sql file")
	}
	header := scanner.Text()
	format, version, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	p := &Parsed{Format: format, Version: version}
	var cur *Section
	var body strings.Builder

	flush := func() {
		if cur != nil {
			cur.Body = body.String()
			p.Sections = append(p.Sections, *cur)
		}
		body.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := parseSectionMarker(line); ok {
			flush()
			cur = &Section{Name: name}
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan sql file: %w", err)
	}
	return p, nil
}

func parseHeader(line string) (Format, int, error) {
	const prefix = "-- ELEFANT_SYNC format="
	if !strings.HasPrefix(line, prefix) {
		return "", 0, fmt.Errorf("unrecognized sql file header: %q", line)
	}
	rest := strings.TrimPrefix(line, prefix)
	fields := strings.Fields(rest)
	if len(fields) != 2 || !strings.HasPrefix(fields[1], "version=") {
		return "", 0, fmt.Errorf("malformed sql file header: %q", line)
	}
	format := Format(fields[0])
	switch format {
	case FormatInsertStatements, FormatCopyStatements:
	default:
		return "", 0, fmt.Errorf("unknown sql file format %q", format)
	}
	var version int
	if _, err := fmt.Sscanf(fields[1], "version=%d", &version); err != nil {
		return "", 0, fmt.Errorf("malformed version field: %q", fields[1])
	}
	return format, version, nil
}

func parseSectionMarker(line string) (string, bool) {
	const prefix = "-- ELEFANT_SYNC:section="
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	return strings.TrimPrefix(line, prefix), true
}

// Section concatenates the bodies of every section with the given name,
// in file order, or "" if none are present. The writer starts a new
// "data" marker each time MaxCommandsPerChunk rolls over, so a data
// section with many chunks appears as several same-named sections, not
// one.
func (p *Parsed) Section(name string) string {
	var b strings.Builder
	for _, s := range p.Sections {
		if s.Name == name {
			b.WriteString(s.Body)
		}
	}
	return b.String()
}
