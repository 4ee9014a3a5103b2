// SPDX-License-Identifier: MPL-2.0

package alignment

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LineWidth is the residue count per line when writing A2M.
const LineWidth = 80

// maxLineSize bounds a single input line; unwrapped A3M rows can be long.
const maxLineSize = 64 << 20

// Record is one aligned sequence. Header keeps its leading '>'.
type Record struct {
	Header   string
	Sequence string
}

// ID returns the first word of the header without '>'.
func (r Record) ID() string {
	fields := strings.Fields(strings.TrimPrefix(r.Header, ">"))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Read parses FASTA-style A2M. Sequence lines are concatenated verbatim;
// lines before the first header are ignored.
func Read(r io.Reader) ([]Record, error) {
	var (
		records []Record
		current *Record
		seq     strings.Builder
	)
	flush := func() {
		if current != nil {
			current.Sequence = seq.String()
			records = append(records, *current)
			seq.Reset()
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, ">") {
			flush()
			current = &Record{Header: line}
			continue
		}
		if current != nil {
			seq.WriteString(line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return records, nil
}

// ReadFile reads the A2M file at path.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}

// Write emits records with sequences wrapped at LineWidth.
func Write(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		bw.WriteString(rec.Header)
		bw.WriteByte('\n')
		for s := rec.Sequence; len(s) > 0; {
			n := min(LineWidth, len(s))
			bw.WriteString(s[:n])
			bw.WriteByte('\n')
			s = s[n:]
		}
	}
	return bw.Flush()
}

// WriteFile writes records to path, replacing any existing file.
func WriteFile(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
