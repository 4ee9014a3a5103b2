// SPDX-License-Identifier: MPL-2.0

package alignment

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyAlignment is returned when an alignment holds no sequences.
	ErrEmptyAlignment = errors.New("alignment contains no sequences")
	// ErrRaggedAlignment is returned when a sequence is shorter than the query.
	ErrRaggedAlignment = errors.New("alignment rows have unequal length")
)

// Stats summarizes a query-gap cleanup.
type Stats struct {
	Sequences      int    `json:"sequences"`
	Query          string `json:"query"`
	OriginalLength int    `json:"original_length"`
	GapsRemoved    int    `json:"gaps_removed"`
	NewLength      int    `json:"new_length"`
}

// IsGap reports whether c is an A2M gap symbol: '-' for a deletion in a
// match column, '.' for padding in an insert column.
func IsGap(c byte) bool {
	return c == '-' || c == '.'
}

// RemoveQueryGaps drops every column in which the first record has a gap.
// The input is not modified.
func RemoveQueryGaps(records []Record) ([]Record, Stats, error) {
	if len(records) == 0 {
		return nil, Stats{}, ErrEmptyAlignment
	}

	query := records[0].Sequence
	keep := make([]int, 0, len(query))
	for i := range len(query) {
		if !IsGap(query[i]) {
			keep = append(keep, i)
		}
	}

	out := make([]Record, len(records))
	var b strings.Builder
	for n, rec := range records {
		if len(rec.Sequence) < len(query) {
			return nil, Stats{}, fmt.Errorf("%w: %s has %d columns, query has %d",
				ErrRaggedAlignment, rec.Header, len(rec.Sequence), len(query))
		}
		b.Reset()
		b.Grow(len(keep))
		for _, i := range keep {
			b.WriteByte(rec.Sequence[i])
		}
		out[n] = Record{Header: rec.Header, Sequence: b.String()}
	}

	return out, Stats{
		Sequences:      len(records),
		Query:          strings.TrimPrefix(records[0].Header, ">"),
		OriginalLength: len(query),
		GapsRemoved:    len(query) - len(keep),
		NewLength:      len(keep),
	}, nil
}

// CleanFile removes query-gap columns from the A2M file in and writes the
// result to out. in and out may be the same path.
func CleanFile(in, out string) (Stats, error) {
	records, err := ReadFile(in)
	if err != nil {
		return Stats{}, err
	}
	cleaned, stats, err := RemoveQueryGaps(records)
	if err != nil {
		return Stats{}, fmt.Errorf("%s: %w", in, err)
	}
	if err := WriteFile(out, cleaned); err != nil {
		return Stats{}, err
	}
	return stats, nil
}
