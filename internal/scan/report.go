package scan

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/standardbeagle/atom/pkg/atom"
)

// Entry is one token and the number of times it was seen.
type Entry struct {
	Token atom.Atom `json:"token"`
	Count int       `json:"count"`
}

// FileResult summarizes one tokenized file.
type FileResult struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Tokens   int    `json:"tokens"`
	Distinct int    `json:"distinct"`
}

// Report summarizes a scan.
type Report struct {
	Root         string        `json:"root"`
	Files        int           `json:"files"`
	SkippedFiles int           `json:"skipped_files"`
	Tokens       int           `json:"tokens"`
	UniqueTokens int           `json:"unique_tokens"`
	BytesSeen    int64         `json:"bytes_seen"`
	BytesUnique  int64         `json:"bytes_unique"`
	Top          []Entry       `json:"top"`
	Registry     atom.Stats    `json:"registry"`
	Errors       []string      `json:"errors,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
}

// DedupRatio is the fraction of token bytes that interning did not have to
// store: 0 when every token was distinct, approaching 1 with heavy repetition.
func (r *Report) DedupRatio() float64 {
	if r.BytesSeen == 0 {
		return 0
	}
	return 1 - float64(r.BytesUnique)/float64(r.BytesSeen)
}

// topEntries returns the n most frequent tokens, ordered by count then by
// content. n <= 0 returns every token.
func topEntries(counts map[atom.Atom]int, n int) []Entry {
	entries := make([]Entry, 0, len(counts))
	for a, c := range counts {
		entries = append(entries, Entry{Token: a, Count: c})
	}
	slices.SortFunc(entries, func(x, y Entry) int {
		if x.Count != y.Count {
			return y.Count - x.Count
		}
		return atom.Compare(x.Token, y.Token)
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes a human readable summary followed by the top tokens.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Root:\t%s\n", r.Root)
	fmt.Fprintf(tw, "Files scanned:\t%d\n", r.Files)
	fmt.Fprintf(tw, "Files skipped:\t%d\n", r.SkippedFiles)
	fmt.Fprintf(tw, "Tokens:\t%d\n", r.Tokens)
	fmt.Fprintf(tw, "Unique tokens:\t%d\n", r.UniqueTokens)
	fmt.Fprintf(tw, "Token bytes:\t%d seen, %d unique (%.1f%% deduplicated)\n",
		r.BytesSeen, r.BytesUnique, r.DedupRatio()*100)
	fmt.Fprintf(tw, "Registry:\t%d records, %d payload bytes, %d block bytes, %d colliding buckets\n",
		r.Registry.Records, r.Registry.PayloadBytes, r.Registry.BlockBytes, r.Registry.CollidingBuckets)
	fmt.Fprintf(tw, "Duration:\t%s\n", r.Duration.Round(time.Millisecond))

	if len(r.Top) > 0 {
		fmt.Fprintf(tw, "\nCOUNT\tTOKEN\n")
		for _, e := range r.Top {
			fmt.Fprintf(tw, "%d\t%q\n", e.Count, e.Token)
		}
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(tw, "\nErrors (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(tw, "  %s\n", e)
		}
	}

	return tw.Flush()
}
