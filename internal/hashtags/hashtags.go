// Package hashtags enumerates hashtags and ranks them by frequency.
package hashtags

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ibeckermayer/eventgraph/internal/types"
)

// Frequency is one entry of the ranked table
type Frequency struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Extract returns the text of every hashtag, in record order and then array
// order. Duplicates are kept.
func Extract(posts []types.Post) []string {
	var all []string
	for _, p := range posts {
		for _, h := range p.Entities.Hashtags {
			all = append(all, h.Text)
		}
	}
	return all
}

// Unique returns the distinct tags of all in first-seen order. Identity is
// case-sensitive. When exclude is non-empty, tags equal to it ignoring case
// are left out.
func Unique(all []string, exclude string) []string {
	seen := make(map[string]struct{}, len(all))
	var out []string
	for _, tag := range all {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		if exclude != "" && strings.EqualFold(tag, exclude) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// Frequencies counts each tag of unique across all and ranks the result by
// descending count. Ties keep the order of unique.
func Frequencies(all, unique []string) []Frequency {
	counts := make(map[string]int, len(unique))
	for _, tag := range all {
		counts[tag]++
	}

	out := make([]Frequency, len(unique))
	for i, tag := range unique {
		out[i] = Frequency{Tag: tag, Count: counts[tag]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Rank is Frequencies over the unique tags of all.
func Rank(all []string, exclude string) []Frequency {
	return Frequencies(all, Unique(all, exclude))
}

// AboveThreshold keeps the entries whose count is strictly greater than n.
func AboveThreshold(freqs []Frequency, n int) []Frequency {
	var out []Frequency
	for _, f := range freqs {
		if f.Count > n {
			out = append(out, f)
		}
	}
	return out
}

// Corpus joins the raw entities document of every post, in table order, into
// one JSON array. Posts without a document are skipped.
func Corpus(posts []types.Post) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	first := true
	for _, p := range posts {
		if !p.EntitiesJSON.Valid {
			continue
		}
		if !first {
			buf.WriteString(", ")
		}
		buf.WriteString(p.EntitiesJSON.String)
		first = false
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// ParseCorpus reads a corpus back into its hashtag multiset.
func ParseCorpus(data []byte) ([]string, error) {
	var docs []types.Entities
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode hashtag corpus: %w", err)
	}

	var all []string
	for _, d := range docs {
		for _, h := range d.Hashtags {
			all = append(all, h.Text)
		}
	}
	return all, nil
}
