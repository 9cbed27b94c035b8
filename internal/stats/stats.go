// Package stats computes the descriptive series a chart renderer consumes.
package stats

import (
	"sort"
	"time"

	"github.com/ibeckermayer/eventgraph/internal/types"
)

// OthersBucket collects every application outside the top N.
const OthersBucket = "Others"

// TypeBreakdown counts posts per interaction type. Replies are counted by
// the reply flag alone; the remaining posts split on the reshare flag.
type TypeBreakdown struct {
	Original int `json:"original"`
	Reshare  int `json:"reshare"`
	Reply    int `json:"reply"`
}

// Total is the number of posts counted.
func (b TypeBreakdown) Total() int {
	return b.Original + b.Reshare + b.Reply
}

// Bucket is one slice of the application chart
type Bucket struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Timeline is the hourly activity of one UTC day
type Timeline struct {
	Day   string  `json:"day"`
	Hours [24]int `json:"hours"`
}

// Summary bundles every series of one run
type Summary struct {
	Breakdown    TypeBreakdown `json:"breakdown"`
	Applications []Bucket      `json:"applications"`
	Timeline     Timeline      `json:"timeline"`
}

// Breakdown counts posts by interaction type.
func Breakdown(posts []types.Post) TypeBreakdown {
	var b TypeBreakdown
	for _, p := range posts {
		switch {
		case p.IsReply():
			b.Reply++
		case p.IsReshare:
			b.Reshare++
		default:
			b.Original++
		}
	}
	return b
}

// Applications returns the topN applications by count, ties ordered by
// name, followed by an Others bucket for the rest. Percentages are taken
// over every post, so posts without an application lower them without
// getting a bucket.
func Applications(posts []types.Post, topN int) []Bucket {
	counts := make(map[string]int)
	for _, p := range posts {
		if p.Application.Valid {
			counts[p.Application.String]++
		}
	}

	ranked := make([]Bucket, 0, len(counts))
	for name, n := range counts {
		ranked = append(ranked, Bucket{Name: name, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Name < ranked[j].Name
	})

	if topN < 0 {
		topN = 0
	}
	if topN > len(ranked) {
		topN = len(ranked)
	}

	out := append([]Bucket(nil), ranked[:topN]...)
	others := 0
	for _, b := range ranked[topN:] {
		others += b.Count
	}
	out = append(out, Bucket{Name: OthersBucket, Count: others})

	total := len(posts)
	for i := range out {
		if total > 0 {
			out[i].Percent = 100 * float64(out[i].Count) / float64(total)
		}
	}
	return out
}

// BusiestDay returns the hourly timeline of the UTC day with the most posts.
// Ties go to the earlier day.
func BusiestDay(posts []types.Post) Timeline {
	perDay := make(map[string]int)
	for _, p := range posts {
		if p.CreatedAtValid {
			perDay[p.CreatedAt.UTC().Format(time.DateOnly)]++
		}
	}

	best, bestN := "", 0
	for day, n := range perDay {
		if n > bestN || (n == bestN && day < best) {
			best, bestN = day, n
		}
	}
	if best == "" {
		return Timeline{}
	}
	return DayTimeline(posts, best)
}

// DayTimeline counts the posts of day (YYYY-MM-DD, UTC) per hour.
func DayTimeline(posts []types.Post, day string) Timeline {
	tl := Timeline{Day: day}
	for _, p := range posts {
		if !p.CreatedAtValid {
			continue
		}
		t := p.CreatedAt.UTC()
		if t.Format(time.DateOnly) == day {
			tl.Hours[t.Hour()]++
		}
	}
	return tl
}

// Summarize computes every series. An empty day picks the busiest one.
func Summarize(posts []types.Post, topN int, day string) Summary {
	s := Summary{
		Breakdown:    Breakdown(posts),
		Applications: Applications(posts, topN),
	}
	if day == "" {
		s.Timeline = BusiestDay(posts)
	} else {
		s.Timeline = DayTimeline(posts, day)
	}
	return s
}
