// Package filter reduces a raw record set to the posts that belong to the
// event: no duplicates, no incomplete rows, on topic, inside the window.
package filter

import (
	"database/sql"
	"strings"
	"time"

	"github.com/ibeckermayer/eventgraph/internal/types"
)

// Options configures the topic and time-window steps. End is exclusive.
type Options struct {
	Topic string
	Start time.Time
	End   time.Time
}

// Counts reports how many rows each step removed.
type Counts struct {
	Input      int `json:"input"`
	Duplicates int `json:"duplicates"`
	Incomplete int `json:"incomplete"`
	OffTopic   int `json:"off_topic"`
	OutOfRange int `json:"out_of_range"`
	Kept       int `json:"kept"`
}

// Removed is the total number of rows dropped.
func (c Counts) Removed() int {
	return c.Duplicates + c.Incomplete + c.OffTopic + c.OutOfRange
}

// Apply runs the four steps in order. Later steps rely on the invariants
// established by earlier ones.
func Apply(posts []types.Post, opts Options) ([]types.Post, Counts) {
	c := Counts{Input: len(posts)}

	out := Deduplicate(posts)
	c.Duplicates = len(posts) - len(out)

	n := len(out)
	out = DropIncomplete(out)
	c.Incomplete = n - len(out)

	n = len(out)
	out = KeepTopic(out, opts.Topic)
	c.OffTopic = n - len(out)

	n = len(out)
	out = KeepWindow(out, opts.Start, opts.End)
	c.OutOfRange = n - len(out)

	c.Kept = len(out)
	return out, c
}

// Deduplicate keeps the first of every group of rows whose cells are all
// identical.
func Deduplicate(posts []types.Post) []types.Post {
	seen := make(map[string]struct{}, len(posts))
	out := make([]types.Post, 0, len(posts))
	for _, p := range posts {
		key := rowKey(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// rowKey identifies a row by every raw cell. All rows of a table share one
// width, so joining on a separator is unambiguous. Posts built without a raw
// row fall back to their typed fields.
func rowKey(p types.Post) string {
	if p.Row != nil {
		return strings.Join(p.Row, "\x1f")
	}

	fields := []sql.NullString{
		p.PostID, p.ActorID, p.ActorHandle, p.BodyText, p.EntitiesJSON,
		p.SourceMarkup, p.StatusURL, p.InReplyToActorID, p.InReplyToHandle,
	}
	var b strings.Builder
	for _, f := range fields {
		if f.Valid {
			b.WriteByte('1')
			b.WriteString(f.String)
		} else {
			b.WriteByte('0')
		}
		b.WriteByte('\x1f')
	}
	b.WriteString(p.CreatedAtRaw)
	return b.String()
}

// RequiredFields lists what every surviving row must carry.
var RequiredFields = []struct {
	Name string
	Get  func(types.Post) bool
}{
	{Name: "post_id", Get: func(p types.Post) bool { return p.PostID.Valid }},
	{Name: "actor_id", Get: func(p types.Post) bool { return p.ActorID.Valid }},
	{Name: "body_text", Get: func(p types.Post) bool { return p.BodyText.Valid }},
	{Name: "entities_json", Get: func(p types.Post) bool { return p.EntitiesJSON.Valid }},
}

// Complete reports whether p carries every required field.
func Complete(p types.Post) bool {
	for _, f := range RequiredFields {
		if !f.Get(p) {
			return false
		}
	}
	return true
}

// DropIncomplete removes rows missing any required field.
func DropIncomplete(posts []types.Post) []types.Post {
	return keep(posts, Complete)
}

// KeepTopic keeps rows whose raw entities document mentions topic,
// case-insensitively.
func KeepTopic(posts []types.Post, topic string) []types.Post {
	needle := strings.ToLower(topic)
	return keep(posts, func(p types.Post) bool {
		return strings.Contains(strings.ToLower(p.EntitiesJSON.String), needle)
	})
}

// KeepWindow keeps rows created in [start, end). Rows whose timestamp did not
// parse are dropped.
func KeepWindow(posts []types.Post, start, end time.Time) []types.Post {
	return keep(posts, func(p types.Post) bool {
		return InWindow(p, start, end)
	})
}

// InWindow reports whether p was created in [start, end).
func InWindow(p types.Post, start, end time.Time) bool {
	if !p.CreatedAtValid {
		return false
	}
	t := p.CreatedAt.UTC()
	return !t.Before(start.UTC()) && t.Before(end.UTC())
}

func keep(posts []types.Post, pred func(types.Post) bool) []types.Post {
	out := posts[:0:0]
	for _, p := range posts {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}
