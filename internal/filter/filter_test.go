package filter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/eventgraph/internal/filter"
	"github.com/ibeckermayer/eventgraph/internal/types"
)

var (
	windowStart = time.Date(2014, 11, 12, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2014, 12, 6, 0, 0, 0, 0, time.UTC)
	opts        = filter.Options{Topic: "CometLanding", Start: windowStart, End: windowEnd}
)

const onTopic = `{"hashtags":[{"text":"cometlanding"}],"user_mentions":[]}`

func post(id, actor, body, entities string, created time.Time) types.Post {
	p := types.Post{
		PostID:         types.NullIfEmpty(id),
		ActorID:        types.NullIfEmpty(actor),
		BodyText:       types.NullIfEmpty(body),
		EntitiesJSON:   types.NullIfEmpty(entities),
		CreatedAt:      created,
		CreatedAtValid: !created.IsZero(),
		CreatedAtRaw:   created.Format(time.RFC3339),
	}
	p.Row = []string{id, actor, body, entities, p.CreatedAtRaw}
	return p
}

func inWindow(h int) time.Time {
	return windowStart.Add(time.Duration(h) * time.Hour)
}

func TestDeduplicate_FullRowIdentity(t *testing.T) {
	t.Parallel()

	a := post("1", "10", "hello", onTopic, inWindow(1))
	sameID := post("1", "10", "hello again", onTopic, inWindow(1))

	got := filter.Deduplicate([]types.Post{a, a, sameID, a})

	require.Len(t, got, 2)
	assert.Equal(t, "hello", got[0].BodyText.String)
	assert.Equal(t, "hello again", got[1].BodyText.String)
}

func TestDeduplicate_WithoutRawRow(t *testing.T) {
	t.Parallel()

	a := post("1", "10", "x", onTopic, inWindow(1))
	a.Row = nil
	b := a
	c := a
	c.StatusURL = types.NullIfEmpty("http://example.com")

	assert.Len(t, filter.Deduplicate([]types.Post{a, b, c}), 2)
}

func TestDropIncomplete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    types.Post
		keep bool
	}{
		{name: "complete", p: post("1", "10", "x", onTopic, inWindow(1)), keep: true},
		{name: "no post id", p: post("", "10", "x", onTopic, inWindow(1))},
		{name: "no actor id", p: post("1", "", "x", onTopic, inWindow(1))},
		{name: "no body", p: post("1", "10", "", onTopic, inWindow(1))},
		{name: "no entities", p: post("1", "10", "x", "", inWindow(1))},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := filter.DropIncomplete([]types.Post{tt.p})
			assert.Equal(t, tt.keep, len(got) == 1)
			assert.Equal(t, tt.keep, filter.Complete(tt.p))
		})
	}
}

func TestKeepTopic_CaseInsensitiveSubstring(t *testing.T) {
	t.Parallel()

	posts := []types.Post{
		post("1", "10", "x", `{"hashtags":[{"text":"CometLanding"}]}`, inWindow(1)),
		post("2", "10", "x", `{"hashtags":[{"text":"COMETLANDINGDAY"}]}`, inWindow(1)),
		post("3", "10", "x", `{"hashtags":[{"text":"Philae"}]}`, inWindow(1)),
	}

	got := filter.KeepTopic(posts, "cometLanding")
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].PostID.String)
	assert.Equal(t, "2", got[1].PostID.String)
}

func TestKeepWindow_HalfOpen(t *testing.T) {
	t.Parallel()

	unparsed := post("5", "10", "x", onTopic, time.Time{})
	posts := []types.Post{
		post("1", "10", "x", onTopic, windowStart),
		post("2", "10", "x", onTopic, windowEnd),
		post("3", "10", "x", onTopic, windowStart.Add(-time.Second)),
		post("4", "10", "x", onTopic, windowEnd.Add(-time.Second)),
		unparsed,
	}

	got := filter.KeepWindow(posts, windowStart, windowEnd)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].PostID.String)
	assert.Equal(t, "4", got[1].PostID.String)
}

func TestKeepWindow_NormalizesToUTC(t *testing.T) {
	t.Parallel()

	// 2014-12-06 00:30 in +01:00 is 2014-12-05 23:30 UTC
	loc := time.FixedZone("CET", 3600)
	p := post("1", "10", "x", onTopic, time.Date(2014, 12, 6, 0, 30, 0, 0, loc))

	assert.True(t, filter.InWindow(p, windowStart, windowEnd))
}

func TestApply_OrderAndCounts(t *testing.T) {
	t.Parallel()

	dup := post("1", "10", "x", onTopic, inWindow(1))
	posts := []types.Post{
		dup,
		dup,
		post("", "10", "x", onTopic, inWindow(1)),
		post("3", "10", "x", `{"hashtags":[]}`, inWindow(1)),
		post("4", "10", "x", onTopic, windowEnd.Add(time.Hour)),
		post("5", "11", "y", onTopic, inWindow(2)),
	}

	got, counts := filter.Apply(posts, opts)

	require.Len(t, got, 2)
	assert.Equal(t, filter.Counts{
		Input:      6,
		Duplicates: 1,
		Incomplete: 1,
		OffTopic:   1,
		OutOfRange: 1,
		Kept:       2,
	}, counts)
	assert.Equal(t, 4, counts.Removed())
}

func TestApply_Invariants(t *testing.T) {
	t.Parallel()

	posts := []types.Post{
		post("1", "10", "x", onTopic, inWindow(1)),
		post("1", "10", "x", onTopic, inWindow(1)),
		post("2", "", "x", onTopic, inWindow(1)),
		post("3", "10", "", onTopic, inWindow(1)),
		post("4", "10", "x", onTopic, time.Time{}),
		post("5", "10", "x", onTopic, inWindow(-5)),
		post("6", "12", "z", onTopic, inWindow(30)),
	}

	once, _ := filter.Apply(posts, opts)
	for _, p := range once {
		assert.True(t, filter.Complete(p), "post %s incomplete", p.PostID.String)
		assert.True(t, filter.InWindow(p, windowStart, windowEnd), "post %s outside window", p.PostID.String)
	}

	twice, counts := filter.Apply(once, opts)
	assert.Equal(t, once, twice)
	assert.Zero(t, counts.Removed())
}
