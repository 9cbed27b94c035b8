package graph

import (
	"strings"

	"github.com/ibeckermayer/eventgraph/internal/classify"
	"github.com/ibeckermayer/eventgraph/internal/types"
)

// Set holds the three interaction graphs of one run
type Set struct {
	Reply   *Graph
	Reshare *Graph
	Mention *Graph
}

// Get returns the graph of the given kind, or nil.
func (s Set) Get(kind Kind) *Graph {
	switch kind {
	case KindReply:
		return s.Reply
	case KindReshare:
		return s.Reshare
	case KindMention:
		return s.Mention
	}
	return nil
}

// BuildAll builds every graph from the same posts.
func BuildAll(posts []types.Post) Set {
	return Set{
		Reply:   BuildReply(posts),
		Reshare: BuildReshare(posts),
		Mention: BuildMention(posts),
	}
}

// BuildReply connects each replying author with the handle they replied to.
// Posts missing either handle are skipped.
func BuildReply(posts []types.Post) *Graph {
	g := New(KindReply)
	for _, p := range posts {
		if !p.InReplyToHandle.Valid || !p.ActorHandle.Valid {
			continue
		}
		g.AddEdge(p.InReplyToHandle.String, p.ActorHandle.String)
	}
	return g
}

// BuildReshare connects each resharing author with the reshared handle as
// written in the body. Replies are left out, as are reshares whose reshared
// actor could not be resolved from the mentions.
func BuildReshare(posts []types.Post) *Graph {
	g := New(KindReshare)
	for _, p := range posts {
		if p.IsReply() || !p.IsReshare || !p.ActorHandle.Valid || !p.ResharedActorHandle.Valid {
			continue
		}
		target, ok := ReshareHandle(p.BodyText.String)
		if !ok {
			continue
		}
		g.AddEdge(p.ActorHandle.String, target)
	}
	return g
}

// ReshareHandle returns the handle following the reshare marker, up to the
// first colon. Without a colon the whole remainder is the handle.
func ReshareHandle(body string) (string, bool) {
	rest, ok := strings.CutPrefix(body, classify.ReshareMarker)
	if !ok {
		return "", false
	}
	handle, _, _ := strings.Cut(rest, ":")
	if handle == "" {
		return "", false
	}
	return handle, true
}

// BuildMention connects each author with every handle they mention.
func BuildMention(posts []types.Post) *Graph {
	g := New(KindMention)
	for _, p := range posts {
		if !p.ActorHandle.Valid {
			continue
		}
		for _, m := range p.Entities.UserMentions {
			if m.ScreenName == "" {
				continue
			}
			g.AddEdge(p.ActorHandle.String, m.ScreenName)
		}
	}
	return g
}
