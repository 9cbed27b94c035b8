// Package classify labels posts as replies and reshares.
//
// A reshare is detected from the body text. Its reshared actor is read from
// the first user mention, since the platform places the original poster
// there. The reshare graph derives the same handle from the body text
// instead; the two are kept separate and can disagree on malformed bodies.
package classify

import (
	"errors"
	"regexp"

	"github.com/ibeckermayer/eventgraph/internal/types"
)

// ReshareMarker is the case-sensitive prefix of a reshare body.
const ReshareMarker = "RT @"

var reshare = regexp.MustCompile(`^RT @.`)

// ErrNoMentions is wrapped by the warning raised for a reshare without any
// user mention.
var ErrNoMentions = errors.New("reshare has no user mentions")

// IsReshare reports whether body carries the reshare marker followed by at
// least one character.
func IsReshare(body string) bool {
	return reshare.MatchString(body)
}

// Classify sets the reshare fields of p. The returned warning is non-nil
// when p is a reshare whose reshared actor cannot be resolved.
func Classify(p types.Post) (types.Post, *types.Warning) {
	p.IsReshare = p.BodyText.Valid && IsReshare(p.BodyText.String)
	p.ResharedActorID = types.Null()
	p.ResharedActorHandle = types.Null()
	p.ResharedActorName = types.Null()

	if !p.IsReshare {
		return p, nil
	}

	if len(p.Entities.UserMentions) == 0 {
		return p, &types.Warning{
			Kind:   types.InconsistentClassification,
			PostID: p.PostID.String,
			Err:    ErrNoMentions,
		}
	}

	first := p.Entities.UserMentions[0]
	p.ResharedActorID = types.NullIfEmpty(first.IDStr)
	p.ResharedActorHandle = types.NullIfEmpty(first.ScreenName)
	p.ResharedActorName = types.NullIfEmpty(first.Name)
	return p, nil
}

// Kind returns the breakdown bucket for p. Replies win over reshares.
func Kind(p types.Post) types.Kind {
	switch {
	case p.IsReply():
		return types.KindReply
	case p.IsReshare:
		return types.KindReshare
	default:
		return types.KindOriginal
	}
}

// ClassifyAll classifies every post in place and collects the warnings.
func ClassifyAll(posts []types.Post) ([]types.Post, []types.Warning) {
	var warnings []types.Warning
	for i, p := range posts {
		c, w := Classify(p)
		posts[i] = c
		if w != nil {
			warnings = append(warnings, *w)
		}
	}
	return posts, warnings
}
