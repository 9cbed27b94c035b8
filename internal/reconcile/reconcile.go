// Package reconcile resolves the canonical post identifier.
package reconcile

import (
	"regexp"

	"github.com/ibeckermayer/eventgraph/internal/types"
)

// IDLength is the width of a platform status identifier.
const IDLength = 18

// statusURL matches a URL whose last path segment is an 18-digit identifier.
// Archive exports use /statuses/, newer ones /status/, some neither.
var statusURL = regexp.MustCompile(`^https?://\S+/[0-9]{18}$`)

// ReconcileID replaces PostID with the identifier carried by StatusURL when
// the URL has the expected shape. Any other URL leaves the post untouched.
func ReconcileID(p types.Post) types.Post {
	if id, ok := FromStatusURL(p.StatusURL.String); ok && p.StatusURL.Valid {
		p.PostID = types.NullIfEmpty(id)
	}
	return p
}

// FromStatusURL returns the trailing identifier of a status permalink.
func FromStatusURL(url string) (string, bool) {
	if !statusURL.MatchString(url) {
		return "", false
	}
	return url[len(url)-IDLength:], true
}

// ReconcileAll applies ReconcileID to every post and returns how many
// identifiers changed.
func ReconcileAll(posts []types.Post) ([]types.Post, int) {
	changed := 0
	for i, p := range posts {
		r := ReconcileID(p)
		if r.PostID != p.PostID {
			changed++
		}
		posts[i] = r
	}
	return posts, changed
}
