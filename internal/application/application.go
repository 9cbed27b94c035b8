// Package application derives the posting client from the source markup.
package application

import (
	"database/sql"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ibeckermayer/eventgraph/internal/types"
)

// Brand is the platform's own client prefix. Labels starting with it
// collapse onto it.
const Brand = "Twitter"

// bodyContext parses markup as a fragment of <body>, so head-only tags such
// as <title> stay where they were written.
var bodyContext = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

// Label returns the inner text of the first element in markup, verbatim,
// coarsened to Brand for first-party clients. Null markup, markup with no
// element and empty labels all yield null.
func Label(markup sql.NullString) sql.NullString {
	if !markup.Valid || !strings.Contains(markup.String, "<") {
		return types.Null()
	}

	nodes, err := html.ParseFragment(strings.NewReader(markup.String), bodyContext)
	if err != nil {
		return types.Null()
	}

	var first *html.Node
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			first = n
			break
		}
	}
	if first == nil {
		return types.Null()
	}

	label := goquery.NewDocumentFromNode(first).Text()
	if strings.TrimSpace(label) == "" {
		return types.Null()
	}
	if strings.HasPrefix(label, Brand) {
		label = label[:len(Brand)]
	}
	return types.NullIfEmpty(label)
}

// Normalize sets the Application field of p.
func Normalize(p types.Post) types.Post {
	p.Application = Label(p.SourceMarkup)
	return p
}

// NormalizeAll applies Normalize to every post.
func NormalizeAll(posts []types.Post) []types.Post {
	for i := range posts {
		posts[i] = Normalize(posts[i])
	}
	return posts
}
