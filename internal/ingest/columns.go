package ingest

import "strings"

// Canonical column names
const (
	ColPostID           = "post_id"
	ColActorID          = "actor_id"
	ColActorHandle      = "actor_handle"
	ColCreatedAt        = "created_at"
	ColBodyText         = "body_text"
	ColEntitiesJSON     = "entities_json"
	ColSourceMarkup     = "source_markup"
	ColStatusURL        = "status_url"
	ColInReplyToActorID = "in_reply_to_actor_id"
	ColInReplyToHandle  = "in_reply_to_handle"
)

// RequiredColumns must all resolve in the header, either by canonical name
// or by one of its archive aliases.
var RequiredColumns = []string{
	ColPostID,
	ColActorID,
	ColActorHandle,
	ColCreatedAt,
	ColBodyText,
	ColEntitiesJSON,
	ColSourceMarkup,
	ColStatusURL,
	ColInReplyToActorID,
	ColInReplyToHandle,
}

// aliases maps archive export headers onto canonical names.
var aliases = map[string]string{
	"id_str":                  ColPostID,
	"from_user_id_str":        ColActorID,
	"from_user":               ColActorHandle,
	"text":                    ColBodyText,
	"entities_str":            ColEntitiesJSON,
	"source":                  ColSourceMarkup,
	"in_reply_to_user_id_str": ColInReplyToActorID,
	"in_reply_to_screen_name": ColInReplyToHandle,
}

// canonical returns the canonical name for a header cell, or "" when the
// column is carried through untouched.
func canonical(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	for _, c := range RequiredColumns {
		if h == c {
			return c
		}
	}
	return aliases[h]
}

// columnIndex resolves each canonical column to its position in header.
// The first matching header wins.
func columnIndex(header []string) (map[string]int, []string) {
	idx := make(map[string]int, len(RequiredColumns))
	for i, h := range header {
		c := canonical(h)
		if c == "" {
			continue
		}
		if _, seen := idx[c]; !seen {
			idx[c] = i
		}
	}

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	return idx, missing
}

// IndexOf returns the position of the canonical column col in header.
func IndexOf(header []string, col string) (int, bool) {
	for i, h := range header {
		if canonical(h) == col {
			return i, true
		}
	}
	return -1, false
}
