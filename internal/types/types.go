package types

import (
	"database/sql"
	"fmt"
	"time"
)

// Post represents one row of an event export
type Post struct {
	PostID           sql.NullString `json:"post_id"`
	ActorID          sql.NullString `json:"actor_id"`
	ActorHandle      sql.NullString `json:"actor_handle"`
	BodyText         sql.NullString `json:"body_text"`
	EntitiesJSON     sql.NullString `json:"entities_json"`
	SourceMarkup     sql.NullString `json:"source_markup"`
	StatusURL        sql.NullString `json:"status_url"`
	InReplyToActorID sql.NullString `json:"in_reply_to_actor_id"`
	InReplyToHandle  sql.NullString `json:"in_reply_to_handle"`

	CreatedAtRaw   string    `json:"created_at_raw"`
	CreatedAt      time.Time `json:"created_at"`
	CreatedAtValid bool      `json:"created_at_valid"`

	// Entities is parsed once at ingestion. EntitiesErr is set when
	// EntitiesJSON was present but did not decode.
	Entities    Entities `json:"entities"`
	EntitiesErr error    `json:"-"`

	// Derived during normalization
	Application         sql.NullString `json:"application"`
	IsReshare           bool           `json:"is_reshare"`
	ResharedActorID     sql.NullString `json:"reshared_actor_id"`
	ResharedActorHandle sql.NullString `json:"reshared_actor_handle"`
	ResharedActorName   sql.NullString `json:"reshared_actor_name"`

	// Row holds every raw cell in input column order.
	Row []string `json:"-"`
}

// IsReply reports whether the post answers another actor.
func (p Post) IsReply() bool {
	return p.InReplyToActorID.Valid
}

// Entities is the structured form of the entities_json sub-document
type Entities struct {
	Hashtags     []Hashtag `json:"hashtags"`
	UserMentions []Mention `json:"user_mentions"`
}

// Hashtag is one entry of entities.hashtags
type Hashtag struct {
	Text    string `json:"text"`
	Indices []int  `json:"indices"`
}

// Mention is one entry of entities.user_mentions
type Mention struct {
	ScreenName string `json:"screen_name"`
	Name       string `json:"name"`
	IDStr      string `json:"id_str"`
}

// Kind classifies a post for breakdowns. A reply that is also a reshare
// counts as a reply.
type Kind string

const (
	KindOriginal Kind = "original"
	KindReshare  Kind = "reshare"
	KindReply    Kind = "reply"
)

// WarningKind names a non-fatal data-quality condition
type WarningKind string

const (
	MalformedRecord            WarningKind = "malformed_record"
	InconsistentClassification WarningKind = "inconsistent_classification"
)

// Warning is a data-quality condition absorbed into the derived model
type Warning struct {
	Kind   WarningKind `json:"kind"`
	PostID string      `json:"post_id"`
	Err    error       `json:"-"`
}

func (w Warning) Error() string {
	if w.Err == nil {
		return fmt.Sprintf("%s (post %s)", w.Kind, w.PostID)
	}
	return fmt.Sprintf("%s (post %s): %v", w.Kind, w.PostID, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}

// Null returns an invalid NullString.
func Null() sql.NullString {
	return sql.NullString{}
}

// NullIfEmpty wraps s, treating the empty string as missing.
func NullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
