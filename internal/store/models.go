package store

import (
	"database/sql"
	"time"
)

// Run is one pipeline execution recorded in the snapshot
type Run struct {
	ID         string    `json:"id"`
	Event      string    `json:"event"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Input      int       `json:"input"`
	Kept       int       `json:"kept"`
	Warnings   int       `json:"warnings"`
}

// PostRow is the stored form of a cleaned post
type PostRow struct {
	RunID               string         `json:"run_id"`
	Position            int            `json:"position"`
	PostID              string         `json:"post_id"`
	ActorID             string         `json:"actor_id"`
	ActorHandle         sql.NullString `json:"actor_handle"`
	CreatedAt           time.Time      `json:"created_at"`
	BodyText            string         `json:"body_text"`
	Application         sql.NullString `json:"application"`
	IsReply             bool           `json:"is_reply"`
	IsReshare           bool           `json:"is_reshare"`
	ResharedActorHandle sql.NullString `json:"reshared_actor_handle"`
}

// HashtagCount is one ranked hashtag of a run
type HashtagCount struct {
	Rank  int    `json:"rank"`
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// EdgeRow is one stored graph edge
type EdgeRow struct {
	Kind   string `json:"kind"`
	Source string `json:"source"`
	Target string `json:"target"`
}
