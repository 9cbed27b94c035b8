// Package pipeline runs the normalization stages and the derived models over
// one loaded table.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ibeckermayer/eventgraph/internal/application"
	"github.com/ibeckermayer/eventgraph/internal/classify"
	"github.com/ibeckermayer/eventgraph/internal/config"
	"github.com/ibeckermayer/eventgraph/internal/filter"
	"github.com/ibeckermayer/eventgraph/internal/graph"
	"github.com/ibeckermayer/eventgraph/internal/hashtags"
	"github.com/ibeckermayer/eventgraph/internal/ingest"
	"github.com/ibeckermayer/eventgraph/internal/logger"
	"github.com/ibeckermayer/eventgraph/internal/metrics"
	"github.com/ibeckermayer/eventgraph/internal/reconcile"
	"github.com/ibeckermayer/eventgraph/internal/stats"
	"github.com/ibeckermayer/eventgraph/internal/types"
)

// StepName identifies a pipeline stage in logs and metrics.
type StepName string

const (
	StepFilter      StepName = "filter"
	StepReconcile   StepName = "reconcile"
	StepClassify    StepName = "classify"
	StepApplication StepName = "application"
	StepHashtags    StepName = "hashtags"
	StepGraphs      StepName = "graphs"
	StepStats       StepName = "stats"
)

// Steps lists the stages in execution order.
var Steps = []StepName{
	StepFilter,
	StepReconcile,
	StepClassify,
	StepApplication,
	StepHashtags,
	StepGraphs,
	StepStats,
}

// Options configures one run
type Options struct {
	Filter filter.Options
	// ExcludeTag is dropped from the unique hashtag set. Empty keeps every tag.
	ExcludeTag  string
	Threshold   int
	TopN        int
	TimelineDay string
}

// OptionsFromConfig maps the file configuration onto run options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Filter: filter.Options{
			Topic: cfg.EventToken(),
			Start: cfg.Event.WindowStart,
			End:   cfg.Event.WindowEnd,
		},
		Threshold:   cfg.Hashtags.Threshold,
		TopN:        cfg.Applications.TopN,
		TimelineDay: cfg.Timeline.Day,
	}
	if cfg.Hashtags.ExcludeEvent {
		opts.ExcludeTag = cfg.EventToken()
	}
	return opts
}

// Hashtags is the hashtag model of one run
type Hashtags struct {
	All    []string
	Unique []string
	Ranked []hashtags.Frequency
	// Display is the part of Ranked above Threshold.
	Display   []hashtags.Frequency
	Threshold int
	Corpus    []byte
}

// Result is everything one run derives from its table
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Columns    []string
	Posts      []types.Post
	Counts     filter.Counts
	Reconciled int
	Warnings   []types.Warning

	Hashtags Hashtags
	Graphs   graph.Set
	Stats    stats.Summary
	Metrics  *metrics.Metrics
}

// Runner executes the stages in order. It holds no state between runs.
type Runner struct {
	opts Options
	log  logger.Logger
}

// New creates a Runner. A nil logger discards output.
func New(opts Options, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{opts: opts, log: log}
}

// Run processes table. The context is only checked between stages; a stage
// always runs to completion once started. table.Posts is reused.
func (r *Runner) Run(ctx context.Context, table *ingest.Table) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Columns:   table.Columns,
		Metrics:   metrics.New(),
	}
	log := r.log.With(logger.String("run_id", res.RunID))
	log.Info("Pipeline started",
		logger.Int("records", len(table.Posts)),
		logger.Time("started_at", res.StartedAt))
	res.Metrics.RecordsIngested.Add(float64(len(table.Posts)))

	posts := table.Posts
	stages := []struct {
		name StepName
		run  func()
	}{
		{StepFilter, func() { posts = r.filter(res, posts) }},
		{StepReconcile, func() { posts, res.Reconciled = reconcile.ReconcileAll(posts) }},
		{StepClassify, func() { posts = r.classify(res, posts) }},
		{StepApplication, func() { posts = application.NormalizeAll(posts) }},
		{StepHashtags, func() { res.Hashtags = r.hashtags(posts) }},
		{StepGraphs, func() { res.Graphs = graph.BuildAll(posts) }},
		{StepStats, func() { res.Stats = stats.Summarize(posts, r.opts.TopN, r.opts.TimelineDay) }},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline cancelled before %s: %w", s.name, err)
		}
		start := time.Now()
		s.run()
		log.Debug("Step finished",
			logger.String("step", string(s.name)),
			logger.Int("records", len(posts)),
			logger.Duration("took", time.Since(start)))
	}

	res.Posts = posts
	r.record(res)
	for _, w := range res.Warnings {
		log.Warn("Data quality warning",
			logger.String("kind", string(w.Kind)),
			logger.String("post_id", w.PostID),
			logger.Error(w.Err))
	}

	res.FinishedAt = time.Now().UTC()
	log.Info("Pipeline finished",
		logger.Int("kept", res.Counts.Kept),
		logger.Int("removed", res.Counts.Removed()),
		logger.Int("reconciled", res.Reconciled),
		logger.Int("warnings", len(res.Warnings)),
		logger.Int("hashtags_unique", len(res.Hashtags.Unique)),
		logger.Duration("took", res.FinishedAt.Sub(res.StartedAt)))
	return res, nil
}

func (r *Runner) filter(res *Result, posts []types.Post) []types.Post {
	out, counts := filter.Apply(posts, r.opts.Filter)
	res.Counts = counts
	return out
}

// classify also reports posts whose entities document did not decode; they
// stay in the table with empty hashtags and mentions.
func (r *Runner) classify(res *Result, posts []types.Post) []types.Post {
	for _, p := range posts {
		if p.EntitiesErr != nil {
			res.Warnings = append(res.Warnings, types.Warning{
				Kind:   types.MalformedRecord,
				PostID: p.PostID.String,
				Err:    p.EntitiesErr,
			})
		}
	}
	out, warnings := classify.ClassifyAll(posts)
	res.Warnings = append(res.Warnings, warnings...)
	return out
}

func (r *Runner) hashtags(posts []types.Post) Hashtags {
	h := Hashtags{All: hashtags.Extract(posts), Threshold: r.opts.Threshold}
	h.Unique = hashtags.Unique(h.All, r.opts.ExcludeTag)
	h.Ranked = hashtags.Frequencies(h.All, h.Unique)
	h.Display = hashtags.AboveThreshold(h.Ranked, r.opts.Threshold)
	h.Corpus = hashtags.Corpus(posts)
	return h
}

func (r *Runner) record(res *Result) {
	m := res.Metrics
	m.RecordsDropped.WithLabelValues("duplicates").Add(float64(res.Counts.Duplicates))
	m.RecordsDropped.WithLabelValues("incomplete").Add(float64(res.Counts.Incomplete))
	m.RecordsDropped.WithLabelValues("off_topic").Add(float64(res.Counts.OffTopic))
	m.RecordsDropped.WithLabelValues("out_of_range").Add(float64(res.Counts.OutOfRange))

	for _, w := range res.Warnings {
		m.Warnings.WithLabelValues(string(w.Kind)).Inc()
	}
	for _, kind := range graph.Kinds {
		g := res.Graphs.Get(kind)
		m.GraphNodes.WithLabelValues(string(kind)).Set(float64(g.NodeCount()))
		m.GraphEdges.WithLabelValues(string(kind)).Set(float64(g.EdgeCount()))
	}
	m.HashtagsUnique.Set(float64(len(res.Hashtags.Unique)))
}
