// Package export writes the artifacts of a run. Every artifact is staged in
// a hidden directory next to the outputs and only moved into place once all
// of them were written.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ibeckermayer/eventgraph/internal/filter"
	"github.com/ibeckermayer/eventgraph/internal/graph"
	"github.com/ibeckermayer/eventgraph/internal/hashtags"
	"github.com/ibeckermayer/eventgraph/internal/ingest"
	"github.com/ibeckermayer/eventgraph/internal/logger"
	"github.com/ibeckermayer/eventgraph/internal/pipeline"
	"github.com/ibeckermayer/eventgraph/internal/report"
	"github.com/ibeckermayer/eventgraph/internal/stats"
	"github.com/ibeckermayer/eventgraph/internal/store"
	"github.com/ibeckermayer/eventgraph/internal/types"
)

// Artifact file names
const (
	FilePosts     = "posts_clean.csv"
	FileCorpus    = "hashtags.json"
	FileFrequency = "hashtag_frequency.json"
	FileStats     = "stats.json"
	FileReport    = "report.html"
	FileDatabase  = "posts.db"
	FileMetrics   = "metrics.prom"
	FileManifest  = "manifest.json"
)

// DerivedColumns are appended to the input columns of the cleaned table.
var DerivedColumns = []string{
	"application",
	"is_reshare",
	"reshared_actor_id",
	"reshared_actor_handle",
	"reshared_actor_name",
}

// GraphFile is the artifact name of one interaction graph.
func GraphFile(kind graph.Kind) string {
	return "graph_" + string(kind) + ".json"
}

// EgressError means an artifact could not be written. Nothing from the run
// is committed when it is returned.
type EgressError struct {
	Artifact string
	Err      error
}

func (e *EgressError) Error() string {
	return fmt.Sprintf("egress %s: %v", e.Artifact, e.Err)
}

func (e *EgressError) Unwrap() error {
	return e.Err
}

// Options selects the optional artifacts
type Options struct {
	Dir     string
	Event   string
	SQLite  bool
	Report  bool
	Metrics bool
	// ReportHashtags caps the hashtag list of the report.
	ReportHashtags int
}

// Manifest lists the committed artifacts of a run. It is written last, so
// its presence marks a complete output directory.
type Manifest struct {
	RunID     string    `json:"run_id"`
	Event     string    `json:"event"`
	Files     []string  `json:"files"`
	CreatedAt time.Time `json:"created_at"`
}

// Exporter writes run artifacts
type Exporter struct {
	opts Options
	log  logger.Logger
}

// New creates an Exporter. A nil logger discards output.
func New(opts Options, log logger.Logger) *Exporter {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.ReportHashtags <= 0 {
		opts.ReportHashtags = report.DefaultMaxHashtags
	}
	return &Exporter{opts: opts, log: log}
}

// Write stages and commits every artifact of res.
func (e *Exporter) Write(ctx context.Context, res *pipeline.Result) (*Manifest, error) {
	st, err := e.Stage(ctx, res)
	if err != nil {
		return nil, err
	}
	return st.Commit()
}

// Stage writes every artifact into the staging directory. On failure the
// staging directory is removed.
func (e *Exporter) Stage(ctx context.Context, res *pipeline.Result) (_ *Staging, err error) {
	if err := os.MkdirAll(e.opts.Dir, 0755); err != nil {
		return nil, &EgressError{Artifact: e.opts.Dir, Err: err}
	}

	dir := filepath.Join(e.opts.Dir, ".staging-"+res.RunID)
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, &EgressError{Artifact: dir, Err: err}
	}
	st := &Staging{dir: dir, out: e.opts.Dir, runID: res.RunID, event: e.opts.Event, log: e.log}
	defer func() {
		if err != nil {
			st.Discard()
		}
	}()

	artifacts := []artifact{
		{FilePosts, func(path string) error { return writePosts(path, res) }},
		{FileCorpus, func(path string) error { return os.WriteFile(path, res.Hashtags.Corpus, 0644) }},
		{FileFrequency, func(path string) error { return writeJSON(path, frequencyDoc(res)) }},
	}
	for _, kind := range graph.Kinds {
		g := res.Graphs.Get(kind)
		if g == nil {
			g = graph.New(kind)
		}
		artifacts = append(artifacts, artifact{GraphFile(kind), func(path string) error { return writeJSON(path, g) }})
	}
	artifacts = append(artifacts, artifact{FileStats, func(path string) error { return writeJSON(path, statsDoc(res)) }})

	if e.opts.Report {
		artifacts = append(artifacts, artifact{FileReport, func(path string) error { return e.writeReport(path, res) }})
	}
	if e.opts.SQLite {
		artifacts = append(artifacts, artifact{FileDatabase, func(path string) error { return e.writeDatabase(ctx, path, res) }})
	}
	if e.opts.Metrics && res.Metrics != nil {
		artifacts = append(artifacts, artifact{FileMetrics, res.Metrics.WriteFile})
	}

	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return nil, &EgressError{Artifact: a.name, Err: err}
		}
		if err := a.write(filepath.Join(dir, a.name)); err != nil {
			return nil, &EgressError{Artifact: a.name, Err: err}
		}
		st.files = append(st.files, a.name)
		e.log.Debug("Artifact staged", logger.String("artifact", a.name))
	}
	return st, nil
}

func (e *Exporter) writeReport(path string, res *pipeline.Result) error {
	b, err := report.New(e.opts.Event, e.opts.ReportHashtags)
	if err != nil {
		return err
	}
	r, err := b.Build(res)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(r.HTMLBody), 0644)
}

func (e *Exporter) writeDatabase(ctx context.Context, path string, res *pipeline.Result) error {
	s, err := store.New(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	if err := s.SaveRun(ctx, e.opts.Event, res); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}

type artifact struct {
	name  string
	write func(path string) error
}

// Staging is a fully written set of artifacts awaiting commit
type Staging struct {
	dir   string
	out   string
	runID string
	event string
	files []string
	log   logger.Logger
}

// Dir returns the staging directory.
func (s *Staging) Dir() string { return s.dir }

// Files returns the staged artifact names.
func (s *Staging) Files() []string { return append([]string(nil), s.files...) }

// Commit moves every staged artifact into the output directory and writes
// the manifest last. The previous manifest is removed first, so an
// interrupted commit never looks complete.
func (s *Staging) Commit() (*Manifest, error) {
	manifestPath := filepath.Join(s.out, FileManifest)
	if err := os.Remove(manifestPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.Discard()
		return nil, &EgressError{Artifact: FileManifest, Err: err}
	}

	for _, name := range s.files {
		if err := os.Rename(filepath.Join(s.dir, name), filepath.Join(s.out, name)); err != nil {
			s.Discard()
			return nil, &EgressError{Artifact: name, Err: err}
		}
	}

	m := &Manifest{RunID: s.runID, Event: s.event, Files: s.Files(), CreatedAt: time.Now().UTC()}
	tmp := filepath.Join(s.dir, FileManifest)
	if err := writeJSON(tmp, m); err != nil {
		s.Discard()
		return nil, &EgressError{Artifact: FileManifest, Err: err}
	}
	if err := os.Rename(tmp, manifestPath); err != nil {
		s.Discard()
		return nil, &EgressError{Artifact: FileManifest, Err: err}
	}

	s.Discard()
	s.log.Info("Artifacts committed",
		logger.String("dir", s.out),
		logger.Strings("files", m.Files))
	return m, nil
}

// Discard removes the staging directory and anything left in it.
func (s *Staging) Discard() {
	if err := os.RemoveAll(s.dir); err != nil {
		s.log.Warn("Failed to remove staging dir", logger.String("dir", s.dir), logger.Error(err))
	}
}

// ReadManifest loads the manifest of a committed output directory.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileManifest))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// writeJSON saves JSON-serializable data with indentation.
func writeJSON[T any](path string, data T) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, jsonData, 0644)
}

func writePosts(path string, res *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WritePosts(f, res.Columns, res.Posts); err != nil {
		return err
	}
	return f.Sync()
}

// WritePosts writes the cleaned table: the input columns with the reconciled
// post id, followed by DerivedColumns.
func WritePosts(w io.Writer, columns []string, posts []types.Post) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(columns)+len(DerivedColumns))
	header = append(header, columns...)
	header = append(header, DerivedColumns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	idIdx, hasID := ingest.IndexOf(columns, ingest.ColPostID)
	for _, p := range posts {
		row := make([]string, len(columns), len(header))
		copy(row, p.Row)
		if hasID {
			row[idIdx] = p.PostID.String
		}
		row = append(row,
			p.Application.String,
			strconv.FormatBool(p.IsReshare),
			p.ResharedActorID.String,
			p.ResharedActorHandle.String,
			p.ResharedActorName.String,
		)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// FrequencyFile is the layout of the hashtag frequency artifact
type FrequencyFile struct {
	Threshold int                  `json:"threshold"`
	Ranked    []hashtags.Frequency `json:"ranked"`
	Display   []hashtags.Frequency `json:"display"`
}

func frequencyDoc(res *pipeline.Result) FrequencyFile {
	doc := FrequencyFile{
		Threshold: res.Hashtags.Threshold,
		Ranked:    res.Hashtags.Ranked,
		Display:   res.Hashtags.Display,
	}
	if doc.Ranked == nil {
		doc.Ranked = []hashtags.Frequency{}
	}
	if doc.Display == nil {
		doc.Display = []hashtags.Frequency{}
	}
	return doc
}

// StatsFile is the layout of the stats artifact
type StatsFile struct {
	RunID      string                    `json:"run_id"`
	Counts     filter.Counts             `json:"counts"`
	Reconciled int                       `json:"reconciled"`
	Warnings   map[types.WarningKind]int `json:"warnings"`
	Summary    stats.Summary             `json:"summary"`
}

func statsDoc(res *pipeline.Result) StatsFile {
	warnings := make(map[types.WarningKind]int)
	for _, w := range res.Warnings {
		warnings[w.Kind]++
	}
	return StatsFile{
		RunID:      res.RunID,
		Counts:     res.Counts,
		Reconciled: res.Reconciled,
		Warnings:   warnings,
		Summary:    res.Stats,
	}
}
