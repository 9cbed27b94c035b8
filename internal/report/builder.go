package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/ibeckermayer/eventgraph/internal/graph"
	"github.com/ibeckermayer/eventgraph/internal/pipeline"
)

// Builder renders run summaries
type Builder struct {
	event       string
	maxHashtags int
	template    *template.Template
}

// DefaultMaxHashtags caps the hashtag list when the caller sets no limit.
const DefaultMaxHashtags = 25

// New creates a new report builder. maxHashtags caps the hashtag list;
// zero or less means DefaultMaxHashtags.
func New(event string, maxHashtags int) (*Builder, error) {
	if maxHashtags <= 0 {
		maxHashtags = DefaultMaxHashtags
	}
	tmpl, err := template.New("report").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Builder{
		event:       event,
		maxHashtags: maxHashtags,
		template:    tmpl,
	}, nil
}

// Report is a rendered run summary
type Report struct {
	Title     string
	HTMLBody  string
	PlainBody string
	RunID     string
	CreatedAt time.Time
}

// ReportData is the template data structure
type ReportData struct {
	Title        string
	Date         string
	RunID        string
	Steps        []StepRow
	Kept         int
	Breakdown    []CountRow
	Applications []CountRow
	Hashtags     []CountRow
	Graphs       []GraphRow
	Warnings     int
	Timeline     TimelineData
}

// StepRow is one filter step and the rows it removed
type StepRow struct {
	Name    string
	Removed int
}

// CountRow is a labelled count with its share of the total
type CountRow struct {
	Label   string
	Count   int
	Percent string
}

// GraphRow summarizes one interaction graph
type GraphRow struct {
	Kind  string
	Nodes int
	Edges int
}

// TimelineData holds the hourly counts of the timeline day
type TimelineData struct {
	Day   string
	Hours []int
}

// Build creates a report from a finished run
func (b *Builder) Build(res *pipeline.Result) (*Report, error) {
	if res == nil {
		return nil, fmt.Errorf("no run to report")
	}

	now := time.Now()
	data := ReportData{
		Title: fmt.Sprintf("#%s run summary", b.event),
		Date:  now.UTC().Format("Monday, January 2 2006 15:04 MST"),
		RunID: res.RunID,
		Steps: []StepRow{
			{Name: "duplicates", Removed: res.Counts.Duplicates},
			{Name: "incomplete", Removed: res.Counts.Incomplete},
			{Name: "off topic", Removed: res.Counts.OffTopic},
			{Name: "out of window", Removed: res.Counts.OutOfRange},
		},
		Kept:     res.Counts.Kept,
		Warnings: len(res.Warnings),
		Timeline: TimelineData{
			Day:   res.Stats.Timeline.Day,
			Hours: res.Stats.Timeline.Hours[:],
		},
	}

	bd := res.Stats.Breakdown
	total := bd.Total()
	data.Breakdown = []CountRow{
		{Label: "Original", Count: bd.Original, Percent: percent(bd.Original, total)},
		{Label: "Reshare", Count: bd.Reshare, Percent: percent(bd.Reshare, total)},
		{Label: "Reply", Count: bd.Reply, Percent: percent(bd.Reply, total)},
	}

	for _, a := range res.Stats.Applications {
		data.Applications = append(data.Applications, CountRow{
			Label:   a.Name,
			Count:   a.Count,
			Percent: fmt.Sprintf("%.1f%%", a.Percent),
		})
	}

	tags := res.Hashtags.Display
	if len(tags) > b.maxHashtags {
		tags = tags[:b.maxHashtags]
	}
	for _, f := range tags {
		data.Hashtags = append(data.Hashtags, CountRow{Label: f.Tag, Count: f.Count})
	}

	for _, kind := range graph.Kinds {
		g := res.Graphs.Get(kind)
		if g == nil {
			continue
		}
		data.Graphs = append(data.Graphs, GraphRow{Kind: string(kind), Nodes: g.NodeCount(), Edges: g.EdgeCount()})
	}

	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Report{
		Title:     data.Title,
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(data),
		RunID:     res.RunID,
		CreatedAt: now,
	}, nil
}

func percent(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(n)/float64(total))
}

func buildPlainText(data ReportData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n%s\nrun %s\n\n", data.Title, data.Date, data.RunID)

	for _, s := range data.Steps {
		fmt.Fprintf(&buf, "dropped %-14s %d\n", s.Name, s.Removed)
	}
	fmt.Fprintf(&buf, "kept %d posts, %d warnings\n\n", data.Kept, data.Warnings)

	for _, r := range data.Breakdown {
		fmt.Fprintf(&buf, "%-9s %6d  %s\n", r.Label, r.Count, r.Percent)
	}
	buf.WriteString("\n")

	for _, g := range data.Graphs {
		fmt.Fprintf(&buf, "%s graph: %d nodes, %d edges\n", g.Kind, g.Nodes, g.Edges)
	}

	if len(data.Hashtags) > 0 {
		buf.WriteString("\n")
		for i, h := range data.Hashtags {
			fmt.Fprintf(&buf, "%d. #%s (%d)\n", i+1, h.Label, h.Count)
		}
	}

	return buf.String()
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 720px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #1da1f2; margin-bottom: 5px; }
        h2 { color: #333; font-size: 16px; margin-top: 24px; }
        .date { color: #666; margin-bottom: 20px; }
        table { border-collapse: collapse; width: 100%; }
        td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #eee; }
        td.num { text-align: right; }
        .tag { background: #e8f5fd; color: #1da1f2; padding: 2px 8px; border-radius: 12px; font-size: 12px; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="date">{{.Date}}</div>

        <h2>Filtering</h2>
        <table>
            {{range .Steps}}<tr><td>{{.Name}}</td><td class="num">{{.Removed}}</td></tr>{{end}}
            <tr><th>kept</th><th class="num">{{.Kept}}</th></tr>
        </table>

        <h2>Post types</h2>
        <table>
            {{range .Breakdown}}<tr><td>{{.Label}}</td><td class="num">{{.Count}}</td><td class="num">{{.Percent}}</td></tr>{{end}}
        </table>

        <h2>Applications</h2>
        <table>
            {{range .Applications}}<tr><td>{{.Label}}</td><td class="num">{{.Count}}</td><td class="num">{{.Percent}}</td></tr>{{end}}
        </table>

        {{if .Hashtags}}
        <h2>Hashtags</h2>
        <table>
            {{range .Hashtags}}<tr><td><span class="tag">#{{.Label}}</span></td><td class="num">{{.Count}}</td></tr>{{end}}
        </table>
        {{end}}

        <h2>Interaction graphs</h2>
        <table>
            <tr><th>graph</th><th class="num">nodes</th><th class="num">edges</th></tr>
            {{range .Graphs}}<tr><td>{{.Kind}}</td><td class="num">{{.Nodes}}</td><td class="num">{{.Edges}}</td></tr>{{end}}
        </table>

        {{if .Timeline.Day}}
        <h2>Timeline {{.Timeline.Day}}</h2>
        <table>
            <tr>{{range $h, $n := .Timeline.Hours}}<td class="num" title="{{$h}}:00">{{$n}}</td>{{end}}</tr>
        </table>
        {{end}}

        <div class="footer">
            {{.Warnings}} data-quality warnings · run {{.RunID}} · Generated by eventgraph
        </div>
    </div>
</body>
</html>`
