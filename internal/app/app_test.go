package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/eventgraph/internal/app"
	"github.com/ibeckermayer/eventgraph/internal/config"
	"github.com/ibeckermayer/eventgraph/internal/export"
	"github.com/ibeckermayer/eventgraph/internal/ingest"
	"github.com/ibeckermayer/eventgraph/internal/notifier"
)

const archive = "id_str,from_user,text,created_at,time,from_user_id_str,source,status_url,entities_str,in_reply_to_user_id_str,in_reply_to_screen_name\n" +
	`1,bob,RT @alice: landing,2014-11-12 15:00:00+00:00,x,10,"<a href=""x"">Twitter for iPhone</a>",,` +
	`"{""hashtags"":[{""text"":""CometLanding""},{""text"":""Philae""}],""user_mentions"":[{""screen_name"":""alice"",""name"":""Alice"",""id_str"":""20""}]}",,` + "\n" +
	`2,alice,@bob yes,2014-11-12 16:00:00+00:00,x,20,"<a href=""y"">Hootsuite</a>",http://twitter.com/alice/statuses/533000000000000002,` +
	`"{""hashtags"":[{""text"":""cometlanding""}],""user_mentions"":[{""screen_name"":""bob"",""name"":""Bob"",""id_str"":""10""}]}",10,bob` + "\n"

func setup(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	input := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(input, []byte(archive), 0o600))

	cfg := config.Default()
	cfg.Input.Path = input
	cfg.Output.Dir = filepath.Join(dir, "out")
	return cfg
}

func mustApp(t *testing.T, cfg *config.Config, path string) *app.App {
	t.Helper()

	a, err := app.New(cfg, path, nil)
	require.NoError(t, err)
	return a
}

type fakeSender struct {
	to, subject string
	err         error
}

func (f *fakeSender) Send(to, subject, _, _ string) error {
	f.to, f.subject = to, subject
	return f.err
}

func TestRun(t *testing.T) {
	t.Parallel()

	cfg := setup(t)
	res, m, err := mustApp(t, cfg, "").Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Counts.Kept)
	assert.Equal(t, "533000000000000002", res.Posts[1].PostID.String)
	assert.True(t, res.Graphs.Reply.HasEdge("bob", "alice"))
	assert.Equal(t, res.RunID, m.RunID)
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, export.FilePosts))
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, export.FileManifest))
}

func TestRun_MissingInput(t *testing.T) {
	t.Parallel()

	cfg := setup(t)
	cfg.Input.Path = filepath.Join(t.TempDir(), "missing.csv")

	_, _, err := mustApp(t, cfg, "").Run(context.Background())
	var ierr *ingest.IngressError
	require.ErrorAs(t, err, &ierr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.NoDirExists(t, cfg.Output.Dir)
}

func TestReloadConfig(t *testing.T) {
	t.Parallel()

	cfg := setup(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	next := *cfg
	next.Hashtags.Threshold = 0
	require.NoError(t, next.Save(path))

	a := mustApp(t, cfg, path)
	require.NoError(t, a.ReloadConfig())

	res, _, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Hashtags.Display)
}

func TestRun_SendsReport(t *testing.T) {
	t.Parallel()

	cfg := setup(t)
	a := mustApp(t, cfg, "")
	s := &fakeSender{}
	a.SetNotifier(notifier.New(s, "ops@example.com"))

	_, _, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", s.to)
	assert.Equal(t, "#CometLanding run summary", s.subject)
}

func TestRun_NotifyFailureKeepsRun(t *testing.T) {
	t.Parallel()

	cfg := setup(t)
	a := mustApp(t, cfg, "")
	a.SetNotifier(notifier.New(&fakeSender{err: errors.New("smtp down")}, "ops@example.com"))

	_, m, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, m.RunID)
}
