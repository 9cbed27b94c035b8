package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ibeckermayer/eventgraph/internal/ingest"
)

const archiveHeader = "id_str,from_user,text,created_at,time,geo_coordinates,user_lang,in_reply_to_user_id_str,in_reply_to_screen_name,from_user_id_str,in_reply_to_status_id_str,source,profile_image_url,user_followers_count,user_friends_count,user_location,status_url,entities_str\n"

const entitiesAlice = `{"hashtags":[{"text":"CometLanding","indices":[0,13]}],"user_mentions":[{"screen_name":"alice","name":"Alice","id_str":"1"}]}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ArchiveCSV(t *testing.T) {
	t.Parallel()

	body := archiveHeader +
		`533000000000000001,bob,"RT @alice: hi #CometLanding",Wed Nov 12 15:04:05 +0000 2014,12/11/2014 15:04:05,,en,,,2,,"<a href=""http://twitter.com"" rel=""nofollow"">Twitter Web Client</a>",,10,20,,http://twitter.com/bob/statuses/533000000000000001,"` +
		`{""hashtags"":[{""text"":""CometLanding"",""indices"":[0,13]}],""user_mentions"":[{""screen_name"":""alice"",""name"":""Alice"",""id_str"":""1""}]}"` + "\n" +
		`533000000000000002,carol,plain,2014-11-13 08:00:00+00:00,,,,7,dave,3,,,,,,,,{bad json` + "\n"

	table, err := ingest.Load(context.Background(), writeFile(t, "archive.csv", body), ingest.Options{DropColumns: []string{"time"}})
	require.NoError(t, err)

	assert.NotContains(t, table.Columns, "time")
	require.Len(t, table.Posts, 2)

	first := table.Posts[0]
	assert.Equal(t, "533000000000000001", first.PostID.String)
	assert.Equal(t, "bob", first.ActorHandle.String)
	assert.Equal(t, "2", first.ActorID.String)
	assert.True(t, first.CreatedAtValid)
	assert.Equal(t, time.Date(2014, 11, 12, 15, 4, 5, 0, time.UTC), first.CreatedAt)
	assert.False(t, first.InReplyToActorID.Valid)
	require.NoError(t, first.EntitiesErr)
	require.Len(t, first.Entities.UserMentions, 1)
	assert.Equal(t, "alice", first.Entities.UserMentions[0].ScreenName)
	assert.Equal(t, "CometLanding", first.Entities.Hashtags[0].Text)
	assert.Len(t, first.Row, len(table.Columns))

	second := table.Posts[1]
	assert.Equal(t, "7", second.InReplyToActorID.String)
	assert.Equal(t, "dave", second.InReplyToHandle.String)
	assert.False(t, second.SourceMarkup.Valid)
	assert.Error(t, second.EntitiesErr)
	assert.Empty(t, second.Entities.Hashtags)
}

func TestLoad_CanonicalHeader(t *testing.T) {
	t.Parallel()

	body := "post_id,actor_id,actor_handle,created_at,body_text,entities_json,source_markup,status_url,in_reply_to_actor_id,in_reply_to_handle\n" +
		`1,10,x,2014-11-12T10:00:00Z,hello,"` + `{""hashtags"":[],""user_mentions"":[]}` + `",,,,` + "\n"

	table, err := ingest.Load(context.Background(), writeFile(t, "canon.csv", body), ingest.Options{})
	require.NoError(t, err)
	require.Len(t, table.Posts, 1)
	assert.Equal(t, "hello", table.Posts[0].BodyText.String)
	assert.False(t, table.Posts[0].StatusURL.Valid)
}

func TestLoad_MissingColumns(t *testing.T) {
	t.Parallel()

	_, err := ingest.Load(context.Background(), writeFile(t, "short.csv", "id_str,text\n1,hello\n"), ingest.Options{})

	var ierr *ingest.IngressError
	require.ErrorAs(t, err, &ierr)
	assert.True(t, errors.Is(err, ingest.ErrMissingColumns))
	assert.Contains(t, err.Error(), "entities_json")
	assert.Contains(t, err.Error(), "actor_id")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := ingest.Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), ingest.Options{})

	var ierr *ingest.IngressError
	require.ErrorAs(t, err, &ierr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_EmptyFile(t *testing.T) {
	t.Parallel()

	_, err := ingest.Load(context.Background(), writeFile(t, "empty.csv", ""), ingest.Options{})

	var ierr *ingest.IngressError
	require.ErrorAs(t, err, &ierr)
}

func TestLoad_XLSX(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	rows := [][]string{
		{"id_str", "from_user_id_str", "from_user", "created_at", "text", "entities_str", "source", "status_url", "in_reply_to_user_id_str", "in_reply_to_screen_name"},
		{"1", "10", "bob", "2014-11-12 15:00:00", "RT @alice: x", entitiesAlice, "", "", "", ""},
	}
	for r, row := range rows {
		for c, val := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, val))
		}
	}
	path := filepath.Join(t.TempDir(), "archive.xlsx")
	require.NoError(t, f.SaveAs(path))

	table, err := ingest.Load(context.Background(), path, ingest.Options{})
	require.NoError(t, err)
	require.Len(t, table.Posts, 1)

	p := table.Posts[0]
	assert.Equal(t, "bob", p.ActorHandle.String)
	assert.Equal(t, time.Date(2014, 11, 12, 15, 0, 0, 0, time.UTC), p.CreatedAt)
	// trailing empty cells are padded back to the header width
	assert.Len(t, p.Row, len(table.Columns))
	assert.False(t, p.InReplyToHandle.Valid)
}

func TestLoad_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ingest.Load(ctx, "irrelevant.csv", ingest.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2014, 11, 12, 15, 4, 5, 0, time.UTC)
	tests := []struct {
		name  string
		in    string
		ok    bool
		equal bool
	}{
		{name: "rfc3339", in: "2014-11-12T15:04:05Z", ok: true, equal: true},
		{name: "rfc3339 offset", in: "2014-11-12T16:04:05+01:00", ok: true, equal: true},
		{name: "pandas style", in: "2014-11-12 15:04:05+00:00", ok: true, equal: true},
		{name: "naive", in: "2014-11-12 15:04:05", ok: true, equal: true},
		{name: "platform", in: "Wed Nov 12 15:04:05 +0000 2014", ok: true, equal: true},
		{name: "archive time column", in: "12/11/2014 15:04:05", ok: true, equal: true},
		{name: "empty", in: "", ok: false},
		{name: "garbage", in: "yesterday", ok: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ingest.ParseTimestamp(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.equal {
				assert.True(t, want.Equal(got), "got %s", got)
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}

func TestParseEntities(t *testing.T) {
	t.Parallel()

	e, err := ingest.ParseEntities(entitiesAlice)
	require.NoError(t, err)
	assert.Equal(t, "Alice", e.UserMentions[0].Name)
	assert.Equal(t, "1", e.UserMentions[0].IDStr)
	assert.Equal(t, []int{0, 13}, e.Hashtags[0].Indices)

	_, err = ingest.ParseEntities(`{'hashtags':[]}`)
	assert.Error(t, err)

	e, err = ingest.ParseEntities(`{"symbols":[]}`)
	require.NoError(t, err)
	assert.Empty(t, e.Hashtags)
	assert.Empty(t, e.UserMentions)
}
