package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/eventgraph/internal/scheduler"
)

func TestNew_InvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := scheduler.New("Mars/Olympus", time.Minute, nil)
	assert.Error(t, err)
}

func TestAddPipelineJob(t *testing.T) {
	t.Parallel()

	s, err := scheduler.New("UTC", time.Minute, nil)
	require.NoError(t, err)

	require.NoError(t, s.AddPipelineJob("0 */6 * * *", func(context.Context) error { return nil }))
	assert.Error(t, s.AddJob("bad", "not a schedule", func(context.Context) error { return nil }))

	s.Start()
	defer s.Stop()

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, scheduler.PipelineJob, jobs[0].Name)
	assert.True(t, jobs[0].NextRun.After(time.Now()))

	s.RemoveJob(scheduler.PipelineJob)
	assert.Empty(t, s.ListJobs())
}

func TestRunNow(t *testing.T) {
	t.Parallel()

	s, err := scheduler.New("UTC", time.Second, nil)
	require.NoError(t, err)

	var deadline bool
	err = s.RunNow("once", func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return nil
	})
	require.NoError(t, err)
	assert.True(t, deadline)

	boom := errors.New("boom")
	assert.ErrorIs(t, s.RunNow("fail", func(context.Context) error { return boom }), boom)
}
