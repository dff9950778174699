package db

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuns(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	first, err := d.CreateRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, RunRunning, first.Status)
	second, err := d.CreateRun(ctx)
	require.NoError(t, err)

	require.NoError(t, d.FinishRun(ctx, first.ID, RunCompleted, RunStats{
		Processed: 3, Submitted: 1, Skipped: 1, Errored: 1,
	}))
	require.NoError(t, d.FinishRun(ctx, second.ID, RunInterrupted, RunStats{Processed: 1}))

	runs, err := d.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID, "newest first")
	assert.Equal(t, RunInterrupted, runs[0].Status)
	assert.Equal(t, RunCompleted, runs[1].Status)
	assert.Equal(t, 3, runs[1].JobsProcessed)
	assert.Equal(t, 1, runs[1].JobsSubmitted)
	require.NotNil(t, runs[1].FinishedAt)

	assert.ErrorIs(t, d.FinishRun(ctx, uuid.New(), RunCompleted, RunStats{}), ErrNotFound)
}
