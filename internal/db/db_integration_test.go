//go:build integration

package db

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	d, err := Open(context.Background(), url)
	require.NoError(t, err)
	require.Equal(t, DialectPostgres, d.Dialect())
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestIntegration_JobLifecycle(t *testing.T) {
	d := getTestDB(t)
	ctx := context.Background()
	suffix := uuid.New().String()

	job := insertTestJob(t, d, "https://jobs.ashbyhq.com/integration/"+suffix)

	inserted, err := d.InsertJobIfNew(ctx, &NewJob{
		URLHash: job.URLHash, Company: "Acme", Title: "Intern", URL: job.URL,
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	created, err := d.ApplyDecisions(ctx, []Decision{{
		JobID: job.ID, Score: Score{Value: 0.55, Reason: "title matches: intern"}, Queue: true,
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	app, err := d.FindApplication(ctx, job.ID.String())
	require.NoError(t, err)
	require.NotNil(t, app)

	run, err := d.CreateRun(ctx)
	require.NoError(t, err)
	require.NoError(t, d.UpdateApplication(ctx, app.ID, ApplicationUpdate{Status: AppStarted, RunID: &run.ID}))
	require.NoError(t, d.UpdateApplication(ctx, app.ID, ApplicationUpdate{Status: AppNeedsReview}))
	require.NoError(t, d.UpdateApplication(ctx, app.ID, ApplicationUpdate{Status: AppSubmitted}))
	require.NoError(t, d.FinishRun(ctx, run.ID, RunCompleted, RunStats{Processed: 1, Submitted: 1}))

	got, err := d.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobSkipped, got.Status)
}

func TestIntegration_AnswerCache(t *testing.T) {
	d := getTestDB(t)
	ctx := context.Background()
	label := "integration question " + uuid.New().String()

	require.NoError(t, d.UpsertAnswer(ctx, label, "lever", "first"))
	require.NoError(t, d.UpsertAnswer(ctx, label, "lever", "second"))
	got, err := d.FindCachedAnswer(ctx, label, "lever")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Answer)
}
