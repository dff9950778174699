package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobly/internal/ats"
	"github.com/jonathan/jobly/internal/canonical"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// insertTestJob stores a discovered job for url and returns it.
func insertTestJob(t *testing.T, d *DB, url string) *JobPost {
	t.Helper()
	ctx := context.Background()
	canon := canonical.Canonicalize(url)
	inserted, err := d.InsertJobIfNew(ctx, &NewJob{
		URLHash: canonical.Hash(canon),
		Company: "Acme",
		Title:   "Software Engineer Intern",
		URL:     canon,
		ATSType: ats.Classify(canon),
	})
	require.NoError(t, err)
	require.True(t, inserted)

	job, err := d.GetJobByHash(ctx, canonical.Hash(canon))
	require.NoError(t, err)
	require.NotNil(t, job)
	return job
}

// queueTestJob inserts a job and queues it with an application.
func queueTestJob(t *testing.T, d *DB, url string) (*JobPost, *Application) {
	t.Helper()
	ctx := context.Background()
	job := insertTestJob(t, d, url)
	created, err := d.ApplyDecisions(ctx, []Decision{{
		JobID: job.ID,
		Score: Score{Value: 0.55, Reason: "title matches: intern"},
		Queue: true,
	}})
	require.NoError(t, err)
	require.Equal(t, 1, created)

	app, err := d.FindApplication(ctx, job.ID.String())
	require.NoError(t, err)
	require.NotNil(t, app)
	return job, app
}

func TestOpenSQLite_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jobly.db")

	d, err := Open(ctx, "sqlite://"+path)
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d.Dialect())
	insertTestJob(t, d, "https://jobs.lever.co/acme/1")
	require.NoError(t, d.Close())

	// Reopening applies the schema again without losing data.
	d, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer func() { _ = d.Close() }()
	jobs, err := d.ListJobsByStatus(ctx, JobDiscovered)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: DialectPostgres}
	lite := &DB{dialect: DialectSQLite}
	query := "SELECT * FROM t WHERE a = ? AND b IN (?, ?)"

	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)", pg.rebind(query))
	assert.Equal(t, query, lite.rebind(query))
}

func TestSchemaStatements(t *testing.T) {
	for _, stmt := range schemaStatements(DialectPostgres) {
		assert.NotContains(t, stmt, "{{")
		assert.NotContains(t, stmt, "AUTOINCREMENT")
	}
	joined := strings.Join(schemaStatements(DialectSQLite), "\n")
	assert.Contains(t, joined, "INTEGER PRIMARY KEY AUTOINCREMENT")
	assert.Contains(t, joined, "IF NOT EXISTS")
}

func TestInPlaceholders(t *testing.T) {
	assert.Equal(t, "", inPlaceholders(0))
	assert.Equal(t, "?", inPlaceholders(1))
	assert.Equal(t, "?, ?, ?", inPlaceholders(3))
}
