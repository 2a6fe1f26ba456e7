package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "xbots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordRun_RoundTrip(t *testing.T) {
	db := openTest(t)
	started := time.Date(2025, 11, 10, 0, 0, 5, 0, time.UTC)

	run := Run{
		ID:         "run-1",
		Bot:        "fortune",
		Date:       "2025-11-10",
		Success:    true,
		StartedMS:  started.UnixMilli(),
		DurationMS: 4200,
	}
	posts := []Post{
		{Kind: "main", PostID: "100", Text: "main", Weight: 4},
		{Kind: "reply", PostID: "101", Text: "reply", Weight: 5},
	}
	require.NoError(t, db.RecordRun(run, posts))

	runs, err := db.RecentRuns(10)
	require.NoError(t, err)
	if diff := cmp.Diff([]Run{run}, runs); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, started, runs[0].StartedAt().UTC())
	assert.Equal(t, 4200*time.Millisecond, runs[0].Duration())

	got, err := db.RunPosts("run-1")
	require.NoError(t, err)
	want := []Post{
		{RunID: "run-1", Seq: 0, Kind: "main", PostID: "100", Text: "main", Weight: 4},
		{RunID: "run-1", Seq: 1, Kind: "reply", PostID: "101", Text: "reply", Weight: 5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("posts mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordRun_DuplicateIDRollsBack(t *testing.T) {
	db := openTest(t)
	run := Run{ID: "dup", Bot: "nanal", Date: "2025-11-10"}
	require.NoError(t, db.RecordRun(run, nil))
	require.Error(t, db.RecordRun(run, []Post{{Kind: "main", Text: "x"}}))

	posts, err := db.RunPosts("dup")
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestRecentRuns_NewestFirst(t *testing.T) {
	db := openTest(t)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, db.RecordRun(Run{ID: id, Bot: "nanal", Date: "2025-11-10", StartedMS: int64(i)}, nil))
	}
	runs, err := db.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestPostedToday(t *testing.T) {
	db := openTest(t)
	date := "2025-11-10"
	require.NoError(t, db.RecordRun(Run{ID: "dry", Bot: "nanal", Date: date, Success: true, DryRun: true}, nil))
	require.NoError(t, db.RecordRun(Run{ID: "failed", Bot: "nanal", Date: date}, nil))

	posted, err := db.PostedToday("nanal", date)
	require.NoError(t, err)
	assert.False(t, posted, "dry and failed runs do not count")

	require.NoError(t, db.RecordRun(Run{ID: "live", Bot: "nanal", Date: date, Success: true}, nil))
	posted, err = db.PostedToday("nanal", date)
	require.NoError(t, err)
	assert.True(t, posted)

	posted, err = db.PostedToday("weatherfairy", date)
	require.NoError(t, err)
	assert.False(t, posted)
}

func TestMeta(t *testing.T) {
	db := openTest(t)
	v, err := db.GetMeta("missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, db.SaveMeta("schedule.midnight", "2025-11-10"))
	require.NoError(t, db.SaveMeta("schedule.midnight", "2025-11-11"))
	v, err = db.GetMeta("schedule.midnight")
	require.NoError(t, err)
	assert.Equal(t, "2025-11-11", v)
}
