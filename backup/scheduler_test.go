package backup

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsAutoBackupImmediately(t *testing.T) {
	s, err := NewScheduler(nil)
	require.NoError(t, err)

	var runs atomic.Int32
	id, err := s.ScheduleAutoBackup(time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	s.Start()
	defer func() { _ = s.Stop() }()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerPrune(t *testing.T) {
	folder := Folder{Dir: t.TempDir()}
	p := NewSequence([]Entry{{Command: "a", Data: StringValue("1")}})
	old := time.Now().AddDate(-1, 0, 0)
	_, err := folder.Save("n", p, old)
	require.NoError(t, err)
	_, err = folder.Save("n", p, time.Now())
	require.NoError(t, err)

	s, err := NewScheduler(nil)
	require.NoError(t, err)

	pruned := make(chan int, 1)
	_, err = s.SchedulePrune(time.Hour, folder, 0, func(n int) {
		select {
		case pruned <- n:
		default:
		}
	})
	require.NoError(t, err)

	s.Start()
	defer func() { _ = s.Stop() }()

	select {
	case n := <-pruned:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("prune job did not run")
	}

	files, err := folder.List("n")
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, filepath.Dir(files[0].Path), folder.Dir)
}

func TestSchedulerRejectsBadInput(t *testing.T) {
	s, err := NewScheduler(nil)
	require.NoError(t, err)
	s.Start()
	defer func() { _ = s.Stop() }()

	_, err = s.ScheduleAutoBackup(0, func(context.Context) error { return nil })
	assert.Error(t, err)

	_, err = s.ScheduleAutoBackup(time.Minute, nil)
	assert.Error(t, err)

	id, err := s.SchedulePrune(time.Minute, Folder{Dir: t.TempDir()}, ForeverFrequency, nil)
	require.NoError(t, err)
	assert.Empty(t, id, "keeping backups forever schedules nothing")
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	s, err := NewScheduler(nil)
	require.NoError(t, err)
	s.Start()

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.ctx.Err(), context.Canceled)
	require.NoError(t, s.Stop())
}
