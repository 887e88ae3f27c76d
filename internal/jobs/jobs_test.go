package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	calls int
	err   error
}

func (f *fakeSyncer) Sync(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakeSweeper struct {
	calls   int
	expired int64
	err     error
}

func (f *fakeSweeper) SweepExpiredEnrollments(ctx context.Context) (int64, error) {
	f.calls++
	return f.expired, f.err
}

func TestNewScheduler(t *testing.T) {
	t.Run("should register both jobs", func(t *testing.T) {
		s, err := NewScheduler(Config{
			KnowledgeResync: "0 3 * * *",
			EnrollmentSweep: "30 0 * * *",
			Logger:          zerolog.Nop(),
		}, &fakeSyncer{}, &fakeSweeper{})
		require.NoError(t, err)
		assert.Equal(t, 2, s.JobCount())
	})

	t.Run("should skip disabled jobs", func(t *testing.T) {
		s, err := NewScheduler(Config{
			KnowledgeResync: "0 3 * * *",
			Logger:          zerolog.Nop(),
		}, &fakeSyncer{}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, s.JobCount())
	})

	t.Run("should reject invalid cron expressions", func(t *testing.T) {
		_, err := NewScheduler(Config{
			KnowledgeResync: "not a schedule",
			Logger:          zerolog.Nop(),
		}, &fakeSyncer{}, nil)
		assert.Error(t, err)
	})

	t.Run("should reject a schedule without its dependency", func(t *testing.T) {
		_, err := NewScheduler(Config{
			KnowledgeResync: "0 3 * * *",
			Logger:          zerolog.Nop(),
		}, nil, nil)
		assert.Error(t, err)

		_, err = NewScheduler(Config{
			EnrollmentSweep: "30 0 * * *",
			Logger:          zerolog.Nop(),
		}, nil, nil)
		assert.Error(t, err)
	})
}

func TestWrap(t *testing.T) {
	s, err := NewScheduler(Config{Logger: zerolog.Nop(), JobTimeout: time.Second}, nil, nil)
	require.NoError(t, err)

	t.Run("should run the job with a deadline", func(t *testing.T) {
		ran := false
		s.wrap("test", func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			ran = true
			return nil
		})()
		assert.True(t, ran)
	})

	t.Run("should swallow job errors", func(t *testing.T) {
		assert.NotPanics(t, func() {
			s.wrap("test", func(ctx context.Context) error {
				return fmt.Errorf("sync failed")
			})()
		})
	})

	t.Run("should recover from panics", func(t *testing.T) {
		assert.NotPanics(t, func() {
			s.wrap("test", func(ctx context.Context) error {
				panic("boom")
			})()
		})
	})
}

func TestStartStop(t *testing.T) {
	s, err := NewScheduler(Config{
		EnrollmentSweep: "30 0 * * *",
		Logger:          zerolog.Nop(),
	}, nil, &fakeSweeper{})
	require.NoError(t, err)

	s.Start()
	s.Stop()
}
