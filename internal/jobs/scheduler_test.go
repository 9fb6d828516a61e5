package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type purgerFunc func(ctx context.Context) (int64, error)

func (f purgerFunc) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return f(ctx)
}

func TestPurgeSessions(t *testing.T) {
	calls := 0
	s := NewScheduler(purgerFunc(func(ctx context.Context) (int64, error) {
		calls++
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		if calls == 2 {
			return 0, errors.New("db down")
		}
		return 3, nil
	}), zerolog.Nop())

	s.purgeSessions()
	s.purgeSessions()
	assert.Equal(t, 2, calls)
}

func TestStartRegistersHourlyJob(t *testing.T) {
	s := NewScheduler(purgerFunc(func(context.Context) (int64, error) { return 0, nil }), zerolog.Nop())
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	<-s.Stop().Done()
}

func TestStartWithoutPurgerIsNoop(t *testing.T) {
	s := NewScheduler(nil, zerolog.Nop())
	require.NoError(t, s.Start())
	assert.Empty(t, s.cron.Entries())
}
