package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStartup(attempts int) *Startup {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return New(logger, attempts).WithBackoffUnit(time.Millisecond)
}

func TestStart_DependencyOrder(t *testing.T) {
	var events []string
	record := func(event string) func(context.Context) error {
		return func(context.Context) error {
			events = append(events, event)
			return nil
		}
	}

	s := newTestStartup(1)
	s.Add(
		NewDependency("graph", record("start graph"), record("stop graph"), "database"),
		NewDependency("database", record("start database"), record("stop database")),
		NewDependency("redis", record("start redis"), nil),
	)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start database", "start graph", "start redis"}, events)
	assert.Equal(t, StatusStarted, s.Status("graph"))

	events = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop graph", "stop database"}, events)
	assert.Equal(t, StatusStopped, s.Status("database"))
}

func TestStart_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	s := newTestStartup(3)
	s.Add(NewDependency("database", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, nil))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, calls)
}

func TestStart_GivesUp(t *testing.T) {
	s := newTestStartup(2)
	s.Add(NewDependency("database", func(context.Context) error { return errors.New("connection refused") }, nil))

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup failed after 2 attempts")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, StatusFailed, s.Status("database"))
}

func TestStart_StartedDependenciesAreNotRestarted(t *testing.T) {
	dbStarts, redisCalls := 0, 0
	s := newTestStartup(2)
	s.Add(
		NewDependency("database", func(context.Context) error { dbStarts++; return nil }, nil),
		NewDependency("redis", func(context.Context) error {
			redisCalls++
			if redisCalls == 1 {
				return errors.New("timeout")
			}
			return nil
		}, nil),
	)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, dbStarts)
	assert.Equal(t, 2, redisCalls)
}

func TestStart_Cycle(t *testing.T) {
	s := newTestStartup(1)
	s.Add(
		NewDependency("a", nil, nil, "b"),
		NewDependency("b", nil, nil, "a"),
	)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency cycle")
}

func TestStart_UnknownDependency(t *testing.T) {
	s := newTestStartup(1)
	s.Add(NewDependency("graph", nil, nil, "database"))
	assert.ErrorContains(t, s.Start(context.Background()), "unknown dependency 'database'")
}
