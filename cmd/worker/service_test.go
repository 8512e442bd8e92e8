package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedanddone/wedanddone-backend/pkg/logger"
)

type stubRunner struct {
	runs int
	err  error
}

func (s *stubRunner) Run(ctx context.Context) error {
	s.runs++
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "worker-test"})
}

func TestServiceStopsWhenDependencyUnready(t *testing.T) {
	consumer := &stubRunner{}
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Readiness: map[string]pinger{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		},
		Reconciler: consumer,
	})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
	assert.Zero(t, consumer.runs)
}

func TestServiceReturnsConsumerFailure(t *testing.T) {
	consumer := &stubRunner{err: errors.New("subscription deleted")}
	svc, err := NewService(ServiceParams{Logger: testLogger(), Reconciler: consumer})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	assert.EqualError(t, err, "subscription deleted")
}

func TestServiceStopsOnCancel(t *testing.T) {
	consumer := &stubRunner{}
	svc, err := NewService(ServiceParams{
		Logger:     testLogger(),
		Readiness:  map[string]pinger{"database": func(context.Context) error { return nil }},
		Reconciler: consumer,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.Run(ctx), context.Canceled)
	assert.Equal(t, 1, consumer.runs)
}

func TestNewServiceRequiresReconciler(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	assert.Error(t, err)
}
