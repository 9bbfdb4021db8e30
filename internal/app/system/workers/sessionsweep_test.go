// internal/app/system/workers/sessionsweep_test.go
package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeSessions struct {
	purges   atomic.Int32
	purged   int64
	active   int64
	purgeErr error
}

func (f *fakeSessions) PurgeIdle(context.Context) (int64, error) {
	f.purges.Add(1)
	return f.purged, f.purgeErr
}

func (f *fakeSessions) CountActive(context.Context) (int64, error) {
	return f.active, nil
}

func TestSweep_PublishesCounts(t *testing.T) {
	store := &fakeSessions{purged: 3, active: 7}
	w := NewSessionSweeper(store, zap.NewNop(), time.Hour)

	before := testutil.ToFloat64(sessionsPurged)
	w.sweep()

	assert.Equal(t, before+3, testutil.ToFloat64(sessionsPurged))
	assert.Equal(t, float64(7), testutil.ToFloat64(sessionsActive))
}

func TestSweep_PurgeErrorLeavesGauge(t *testing.T) {
	sessionsActive.Set(42)
	store := &fakeSessions{purgeErr: errors.New("down"), active: 1}
	w := NewSessionSweeper(store, nil, time.Hour)

	w.sweep()

	assert.Equal(t, float64(42), testutil.ToFloat64(sessionsActive))
}

func TestSessionSweeper_StartSweepsImmediately(t *testing.T) {
	store := &fakeSessions{}
	w := NewSessionSweeper(store, zap.NewNop(), time.Hour)

	w.Start()
	assert.Eventually(t, func() bool { return store.purges.Load() >= 1 }, time.Second, 10*time.Millisecond)
	w.Stop()
	w.Stop()
}
