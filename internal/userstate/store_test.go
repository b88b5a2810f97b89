package userstate

import (
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	"github.com/tekradar/userstate/internal/codec"
	"github.com/tekradar/userstate/internal/preferences"
)

var epoch = time.Date(2020, 6, 19, 8, 0, 0, 0, time.UTC)

// recordingTracer counts markers so tests can check they stay balanced.
type recordingTracer struct {
	entered int
	exited  int
}

func (r *recordingTracer) MethodEntered() { r.entered++ }
func (r *recordingTracer) MethodExited()  { r.exited++ }

type fixture struct {
	store  *Store
	prefs  *preferences.MemoryStore
	clock  *testclock.Clock
	tracer *recordingTracer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		prefs:  preferences.NewMemoryStore(),
		clock:  testclock.NewClock(epoch),
		tracer: &recordingTracer{},
	}
	f.store = New(f.prefs, codec.JSON{}, f.tracer, f.clock)
	return f
}
