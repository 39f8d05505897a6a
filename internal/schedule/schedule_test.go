package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	logx "sendrelay/pkg/logx"
)

type recordingAcceptor struct {
	mu     sync.Mutex
	full   bool
	bodies []string
}

func (a *recordingAcceptor) Accept(_ time.Time, body string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.full {
		return false
	}
	a.bodies = append(a.bodies, body)
	return true
}

func TestNewRejectsBadSpec(t *testing.T) {
	t.Parallel()
	_, err := New(Config{Entries: []Entry{{Spec: "not a cron spec", Body: "x"}}}, &recordingAcceptor{}, logx.Nop())
	if err == nil {
		t.Fatal("New accepted an invalid cron spec")
	}
}

func TestNewRejectsBadTimezone(t *testing.T) {
	t.Parallel()
	_, err := New(Config{
		Timezone: "Mars/Olympus_Mons",
		Entries:  []Entry{{Spec: "* * * * *", Body: "x"}},
	}, &recordingAcceptor{}, logx.Nop())
	if err == nil {
		t.Fatal("New accepted an unknown timezone")
	}
}

func TestNewAcceptsStandardSpecs(t *testing.T) {
	t.Parallel()
	specs := []string{"* * * * *", "*/5 * * * *", "0 9 * * 1-5", "@hourly"}
	for _, spec := range specs {
		if _, err := New(Config{Entries: []Entry{{Spec: spec, Body: "x"}}}, &recordingAcceptor{}, logx.Nop()); err != nil {
			t.Errorf("New(%q): %v", spec, err)
		}
	}
}

func TestStartStopIdempotent(t *testing.T) {
	t.Parallel()
	s, err := New(Config{Entries: []Entry{{Spec: "* * * * *", Body: "tick"}}}, &recordingAcceptor{}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.Start()
	s.Start() // second Start is a no-op

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
	s.Stop(ctx) // second Stop is a no-op
}

func TestStartWithoutEntriesIsNoop(t *testing.T) {
	t.Parallel()
	s, err := New(Config{}, &recordingAcceptor{}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
