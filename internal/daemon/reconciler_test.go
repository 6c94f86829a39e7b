package daemon

import (
	"errors"
	"testing"

	"github.com/1broseidon/autotile/internal/logging"
)

type fakeSyncer struct {
	changed bool
	err     error
	calls   int
}

func (f *fakeSyncer) SyncOutputs() (bool, error) {
	f.calls++
	return f.changed, f.err
}

func TestReconcileNow(t *testing.T) {
	tests := []struct {
		name        string
		syncer      *fakeSyncer
		wantChanged int
		wantRefresh int
	}{
		{name: "no drift", syncer: &fakeSyncer{}, wantChanged: 0, wantRefresh: 1},
		{name: "outputs changed", syncer: &fakeSyncer{changed: true}, wantChanged: 1, wantRefresh: 1},
		{name: "sync error", syncer: &fakeSyncer{err: errors.New("randr gone")}, wantChanged: 0, wantRefresh: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, refreshed := 0, 0
			r := NewReconciler(ReconcilerConfig{Logger: logging.Discard()}, tt.syncer,
				func() { changed++ },
				func() { refreshed++ })

			r.ReconcileNow()

			if tt.syncer.calls != 1 {
				t.Fatalf("SyncOutputs calls = %d, want 1", tt.syncer.calls)
			}
			if changed != tt.wantChanged {
				t.Fatalf("changed = %d, want %d", changed, tt.wantChanged)
			}
			if refreshed != tt.wantRefresh {
				t.Fatalf("refreshed = %d, want %d", refreshed, tt.wantRefresh)
			}
		})
	}
}

func TestReconcileRecoversFromPanic(t *testing.T) {
	r := NewReconciler(ReconcilerConfig{Logger: logging.Discard()}, &fakeSyncer{changed: true},
		func() { panic("boom") }, nil)

	r.ReconcileNow()
}
