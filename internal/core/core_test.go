package core

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

// lifecycleMod records Start and Stop calls into a shared log.
type lifecycleMod struct {
	id       ModuleID
	mu       *sync.Mutex
	log      *[]string
	startErr error
}

func (m *lifecycleMod) ModuleInfo() ModuleInfo {
	cp := *m
	return ModuleInfo{ID: m.id, New: func() Module { c := cp; return &c }}
}

func (m *lifecycleMod) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.log = append(*m.log, "start "+string(m.id))
	return m.startErr
}

func (m *lifecycleMod) Stop(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.log = append(*m.log, "stop "+string(m.id))
	return nil
}

func registerLifecycle(t *testing.T, startErr map[ModuleID]error, ids ...ModuleID) (*[]string, *sync.Mutex) {
	t.Helper()
	var log []string
	mu := &sync.Mutex{}
	for _, id := range ids {
		RegisterModule(&lifecycleMod{id: id, mu: mu, log: &log, startErr: startErr[id]})
	}
	return &log, mu
}

func TestApp_StartStopOrder(t *testing.T) {
	t.Cleanup(resetRegistry)
	log, mu := registerLifecycle(t, nil, "test.a", "test.b")

	app := NewApp(NewAppContext(nil, t.TempDir()))
	if err := app.LoadModules([]string{"test.a", "test.b"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	if err := app.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	app.Stop()

	mu.Lock()
	defer mu.Unlock()
	want := []string{"start test.a", "start test.b", "stop test.b", "stop test.a"}
	if !slices.Equal(*log, want) {
		t.Errorf("lifecycle = %v, want %v", *log, want)
	}
	if len(app.Modules()) != 2 {
		t.Errorf("Modules() len = %d, want 2", len(app.Modules()))
	}
}

func TestApp_StartFailureStopsStarted(t *testing.T) {
	t.Cleanup(resetRegistry)
	boom := errors.New("boom")
	log, mu := registerLifecycle(t, map[ModuleID]error{"test.b": boom}, "test.a", "test.b")

	app := NewApp(NewAppContext(nil, t.TempDir()))
	if err := app.LoadModules([]string{"test.a", "test.b"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	if err := app.Start(); !errors.Is(err, boom) {
		t.Fatalf("Start = %v, want %v", err, boom)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"start test.a", "start test.b", "stop test.a"}
	if !slices.Equal(*log, want) {
		t.Errorf("lifecycle = %v, want %v", *log, want)
	}
}

func TestApp_AppendModule(t *testing.T) {
	t.Cleanup(resetRegistry)
	log, mu := registerLifecycle(t, nil, "test.a")

	app := NewApp(NewAppContext(nil, t.TempDir()))
	if err := app.LoadModules([]string{"test.a"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	app.AppendModule("extra", &lifecycleMod{id: "extra", mu: mu, log: log})

	if _, ok := app.Module("extra"); !ok {
		t.Error("Module(extra) not found")
	}
	if _, ok := app.Module("missing"); ok {
		t.Error("Module(missing) found")
	}

	if err := app.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	app.Stop()

	mu.Lock()
	defer mu.Unlock()
	want := []string{"start test.a", "start extra", "stop extra", "stop test.a"}
	if !slices.Equal(*log, want) {
		t.Errorf("lifecycle = %v, want %v", *log, want)
	}
}

func TestApp_RunStopsOnContextCancel(t *testing.T) {
	t.Cleanup(resetRegistry)
	log, mu := registerLifecycle(t, nil, "test.run")

	app := NewApp(NewAppContext(nil, t.TempDir()))
	if err := app.LoadModules([]string{"test.run"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if !slices.Contains(*log, "stop test.run") {
		t.Errorf("lifecycle = %v, want stop", *log)
	}
}

func TestModuleID_Namespace(t *testing.T) {
	tests := map[ModuleID]string{
		"channel.telegram":           "channel",
		"provider.openai_compatible": "provider",
		"plain":                      "plain",
	}
	for id, want := range tests {
		if got := id.Namespace(); got != want {
			t.Errorf("%q.Namespace() = %q, want %q", id, got, want)
		}
	}
}

func TestModuleID_Name(t *testing.T) {
	tests := map[ModuleID]string{
		"channel.telegram":  "telegram",
		"transcript.sqlite": "sqlite",
		"plain":             "plain",
	}
	for id, want := range tests {
		if got := id.Name(); got != want {
			t.Errorf("%q.Name() = %q, want %q", id, got, want)
		}
	}
}
