package cycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"envnode/internal/blink"
	"envnode/internal/config"
	"envnode/internal/netwk"
	"envnode/internal/record"
	"envnode/internal/sensor"
)

type fakeSignaler struct {
	patterns []blink.Pattern
	events   *[]string
}

func (s *fakeSignaler) Signal(p blink.Pattern) {
	s.patterns = append(s.patterns, p)
	if s.events != nil {
		*s.events = append(*s.events, "signal "+p.String())
	}
}

type fakeSensors struct {
	initErr  error
	humidity bool
	batch    sensor.SampleBatch

	collected bool
}

func (s *fakeSensors) Init(ctx context.Context) error { return s.initErr }

func (s *fakeSensors) Collect(ctx context.Context, n int, interval time.Duration) sensor.SampleBatch {
	s.collected = true
	return s.batch
}

func (s *fakeSensors) HasHumidity() bool { return s.humidity }

type fakeNetwork struct {
	outcome netwk.Outcome
	synced  bool
	now     time.Time

	connected    bool
	syncCalled   bool
	disconnected bool
}

func (n *fakeNetwork) Connect(ctx context.Context, ssid, password string, timeout time.Duration) netwk.Outcome {
	n.connected = true
	return n.outcome
}

func (n *fakeNetwork) SyncTime(ctx context.Context, server string, gmtOffset, dstOffset time.Duration) bool {
	n.syncCalled = true
	return n.synced
}

func (n *fakeNetwork) Synced() bool { return n.synced }

func (n *fakeNetwork) Now() time.Time { return n.now }

func (n *fakeNetwork) Disconnect() { n.disconnected = true }

type fakeUploader struct {
	err error

	basePath string
	filename string
	payload  string
	header   bool
	calls    int
}

func (u *fakeUploader) SetServer(host string, port int)      {}
func (u *fakeUploader) SetCredentials(user, password string) {}

func (u *fakeUploader) Upload(ctx context.Context, basePath, filename, payload string, createHeaderIfAbsent bool) error {
	u.calls++
	u.basePath = basePath
	u.filename = filename
	u.payload = payload
	u.header = createHeaderIfAbsent
	return u.err
}

type fakeSleeper struct {
	optimized bool
	sleeps    int
	sleptFor  time.Duration
	events    *[]string
}

func (s *fakeSleeper) Optimize() { s.optimized = true }

func (s *fakeSleeper) Sleep(d time.Duration) {
	s.sleeps++
	s.sleptFor = d
	if s.events != nil {
		*s.events = append(*s.events, "sleep")
	}
}

type fakeMirror struct {
	err    error
	calls  int
	record record.Record
}

func (m *fakeMirror) Publish(rec record.Record, now time.Time) error {
	m.calls++
	m.record = rec
	return m.err
}

type fakeMarker struct {
	cleared int
}

func (m *fakeMarker) Clear() { m.cleared++ }

type fixture struct {
	signaler *fakeSignaler
	sensors  *fakeSensors
	network  *fakeNetwork
	uploader *fakeUploader
	sleeper  *fakeSleeper
	marker   *fakeMarker
}

func goodBatch() sensor.SampleBatch {
	var b sensor.SampleBatch
	b.Requested = 5
	b.Valid = 5
	return b
}

func newFixture() *fixture {
	return &fixture{
		signaler: &fakeSignaler{},
		sensors:  &fakeSensors{humidity: true, batch: goodBatch()},
		network: &fakeNetwork{
			outcome: netwk.Success,
			synced:  true,
			now:     time.Date(2025, 11, 3, 14, 5, 0, 0, time.UTC),
		},
		uploader: &fakeUploader{},
		sleeper:  &fakeSleeper{},
		marker:   &fakeMarker{},
	}
}

func (f *fixture) run(t *testing.T, cfg config.Config) {
	t.Helper()
	c := New(cfg, Deps{
		Signaler: f.signaler,
		Sensors:  f.sensors,
		Network:  f.network,
		Uploader: f.uploader,
		Sleeper:  f.sleeper,
		Marker:   f.marker,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	c.Run(context.Background())
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.WiFiSSID = "field-ap"
	cfg.WiFiPassword = "pw"
	cfg.FTPBasePath = "/data"
	cfg.FilenameSuffix = "_outside"
	cfg.SleepDuration = 5 * time.Minute
	return cfg
}

func (f *fixture) assertSleptOnce(t *testing.T) {
	t.Helper()
	if f.sleeper.sleeps != 1 {
		t.Fatalf("Sleep() called %d times, want exactly 1", f.sleeper.sleeps)
	}
	if f.marker.cleared != 1 {
		t.Errorf("Marker.Clear() called %d times, want 1", f.marker.cleared)
	}
}

func TestRun_HappyPath(t *testing.T) {
	f := newFixture()
	f.run(t, testConfig())

	want := []blink.Pattern{blink.Startup, blink.Connecting, blink.Connected, blink.SleepEntry}
	if len(f.signaler.patterns) != len(want) {
		t.Fatalf("patterns = %v, want %v", f.signaler.patterns, want)
	}
	for i := range want {
		if f.signaler.patterns[i] != want[i] {
			t.Errorf("patterns[%d] = %v, want %v", i, f.signaler.patterns[i], want[i])
		}
	}

	if !f.sleeper.optimized {
		t.Error("power trim skipped")
	}
	if f.uploader.calls != 1 {
		t.Fatalf("Upload() called %d times, want 1", f.uploader.calls)
	}
	if f.uploader.basePath != "/data" {
		t.Errorf("basePath = %q", f.uploader.basePath)
	}
	if f.uploader.filename != "03_11_2025_outside.csv" {
		t.Errorf("filename = %q", f.uploader.filename)
	}
	if !f.uploader.header {
		t.Error("header creation not requested")
	}
	if !f.network.disconnected {
		t.Error("link not torn down before sleep")
	}
	if f.sleeper.sleptFor != 5*time.Minute {
		t.Errorf("slept for %v, want 5m", f.sleeper.sleptFor)
	}
	f.assertSleptOnce(t)
}

func TestRun_SensorInitFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.sensors.initErr = errors.New("no device at 0x76 or 0x77")
	f.run(t, testConfig())

	want := []blink.Pattern{blink.Startup, blink.SensorFailure}
	if len(f.signaler.patterns) != 2 || f.signaler.patterns[1] != blink.SensorFailure {
		t.Fatalf("patterns = %v, want %v", f.signaler.patterns, want)
	}
	if f.sensors.collected {
		t.Error("Collect() called after failed init")
	}
	if f.network.connected {
		t.Error("Connect() called after failed init")
	}
	if f.uploader.calls != 0 {
		t.Error("Upload() called after failed init")
	}
	f.assertSleptOnce(t)
}

func TestRun_ConnectionFailureIsFatal(t *testing.T) {
	tests := []struct {
		name    string
		outcome netwk.Outcome
		signal  blink.Pattern
	}{
		{name: "auth failed", outcome: netwk.AuthFailed, signal: blink.AuthFailure},
		{name: "no access point", outcome: netwk.NoAccessPoint, signal: blink.NoAccessPoint},
		{name: "generic failure", outcome: netwk.GenericFailure, signal: blink.NoAccessPoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.network.outcome = tt.outcome
			f.run(t, testConfig())

			last := f.signaler.patterns[len(f.signaler.patterns)-1]
			if last != tt.signal {
				t.Errorf("last signal = %v, want %v", last, tt.signal)
			}
			if f.network.syncCalled {
				t.Error("SyncTime() called without a link")
			}
			if f.uploader.calls != 0 {
				t.Error("Upload() called without a link")
			}
			f.assertSleptOnce(t)
		})
	}
}

func TestRun_UploadFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.uploader.err = errors.New("550 permission denied")
	f.run(t, testConfig())

	found := false
	for _, p := range f.signaler.patterns {
		if p == blink.UploadFailure {
			found = true
		}
	}
	if !found {
		t.Error("upload failure not signaled")
	}
	last := f.signaler.patterns[len(f.signaler.patterns)-1]
	if last != blink.SleepEntry {
		t.Errorf("last signal = %v, want SleepEntry; upload failure must not divert the pipeline", last)
	}
	if !f.network.disconnected {
		t.Error("link not torn down after failed upload")
	}
	f.assertSleptOnce(t)
}

func TestRun_SyncFailureKeepsGoing(t *testing.T) {
	f := newFixture()
	f.network.synced = false
	f.run(t, testConfig())

	if f.uploader.calls != 1 {
		t.Errorf("Upload() called %d times, want 1; a failed sync must not block the record", f.uploader.calls)
	}
	f.assertSleptOnce(t)
}

func TestRun_MirrorPublishesAndFailureIsIgnored(t *testing.T) {
	f := newFixture()
	mirror := &fakeMirror{err: errors.New("broker unreachable")}

	cfg := testConfig()
	c := New(cfg, Deps{
		Signaler: f.signaler,
		Sensors:  f.sensors,
		Network:  f.network,
		Uploader: f.uploader,
		Mirror:   mirror,
		Sleeper:  f.sleeper,
		Marker:   f.marker,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	c.Run(context.Background())

	if mirror.calls != 1 {
		t.Fatalf("Publish() called %d times, want 1", mirror.calls)
	}
	last := f.signaler.patterns[len(f.signaler.patterns)-1]
	if last != blink.SleepEntry {
		t.Errorf("last signal = %v, want SleepEntry", last)
	}
	f.assertSleptOnce(t)
}

func TestRun_NilMirrorAndMarkerAreOptional(t *testing.T) {
	f := newFixture()
	c := New(testConfig(), Deps{
		Signaler: f.signaler,
		Sensors:  f.sensors,
		Network:  f.network,
		Uploader: f.uploader,
		Sleeper:  f.sleeper,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	c.Run(context.Background())

	if f.sleeper.sleeps != 1 {
		t.Fatalf("Sleep() called %d times, want 1", f.sleeper.sleeps)
	}
}

func TestRun_SleepIsAlwaysTheLastTransition(t *testing.T) {
	tests := []struct {
		name string
		mod  func(f *fixture)
	}{
		{name: "happy path", mod: func(f *fixture) {}},
		{name: "sensor failure", mod: func(f *fixture) { f.sensors.initErr = errors.New("probe failed") }},
		{name: "connection failure", mod: func(f *fixture) { f.network.outcome = netwk.AuthFailed }},
		{name: "upload failure", mod: func(f *fixture) { f.uploader.err = errors.New("timeout") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.mod(f)

			var events []string
			f.signaler.events = &events
			f.sleeper.events = &events
			f.run(t, testConfig())

			if len(events) == 0 || events[len(events)-1] != "sleep" {
				t.Errorf("events = %v, want the sleep transition last", events)
			}
			if f.sleeper.sleeps != 1 {
				t.Errorf("Sleep() called %d times, want exactly 1", f.sleeper.sleeps)
			}
		})
	}
}
