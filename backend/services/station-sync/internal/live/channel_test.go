package live

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/models"
)

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

type fakeConn struct {
	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-f.frames:
		return 1, data, nil
	case <-f.closed:
		return 0, nil, io.EOF
	}
}

func (f *fakeConn) WriteControl(int, []byte, time.Time) error { return nil }
func (f *fakeConn) SetReadDeadline(time.Time) error            { return nil }
func (f *fakeConn) SetPongHandler(func(string) error)          {}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) push(frame string) { f.frames <- []byte(frame) }

// fakeDialer hands out queued connections, failing once the queue is empty.
type fakeDialer struct {
	mu    sync.Mutex
	calls int
	conns []*fakeConn
	fails int
}

func (d *fakeDialer) Dial(context.Context, string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.fails > 0 {
		d.fails--
		return nil, errors.New("connection refused")
	}
	if len(d.conns) == 0 {
		return nil, errors.New("connection refused")
	}
	conn := d.conns[0]
	d.conns = d.conns[1:]
	return conn, nil
}

func (d *fakeDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type recordingApplier struct {
	mu        sync.Mutex
	statuses  []string
	scores    []float64
	anomalies []models.Anomaly
}

func (r *recordingApplier) ApplyStationStatus(stationID string, _ models.StationStatusUpdate) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, stationID)
	return true
}

func (r *recordingApplier) ApplyReliability(_ string, update models.ReliabilityUpdate) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores = append(r.scores, update.ReliabilityScore)
	return true
}

func (r *recordingApplier) AddAnomaly(anomaly models.Anomaly) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anomalies = append(r.anomalies, anomaly)
}

func (r *recordingApplier) statusCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.statuses)
}

func waitStatus(t *testing.T, ch <-chan Status) Status {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for status")
		return Status{}
	}
}

func waitFor(t *testing.T, ch <-chan Status, state State) Status {
	t.Helper()
	for {
		s := waitStatus(t, ch)
		if s.State == state {
			return s
		}
	}
}

func waitMessage(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message")
		return Message{}
	}
}

func startChannel(t *testing.T, dialer *fakeDialer, applier StateApplier) (*Channel, fakeClock, chan Status) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	ch := New(Config{URL: "ws://backend/ws"}, dialer, applier, clock, zap.NewNop())
	statuses := make(chan Status, 64)
	ch.OnStatus(func(s Status) { statuses <- s })
	ch.Start(context.Background())
	t.Cleanup(ch.Disconnect)
	return ch, clock, statuses
}

func TestReconnectBackoffThenAbandon(t *testing.T) {
	dialer := &fakeDialer{}
	ch, clock, statuses := startChannel(t, dialer, nil)

	var delays []time.Duration
	for {
		s := waitStatus(t, statuses)
		if s.State == StateDisconnected {
			delays = append(delays, s.NextRetry)
			clock.Advance(s.NextRetry)
		}
		if s.State == StateAbandoned {
			break
		}
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay %d: expected %v, got %v", i, want[i], delays[i])
		}
	}

	select {
	case <-ch.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("channel should stop after abandoning")
	}
	clock.Advance(time.Hour)
	if dialer.callCount() != 6 {
		t.Fatalf("expected 6 connection attempts, got %d", dialer.callCount())
	}
	if ch.Status().State != StateAbandoned || ch.Status().RetryCount != 5 {
		t.Fatalf("unexpected final status %+v", ch.Status())
	}
}

func TestSuccessfulConnectResetsRetries(t *testing.T) {
	first := newFakeConn()
	dialer := &fakeDialer{fails: 2, conns: []*fakeConn{first}}
	_, clock, statuses := startChannel(t, dialer, nil)

	s := waitFor(t, statuses, StateDisconnected)
	clock.Advance(s.NextRetry)
	s = waitFor(t, statuses, StateDisconnected)
	if s.NextRetry != 2*time.Second {
		t.Fatalf("expected second delay 2s, got %v", s.NextRetry)
	}
	clock.Advance(s.NextRetry)
	waitFor(t, statuses, StateConnected)

	first.Close()
	s = waitFor(t, statuses, StateDisconnected)
	if s.RetryCount != 1 || s.NextRetry != time.Second {
		t.Fatalf("expected retries to reset after connect, got %+v", s)
	}
}

func TestFanOutIsolatedPerStation(t *testing.T) {
	conn := newFakeConn()
	applier := &recordingApplier{}
	ch, _, statuses := startChannel(t, &fakeDialer{conns: []*fakeConn{conn}}, applier)

	gotA1 := make(chan Message, 4)
	gotA2 := make(chan Message, 4)
	gotB := make(chan Message, 4)
	appliedFirst := make(chan bool, 4)
	ch.Subscribe("A", func(m Message) {
		appliedFirst <- applier.statusCount() == 1
		gotA1 <- m
	})
	ch.Subscribe("A", func(m Message) { gotA2 <- m })
	ch.Subscribe("B", func(m Message) { gotB <- m })

	waitFor(t, statuses, StateConnected)
	conn.push(`{"type":"STATION_STATUS","stationId":"A","payload":{"availableConnectors":1}}`)

	if m := waitMessage(t, gotA1); m.StationID != "A" || m.Type != TypeStationStatus {
		t.Fatalf("unexpected message %+v", m)
	}
	waitMessage(t, gotA2)
	if !<-appliedFirst {
		t.Fatalf("global state must be updated before subscribers run")
	}

	conn.push(`{"type":"METRICS_UPDATE","stationId":"B","payload":{}}`)
	waitMessage(t, gotB)

	if len(gotA1) != 0 || len(gotA2) != 0 {
		t.Fatalf("station A subscribers received extra messages")
	}
	if applier.statusCount() != 1 {
		t.Fatalf("expected one global application, got %d", applier.statusCount())
	}
}

func TestMalformedMessagesAreDropped(t *testing.T) {
	conn := newFakeConn()
	applier := &recordingApplier{}
	ch, _, statuses := startChannel(t, &fakeDialer{conns: []*fakeConn{conn}}, applier)

	got := make(chan Message, 8)
	ch.Subscribe("A", func(m Message) { got <- m })
	waitFor(t, statuses, StateConnected)

	conn.push(`not json`)
	conn.push(`{"stationId":"A","payload":{}}`)
	conn.push(`{"type":"RELIABILITY_UPDATE","stationId":"A","payload":"oops"}`)
	conn.push(`{"type":"RELIABILITY_UPDATE","stationId":"A","payload":{"reliabilityScore":72}}`)

	m := waitMessage(t, got)
	if m.Type != TypeReliabilityUpdate {
		t.Fatalf("expected only the well-formed message, got %+v", m)
	}
	applier.mu.Lock()
	defer applier.mu.Unlock()
	if len(applier.scores) != 1 || applier.scores[0] != 72 {
		t.Fatalf("unexpected applied scores %v", applier.scores)
	}
	if ch.Status().State != StateConnected {
		t.Fatalf("malformed messages must not drop the connection")
	}
}

func TestMessagesDeliveredInOrderAndPanicsContained(t *testing.T) {
	conn := newFakeConn()
	applier := &recordingApplier{}
	ch, _, statuses := startChannel(t, &fakeDialer{conns: []*fakeConn{conn}}, applier)

	got := make(chan Message, 8)
	ch.Subscribe("A", func(Message) { panic("subscriber bug") })
	ch.Subscribe("A", func(m Message) { got <- m })
	waitFor(t, statuses, StateConnected)

	conn.push(`{"type":"ANOMALY_DETECTED","stationId":"A","payload":{"id":"an-1","anomalyType":"STATUS_FLAPPING"}}`)
	conn.push(`{"type":"RELIABILITY_UPDATE","stationId":"A","payload":{"reliabilityScore":10}}`)
	conn.push(`{"type":"STATION_STATUS","stationId":"A","payload":{}}`)

	order := []string{waitMessage(t, got).Type, waitMessage(t, got).Type, waitMessage(t, got).Type}
	want := []string{TypeAnomalyDetected, TypeReliabilityUpdate, TypeStationStatus}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}

	applier.mu.Lock()
	defer applier.mu.Unlock()
	if len(applier.anomalies) != 1 || applier.anomalies[0].StationID != "A" {
		t.Fatalf("expected anomaly attributed to station A, got %+v", applier.anomalies)
	}
}

func TestUnsubscribeDuringFanOut(t *testing.T) {
	conn := newFakeConn()
	ch, _, statuses := startChannel(t, &fakeDialer{conns: []*fakeConn{conn}}, nil)

	got := make(chan Message, 8)
	var unsubscribe func()
	unsubscribe = ch.Subscribe("A", func(m Message) {
		unsubscribe()
		got <- m
	})
	waitFor(t, statuses, StateConnected)

	conn.push(`{"type":"METRICS_UPDATE","stationId":"A","payload":{}}`)
	waitMessage(t, got)
	conn.push(`{"type":"METRICS_UPDATE","stationId":"A","payload":{}}`)

	select {
	case m := <-got:
		t.Fatalf("unsubscribed callback received %+v", m)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDisconnectIsTerminal(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}
	ch, clock, statuses := startChannel(t, dialer, nil)

	ch.Subscribe("A", func(Message) {})
	waitFor(t, statuses, StateConnected)

	ch.Disconnect()
	ch.Disconnect()

	select {
	case <-ch.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("channel should stop after disconnect")
	}
	clock.Advance(time.Minute)

	if ch.Status().State != StateClosed {
		t.Fatalf("expected closed, got %s", ch.Status().State)
	}
	if ch.subs.Stations() != 0 {
		t.Fatalf("expected subscriptions to be cleared")
	}
	if dialer.callCount() != 1 {
		t.Fatalf("expected no reconnect after disconnect, got %d dials", dialer.callCount())
	}
}

func TestDisconnectBeforeStart(t *testing.T) {
	dialer := &fakeDialer{}
	ch := New(Config{URL: "ws://backend/ws"}, dialer, nil, clockwork.NewFakeClock(), zap.NewNop())
	ch.Disconnect()
	ch.Start(context.Background())

	select {
	case <-ch.Done():
	default:
		t.Fatalf("done should be closed")
	}
	if dialer.callCount() != 0 {
		t.Fatalf("closed channel must not dial")
	}
}

func TestRegistryRemovesEmptySets(t *testing.T) {
	r := NewRegistry()
	first := r.Add("A", func(Message) {})
	second := r.Add("A", func(Message) {})
	r.Add("B", func(Message) {})

	first()
	first()
	if r.Count("A") != 1 {
		t.Fatalf("expected one remaining callback, got %d", r.Count("A"))
	}
	second()
	if r.Stations() != 1 || r.Callbacks("A") != nil {
		t.Fatalf("expected empty set for A to be removed")
	}
}
