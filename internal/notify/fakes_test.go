package notify

import (
	"context"
	"errors"
	gosync "sync"

	"github.com/reportwell/notifyfeed/internal/model"
)

var errFakeClosed = errors.New("fake transport closed")

// fakeTransport delivers frames pushed by the test and records writes.
type fakeTransport struct {
	frames chan string
	done   chan struct{}

	mu       gosync.Mutex
	written  []string
	dropErr  error
	closed   bool
	writeErr error
	once     gosync.Once
	// closeGate, when set, holds Close until it is closed.
	closeGate chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		frames: make(chan string, 16),
		done:   make(chan struct{}),
	}
}

func (t *fakeTransport) ReadMessage() (string, error) {
	select {
	case f := <-t.frames:
		return f, nil
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.dropErr != nil {
			return "", t.dropErr
		}
		return "", errFakeClosed
	}
}

func (t *fakeTransport) WriteMessage(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return t.writeErr
	}
	t.written = append(t.written, text)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	gate := t.closeGate
	t.mu.Unlock()
	if gate != nil {
		<-gate
	}

	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.once.Do(func() { close(t.done) })
	return nil
}

// push queues an inbound text frame.
func (t *fakeTransport) push(frame string) {
	t.frames <- frame
}

// drop simulates the server going away.
func (t *fakeTransport) drop(err error) {
	t.mu.Lock()
	t.dropErr = err
	t.mu.Unlock()
	t.once.Do(func() { close(t.done) })
}

func (t *fakeTransport) Written() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.written...)
}

func (t *fakeTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// fakeDialer succeeds or fails according to a script. Once the script
// is exhausted every dial fails.
type fakeDialer struct {
	mu         gosync.Mutex
	script     []bool
	urls       []string
	transports []*fakeTransport
}

func newFakeDialer(script ...bool) *fakeDialer {
	return &fakeDialer{script: script}
}

func (d *fakeDialer) Dial(_ context.Context, rawURL string) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, rawURL)

	ok := false
	if len(d.script) > 0 {
		ok = d.script[0]
		d.script = d.script[1:]
	}
	if !ok {
		return nil, errors.New("connection refused")
	}
	t := newFakeTransport()
	d.transports = append(d.transports, t)
	return t, nil
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

func (d *fakeDialer) Transport(i int) *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.transports) {
		return nil
	}
	return d.transports[i]
}

func (d *fakeDialer) Transports() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.transports)
}

// fakeLister answers REST list calls through fn.
type fakeLister struct {
	mu    gosync.Mutex
	calls int
	fn    func(call int, token, receiverID string) ([]model.Notification, error)
}

func (l *fakeLister) ListNotifications(_ context.Context, token, receiverID string) ([]model.Notification, error) {
	l.mu.Lock()
	l.calls++
	call := l.calls
	fn := l.fn
	l.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(call, token, receiverID)
}

// recorder collects callback invocations.
type recorder struct {
	mu  gosync.Mutex
	got []model.Notification
}

func (r *recorder) record(n model.Notification) {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
}

func (r *recorder) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.got))
	for i, n := range r.got {
		ids[i] = n.ID
	}
	return ids
}
