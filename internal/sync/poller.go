// Package sync bridges the notification client into the Bubble Tea
// runtime: it relays pushes and state changes as messages, resyncs
// over REST on an interval and keeps the local snapshot current.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/reportwell/notifyfeed/internal/apperr"
	"github.com/reportwell/notifyfeed/internal/logger"
	"github.com/reportwell/notifyfeed/internal/model"
	"github.com/reportwell/notifyfeed/internal/notify"
	"github.com/reportwell/notifyfeed/internal/store"
)

// SyncState represents the current state of the REST resync.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the resync state.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a resync completes.
type SyncResultMsg struct {
	Notifications []model.Notification
	Error         error
	AuthError     bool
}

// NotificationMsg is a tea.Msg carrying a pushed notification.
type NotificationMsg struct {
	Notification model.Notification
}

// StateMsg is a tea.Msg sent when the connection state changes.
type StateMsg struct {
	State notify.State
}

// SnapshotMsg is a tea.Msg sent after the snapshot was written.
type SnapshotMsg struct {
	Snapshot store.Snapshot
	Error    error
}

// Feed is the part of notify.Client the poller drives.
type Feed interface {
	Subscribe(fn func(model.Notification)) (unsubscribe func())
	SubscribeState(fn func(notify.State)) (unsubscribe func())
	FetchNotifications(ctx context.Context) ([]model.Notification, error)
	Notifications() []model.Notification
	Restore(items []model.Notification)
	ReceiverID() string
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

const defaultInterval = 300 * time.Second

// Poller relays client events and runs the periodic resync.
type Poller struct {
	feed     Feed
	store    store.Store
	interval time.Duration
	log      *logger.Logger

	status    SyncStatus
	resultCh  chan tea.Msg
	triggerCh chan struct{}
	persistCh chan struct{}
	stopCh    chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	unsubs    []func()
	done      gosync.WaitGroup
	mu        gosync.Mutex
	running   bool
	stopped   bool
}

// New creates a Poller. A nil store disables snapshots.
func New(feed Feed, s store.Store, interval time.Duration, log *logger.Logger) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		ctx:       ctx,
		cancel:    cancel,
		feed:      feed,
		store:     s,
		interval:  interval,
		log:       log,
		resultCh:  make(chan tea.Msg, 64),
		triggerCh: make(chan struct{}, 1),
		persistCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// RestoreSnapshot seeds the feed from the stored snapshot for
// receiverID, typically before the first Connect. It returns the number
// of restored notifications.
func (p *Poller) RestoreSnapshot(ctx context.Context, receiverID string) (int, error) {
	if p.store == nil || receiverID == "" {
		return 0, nil
	}
	items, snap, err := p.store.LoadSnapshot(ctx, receiverID)
	if err != nil {
		return 0, err
	}
	if snap == nil {
		return 0, nil
	}
	p.feed.Restore(items)
	return len(items), nil
}

// Start returns a tea.Cmd that starts the resync loop and subscribes to
// the feed. The returned command waits on the result channel.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.unsubs = append(p.unsubs,
		p.feed.Subscribe(func(n model.Notification) {
			p.sendResult(NotificationMsg{Notification: n})
			p.Persist()
		}),
		p.feed.SubscribeState(func(s notify.State) {
			p.sendResult(StateMsg{State: s})
		}),
	)
	p.mu.Unlock()

	p.done.Add(1)
	go p.loop()

	return p.waitForResult()
}

// Stop halts the resync loop and unsubscribes from the feed. An
// in-flight resync is cancelled and Stop waits for it to return. Pending
// WaitForNextResult commands return nil.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.cancel()
	if !p.running {
		p.stopped = true
		close(p.stopCh)
		p.mu.Unlock()
		return
	}
	p.running = false
	p.stopped = true
	unsubs := p.unsubs
	p.unsubs = nil
	close(p.stopCh)
	p.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	p.done.Wait()
}

// RefreshNow triggers an immediate resync.
func (p *Poller) RefreshNow() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A resync is already queued.
	}
	return nil
}

// Persist queues a snapshot write of the feed's current cache.
func (p *Poller) Persist() {
	if p.store == nil {
		return
	}
	select {
	case p.persistCh <- struct{}{}:
	default:
	}
}

// Status returns the current resync status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop() {
	defer p.done.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.resync()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.resync()
		case <-p.triggerCh:
			p.resync()
		case <-p.persistCh:
			p.persist()
		}
	}
}

// resync fetches the list over REST, which replaces the client cache,
// and writes the result to the snapshot store.
func (p *Poller) resync() {
	p.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(p.ctx, fetchTimeout)
	defer cancel()
	ctx = p.log.WithReceiverID(ctx, p.feed.ReceiverID())

	items, err := p.feed.FetchNotifications(ctx)
	if err != nil && p.ctx.Err() != nil {
		// Stopped mid-fetch.
		return
	}
	if err != nil {
		p.setStatus(SyncError, err)
		p.log.Warn(ctx, "notification resync failed", err)
		p.sendResult(SyncResultMsg{
			Error:     err,
			AuthError: apperr.Is(err, apperr.CodeUnauthorized),
		})
		return
	}

	p.setStatus(SyncIdle, nil)
	p.sendResult(SyncResultMsg{Notifications: items})
	p.persist()
}

func (p *Poller) persist() {
	receiverID := p.feed.ReceiverID()
	if p.store == nil || receiverID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	ctx = p.log.WithReceiverID(ctx, receiverID)

	snap, err := p.store.SaveSnapshot(ctx, receiverID, p.feed.Notifications())
	if err != nil {
		p.log.Error(ctx, "saving notification snapshot", err)
	} else {
		p.log.Debug(ctx, "notification snapshot saved")
	}
	p.sendResult(SnapshotMsg{Snapshot: snap, Error: err})
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends a message on the result channel without blocking.
func (p *Poller) sendResult(msg tea.Msg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the client reader.
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-p.resultCh:
			return msg
		case <-p.stopCh:
			return nil
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next message.
// Call it after handling any poller message to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
