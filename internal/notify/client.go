package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/reportwell/notifyfeed/internal/apperr"
	"github.com/reportwell/notifyfeed/internal/logger"
	"github.com/reportwell/notifyfeed/internal/metrics"
	"github.com/reportwell/notifyfeed/internal/model"
)

// Lister fetches the authoritative notification list over REST.
type Lister interface {
	ListNotifications(ctx context.Context, token, receiverID string) ([]model.Notification, error)
}

// Config controls connection and reconnect behaviour.
type Config struct {
	// BaseURL is the WebSocket host; the socket lives at
	// {BaseURL}/notifications/?token=...
	BaseURL string

	// MaxRetries bounds consecutive automatic reconnect attempts.
	MaxRetries int

	// RetryDelay is the fixed wait before each reconnect attempt.
	RetryDelay time.Duration

	// DialTimeout bounds reconnect dials, which have no caller context.
	DialTimeout time.Duration

	// Codec encodes outbound commands. Defaults to OpcodeCodec.
	Codec Codec
}

// ConfigFrom builds a Config from the application's socket settings.
func ConfigFrom(ws model.WSConfig) (Config, error) {
	codec, err := CodecFor(ws.Protocol)
	if err != nil {
		return Config{}, err
	}
	return Config{
		BaseURL:     ws.BaseURL,
		MaxRetries:  ws.MaxRetries,
		RetryDelay:  ws.RetryDelay(),
		DialTimeout: ws.HandshakeTimeout(),
		Codec:       codec,
	}, nil
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the client metrics sink.
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

var errNotConnected = errors.New("notification socket not open")

// session wraps one installed transport. Events from a session that is
// no longer c.conn are ignored.
type session struct {
	transport Transport
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Client owns one push connection for a signed-in user and the local
// cache of that user's notifications. Create one per session with New.
//
// Inbound frames are handled on a reader goroutine in arrival order;
// callbacks run on that goroutine, outside the client's lock.
type Client struct {
	cfg     Config
	dialer  Dialer
	lister  Lister
	log     *logger.Logger
	metrics *metrics.ClientMetrics

	mu         gosync.Mutex
	state      State
	conn       *session
	receiverID string
	token      string
	retries    int
	retryTimer *time.Timer
	// epoch changes on every Connect and Disconnect so reconnects
	// scheduled for an earlier connection are dropped.
	epoch     uint64
	cache     []model.Notification
	fetchSeq  uint64
	primary   func(model.Notification)
	subs      []subscriber[model.Notification]
	stateSubs []subscriber[State]
	nextSubID uint64

	writeMu gosync.Mutex
}

// New creates an idle client.
func New(cfg Config, dialer Dialer, lister Lister, opts ...Option) *Client {
	if cfg.Codec == nil {
		cfg.Codec = OpcodeCodec{}
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	c := &Client{
		cfg:    cfg,
		dialer: dialer,
		lister: lister,
		log:    logger.Nop(),
		state:  StateIdle,
		cache:  []model.Notification{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.metrics.SetConnectionState(int(StateIdle))
	return c
}

// Connect opens the push connection for receiverID, replacing any
// existing one. The reconnect counter starts from zero.
//
// If the initial dial fails, the failure is handled like an unexpected
// close (a reconnect is scheduled while retries remain) and the dial
// error is returned with code DEPENDENCY_ERROR.
func (c *Client) Connect(ctx context.Context, receiverID, accessToken string) error {
	if receiverID == "" {
		return apperr.New(apperr.CodeInvalidArgument, "receiver id required")
	}
	if accessToken == "" {
		return apperr.New(apperr.CodeInvalidArgument, "access token required")
	}

	c.mu.Lock()
	old := c.teardownLocked()
	c.epoch++
	epoch := c.epoch
	if c.receiverID != "" && c.receiverID != receiverID {
		c.cache = []model.Notification{}
		c.fetchSeq++
	}
	c.receiverID = receiverID
	c.token = accessToken
	c.retries = 0
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	closeTransport(old)
	c.emitState(StateConnecting)
	return c.dial(ctx, epoch)
}

// Disconnect closes the connection and cancels any pending reconnect.
// Calling it while already disconnected is a no-op.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.epoch++
	old := c.teardownLocked()
	changed := c.state != StateIdle
	c.setStateLocked(StateIdle)
	c.mu.Unlock()

	closeTransport(old)
	if changed {
		c.log.Info(c.ctx(), "notification socket disconnected")
		c.emitState(StateIdle)
	}
}

// Reset ends the current session: it disconnects, empties the cache and
// forgets the receiver and token. The next Connect starts from a clean
// client, so a cache restored before it is kept whoever the receiver is.
func (c *Client) Reset() {
	c.Disconnect()

	c.mu.Lock()
	c.cache = []model.Notification{}
	c.receiverID = ""
	c.token = ""
	c.retries = 0
	c.fetchSeq++
	c.mu.Unlock()
}

// OnNotification sets the primary callback for inbound notifications.
// Only the most recent registration is kept; pass nil to clear it. Use
// Subscribe for additional independent consumers.
func (c *Client) OnNotification(fn func(model.Notification)) {
	c.mu.Lock()
	c.primary = fn
	c.mu.Unlock()
}

// Subscribe adds fn to the set of inbound notification observers and
// returns a function that removes it.
func (c *Client) Subscribe(fn func(model.Notification)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	c.subs = append(c.subs, subscriber[model.Notification]{id: id, fn: fn})

	var once gosync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.subs = removeSubscriber(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// SubscribeState adds fn to the set of connection state observers and
// returns a function that removes it.
func (c *Client) SubscribeState(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	c.stateSubs = append(c.stateSubs, subscriber[State]{id: id, fn: fn})

	var once gosync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.stateSubs = removeSubscriber(c.stateSubs, id)
			c.mu.Unlock()
		})
	}
}

func removeSubscriber[T any](subs []subscriber[T], id uint64) []subscriber[T] {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// FetchNotifications replaces the cache with the server's list for the
// current receiver. Errors from the lister are returned unchanged and
// leave the cache alone. When calls overlap, only the most recently
// started call may replace the cache; an older response is dropped and
// the current cache is returned instead.
func (c *Client) FetchNotifications(ctx context.Context) ([]model.Notification, error) {
	c.mu.Lock()
	receiverID, token := c.receiverID, c.token
	if receiverID == "" {
		c.mu.Unlock()
		return nil, apperr.New(apperr.CodeInvalidArgument, "fetch requires a receiver; call Connect first")
	}
	c.fetchSeq++
	seq := c.fetchSeq
	c.mu.Unlock()

	items, err := c.lister.ListNotifications(ctx, token, receiverID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if seq != c.fetchSeq {
		out := model.CloneNotifications(c.cache)
		c.mu.Unlock()
		c.log.Debug(c.ctx(), "dropping stale notification list response")
		return out, nil
	}
	c.cache = model.CloneNotifications(items)
	out := model.CloneNotifications(c.cache)
	c.mu.Unlock()
	return out, nil
}

// MarkAsRead sends a mark-read command and flags the cached entry as
// read without waiting for the server. When the socket is not open it
// sends nothing and returns the cache unchanged. A write failure is
// returned but the local flag stays set.
func (c *Client) MarkAsRead(notificationID string) ([]model.Notification, error) {
	if !c.IsConnected() {
		return c.Notifications(), nil
	}

	err := c.send(Command{Kind: CommandMarkRead, ID: notificationID})

	c.mu.Lock()
	for i := range c.cache {
		if c.cache[i].ID == notificationID {
			c.cache[i].Read = true
		}
	}
	out := model.CloneNotifications(c.cache)
	c.mu.Unlock()

	return out, err
}

// ClearNotifications empties the cache and, when connected, asks the
// server to clear as well.
func (c *Client) ClearNotifications() error {
	c.mu.Lock()
	c.cache = []model.Notification{}
	c.mu.Unlock()

	if !c.IsConnected() {
		return nil
	}
	return c.send(Command{Kind: CommandClear})
}

// RemoveNotification drops an entry from the cache and, when connected,
// asks the server to delete it.
func (c *Client) RemoveNotification(notificationID string) error {
	c.mu.Lock()
	kept := c.cache[:0:0]
	for _, n := range c.cache {
		if n.ID != notificationID {
			kept = append(kept, n)
		}
	}
	c.cache = kept
	c.mu.Unlock()

	if !c.IsConnected() {
		return nil
	}
	return c.send(Command{Kind: CommandRemove, ID: notificationID})
}

// UnreadCount returns the number of cached notifications not yet read.
func (c *Client) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, n := range c.cache {
		if !n.Read {
			count++
		}
	}
	return count
}

// Notifications returns a deep copy of the cache, most recent first.
func (c *Client) Notifications() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CloneNotifications(c.cache)
}

// Restore seeds the cache, e.g. from a persisted snapshot, without
// contacting the server. It does nothing once the cache is non-empty.
func (c *Client) Restore(items []model.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cache) > 0 {
		return
	}
	c.cache = model.CloneNotifications(items)
}

// IsConnected reports whether a transport is installed and open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.state == StateOpen
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ReceiverID returns the receiver from the last Connect.
func (c *Client) ReceiverID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receiverID
}

// dial opens a transport for the given epoch and installs it unless a
// newer Connect or a Disconnect happened meanwhile.
func (c *Client) dial(ctx context.Context, epoch uint64) error {
	c.mu.Lock()
	rawURL := SocketURL(c.cfg.BaseURL, c.token)
	c.mu.Unlock()

	t, err := c.dialer.Dial(ctx, rawURL)

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		if t != nil {
			_ = t.Close()
		}
		return nil
	}
	if err != nil {
		c.mu.Unlock()
		c.log.Warn(c.ctx(), "opening notification socket failed", err)
		c.handleClose(epoch)
		return apperr.Wrap(apperr.CodeDependency, err, "opening notification socket")
	}

	sess := &session{transport: t}
	c.conn = sess
	c.retries = 0
	c.setStateLocked(StateOpen)
	c.mu.Unlock()

	c.log.Info(c.ctx(), "notification socket open")
	c.emitState(StateOpen)
	go c.readLoop(sess)
	return nil
}

func (c *Client) readLoop(sess *session) {
	for {
		text, err := sess.transport.ReadMessage()
		if err != nil {
			c.handleTransportClosed(sess, err)
			return
		}
		c.handleFrame(sess, text)
	}
}

// handleFrame decodes one inbound frame, prepends it to the cache and
// notifies subscribers. A frame repeating a cached id replaces that
// entry. Malformed frames are logged and dropped.
func (c *Client) handleFrame(sess *session, text string) {
	var n model.Notification
	if err := json.Unmarshal([]byte(text), &n); err != nil {
		c.metrics.IncFramesMalformed()
		c.log.Warn(c.ctx(), "dropping malformed notification frame", err)
		return
	}
	if n.ID == "" {
		c.metrics.IncFramesMalformed()
		c.log.Warn(c.ctx(), "dropping notification frame without id", nil)
		return
	}

	c.mu.Lock()
	if c.conn != sess {
		c.mu.Unlock()
		return
	}
	cache := make([]model.Notification, 0, len(c.cache)+1)
	cache = append(cache, n)
	for _, existing := range c.cache {
		if existing.ID != n.ID {
			cache = append(cache, existing)
		}
	}
	c.cache = cache
	primary := c.primary
	subs := append([]subscriber[model.Notification](nil), c.subs...)
	c.mu.Unlock()

	c.metrics.IncFramesReceived()

	if primary == nil && len(subs) == 0 {
		c.log.Debug(c.ctx(), "notification cached with no callback registered")
		return
	}
	if primary != nil {
		primary(n.Clone())
	}
	for _, s := range subs {
		s.fn(n.Clone())
	}
}

// handleTransportClosed runs when the reader sees the transport fail.
func (c *Client) handleTransportClosed(sess *session, err error) {
	c.mu.Lock()
	if c.conn != sess {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	epoch := c.epoch
	c.mu.Unlock()

	_ = sess.transport.Close()
	c.log.Warn(c.ctx(), "notification socket closed", err)
	c.handleClose(epoch)
}

// handleClose applies the reconnect policy after an unexpected close or
// a failed dial.
func (c *Client) handleClose(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}

	if c.retries < c.cfg.MaxRetries {
		c.retries++
		attempt := c.retries
		c.setStateLocked(StateClosed)
		c.retryTimer = time.AfterFunc(c.cfg.RetryDelay, func() {
			c.reconnect(epoch)
		})
		c.mu.Unlock()

		c.metrics.IncReconnects()
		c.log.Info(
			c.log.WithField(c.ctx(), "attempt", attempt),
			fmt.Sprintf("reconnecting in %s", c.cfg.RetryDelay),
		)
		c.emitState(StateClosed)
		return
	}

	c.retryTimer = nil
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	c.log.Warn(c.ctx(), "notification socket reconnect attempts exhausted", nil)
	c.emitState(StateDisconnected)
}

func (c *Client) reconnect(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || c.conn != nil {
		c.mu.Unlock()
		return
	}
	c.retryTimer = nil
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	c.emitState(StateConnecting)

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
	defer cancel()
	_ = c.dial(ctx, epoch)
}

// send encodes cmd and writes it to the open transport.
func (c *Client) send(cmd Command) error {
	c.mu.Lock()
	sess := c.conn
	open := sess != nil && c.state == StateOpen
	c.mu.Unlock()
	if !open {
		return errNotConnected
	}

	frame, err := c.cfg.Codec.Encode(cmd)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidArgument, err, "encoding command")
	}

	c.writeMu.Lock()
	err = sess.transport.WriteMessage(frame)
	c.writeMu.Unlock()
	if err != nil {
		c.log.Warn(c.ctx(), fmt.Sprintf("sending %s command failed", cmd.Kind), err)
		return apperr.Wrap(apperr.CodeDependency, err, fmt.Sprintf("sending %s", cmd.Kind))
	}

	c.metrics.IncCommandsSent(string(cmd.Kind))
	return nil
}

// teardownLocked cancels the reconnect timer and detaches the session.
// The detached transport is returned so the caller can close it after
// releasing c.mu; closing may block on a stalled peer. c.mu must be held.
func (c *Client) teardownLocked() Transport {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	if c.conn == nil {
		return nil
	}
	t := c.conn.transport
	c.conn = nil
	return t
}

func closeTransport(t Transport) {
	if t != nil {
		_ = t.Close()
	}
}

// setStateLocked records a state change. c.mu must be held.
func (c *Client) setStateLocked(s State) {
	c.state = s
	c.metrics.SetConnectionState(int(s))
}

func (c *Client) emitState(s State) {
	c.mu.Lock()
	subs := append([]subscriber[State](nil), c.stateSubs...)
	c.mu.Unlock()
	for _, sub := range subs {
		sub.fn(s)
	}
}

// ctx returns a logging context carrying the receiver id.
func (c *Client) ctx() context.Context {
	c.mu.Lock()
	receiverID := c.receiverID
	c.mu.Unlock()
	return c.log.WithReceiverID(context.Background(), receiverID)
}
