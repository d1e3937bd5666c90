package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/reportwell/notifyfeed/internal/apperr"
	"github.com/reportwell/notifyfeed/internal/credential"
	"github.com/reportwell/notifyfeed/internal/keys"
	"github.com/reportwell/notifyfeed/internal/logger"
	"github.com/reportwell/notifyfeed/internal/model"
	"github.com/reportwell/notifyfeed/internal/notify"
	"github.com/reportwell/notifyfeed/internal/store"
	appsync "github.com/reportwell/notifyfeed/internal/sync"
	"github.com/reportwell/notifyfeed/internal/ui"
	feedview "github.com/reportwell/notifyfeed/internal/ui/feed"
	helpview "github.com/reportwell/notifyfeed/internal/ui/help"
	"github.com/reportwell/notifyfeed/internal/ui/login"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLoading ViewState = iota
	ViewLogin
	ViewFeed
	ViewHelp
)

// NotifyClient is the part of notify.Client the app drives.
type NotifyClient interface {
	appsync.Feed
	Connect(ctx context.Context, receiverID, accessToken string) error
	Disconnect()
	Reset()
	MarkAsRead(id string) ([]model.Notification, error)
	ClearNotifications() error
	RemoveNotification(id string) error
	UnreadCount() int
	State() notify.State
}

// Sessions stores the login between runs.
type Sessions interface {
	LoadSession() (credential.Session, error)
	SaveSession(s credential.Session) error
	ClearSession() error
}

// Deps are the collaborators the app is built from.
type Deps struct {
	Client     NotifyClient
	Store      store.Store
	Sessions   Sessions
	Config     *model.AppConfig
	ConfigPath string
	Logger     *logger.Logger
}

// Model is the root Bubble Tea model. It owns the session lifecycle and
// routes between the login form, the feed and the help overlay.
type Model struct {
	deps        Deps
	log         *logger.Logger
	currentView ViewState
	layout      ui.Layout
	keys        *keys.KeyMap
	feed        feedview.Model
	helpView    helpview.Model
	loginView   login.Model
	poller      *appsync.Poller
	session     credential.Session
	state       notify.State
	unread      int
	status      string
	statusErr   bool
	ready       bool
}

// New creates the root model.
func New(deps Deps) Model {
	if deps.Config == nil {
		deps.Config = model.DefaultAppConfig()
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	k := keys.DefaultKeyMap()
	return Model{
		deps:        deps,
		log:         deps.Logger,
		currentView: ViewLoading,
		layout:      ui.NewLayout(80, 24),
		keys:        k,
		feed:        feedview.New(k, deps.Config.Display.Sort, 80, 22),
		helpView:    helpview.New(k, 80, 22),
		state:       deps.Client.State(),
	}
}

// Init loads the stored session.
func (m Model) Init() tea.Cmd {
	return m.loadSession()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		h := m.layout.ContentHeight()
		m.feed.SetSize(msg.Width, h)
		m.helpView.SetSize(msg.Width, h)
		if m.currentView == ViewLogin {
			m.loginView.SetSize(msg.Width, h)
			return m.updateLogin(msg)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionLoadedMsg:
		if msg.err != nil {
			if !errors.Is(msg.err, credential.ErrNoSession) {
				m.log.Warn(context.Background(), "loading stored session", msg.err)
			}
			return m.showLogin(msg.session.ReceiverID, "")
		}
		return m.startSession(msg.session)

	case login.SubmittedMsg:
		if err := m.deps.Sessions.SaveSession(msg.Session); err != nil {
			m.log.Error(context.Background(), "saving session", err)
			m.setStatus(fmt.Sprintf("session not saved: %v", err), true)
		}
		return m.startSession(msg.Session)

	case login.CancelledMsg:
		return m, tea.Quit

	case restoredMsg:
		if msg.err != nil {
			m.log.Warn(context.Background(), "restoring snapshot", msg.err)
		}
		m.refresh()
		return m, m.connect()

	case connectedMsg:
		return m.handleConnected(msg)

	case appsync.NotificationMsg:
		m.refresh()
		return m, tea.Batch(m.feed.SetNotifications(m.deps.Client.Notifications()), m.waitPoller())

	case appsync.StateMsg:
		m.state = msg.State
		return m, m.waitPoller()

	case appsync.SyncResultMsg:
		switch {
		case msg.AuthError:
			return m.expireSession("Session expired. Sign in again.")
		case msg.Error != nil:
			m.setStatus(fmt.Sprintf("resync failed: %v", publicMessage(msg.Error)), true)
		default:
			m.clearStatus()
		}
		m.refresh()
		return m, tea.Batch(m.feed.SetNotifications(m.deps.Client.Notifications()), m.waitPoller())

	case appsync.SnapshotMsg:
		if msg.Error != nil {
			m.setStatus("could not save offline copy", true)
		}
		return m, m.waitPoller()

	case feedview.MarkReadMsg:
		_, err := m.deps.Client.MarkAsRead(msg.ID)
		return m.afterMutation("mark read", err)

	case feedview.RemoveMsg:
		err := m.deps.Client.RemoveNotification(msg.ID)
		return m.afterMutation("remove", err)

	case feedview.ClearMsg:
		err := m.deps.Client.ClearNotifications()
		return m.afterMutation("clear", err)

	case feedview.SortChangedMsg:
		m.deps.Config.Display.Sort = msg.Order
		return m, m.saveConfig()

	case configSavedMsg:
		if msg.err != nil {
			m.log.Warn(context.Background(), "saving config", msg.err)
		}
		return m, nil

	case loggedOutMsg:
		if msg.err != nil {
			m.log.Warn(context.Background(), "clearing session", msg.err)
		}
		return m.showLogin("", "")
	}

	if m.currentView == ViewLogin {
		return m.updateLogin(msg)
	}
	var cmd tea.Cmd
	m.feed, cmd = m.feed.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.currentView == ViewLogin {
		return m.updateLogin(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = ViewFeed
		} else {
			m.currentView = ViewHelp
		}
		return m, nil

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewHelp {
			m.currentView = ViewFeed
		}
		return m, nil
	}

	if m.currentView != ViewFeed {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Refresh):
		if m.poller != nil {
			m.setStatus("refreshing…", false)
			return m, m.poller.RefreshNow()
		}
		return m, nil

	case key.Matches(msg, m.keys.Reconnect):
		m.setStatus("reconnecting…", false)
		return m, m.connect()

	case key.Matches(msg, m.keys.Logout):
		receiverID := m.session.ReceiverID
		m.endSession()
		m.session = credential.Session{}
		m.refresh()
		m.feed.SetNotifications(nil)
		return m, m.logout(receiverID)
	}

	var cmd tea.Cmd
	m.feed, cmd = m.feed.Update(msg)
	return m, cmd
}

func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.loginView, cmd = m.loginView.Update(msg)
	return m, cmd
}

func (m Model) showLogin(receiverID, errMsg string) (tea.Model, tea.Cmd) {
	m.currentView = ViewLogin
	m.loginView = login.New(receiverID, errMsg, m.layout.Width, m.layout.ContentHeight())
	return m, m.loginView.Init()
}

// startSession restores the snapshot, then connects. The poller starts
// once Connect has recorded the receiver.
func (m Model) startSession(s credential.Session) (tea.Model, tea.Cmd) {
	m.session = s
	m.currentView = ViewFeed
	m.clearStatus()

	interval := time.Duration(m.deps.Config.Sync.PollIntervalSec) * time.Second
	m.poller = appsync.New(m.deps.Client, m.deps.Store, interval, m.log)

	p := m.poller
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n, err := p.RestoreSnapshot(ctx, s.ReceiverID)
		return restoredMsg{count: n, err: err}
	}
}

func (m Model) handleConnected(msg connectedMsg) (tea.Model, tea.Cmd) {
	if m.session.ReceiverID == "" {
		// Logged out while the handshake was in flight.
		m.deps.Client.Disconnect()
		return m, nil
	}
	m.state = m.deps.Client.State()

	if msg.err != nil {
		m.log.Warn(context.Background(), "connecting to notifications", msg.err)
		switch {
		case hasCode(msg.err, apperr.CodeUnauthorized):
			return m.expireSession("The access token was rejected.")
		case apperr.Is(msg.err, apperr.CodeInvalidArgument):
			return m.expireSession(publicMessage(msg.err))
		}
		m.setStatus("offline, retrying in background", true)
	} else {
		m.clearStatus()
	}

	if m.poller == nil {
		return m, nil
	}
	// Start is a no-op after the first call; a manual reconnect only
	// needs a resync.
	if cmd := m.poller.Start(); cmd != nil {
		return m, cmd
	}
	return m, m.poller.RefreshNow()
}

// expireSession drops back to the login form, keeping the receiver id.
func (m Model) expireSession(reason string) (tea.Model, tea.Cmd) {
	receiverID := m.session.ReceiverID
	m.endSession()
	return m.showLogin(receiverID, reason)
}

func (m Model) afterMutation(action string, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		m.log.Warn(context.Background(), action+" command not delivered", err)
		m.setStatus(fmt.Sprintf("%s saved locally, server not updated", action), true)
	} else {
		m.clearStatus()
	}
	if m.poller != nil {
		m.poller.Persist()
	}
	m.refresh()
	return m, m.feed.SetNotifications(m.deps.Client.Notifications())
}

// refresh pulls counters from the client.
func (m *Model) refresh() {
	m.unread = m.deps.Client.UnreadCount()
	m.state = m.deps.Client.State()
}

// shutdown stops background work and closes the socket.
func (m *Model) shutdown() {
	if m.poller != nil {
		m.poller.Stop()
		m.poller = nil
	}
	m.deps.Client.Disconnect()
	m.state = m.deps.Client.State()
}

// endSession shuts down and resets the client, so whoever signs in next
// starts from their own snapshot.
func (m *Model) endSession() {
	m.shutdown()
	m.deps.Client.Reset()
	m.refresh()
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

func (m *Model) clearStatus() {
	m.status = ""
	m.statusErr = false
}

func (m Model) waitPoller() tea.Cmd {
	if m.poller == nil {
		return nil
	}
	return m.poller.WaitForNextResult()
}

// hasCode reports whether any *apperr.Error in err's chain carries code.
// Connect wraps the dialer's error, so the outermost code is not enough.
func hasCode(err error, code apperr.Code) bool {
	for e := apperr.As(err); e != nil; e = apperr.As(e.Unwrap()) {
		if e.Code() == code {
			return true
		}
	}
	return false
}

func publicMessage(err error) string {
	if appErr := apperr.As(err); appErr != nil {
		if msg := appErr.Message(); msg != "" {
			return msg
		}
	}
	return err.Error()
}

// View renders header, active view and status bar.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "Reportwell"
	if m.session.ReceiverID != "" && m.currentView != ViewLogin {
		title += " · " + m.session.ReceiverID
	}
	header := m.layout.RenderHeader(title, ui.ConnectionSummary(m.state.String(), m.unread))
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.status, m.statusErr)
	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewFeed:
		return m.feed.View()
	default:
		return ""
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewLogin:
		return "enter next | esc cancel"
	case ViewHelp:
		return "? close help | esc back"
	default:
		return fmt.Sprintf("q quit | ? help | m read | d remove | r refresh | s sort (%s)", m.feed.Order())
	}
}
