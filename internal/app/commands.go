package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/reportwell/notifyfeed/internal/credential"
	"github.com/reportwell/notifyfeed/internal/model"
)

// connectTimeout bounds the opening handshake started from the UI.
const connectTimeout = 15 * time.Second

type sessionLoadedMsg struct {
	session credential.Session
	err     error
}

type restoredMsg struct {
	count int
	err   error
}

type connectedMsg struct {
	err error
}

type configSavedMsg struct {
	err error
}

type loggedOutMsg struct {
	err error
}

func (m Model) loadSession() tea.Cmd {
	sessions := m.deps.Sessions
	return func() tea.Msg {
		s, err := sessions.LoadSession()
		return sessionLoadedMsg{session: s, err: err}
	}
}

func (m Model) connect() tea.Cmd {
	client := m.deps.Client
	s := m.session
	log := m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		ctx = log.WithReceiverID(ctx, s.ReceiverID)
		return connectedMsg{err: client.Connect(ctx, s.ReceiverID, s.AccessToken)}
	}
}

// logout forgets the stored token and the offline copy for receiverID.
func (m Model) logout(receiverID string) tea.Cmd {
	sessions := m.deps.Sessions
	st := m.deps.Store
	return func() tea.Msg {
		err := sessions.ClearSession()
		if st != nil && receiverID != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = errors.Join(err, st.DeleteSnapshot(ctx, receiverID))
		}
		return loggedOutMsg{err: err}
	}
}

func (m Model) saveConfig() tea.Cmd {
	path := m.deps.ConfigPath
	if path == "" {
		return nil
	}
	cfg := *m.deps.Config
	return func() tea.Msg {
		return configSavedMsg{err: model.SaveConfig(path, &cfg)}
	}
}
