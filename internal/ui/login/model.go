// Package login asks for the receiver id and access token when no
// session is stored.
package login

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/reportwell/notifyfeed/internal/credential"
	"github.com/reportwell/notifyfeed/internal/theme"
)

// SubmittedMsg carries the entered session.
type SubmittedMsg struct {
	Session credential.Session
}

// CancelledMsg is sent when the form is aborted.
type CancelledMsg struct{}

// values lives on the heap so the form's field pointers survive
// copies of Model.
type values struct {
	receiverID string
	token      string
}

// Model wraps the login form.
type Model struct {
	form   *huh.Form
	vals   *values
	errMsg string
	width  int
	height int
}

// New builds the form, prefilled with receiverID when known.
func New(receiverID, errMsg string, width, height int) Model {
	m := Model{
		vals:   &values{receiverID: receiverID},
		errMsg: errMsg,
		width:  width,
		height: height,
	}
	m.form = m.buildForm()
	return m
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Receiver ID").
				Description("Your Reportwell user id").
				Value(&m.vals.receiverID).
				Validate(validateRequired("Receiver ID")),
			huh.NewInput().
				Title("Access Token").
				Description("Bearer token used for the API and the notification socket").
				EchoMode(huh.EchoModePassword).
				Value(&m.vals.token).
				Validate(validateRequired("Access token")),
		),
	).WithWidth(max(m.width-8, 20))
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update forwards messages to the form and reports completion.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		s := credential.Session{
			ReceiverID:  strings.TrimSpace(m.vals.receiverID),
			AccessToken: strings.TrimSpace(m.vals.token),
		}
		return m, func() tea.Msg { return SubmittedMsg{Session: s} }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelledMsg{} }
	}
	return m, cmd
}

// View renders the form in a panel.
func (m Model) View() string {
	title := theme.HeaderStyle.Render("Sign in to Reportwell notifications")
	parts := []string{title, ""}
	if m.errMsg != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.errMsg), "")
	}
	parts = append(parts, m.form.View())

	return theme.PanelStyle.
		Width(max(m.width-4, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.form = m.form.WithWidth(max(width-8, 20))
}
