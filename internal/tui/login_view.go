package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// loginView is the credential form for the direct-access login grant.
type loginView struct {
	username   textinput.Model
	password   textinput.Model
	focusIdx   int
	submitting bool
	errMsg     string
}

func newLoginView() loginView {
	user := textinput.New()
	user.Placeholder = "username"
	user.CharLimit = 64

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.CharLimit = 128
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	return loginView{username: user, password: pass}
}

func (v *loginView) focus() tea.Cmd {
	v.focusIdx = 0
	v.password.Blur()
	return v.username.Focus()
}

func (v *loginView) reset() {
	v.username.SetValue("")
	v.password.SetValue("")
	v.errMsg = ""
	v.submitting = false
}

func (a *App) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "shift+tab", "up", "down":
			a.login.focusIdx = (a.login.focusIdx + 1) % 2
			if a.login.focusIdx == 0 {
				a.login.password.Blur()
				return a, a.login.username.Focus()
			}
			a.login.username.Blur()
			return a, a.login.password.Focus()

		case "enter":
			if a.login.submitting {
				return a, nil
			}
			username := strings.TrimSpace(a.login.username.Value())
			password := a.login.password.Value()
			if username == "" || password == "" {
				a.login.errMsg = "Username and password are required."
				return a, nil
			}
			a.login.submitting = true
			a.login.errMsg = ""
			sess := a.deps.Session
			return a, tea.Batch(a.loading.Tick, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
				defer cancel()
				return loginResultMsg{err: sess.Login(ctx, username, password)}
			})
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.login.username, cmd = a.login.username.Update(msg)
	cmds = append(cmds, cmd)
	a.login.password, cmd = a.login.password.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (v *loginView) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sign In"))
	b.WriteString("\n\n")
	b.WriteString("  " + v.username.View() + "\n")
	b.WriteString("  " + v.password.View() + "\n\n")

	if v.errMsg != "" {
		b.WriteString("  " + errorStyle.Render(v.errMsg) + "\n\n")
	}
	if v.submitting {
		b.WriteString("  Signing in...\n\n")
	}
	b.WriteString(hintStyle.Render("  tab switch field · enter sign in · ctrl+c quit"))
	return b.String()
}
