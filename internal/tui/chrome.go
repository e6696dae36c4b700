package tui

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/shopfront/shopfront/internal/api"
	"github.com/shopfront/shopfront/internal/auth"
)

// chrome wraps a screen body with the header tabs and the notice/error bar.
func (a *App) chrome(body string) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("⬡ SHOPFRONT"))
	b.WriteString("\n")

	if a.deps.Session.Authenticated() {
		b.WriteString(a.renderTabs())
		b.WriteString("\n\n")
	} else {
		b.WriteString("\n")
	}

	if a.notice != "" {
		b.WriteString(noticeStyle.Render(a.notice))
		b.WriteString("\n\n")
	}
	if a.errMsg != "" && a.state != stateLogin {
		b.WriteString(errorStyle.Render(a.errMsg))
		if a.lastLoad != nil {
			b.WriteString(hintStyle.Render("  (r to retry)"))
		}
		b.WriteString("\n\n")
	}

	b.WriteString(body)
	return b.String()
}

func (a *App) renderTabs() string {
	type tab struct {
		key   string
		label string
		state appState
	}
	tabs := []tab{
		{"1", "Catalog", stateCatalog},
		{"2", fmt.Sprintf("Cart (%d)", a.cart.Len()), stateCart},
		{"3", "Orders", stateOrders},
		{"4", "Profile", stateProfile},
	}
	if a.deps.Session.HasRealmRole(auth.RoleAdmin) {
		tabs = append(tabs, tab{"5", "Admin", stateAdmin})
	}

	parts := make([]string, len(tabs))
	for i, t := range tabs {
		label := fmt.Sprintf("[%s] %s", t.key, t.label)
		if a.state == t.state {
			parts[i] = activeTabStyle.Render(label)
		} else {
			parts[i] = tabStyle.Render(label)
		}
	}
	return strings.Join(parts, "  ") + "  " + hintStyle.Render("ctrl+l logout · q quit")
}

func (a *App) viewProfile() string {
	id := a.deps.Session.Identity()
	if id == nil {
		return "No identity available."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("User Profile"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Username  %s\n", id.Username))
	b.WriteString(fmt.Sprintf("  Name      %s\n", id.Name))
	b.WriteString(fmt.Sprintf("  Email     %s\n", id.Email))
	b.WriteString(fmt.Sprintf("  Roles     %s\n", strings.Join(id.Roles, ", ")))
	return b.String()
}

// errorText favors the server-provided message, exposing validation details
// when present.
func errorText(err error, fallback string) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.IsValidation() {
		parts := make([]string, 0, len(apiErr.Errors))
		for field, msg := range apiErr.Errors {
			parts = append(parts, field+": "+msg)
		}
		return apiErr.Message + " (" + strings.Join(parts, "; ") + ")"
	}
	return api.MessageOf(err, fallback)
}

func loginErrorText(err error) string {
	var provErr *auth.ProviderError
	if errors.As(err, &provErr) && provErr.Description != "" {
		return provErr.Description
	}
	return "Login failed. Check your credentials and try again."
}
