package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

// cartView renders the shopping cart with a quantity stepper per line.
type cartView struct {
	cursor     int
	submitting bool
	errMsg     string
}

func newCartView() cartView {
	return cartView{}
}

func (a *App) updateCart(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}

	items := a.cart.Items()
	if a.cartV.cursor >= len(items) && len(items) > 0 {
		a.cartV.cursor = len(items) - 1
	}

	switch key.String() {
	case "up", "k":
		if a.cartV.cursor > 0 {
			a.cartV.cursor--
		}
	case "down", "j":
		if a.cartV.cursor < len(items)-1 {
			a.cartV.cursor++
		}
	case "+", "right":
		if a.cartV.cursor < len(items) {
			it := items[a.cartV.cursor]
			a.cart.SetQuantity(it.Product.ID, it.Quantity+1)
		}
	case "-", "left":
		if a.cartV.cursor < len(items) {
			it := items[a.cartV.cursor]
			a.cart.SetQuantity(it.Product.ID, it.Quantity-1)
		}
	case "x", "delete":
		if a.cartV.cursor < len(items) {
			a.cart.Remove(items[a.cartV.cursor].Product.ID)
		}
	case "C":
		a.cart.Clear()
		a.cartV.errMsg = ""
	case "enter":
		if a.cart.Empty() || a.cartV.submitting {
			return a, nil
		}
		a.cartV.errMsg = ""
		return a, tea.Batch(a.loading.Tick, a.checkout())
	}
	return a, nil
}

func (a *App) viewCart() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Shopping Cart"))
	b.WriteString("\n\n")

	if a.cartV.errMsg != "" {
		b.WriteString(errorStyle.Render(a.cartV.errMsg))
		b.WriteString("\n\n")
	}

	items := a.cart.Items()
	if len(items) == 0 {
		b.WriteString("Your cart is empty.\n\n")
		b.WriteString(hintStyle.Render("1 browse the catalog"))
		return b.String()
	}

	for i, it := range items {
		cursor := "  "
		if i == a.cartV.cursor {
			cursor = "> "
		}
		b.WriteString(fmt.Sprintf("%s%-28s $%8s  × %-3d  $%9s\n",
			cursor,
			truncate(it.Product.Name, 28),
			it.Product.Price.StringFixed(2),
			it.Quantity,
			it.Subtotal().StringFixed(2),
		))
	}

	b.WriteString("\n")
	b.WriteString(totalStyle.Render(fmt.Sprintf("Total: $%s", a.cart.Total().StringFixed(2))))
	b.WriteString("\n\n")

	if a.cartV.submitting {
		b.WriteString(a.loading.View() + " Processing...\n")
	} else {
		b.WriteString(hintStyle.Render("+/- quantity · x remove · C clear · enter checkout"))
	}
	return b.String()
}

// truncate shortens s to at most n runes, ending in an ellipsis. Slicing by
// runes keeps multi-byte names valid UTF-8.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "…"
}
