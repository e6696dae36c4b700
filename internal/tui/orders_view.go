package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shopfront/shopfront/internal/auth"
	"github.com/shopfront/shopfront/internal/domain/order"
)

// ordersView renders order history: the user's own orders, or every order
// when an admin toggles the all-orders mode.
type ordersView struct {
	table   table.Model
	orders  []order.Order
	showAll bool
	loading bool
}

func newOrdersView() ordersView {
	t := table.New(
		table.WithColumns(orderColumns(false)),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	return ordersView{table: t}
}

func orderColumns(all bool) []table.Column {
	cols := []table.Column{
		{Title: "Order", Width: 10},
		{Title: "Date", Width: 16},
		{Title: "Status", Width: 10},
		{Title: "Items", Width: 6},
		{Title: "Total", Width: 12},
	}
	if all {
		cols = append(cols, table.Column{Title: "User", Width: 12})
	}
	return cols
}

func (v *ordersView) setSize(width, height int) {
	v.table.SetHeight(max(4, height-10))
}

func (v *ordersView) setOrders(orders []order.Order, all bool) {
	v.orders = orders
	v.showAll = all
	v.table.SetColumns(orderColumns(all))

	rows := make([]table.Row, len(orders))
	for i, o := range orders {
		row := table.Row{
			shortID(o.ID),
			o.OrderDate.Format("2006-01-02 15:04"),
			string(o.Status),
			fmt.Sprintf("%d", len(o.Items)),
			"$" + o.TotalAmount.StringFixed(2),
		}
		if all {
			row = append(row, shortID(o.UserID))
		}
		rows[i] = row
	}
	v.table.SetRows(rows)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (a *App) updateOrders(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		if key.String() == "tab" && a.deps.Session.HasRealmRole(auth.RoleAdmin) {
			return a, a.loadOrders(!a.orders.showAll)
		}
	}
	var cmd tea.Cmd
	a.orders.table, cmd = a.orders.table.Update(msg)
	return a, cmd
}

func (a *App) viewOrders() string {
	if a.orders.loading {
		return a.loading.View() + " Loading orders..."
	}

	title := "My Orders"
	if a.orders.showAll {
		title = "All Orders"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	if len(a.orders.orders) == 0 {
		b.WriteString("No orders yet.\n")
	} else {
		b.WriteString(a.orders.table.View())
		b.WriteString("\n")
		b.WriteString(a.renderSelectedOrder())
	}

	b.WriteString("\n")
	hint := "↑/↓ select"
	if a.deps.Session.HasRealmRole(auth.RoleAdmin) {
		hint += " · tab toggle all orders"
	}
	b.WriteString(hintStyle.Render(hint))
	return b.String()
}

// renderSelectedOrder shows the line items of the highlighted order.
func (a *App) renderSelectedOrder() string {
	idx := a.orders.table.Cursor()
	if idx < 0 || idx >= len(a.orders.orders) {
		return ""
	}
	o := a.orders.orders[idx]

	badge := badgePendingStyle
	if o.Status == order.StatusValidated {
		badge = badgeValidatedStyle
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("\nOrder %s · %s\n", shortID(o.ID), badge.Render(string(o.Status))))
	for _, it := range o.Items {
		b.WriteString(fmt.Sprintf("  %s × %d @ $%s\n",
			shortID(it.ProductID), it.Quantity, it.Price.StringFixed(2)))
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
