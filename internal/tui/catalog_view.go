package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shopfront/shopfront/internal/domain/product"
)

// productItem adapts a product to the bubbles list.Item interface.
type productItem struct {
	product product.Product
}

func (i productItem) Title() string { return i.product.Name }

func (i productItem) Description() string {
	stock := fmt.Sprintf("%d in stock", i.product.Quantity)
	if !i.product.InStock() {
		stock = "out of stock"
	}
	return fmt.Sprintf("$%s · %s · %s", i.product.Price.StringFixed(2), stock, i.product.Description)
}

func (i productItem) FilterValue() string { return i.product.Name }

// catalogView renders the product list for shoppers.
type catalogView struct {
	list    list.Model
	loading bool
}

func newCatalogView() catalogView {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Products"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	return catalogView{list: l}
}

func (v *catalogView) setSize(width, height int) {
	v.list.SetSize(max(0, width-4), max(0, height-8))
}

func (v *catalogView) setProducts(products []product.Product) {
	items := make([]list.Item, len(products))
	for i, p := range products {
		items[i] = productItem{product: p}
	}
	v.list.SetItems(items)
}

func (v *catalogView) selected() (product.Product, bool) {
	item, ok := v.list.SelectedItem().(productItem)
	if !ok {
		return product.Product{}, false
	}
	return item.product, true
}

func (a *App) updateCatalog(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && !a.catalog.list.SettingFilter() {
		switch key.String() {
		case "enter", "a":
			p, ok := a.catalog.selected()
			if !ok {
				return a, nil
			}
			if !p.InStock() {
				a.errMsg = fmt.Sprintf("%s is out of stock", p.Name)
				a.lastLoad = nil
				return a, nil
			}
			a.cart.Add(p)
			a.notice = fmt.Sprintf("Added %s to cart", p.Name)
			return a, tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{} })
		}
	}

	var cmd tea.Cmd
	a.catalog.list, cmd = a.catalog.list.Update(msg)
	return a, cmd
}

func (a *App) viewCatalog() string {
	if a.catalog.loading {
		return a.loading.View() + " Loading products..."
	}
	return a.catalog.list.View() + "\n" +
		hintStyle.Render("enter add to cart · / filter · 2 cart")
}
