package tui

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/shopfront/shopfront/internal/api"
	"github.com/shopfront/shopfront/internal/domain/product"
)

const (
	fieldName = iota
	fieldDescription
	fieldPrice
	fieldQuantity
	fieldCount
)

// adminView is the product management screen: a catalog list plus a
// create/edit form. Reachable only through the ADMIN guard.
type adminView struct {
	list    list.Model
	loading bool

	formOpen   bool
	editID     string // empty for create
	inputs     [fieldCount]textinput.Model
	focusIdx   int
	submitting bool
	formErr    string
	fieldErrs  map[string]string
}

func newAdminView() adminView {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Manage Products"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	v := adminView{list: l}
	labels := [fieldCount]string{"name", "description", "price", "quantity"}
	for i := range v.inputs {
		ti := textinput.New()
		ti.Placeholder = labels[i]
		ti.CharLimit = 255
		v.inputs[i] = ti
	}
	return v
}

func (v *adminView) setSize(width, height int) {
	v.list.SetSize(max(0, width-4), max(0, height-8))
}

func (v *adminView) setProducts(products []product.Product) {
	items := make([]list.Item, len(products))
	for i, p := range products {
		items[i] = productItem{product: p}
	}
	v.list.SetItems(items)
}

func (v *adminView) editing() bool { return v.formOpen }

func (v *adminView) openForm(p *product.Product) tea.Cmd {
	v.formOpen = true
	v.formErr = ""
	v.fieldErrs = nil
	v.focusIdx = fieldName
	for i := range v.inputs {
		v.inputs[i].SetValue("")
		v.inputs[i].Blur()
	}
	if p != nil {
		v.editID = p.ID
		v.inputs[fieldName].SetValue(p.Name)
		v.inputs[fieldDescription].SetValue(p.Description)
		v.inputs[fieldPrice].SetValue(p.Price.StringFixed(2))
		v.inputs[fieldQuantity].SetValue(strconv.Itoa(p.Quantity))
	} else {
		v.editID = ""
	}
	return v.inputs[fieldName].Focus()
}

func (v *adminView) closeForm() {
	v.formOpen = false
	v.editID = ""
	v.formErr = ""
	v.fieldErrs = nil
}

// applyError surfaces a save failure inline on the form, keeping any
// per-field validation messages next to their fields.
func (v *adminView) applyError(err error) {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.IsValidation() {
		v.fieldErrs = apiErr.Errors
		v.formErr = apiErr.Message
		return
	}
	v.formErr = api.MessageOf(err, "Failed to save product")
}

// buildRequest validates form input locally only as far as type conversion
// requires; everything else is the server's call.
func (v *adminView) buildRequest() (product.Request, bool) {
	v.fieldErrs = map[string]string{}

	name := strings.TrimSpace(v.inputs[fieldName].Value())
	if name == "" {
		v.fieldErrs["name"] = "required"
	}

	price, err := decimal.NewFromString(strings.TrimSpace(v.inputs[fieldPrice].Value()))
	if err != nil {
		v.fieldErrs["price"] = "must be a decimal number"
	}

	qty, err := strconv.Atoi(strings.TrimSpace(v.inputs[fieldQuantity].Value()))
	if err != nil {
		v.fieldErrs["quantity"] = "must be an integer"
	}

	if len(v.fieldErrs) > 0 {
		v.formErr = "Please fix the highlighted fields"
		return product.Request{}, false
	}

	v.formErr = ""
	v.fieldErrs = nil
	return product.Request{
		Name:        name,
		Description: strings.TrimSpace(v.inputs[fieldDescription].Value()),
		Price:       price,
		Quantity:    qty,
	}, true
}

func (a *App) updateAdmin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.admin.formOpen {
		return a.updateAdminForm(msg)
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "n":
			return a, a.admin.openForm(nil)
		case "e", "enter":
			if item, ok := a.admin.list.SelectedItem().(productItem); ok {
				p := item.product
				return a, a.admin.openForm(&p)
			}
		case "d":
			if item, ok := a.admin.list.SelectedItem().(productItem); ok {
				return a, a.deleteProduct(item.product.ID)
			}
		}
	}

	var cmd tea.Cmd
	a.admin.list, cmd = a.admin.list.Update(msg)
	return a, cmd
}

func (a *App) updateAdminForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			a.admin.closeForm()
			return a, nil

		case "tab", "down":
			return a, a.admin.cycleFocus(1)
		case "shift+tab", "up":
			return a, a.admin.cycleFocus(-1)

		case "enter":
			if a.admin.submitting {
				return a, nil
			}
			req, ok := a.admin.buildRequest()
			if !ok {
				return a, nil
			}
			a.admin.submitting = true
			return a, tea.Batch(a.loading.Tick, a.saveProduct(a.admin.editID, req))
		}
	}

	var cmds []tea.Cmd
	for i := range a.admin.inputs {
		var cmd tea.Cmd
		a.admin.inputs[i], cmd = a.admin.inputs[i].Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (v *adminView) cycleFocus(dir int) tea.Cmd {
	v.inputs[v.focusIdx].Blur()
	v.focusIdx = (v.focusIdx + dir + fieldCount) % fieldCount
	return v.inputs[v.focusIdx].Focus()
}

func (a *App) saveProduct(id string, req product.Request) tea.Cmd {
	svc := a.deps.Products
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		var (
			p   *product.Product
			err error
		)
		if id == "" {
			p, err = svc.Create(ctx, req)
		} else {
			p, err = svc.Update(ctx, id, req)
		}
		return productSavedMsg{product: p, err: err}
	}
}

func (a *App) deleteProduct(id string) tea.Cmd {
	svc := a.deps.Products
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return productDeletedMsg{id: id, err: svc.Delete(ctx, id)}
	}
}

func (a *App) viewAdmin() string {
	if a.admin.formOpen {
		return a.viewAdminForm()
	}
	if a.admin.loading {
		return a.loading.View() + " Loading products..."
	}
	return a.admin.list.View() + "\n" +
		hintStyle.Render("n new · e edit · d delete")
}

func (a *App) viewAdminForm() string {
	title := "New Product"
	if a.admin.editID != "" {
		title = "Edit Product"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	labels := [fieldCount]string{"Name", "Description", "Price", "Quantity"}
	fields := [fieldCount]string{"name", "description", "price", "quantity"}
	for i := range a.admin.inputs {
		b.WriteString("  " + labels[i] + "\n")
		b.WriteString("  " + a.admin.inputs[i].View())
		if msg, ok := a.admin.fieldErrs[fields[i]]; ok {
			b.WriteString("  " + errorStyle.Render(msg))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if a.admin.formErr != "" {
		b.WriteString("  " + errorStyle.Render(a.admin.formErr) + "\n\n")
	}
	if a.admin.submitting {
		b.WriteString("  " + a.loading.View() + " Saving...\n")
	} else {
		b.WriteString(hintStyle.Render("  tab next field · enter save · esc cancel"))
	}
	return b.String()
}
