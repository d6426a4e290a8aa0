package invoice

import (
	"bytes"
	"html/template"
	"strconv"

	"github.com/rl1809/pos-ledger/internal/core/domain"
)

const invoiceHTML = `<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Order.Number}}</title>
<style>body{font-family:Arial;margin:32px}table{width:100%;border-collapse:collapse}td,th{border:1px solid #ddd;padding:8px}th{background:#f5f5f5;text-align:left}</style>
</head><body>
<h2>{{.Shop}} - Receipt {{.Order.Number}}</h2>
<p><b>Date:</b> {{.Order.At.Format "02 Jan 2006 15:04"}}</p>
<table><thead><tr><th>SKU</th><th>Product</th><th>Qty</th><th>Price</th><th>Subtotal</th></tr></thead>
<tbody>{{range .Order.Items}}<tr><td>{{.SKU}}</td><td>{{.Name}}</td><td>{{.Qty}}</td><td>{{money .Price}}</td><td>{{money .Subtotal}}</td></tr>{{end}}</tbody>
<tfoot><tr><th colspan="4" style="text-align:right">Total</th><th>{{money .Order.Total}}</th></tr></tfoot>
</table>
<script>window.print()</script>
</body></html>`

var tmpl = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
}).Parse(invoiceHTML))

// Renderer produces the printable HTML receipt for a completed order. Pure
// presentation, no business logic.
type Renderer struct {
	shop string
}

func NewRenderer(shop string) *Renderer {
	if shop == "" {
		shop = "Supermarket"
	}
	return &Renderer{shop: shop}
}

func (r *Renderer) Render(o *domain.Order) ([]byte, error) {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		Shop  string
		Order *domain.Order
	}{r.shop, o})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
