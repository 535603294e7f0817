package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
)

// ReceiptData is what a purchase receipt shows.
type ReceiptData struct {
	To          string
	SessionID   string
	ProductName string
	Amount      string // already formatted, e.g. "$4.99"
	AccessURL   string // empty for tips and subscriptions
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<h2>Thanks for your purchase</h2>
<p>{{.Product}}: <strong>{{.Data.ProductName}}</strong></p>
<p>Amount paid: {{.Data.Amount}}</p>
{{- if .Data.AccessURL}}
<p><a href="{{.Data.AccessURL}}">Download your purchase</a></p>
{{- end}}
<p style="color:#777;font-size:12px">Reference {{.Data.SessionID}}. Questions? Reply to this email.</p>
</body></html>`))

// Receipts renders and sends purchase receipts.
type Receipts struct {
	sender  Sender
	product string
}

func NewReceipts(sender Sender, productName string) *Receipts {
	return &Receipts{sender: sender, product: productName}
}

func (r *Receipts) SendReceipt(ctx context.Context, data ReceiptData) error {
	if data.To == "" {
		return errors.Join(ErrInvalidMessage, errors.New("receipt has no recipient"))
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, struct {
		Product string
		Data    ReceiptData
	}{r.product, data}); err != nil {
		return fmt.Errorf("email: render receipt: %w", err)
	}

	return r.sender.SendEmail(ctx, Message{
		To:       data.To,
		Subject:  fmt.Sprintf("Your %s receipt", r.product),
		BodyHTML: buf.String(),
		Tag:      "receipt",
	})
}
