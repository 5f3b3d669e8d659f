package crmsdk

import (
	"context"
	"net/url"
)

// InvoiceService wraps the invoice endpoints of the CRM backend.
type InvoiceService struct {
	crm *Client
}

// NewInvoiceService creates an InvoiceService over the primary CRM client.
func NewInvoiceService(crm *Client) *InvoiceService {
	return &InvoiceService{crm: crm}
}

// listEnvelope is the {data: ...} wrapper on listing endpoints.
type listEnvelope struct {
	Data InvoicePage `json:"data"`
}

func (s *InvoiceService) list(ctx context.Context, path string, query url.Values) (*InvoicePage, error) {
	var envelope listEnvelope
	opts := []RequestOption{}
	if len(query) > 0 {
		opts = append(opts, WithQuery(query))
	}
	if err := s.crm.Get(ctx, path, &envelope, opts...); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// ListWaitingConfirm returns invoices awaiting customer confirmation.
func (s *InvoiceService) ListWaitingConfirm(ctx context.Context, query url.Values) (*InvoicePage, error) {
	return s.list(ctx, "/invoices/waiting-confirm", query)
}

// ListRevision returns invoices sent back for revision.
func (s *InvoiceService) ListRevision(ctx context.Context, query url.Values) (*InvoicePage, error) {
	return s.list(ctx, "/invoices/revision", query)
}

// ListOutstandingPayments returns confirmed invoices not yet paid off.
func (s *InvoiceService) ListOutstandingPayments(ctx context.Context, query url.Values) (*InvoicePage, error) {
	return s.list(ctx, "/invoices/outstanding-payments", query)
}

// ListPaidOff returns fully settled invoices.
func (s *InvoiceService) ListPaidOff(ctx context.Context, query url.Values) (*InvoicePage, error) {
	return s.list(ctx, "/invoices/paid-off", query)
}

// Get fetches a single invoice.
func (s *InvoiceService) Get(ctx context.Context, invoiceID string) (*Invoice, error) {
	if invoiceID == "" {
		return nil, &ValidationError{Field: "invoiceId", Message: "invoice id is required"}
	}

	var invoice Invoice
	if err := s.crm.Get(ctx, "/invoices/"+invoiceID, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Confirm accepts an invoice. The backend wants the id both in the path and
// in the invoice-id header, and a body of {"note": null}.
func (s *InvoiceService) Confirm(ctx context.Context, invoiceID string) error {
	if invoiceID == "" {
		return &ValidationError{Field: "invoiceId", Message: "invoice id is required"}
	}

	return s.crm.Post(ctx,
		"/invoices/"+invoiceID+"/accept-action",
		invoiceActionRequest{Note: nil},
		nil,
		WithHeader("invoice-id", invoiceID),
	)
}

// Revise sends an invoice back with a revision note.
func (s *InvoiceService) Revise(ctx context.Context, invoiceID, note string) error {
	if invoiceID == "" {
		return &ValidationError{Field: "invoiceId", Message: "invoice id is required"}
	}
	if note == "" {
		note = "Revision requested"
	}

	return s.crm.Post(ctx,
		"/invoices/"+invoiceID+"/revise-action",
		invoiceActionRequest{Note: &note},
		nil,
		WithHeader("invoice-id", invoiceID),
	)
}
