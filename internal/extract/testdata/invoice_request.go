package requests

import (
	"strings"

	"github.com/kolah/routedoc/internal/rules"
)

type InvoiceRequest struct {
	tenant string
}

func (r *InvoiceRequest) Rules() map[string]any {
	return map[string]any{
		"create": map[string]any{
			"amount":      "required|numeric",
			"email":       []any{"required", "email"},
			"customer_id": []any{"required", rules.Exists{Table: "customers", Column: "id"}},
		},
		"update": map[string]any{
			"amount": "sometimes|" + "numeric",
			"status": strings.Join([]string{"nullable", "in:draft,sent"}, "|"),
		},
	}
}

type ReminderRequest struct{}

func (ReminderRequest) BulkCreateRules() map[string]string {
	rules := map[string]string{
		"invoice_ids": "required|array",
	}
	return rules
}

func (ReminderRequest) Rules() map[string]any {
	return nil
}

type ReceiptRequest struct{}

var ReceiptRequestRules = map[string]map[string]string{
	"store": {"total": "required|integer"},
}
