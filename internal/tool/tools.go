package tool

// definitions возвращает описания всех инструментов для tools/list.
func definitions() []Tool {
	return []Tool{
		{
			Name:        "validate",
			Description: "Return the configured phone number for assistant validation",
			InputSchema: schema(nil, map[string]any{}),
		},
		{
			Name:        "generate_invoice",
			Description: "Generate a professional invoice PDF",
			InputSchema: schema(
				[]string{"amount", "buyer_name", "company_name"},
				map[string]any{
					"amount":       prop("number", "Invoice amount in decimal format (e.g., 1250.00)"),
					"buyer_name":   prop("string", "Name of the buyer/client"),
					"company_name": prop("string", "Company name issuing the invoice"),
					"date":         prop("string", "Invoice date in YYYY-MM-DD format"),
				},
			),
		},
		{
			Name:        "get_invoice_examples",
			Description: "Get examples of invoice formats",
			InputSchema: schema(nil, map[string]any{}),
		},
		{
			Name:        "system_status",
			Description: "Check the status of the invoice PDF generator system",
			InputSchema: schema(nil, map[string]any{}),
		},
		{
			Name:        "create_payment_link",
			Description: "Create a payment link for an invoice",
			InputSchema: schema(
				[]string{"invoice_id", "amount"},
				map[string]any{
					"invoice_id":     prop("string", "Invoice identifier"),
					"amount":         prop("number", "Payment amount"),
					"currency":       prop("string", "Currency symbol"),
					"customer_email": prop("string", "Customer email address"),
					"payment_methods": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Allowed payment method ids",
					},
				},
			),
		},
		{
			Name:        "check_payment_status",
			Description: "Check the status of a payment transaction",
			InputSchema: schema(
				[]string{"transaction_id"},
				map[string]any{
					"transaction_id": prop("string", "Transaction identifier"),
				},
			),
		},
		{
			Name:        "process_dummy_payment",
			Description: "Process a demo payment for a pending transaction",
			InputSchema: schema(
				[]string{"transaction_id"},
				map[string]any{
					"transaction_id":   prop("string", "Transaction identifier"),
					"payment_method":   prop("string", "Payment method id"),
					"simulate_success": prop("boolean", "Simulate a successful payment (default true)"),
				},
			),
		},
		{
			Name:        "refund_payment",
			Description: "Refund a completed payment",
			InputSchema: schema(
				[]string{"transaction_id"},
				map[string]any{
					"transaction_id": prop("string", "Transaction identifier"),
					"reason":         prop("string", "Refund reason"),
				},
			),
		},
		{
			Name:        "get_payment_analytics",
			Description: "Get payment analytics for the given period",
			InputSchema: schema(nil, map[string]any{
				"days": prop("number", "Analytics window in days (default 30)"),
			}),
		},
		{
			Name:        "send_invoice_email",
			Description: "Send an invoice email to a customer",
			InputSchema: schema(
				[]string{"to_email"},
				map[string]any{
					"to_email":       prop("string", "Recipient email address"),
					"invoice_id":     prop("string", "Invoice identifier"),
					"buyer_name":     prop("string", "Customer name"),
					"company_name":   prop("string", "Company name"),
					"invoice_number": prop("string", "Invoice number"),
					"date":           prop("string", "Invoice date"),
					"total_amount":   prop("number", "Invoice total"),
					"currency":       prop("string", "Currency symbol"),
					"due_date":       prop("string", "Payment due date"),
					"payment_link":   prop("string", "Payment link URL"),
					"template_id":    prop("string", "Email template id"),
				},
			),
		},
		{
			Name:        "get_email_stats",
			Description: "Get email sending statistics",
			InputSchema: schema(nil, map[string]any{
				"days": prop("number", "Statistics window in days (default 30)"),
			}),
		},
	}
}

// invoiceExamples — статическая справка по форматам инвойсов.
const invoiceExamples = `**Invoice Generation Examples**

**Basic Invoice:**
- Amount: 1500.00
- Buyer Name: "John Smith"
- Company Name: "Acme Solutions Inc"
- Date: "2024-01-15"

**Service Invoice:**
- Amount: 2750.50
- Buyer Name: "Sarah Johnson"
- Company Name: "TechCorp Ltd"
- Date: "2024-02-01"

**Product Invoice:**
- Amount: 850.25
- Buyer Name: "Mike Davis"
- Company Name: "Digital Services LLC"
- Date: "2024-01-30"

**Professional Features:**
- Automatic invoice numbering
- Professional PDF formatting
- Company branding elements
- Tax calculations (where applicable)
- Terms and conditions
- Payment instructions
- Due date calculations

**Supported Formats:**
- Date: YYYY-MM-DD (e.g., 2024-01-15)
- Amount: Decimal format (e.g., 1250.00)
- Names: Full names or company names

**Usage Tips:**
- Use current date if no date specified
- Amount must be greater than 0
- All fields are required except date
- Generated PDFs are professionally formatted
- Download links expire in 24 hours

**Ready to generate your professional invoice!**`
