package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/akruglov/invoicemcp/internal/domain/model"
	"github.com/akruglov/invoicemcp/internal/invoice"
	"github.com/akruglov/invoicemcp/internal/mailer"
	"github.com/akruglov/invoicemcp/internal/payment"
	"github.com/akruglov/invoicemcp/internal/registry"
	"github.com/akruglov/invoicemcp/internal/validation"
)

// toolCallsTotal — количество вызовов инструментов.
var toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "inv_tool_calls_total",
	Help: "Общее количество вызовов инструментов",
}, []string{"tool", "status"})

// Server диспетчеризует JSON-RPC запросы к инструментам.
type Server struct {
	registry *registry.Registry
	invoices *invoice.Generator
	payments *payment.Processor
	mail     *mailer.Manager
	myNumber string
	version  string
	logger   *slog.Logger
}

// New создаёт диспетчер инструментов.
func New(
	reg *registry.Registry,
	gen *invoice.Generator,
	pay *payment.Processor,
	mail *mailer.Manager,
	myNumber, version string,
	logger *slog.Logger,
) *Server {
	return &Server{
		registry: reg,
		invoices: gen,
		payments: pay,
		mail:     mail,
		myNumber: myNumber,
		version:  version,
		logger:   logger.With(slog.String("component", "tool")),
	}
}

// HandleMessage обрабатывает один JSON-RPC запрос. Возвращает nil для
// уведомлений (ответ не требуется).
func (s *Server) HandleMessage(ctx context.Context, raw []byte) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return &Response{
			JSONRPC: "2.0",
			Error:   &CallError{Code: CodeParseError, Message: "Parse error"},
		}
	}

	switch req.Method {
	case "initialize":
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: InitializeResult{
				ProtocolVersion: protocolVersion,
				ServerInfo:      ServerInfo{Name: "invoicemcp", Version: s.version},
				Capabilities:    Capabilities{Tools: &ToolsCapability{}},
			},
		}
	case "tools/list":
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  ListToolsResult{Tools: definitions()},
		}
	case "tools/call":
		return s.handleCall(ctx, &req)
	case "notifications/initialized":
		return nil
	default:
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &CallError{Code: CodeMethodNotFound, Message: "Method not found"},
		}
	}
}

func (s *Server) handleCall(ctx context.Context, req *Request) *Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &CallError{Code: CodeInvalidParams, Message: "Invalid params"},
		}
	}

	s.logger.Info("Вызов инструмента", slog.String("tool", params.Name))

	result, err := s.dispatch(ctx, params.Name, params.Arguments)
	if err != nil {
		toolCallsTotal.WithLabelValues(params.Name, "error").Inc()
		s.logger.Error("Ошибка инструмента",
			slog.String("tool", params.Name),
			slog.String("error", err.Error()),
		)
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  errorResult(fmt.Sprintf("Error: %v", err)),
		}
	}

	toolCallsTotal.WithLabelValues(params.Name, "ok").Inc()
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) dispatch(ctx context.Context, name string, args map[string]any) (CallToolResult, error) {
	switch name {
	case "validate":
		return s.handleValidate()
	case "generate_invoice":
		return s.handleGenerateInvoice(args)
	case "get_invoice_examples":
		return textResult(invoiceExamples), nil
	case "system_status":
		return s.handleSystemStatus()
	case "create_payment_link":
		return s.handleCreatePaymentLink(args)
	case "check_payment_status":
		return s.handleCheckPaymentStatus(args)
	case "process_dummy_payment":
		return s.handleProcessDummyPayment(args)
	case "refund_payment":
		return s.handleRefundPayment(args)
	case "get_payment_analytics":
		return s.handlePaymentAnalytics(args)
	case "send_invoice_email":
		return s.handleSendInvoiceEmail(args)
	case "get_email_stats":
		return s.handleEmailStats(args)
	default:
		return CallToolResult{}, fmt.Errorf("unknown tool: %s", name)
	}
}

func (s *Server) handleValidate() (CallToolResult, error) {
	if s.myNumber == "" {
		return CallToolResult{}, fmt.Errorf("MY_NUMBER not configured")
	}
	return textResult(s.myNumber), nil
}

func (s *Server) handleGenerateInvoice(args map[string]any) (CallToolResult, error) {
	amount := getFloat(args, "amount")
	buyerName := getString(args, "buyer_name")
	companyName := getString(args, "company_name")
	date := getString(args, "date")

	if err := validation.InvoiceInput(amount, buyerName, companyName, date); err != nil {
		return CallToolResult{}, err
	}
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	start := time.Now()
	generationID := fmt.Sprintf("inv_%d", start.Unix())

	pdfData, err := s.invoices.Generate(invoice.Params{
		Amount:       amount,
		BuyerName:    buyerName,
		CompanyName:  companyName,
		Date:         date,
		GenerationID: generationID,
	})
	if err != nil {
		return CallToolResult{}, fmt.Errorf("invoice generation failed: %w", err)
	}

	created, err := s.registry.Create(registry.CreateParams{
		Data:         pdfData,
		Type:         model.ArtifactInvoicePDF,
		GenerationID: generationID,
		Display: model.DisplayMeta{
			BuyerName:     buyerName,
			CompanyName:   companyName,
			InvoiceNumber: invoice.InvoiceNumber(generationID),
			Amount:        amount,
			Date:          date,
		},
	})
	if err != nil {
		return CallToolResult{}, fmt.Errorf("invoice generation failed: %w", err)
	}

	elapsed := time.Since(start).Seconds()
	text := fmt.Sprintf(`**Invoice PDF Generated Successfully!**

**Invoice Details:**
- Company: %s
- Buyer: %s
- Amount: $%.2f
- Date: %s
- Generation ID: %s

**Download Your Invoice**: %s
**Link Expires**: 24 hours
**Generation Time**: %.1f seconds

Your professional invoice is ready for download!`,
		companyName, buyerName, amount, date, generationID, created.URL, elapsed)

	return textResult(text), nil
}

func (s *Server) handleSystemStatus() (CallToolResult, error) {
	stats, err := s.registry.GetStats()
	if err != nil {
		return CallToolResult{}, fmt.Errorf("status check failed: %w", err)
	}

	configured := func(ok bool) string {
		if ok {
			return "Configured"
		}
		return "Missing"
	}

	text := fmt.Sprintf(`**Invoice PDF Generator System Status**

**Configuration Status:**
- Phone Number: %s
- Version: %s

**Download Storage:**
- Total Records: %d
- Active Links: %d
- Stored Bytes: %d

**Service Status:**
- Invoice Generator: Running
- Payment Processor: Ready
- Email Manager: Ready
- Download Manager: Ready

**Usage:**
- Use generate_invoice to create professional invoice PDFs
- Use create_payment_link to accept payments
- Use send_invoice_email to deliver invoices
- Download links expire in 24 hours`,
		configured(s.myNumber != ""), s.version,
		stats.Count, stats.ActiveCount, stats.TotalBytes)

	return textResult(text), nil
}

func (s *Server) handleCreatePaymentLink(args map[string]any) (CallToolResult, error) {
	invoiceID := getString(args, "invoice_id")
	amount := getFloat(args, "amount")
	currency := getString(args, "currency")
	email := getString(args, "customer_email")

	var methods []string
	if raw, ok := args["payment_methods"].([]any); ok {
		for _, v := range raw {
			if str, ok := v.(string); ok {
				methods = append(methods, str)
			}
		}
	}

	link, err := s.payments.CreateLink(invoiceID, amount, currency, email, methods)
	if err != nil {
		return CallToolResult{}, err
	}
	return jsonResult(link)
}

func (s *Server) handleCheckPaymentStatus(args map[string]any) (CallToolResult, error) {
	tx, err := s.payments.Status(getString(args, "transaction_id"))
	if err != nil {
		return CallToolResult{}, err
	}
	return jsonResult(tx)
}

func (s *Server) handleProcessDummyPayment(args map[string]any) (CallToolResult, error) {
	simulateSuccess := true
	if v, ok := args["simulate_success"].(bool); ok {
		simulateSuccess = v
	}
	result, err := s.payments.ProcessDummy(
		getString(args, "transaction_id"),
		getString(args, "payment_method"),
		simulateSuccess,
	)
	if err != nil {
		return CallToolResult{}, err
	}
	return jsonResult(result)
}

func (s *Server) handleRefundPayment(args map[string]any) (CallToolResult, error) {
	result, err := s.payments.Refund(
		getString(args, "transaction_id"),
		getString(args, "reason"),
	)
	if err != nil {
		return CallToolResult{}, err
	}
	return jsonResult(result)
}

func (s *Server) handlePaymentAnalytics(args map[string]any) (CallToolResult, error) {
	return jsonResult(s.payments.GetAnalytics(getInt(args, "days")))
}

func (s *Server) handleSendInvoiceEmail(args map[string]any) (CallToolResult, error) {
	toEmail := getString(args, "to_email")
	data := mailer.InvoiceData{
		InvoiceID:     getString(args, "invoice_id"),
		BuyerName:     getString(args, "buyer_name"),
		CompanyName:   getString(args, "company_name"),
		InvoiceNumber: getString(args, "invoice_number"),
		Date:          getString(args, "date"),
		TotalAmount:   getFloat(args, "total_amount"),
		Currency:      getString(args, "currency"),
		DueDate:       getString(args, "due_date"),
		PaymentLink:   getString(args, "payment_link"),
	}
	result, err := s.mail.SendInvoice(toEmail, data, nil, getString(args, "template_id"))
	if err != nil {
		return CallToolResult{}, err
	}
	return jsonResult(result)
}

func (s *Server) handleEmailStats(args map[string]any) (CallToolResult, error) {
	return jsonResult(s.mail.GetStats(getInt(args, "days")))
}

// jsonResult сериализует значение в текстовый блок результата.
func jsonResult(v any) (CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return CallToolResult{}, fmt.Errorf("ошибка сериализации результата: %w", err)
	}
	return textResult(string(data)), nil
}

func getString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func getFloat(args map[string]any, key string) float64 {
	v, _ := args[key].(float64)
	return v
}

func getInt(args map[string]any, key string) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return 0
}
