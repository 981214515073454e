package mailer

import (
	"regexp"
	"strings"
	"time"
)

// Template — почтовый шаблон с плейсхолдерами вида {{имя}}.
type Template struct {
	TemplateID   string `json:"template_id"`
	Name         string `json:"name"`
	Subject      string `json:"subject"`
	HTMLBody     string `json:"html_body"`
	TextBody     string `json:"text_body"`
	TemplateType string `json:"template_type"`
	CreatedAt    string `json:"created_at"`
}

// Rendered — результат подстановки переменных в шаблон.
type Rendered struct {
	Subject  string
	HTMLBody string
	TextBody string
}

var tagRe = regexp.MustCompile(`<[^<]+?>`)

// htmlToText — грубое преобразование HTML в плоский текст: теги
// вырезаются, базовые сущности декодируются.
func htmlToText(html string) string {
	text := tagRe.ReplaceAllString(html, "")
	r := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
	)
	return strings.TrimSpace(r.Replace(text))
}

// Render подставляет переменные в тему, HTML и текстовую часть.
// Неизвестные плейсхолдеры остаются как есть.
func (t *Template) Render(vars map[string]string) Rendered {
	subject, html, text := t.Subject, t.HTMLBody, t.TextBody
	for name, value := range vars {
		placeholder := "{{" + name + "}}"
		subject = strings.ReplaceAll(subject, placeholder, value)
		html = strings.ReplaceAll(html, placeholder, value)
		text = strings.ReplaceAll(text, placeholder, value)
	}
	return Rendered{Subject: subject, HTMLBody: html, TextBody: text}
}

// defaultTemplates — встроенные шаблоны, создаются при первом старте.
func defaultTemplates() []*Template {
	now := time.Now().Format(time.RFC3339)

	invoiceHTML := `<html>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white; border-radius: 8px;">
    <div style="background-color: #2c3e50; color: white; padding: 20px;">
      <h1 style="margin: 0; font-size: 24px;">Invoice from {{company_name}}</h1>
    </div>
    <div style="padding: 30px;">
      <p>Dear {{customer_name}},</p>
      <p>Thank you for your business! Please find your invoice attached to this email.</p>
      <div style="background-color: #f8f9fa; border-radius: 6px; padding: 20px;">
        <h3 style="color: #2c3e50;">Invoice Details</h3>
        <p><strong>Invoice Number:</strong> {{invoice_number}}</p>
        <p><strong>Date:</strong> {{invoice_date}}</p>
        <p><strong>Amount:</strong> {{currency}}{{total_amount}}</p>
        <p><strong>Due Date:</strong> {{due_date}}</p>
      </div>
      <div style="text-align: center; margin: 30px 0;">
        <a href="{{payment_link}}" style="background-color: #27ae60; color: white; padding: 15px 30px; text-decoration: none; border-radius: 6px;">Pay Now</a>
      </div>
      <p>If you have any questions about this invoice, please don't hesitate to contact us.</p>
      <p style="font-size: 14px; color: #999;">Best regards,<br>{{company_name}}<br><em>This is an automated message. Please do not reply to this email.</em></p>
    </div>
  </div>
</body>
</html>`

	confirmationHTML := `<html>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white; border-radius: 8px;">
    <div style="background-color: #27ae60; color: white; padding: 20px;">
      <h1 style="margin: 0; font-size: 24px;">Payment Received</h1>
    </div>
    <div style="padding: 30px;">
      <p>Dear {{customer_name}},</p>
      <p>Thank you! We have successfully received your payment.</p>
      <div style="background-color: #f8f9fa; border-radius: 6px; padding: 20px;">
        <h3 style="color: #2c3e50;">Payment Details</h3>
        <p><strong>Invoice Number:</strong> {{invoice_number}}</p>
        <p><strong>Amount Paid:</strong> {{currency}}{{paid_amount}}</p>
        <p><strong>Payment Method:</strong> {{payment_method}}</p>
        <p><strong>Confirmation Code:</strong> {{confirmation_code}}</p>
        <p><strong>Payment Date:</strong> {{payment_date}}</p>
      </div>
      <p>Your invoice has been marked as paid. Thank you for your prompt payment!</p>
      <p style="font-size: 14px; color: #999;">Best regards,<br>{{company_name}}</p>
    </div>
  </div>
</body>
</html>`

	reminderHTML := `<html>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white; border-radius: 8px;">
    <div style="background-color: #f39c12; color: white; padding: 20px;">
      <h1 style="margin: 0; font-size: 24px;">Payment Reminder</h1>
    </div>
    <div style="padding: 30px;">
      <p>Dear {{customer_name}},</p>
      <p>This is a friendly reminder that your invoice payment is due.</p>
      <div style="background-color: #fef9e7; border-left: 4px solid #f39c12; padding: 20px;">
        <h3 style="color: #2c3e50;">Invoice Details</h3>
        <p><strong>Invoice Number:</strong> {{invoice_number}}</p>
        <p><strong>Amount Due:</strong> {{currency}}{{total_amount}}</p>
        <p><strong>Due Date:</strong> {{due_date}}</p>
        <p><strong>Days Overdue:</strong> {{days_overdue}}</p>
      </div>
      <div style="text-align: center; margin: 30px 0;">
        <a href="{{payment_link}}" style="background-color: #e74c3c; color: white; padding: 15px 30px; text-decoration: none; border-radius: 6px;">Pay Now</a>
      </div>
      <p>Please process this payment as soon as possible to avoid any late fees. If you have already paid, please disregard this reminder.</p>
      <p style="font-size: 14px; color: #999;">Best regards,<br>{{company_name}}</p>
    </div>
  </div>
</body>
</html>`

	templates := []*Template{
		{
			TemplateID:   "invoice_delivery",
			Name:         "Invoice Delivery",
			Subject:      "Invoice {{invoice_number}} from {{company_name}}",
			HTMLBody:     invoiceHTML,
			TemplateType: "invoice",
			CreatedAt:    now,
		},
		{
			TemplateID:   "payment_confirmation",
			Name:         "Payment Confirmation",
			Subject:      "Payment Received - Invoice {{invoice_number}}",
			HTMLBody:     confirmationHTML,
			TemplateType: "payment",
			CreatedAt:    now,
		},
		{
			TemplateID:   "payment_reminder",
			Name:         "Payment Reminder",
			Subject:      "Payment Reminder - Invoice {{invoice_number}} is Due",
			HTMLBody:     reminderHTML,
			TemplateType: "reminder",
			CreatedAt:    now,
		},
	}
	for _, t := range templates {
		t.TextBody = htmlToText(t.HTMLBody)
	}
	return templates
}
