// Пакет tool — JSON-RPC слой инструментов поверх доменных
// компонентов: генерация инвойсов, платёжные ссылки, почта и
// статус системы.
package tool

import "encoding/json"

// Коды ошибок JSON-RPC 2.0.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// protocolVersion — версия протокола, возвращаемая в initialize.
const protocolVersion = "2024-11-05"

// Request — входящий JSON-RPC запрос.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response — JSON-RPC ответ.
type Response struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      any        `json:"id"`
	Result  any        `json:"result,omitempty"`
	Error   *CallError `json:"error,omitempty"`
}

// CallError — ошибка уровня протокола.
type CallError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// InitializeResult — ответ на initialize.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

// ServerInfo — имя и версия сервера.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities — возможности сервера.
type Capabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability — маркер поддержки инструментов.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ListToolsResult — ответ на tools/list.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// Tool — описание инструмента.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

// CallToolParams — параметры tools/call.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// CallToolResult — результат вызова инструмента.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content — текстовый блок результата.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// textResult оборачивает текст в стандартный результат вызова.
func textResult(text string) CallToolResult {
	return CallToolResult{Content: []Content{{Type: "text", Text: text}}}
}

// errorResult оборачивает ошибку инструмента в результат вызова.
// Ошибка инструмента — это не ошибка протокола: ответ остаётся
// успешным JSON-RPC ответом с флагом isError.
func errorResult(text string) CallToolResult {
	return CallToolResult{
		Content: []Content{{Type: "text", Text: text}},
		IsError: true,
	}
}

// schema — краткая запись JSON Schema для входных параметров.
func schema(required []string, props map[string]any) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// prop — описание одного параметра.
func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}
