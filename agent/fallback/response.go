package fallback

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/BaSui01/shopcrew/types"
)

// 兜底响应类型
const (
	TypeProductSearch = "product_search"
	TypeResearch      = "research"
	TypeGeneral       = "general"
)

// Response 是所有重试失败后返回给调用方的兜底响应
type Response struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

var responses = map[string]Response{
	TypeProductSearch: {
		Message: "We're experiencing technical difficulties. Please try again later.",
		Data: map[string]any{
			"suggestion": "In the meantime, you can browse our catalog at /products",
			"contact":    "For immediate assistance, contact support@example.com",
		},
	},
	TypeResearch: {
		Message: "Unable to fetch product reviews at this time.",
		Data: map[string]any{
			"suggestion": "Check trusted review sites like Consumer Reports or RunningShoeGuru",
			"note":       "Our team is working to restore this feature",
		},
	},
	TypeGeneral: {
		Message: "An unexpected error occurred. Our team has been notified.",
	},
}

// Types 返回已知的兜底类型（排序）
func Types() []string {
	return slices.Sorted(maps.Keys(responses))
}

// IsKnownType 判断兜底类型是否在表中
func IsKnownType(fallbackType string) bool {
	_, ok := responses[fallbackType]
	return ok
}

// GetFallbackResponse 按类型取兜底响应，未知类型按 general 处理。
// 每次返回独立副本；err 非空且条目带 Data 时写入 data.error_type。
func GetFallbackResponse(fallbackType string, err error) *Response {
	entry, ok := responses[fallbackType]
	if !ok {
		entry = responses[TypeGeneral]
	}

	resp := &Response{Success: false, Message: entry.Message}
	if entry.Data != nil {
		resp.Data = maps.Clone(entry.Data)
		if err != nil {
			resp.Data["error_type"] = ErrorKind(err)
		}
	}
	return resp
}

// ErrorKind 返回错误的种类名，用于 data.error_type 与日志
func ErrorKind(err error) string {
	return types.ErrorKind(err)
}

// FormatData 以稳定顺序渲染 Data，如 "contact: ..., suggestion: ..."
func FormatData(data map[string]any) string {
	keys := slices.Sorted(maps.Keys(data))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, data[k]))
	}
	return strings.Join(parts, ", ")
}
