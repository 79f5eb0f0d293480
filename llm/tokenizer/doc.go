// Package tokenizer 提供统一的 Token 计数接口，
// 支持 tiktoken 精确计数与 CJK 感知的估算器，ForModel 在编码表
// 不可用时自动退化为估算器。用于记录每次 LLM 请求的 prompt 规模。
package tokenizer
