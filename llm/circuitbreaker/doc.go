// Package circuitbreaker 为 LLM Provider 提供按连续失败次数熔断的保护。
//
// 熔断打开后 Completion 立即返回 LLM_PROVIDER_UNAVAILABLE，
// 不再访问上游，直到 ResetTimeout 过后放行半开试探请求。
// 客户端错误（参数、鉴权、配额、内容安全）与调用方取消不计入失败。
package circuitbreaker
