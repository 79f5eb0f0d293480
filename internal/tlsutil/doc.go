// Package tlsutil 提供集中式 TLS 配置，
// 供 LLM HTTP 客户端与 OTLP gRPC 导出器使用（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
