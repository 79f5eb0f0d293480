// Package config 提供 shopcrew 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → .env → AZURE_OPENAI_* → SHOPCREW_* 的顺序
// 叠加，覆盖 LLM 提供商、团队执行、日志、遥测与指标五个部分。
package config
