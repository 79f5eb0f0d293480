// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 提供跨模型服务商的通用适配与辅助能力，是具体 Provider
实现（openaicompat、azure）的公共基础层，负责请求/响应转换、错误映射
以及重试、限流等包装。

# 核心类型

  - BaseProviderConfig — 所有 Provider 共享的基础配置（APIKey、BaseURL、Model、Timeout）
  - AzureOpenAIConfig — Azure OpenAI 资源端点、部署名与 API 版本
  - OpenAICompat* 系列 — OpenAI 兼容 API 的通用请求/响应结构体
  - RetryableProvider — 基于 llm/retry 的指数退避重试包装器
  - RateLimitedProvider — 基于 golang.org/x/time/rate 的令牌桶限流包装器

# 核心函数

  - MapHTTPError — 将 HTTP 状态码映射为语义化的 llm.Error（含 Retryable 标记）
  - ReadErrorMessage — 解析 OpenAI 风格的错误体
  - ConvertMessagesToOpenAI / ToLLMChatResponse — 消息与响应格式转换
  - ChooseModel — 按优先级选择模型（请求 > 默认 > 兜底）
  - BearerTokenHeaders / APIKeyHeaders — 认证 header 构建
*/
package providers
