// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 azure 提供 Azure OpenAI 的 Provider 适配实现，基于 openaicompat
基础设施接入部署级 Chat Completions 端点。

# 概述

与 OpenAI 官方 API 的差异只有三处，均通过 openaicompat.Config 表达：

  - 端点按部署路由：{endpoint}/openai/deployments/{deployment}/chat/completions
  - 每个请求携带 api-version 查询参数（默认 DefaultAPIVersion）
  - 认证使用 api-key header，而不是 Authorization: Bearer

# 核心类型

  - AzureProvider — 嵌入 openaicompat.Provider，继承 Completion 与 HealthCheck。
*/
package azure
