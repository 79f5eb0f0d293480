// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 openai 提供 OpenAI 官方 API 的 Provider 适配实现。

OpenAIProvider 嵌入 openaicompat.Provider，只额外设置 OpenAI-Organization
header。当配置中 llm.provider 为 "openai" 时由命令行入口选用。
*/
package openai
