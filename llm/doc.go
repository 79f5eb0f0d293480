// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供统一的大语言模型接入层，包括 Provider 抽象、错误语义
以及可观测包装。

# 概述

本包屏蔽模型服务商在接口、鉴权与错误语义上的差异，对上层 agent
暴露一致的请求与响应模型。具体的 HTTP 适配位于 llm/providers 子包，
重试器位于 llm/retry，Token 估算位于 llm/tokenizer。

# 核心接口

  - [Provider]：LLM 提供者接口，提供 Completion / HealthCheck / Name
  - [Recorder]：调用指标记录接口，由 internal/metrics 实现

# 核心类型

  - [ChatRequest] / [ChatResponse]：请求与响应模型
  - [Error]：带错误码与可重试标记的统一错误，Kind() 返回错误码
  - [InstrumentedProvider]：为任意 Provider 添加 OTel span 与指标记录
*/
package llm
