// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 shopcrew 的全局共享错误类型。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent、crews、fallback、
llm 等上层模块提供统一的错误契约，以避免循环依赖。

# 核心类型

  - Error      — 带错误码、HTTP 状态、可重试标记与 Cause 的结构化错误
  - ErrorCode  — 统一错误码（LLM 类与 Crew 类）
  - Kinder     — 可自报错误种类名的错误接口

# 主要能力

  - NewError / WithCause / WithRetryable 链式构造
  - IsRetryable / GetErrorCode 支持 errors.As 穿透包装
  - ErrorKind 计算错误种类名，供降级响应填充 error_type
*/
package types
