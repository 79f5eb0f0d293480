// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 agent 提供由 LLM 驱动的团队成员实现。

Agent 持有角色设定（crews.Role）与 llm.Provider，实现 crews.CrewAgent：
Execute 将角色渲染为系统提示词、将任务描述/期望输出/上下文/guardrail
反馈渲染为用户提示词后调用 Completion；Negotiate 在允许委派或任务
明确指派给自己时接受 delegate 提案。

提示词 token 数通过 llm/tokenizer 估算并记录日志，执行过程包裹在
OpenTelemetry span "agent.execute" 中。

子包：

  - crews：团队执行器（顺序/层级）
  - guardrails：任务输出校验
  - fallback：重试与兜底响应
*/
package agent
