// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 guardrails 为 crew 提供输入与输出校验能力。

# 概述

输出侧的任务护栏（TaskGuardrail）运行在 Agent 的文本输出上，未通过时
返回反馈，由 crews 把反馈附加到提示中重试该任务；重试耗尽后任务以
GuardrailError 失败，交给 fallback 层处理。输入侧在 kickoff 之前检查
用户查询的长度与提示注入。

# 核心接口

  - [Validator]：单项规则校验器接口，提供 Validate / Name / Priority
  - [TaskGuardrail]：任务输出护栏函数，返回 [GuardrailResult]

# 核心模型

  - [ValidatorChain]：多校验器编排器，统一执行顺序与结果汇总，支持
    [ChainModeFailFast]、[ChainModeCollectAll]、[ChainModeParallel]
  - [ValidationResult] / [ValidationError]：结构化校验结果
  - [TripwireError]：Tripwire 触发，应立即中断执行且不再重试

# 内置校验器

  - [LengthValidator]：最小/最大字符数
  - [PhraseValidator]：命中指定短语即失败
  - [InjectionDetector]：常见 Prompt Injection 模式，支持中英文

# 购物场景护栏

  - [ValidateProductResponse]：拒绝 "i don't know" 等无效回答以及少于 50 字符的回答
  - [ValidateResearchResponse]：拒绝少于 100 字符的调研结论
  - [NewQueryValidator]：用户查询的输入侧检查
*/
package guardrails
