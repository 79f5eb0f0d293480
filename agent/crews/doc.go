// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 crews 提供基于角色分工的多智能体团队执行器。

# 概述

Crew 把若干成员（CrewAgent + Role）与一组有序任务模板组织在一起，
Kickoff 时按声明顺序执行任务，不做任何规划。

# 核心模型

  - Role：成员的角色名称、目标、背景与委派权限。
  - Task：任务模板，Description/ExpectedOutput 支持 {name} 占位符，
    可挂载 guardrails.TaskGuardrail 并声明上下文任务。
  - CrewTask / TaskResult：交给成员的一次调用及其结果。
  - Proposal / NegotiationResult：层级模式下管理者发起的委派协商。
  - CrewOutput / TaskOutput：一次 Kickoff 的整体与逐任务输出。

# 执行方式

  - 顺序执行（Sequential）：任务交给指定成员，未指定时交给第一个成员。
  - 层级执行（Hierarchical）：管理者向指定成员发起 delegate 提案，
    被拒绝或协商失败时由管理者自己执行；全部任务完成后管理者给出终审答复。

guardrail 未通过时携带反馈重试，重试用尽返回 *GuardrailError。
*/
package crews
