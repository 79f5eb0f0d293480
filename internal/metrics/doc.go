// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的 LLM 与团队执行指标采集。

# 概述

Collector 在独立的 Registry 上注册指标（promauto.With），避免
与全局 DefaultRegisterer 冲突。命令行进程生命周期很短，因此不暴露
HTTP 端点，而是在退出时通过 WriteToTextfile 写出，供 node_exporter
的 textfile collector 采集。

# 主要能力

  - LLM 指标：请求总数、请求耗时、Token 用量（prompt/completion），
    按 provider/model 分组。
  - 团队指标：kickoff 尝试次数（success/failure）、兜底次数
    （按 fallback_type）、guardrail 拒绝次数（按 task_id）、
    任务耗时与 Token 总量。
*/
package metrics
