// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 fallback 为团队执行提供指数退避重试与兜底响应。

ExecuteWithFallback 最多执行 Runner.Kickoff maxRetries 次（默认 2），
第 i 次（从 0 计）失败后等待 2^i 秒，最后一次失败后不再等待；
全部失败时返回按类型选取的 Response，而不是错误。重试基于 llm/retry
的 BackoffRetryer（关闭抖动）。

兜底表：

  - product_search：技术故障提示，附 catalog 建议与客服联系方式
  - research：评测暂不可用，附第三方评测站点建议
  - general：通用错误提示，无附加数据

未知类型按 general 处理；有错误且条目带数据时写入 data.error_type。

LogTaskCompletion / LogAgentStep 以控制台横幅形式输出任务与单步摘要，
可通过 TaskLogger / StepLogger 挂到 crews.Crew 上。
*/
package fallback
