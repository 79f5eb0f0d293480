// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 shopping 组装购物助手团队。

团队由三个角色组成：

  - Product Expert：按特性与规格推荐产品（性能跑鞋方向）
  - Product Researcher：收集并分析评测、评分与用户反馈
  - Research Coordinator：层级模式下的管理者，协调并给出终审答复

任务模板以 {query} 为输入：产品检索（产品 guardrail）、评测研究
（评测 guardrail）、综合推荐（以前两个任务的输出为上下文）。
*/
package shopping
