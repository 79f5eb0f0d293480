// =============================================================================
// shopcrew 主入口
// =============================================================================
// 购物助手多智能体团队的命令行入口
//
// 使用方法:
//
//	shopcrew run                                   # 使用默认查询运行团队
//	shopcrew run --query "trail running shoes"     # 指定查询
//	shopcrew run --config config.yaml --process sequential
//	shopcrew health                                # 检查 LLM 端点
//	shopcrew version                               # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
