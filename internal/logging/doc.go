// Package logging 根据 config.LogConfig 构建 zap logger，
// 可选地将日志同时写入 lumberjack 滚动文件。
package logging
