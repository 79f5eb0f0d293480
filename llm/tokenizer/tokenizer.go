package tokenizer

import (
	"github.com/BaSui01/shopcrew/llm"
	"go.uber.org/zap"
)

// Tokenizer 是统一的 token 计数接口.
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// CountMessages 返回消息列表的总 token 数,
	// 包括每条消息的开销（角色标记、分隔符等）。
	CountMessages(messages []llm.Message) (int, error)

	// MaxTokens 返回模型的最大上下文长度.
	MaxTokens() int

	// Name 返回分词器的名称.
	Name() string
}

// 每条消息约 4 个 token 的角色/分隔符开销，对话结尾再加 3 个。
const (
	perMessageOverhead   = 4
	conversationOverhead = 3
)

// FallbackTokenizer 优先使用 primary，primary 出错时改用 fallback。
// tiktoken 首次使用需要加载编码表，离线环境下会失败。
type FallbackTokenizer struct {
	primary  Tokenizer
	fallback Tokenizer
	logger   *zap.Logger
}

// NewFallbackTokenizer 组合两个分词器.
func NewFallbackTokenizer(primary, fallback Tokenizer, logger *zap.Logger) *FallbackTokenizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackTokenizer{primary: primary, fallback: fallback, logger: logger}
}

// ForModel 返回模型对应的 tiktoken 分词器，编码不可用时退化为估算器。
func ForModel(model string, logger *zap.Logger) Tokenizer {
	tk := NewTiktokenTokenizer(model)
	return NewFallbackTokenizer(tk, NewEstimatorTokenizer(model, tk.MaxTokens()), logger)
}

func (f *FallbackTokenizer) CountTokens(text string) (int, error) {
	n, err := f.primary.CountTokens(text)
	if err == nil {
		return n, nil
	}
	f.logger.Debug("primary tokenizer failed, using fallback",
		zap.String("primary", f.primary.Name()), zap.Error(err))
	return f.fallback.CountTokens(text)
}

func (f *FallbackTokenizer) CountMessages(messages []llm.Message) (int, error) {
	n, err := f.primary.CountMessages(messages)
	if err == nil {
		return n, nil
	}
	f.logger.Debug("primary tokenizer failed, using fallback",
		zap.String("primary", f.primary.Name()), zap.Error(err))
	return f.fallback.CountMessages(messages)
}

func (f *FallbackTokenizer) MaxTokens() int { return f.primary.MaxTokens() }

func (f *FallbackTokenizer) Name() string {
	return f.primary.Name() + "|" + f.fallback.Name()
}
