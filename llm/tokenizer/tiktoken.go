package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/BaSui01/shopcrew/llm"
	"github.com/pkoukk/tiktoken-go"
)

// TiktokenTokenizer 为 OpenAI 系列模型（含 Azure 部署）计数.
type TiktokenTokenizer struct {
	model     string
	encoding  string
	maxTokens int
	enc       *tiktoken.Tiktoken
	once      sync.Once
	initErr   error
}

type encodingInfo struct {
	encoding  string
	maxTokens int
}

// modelEncodings 将模型名称映射到其 tiktoken 编码和上下文大小。
// 按前缀匹配时长前缀优先，因此 gpt-4o 不会落入 gpt-4。
var modelEncodings = []struct {
	prefix string
	encodingInfo
}{
	{"gpt-4o-mini", encodingInfo{"o200k_base", 128000}},
	{"gpt-4o", encodingInfo{"o200k_base", 128000}},
	{"gpt-4.1", encodingInfo{"o200k_base", 1047576}},
	{"gpt-4-turbo", encodingInfo{"cl100k_base", 128000}},
	{"gpt-4", encodingInfo{"cl100k_base", 8192}},
	{"gpt-35-turbo", encodingInfo{"cl100k_base", 16385}},
	{"gpt-3.5-turbo", encodingInfo{"cl100k_base", 16385}},
}

var defaultEncoding = encodingInfo{"cl100k_base", 8192}

func lookupEncoding(model string) encodingInfo {
	model = strings.ToLower(model)
	for _, m := range modelEncodings {
		if strings.HasPrefix(model, m.prefix) {
			return m.encodingInfo
		}
	}
	return defaultEncoding
}

// NewTiktokenTokenizer 为给定模型创建 tiktoken 分词器；未知模型使用 cl100k_base。
func NewTiktokenTokenizer(model string) *TiktokenTokenizer {
	info := lookupEncoding(model)
	return &TiktokenTokenizer{
		model:     model,
		encoding:  info.encoding,
		maxTokens: info.maxTokens,
	}
}

// init 延迟初始化编码（首次使用时可能下载数据）.
func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *TiktokenTokenizer) CountMessages(messages []llm.Message) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}

	total := 0
	for _, msg := range messages {
		total += perMessageOverhead
		total += len(t.enc.Encode(msg.Content, nil, nil))
		total += len(t.enc.Encode(string(msg.Role), nil, nil))
	}
	return total + conversationOverhead, nil
}

func (t *TiktokenTokenizer) MaxTokens() int {
	return t.maxTokens
}

func (t *TiktokenTokenizer) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}
