package crews

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/BaSui01/shopcrew/types"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Interpolate 用 inputs 替换模板中的 {name} 占位符。
// 任一占位符缺少输入时返回 MISSING_INPUT 错误，列出全部缺失项。
func Interpolate(template string, inputs map[string]string) (string, error) {
	missing := make(map[string]struct{})
	out := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := inputs[name]; ok {
			return v
		}
		missing[name] = struct{}{}
		return match
	})
	if len(missing) == 0 {
		return out, nil
	}
	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return "", types.NewError(types.ErrMissingInput,
		fmt.Sprintf("missing template input(s): %s", strings.Join(names, ", ")))
}

// Placeholders 返回模板中出现的占位符名称（去重，按出现顺序）
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
