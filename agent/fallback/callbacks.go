package fallback

import (
	"fmt"
	"io"
	"strings"

	"github.com/BaSui01/shopcrew/agent/crews"
)

const bannerWidth = 50

func printBanner(w io.Writer, ch, line string) {
	rule := strings.Repeat(ch, bannerWidth)
	fmt.Fprintf(w, "\n%s\n%s\n%s\n\n", rule, line, rule)
}

// truncate 按字符截取前 n 个
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// LogTaskCompletion 输出任务完成摘要：描述前 100 字符、输出前 200 字符
func LogTaskCompletion(w io.Writer, output *crews.TaskOutput) {
	rule := strings.Repeat("~", bannerWidth)
	fmt.Fprintf(w, "\n%s\nTask Completed\n%s\n", rule, rule)
	if output != nil {
		fmt.Fprintf(w, "Task: %s...\n", truncate(output.Description, 100))
		fmt.Fprintf(w, "Output preview: %s...\n", truncate(output.Raw, 200))
	}
	fmt.Fprintf(w, "%s\n\n", rule)
}

// LogAgentStep 输出单步摘要：输出前 100 字符
func LogAgentStep(w io.Writer, step crews.StepOutput) {
	fmt.Fprintln(w, "\n[Step] Agent action recorded")
	fmt.Fprintf(w, "[Step] Output: %s...\n", truncate(step.Output, 100))
}

// TaskLogger 返回写入 w 的任务回调
func TaskLogger(w io.Writer) crews.TaskCallback {
	return func(output *crews.TaskOutput) { LogTaskCompletion(w, output) }
}

// StepLogger 返回写入 w 的单步回调
func StepLogger(w io.Writer) crews.StepCallback {
	return func(step crews.StepOutput) { LogAgentStep(w, step) }
}
