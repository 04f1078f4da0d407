// Package text 提供通知文本的小工具。
package text

// Truncate 把超长文本裁到 max 字节并加省略号；max <= 0 表示不限制。
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
