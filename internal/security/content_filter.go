package security

import "regexp"

// ContentFilter 用户文本过滤器
//
// 购物项、日程、家务的自由文本会原样回传给各端渲染，
// 入库前拦截可执行标记。
type ContentFilter struct {
	maliciousPatterns []*regexp.Regexp
}

// NewContentFilter 创建内容过滤器
func NewContentFilter() *ContentFilter {
	return &ContentFilter{
		maliciousPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)<script[^>]*>`),
			regexp.MustCompile(`(?i)javascript:`),
			regexp.MustCompile(`(?i)onload\s*=`),
			regexp.MustCompile(`(?i)onerror\s*=`),
			regexp.MustCompile(`(?i)<iframe[^>]*>`),
			regexp.MustCompile(`(?i)<object[^>]*>`),
			regexp.MustCompile(`(?i)<embed[^>]*>`),
		},
	}
}

// Check 返回文本是否通过检查
func (cf *ContentFilter) Check(content string) bool {
	for _, pattern := range cf.maliciousPatterns {
		if pattern.MatchString(content) {
			return false
		}
	}
	return true
}

// CheckAll 依次检查多段文本，任意一段不通过即失败
func (cf *ContentFilter) CheckAll(contents ...string) bool {
	for _, content := range contents {
		if !cf.Check(content) {
			return false
		}
	}
	return true
}
