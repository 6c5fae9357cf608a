// internal/utils/text.go
package utils

import (
	"strings"
	"unicode"
)

// TruncateText 按字符数截断文本（面向存储预算，按rune计数避免截断多字节字符）
func TruncateText(s string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}

// Slugify 将名称确定性地转换为小写ASCII、连字符连接的slug
// 非ASCII字符（如中文类目名）整体丢弃后若为空，返回 "general"
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // 抑制前导连字符

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == '-' || r == '_' || unicode.IsSpace(r) || r == '/' || r == '&':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "general"
	}
	return slug
}

// IsEnglishText 检测文本是否以英文为主
func IsEnglishText(text string) bool {
	if len(text) == 0 {
		return false
	}

	letterCount := 0
	totalValidChars := 0

	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			letterCount++
			totalValidChars++
		}
		// CJK统一表意文字
		if r >= 0x4E00 && r <= 0x9FFF {
			totalValidChars++
		}
		if r >= '0' && r <= '9' {
			totalValidChars++
		}
	}

	if totalValidChars == 0 {
		return false
	}

	return float64(letterCount)/float64(totalValidChars) > 0.5
}
