package utils

import "unicode/utf8"

// Truncate 按字符(rune)截断, 不会切断多字节字符
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
