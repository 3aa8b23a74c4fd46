package utils

import "strings"

// SplitDefine splits a preprocessor define of the form NAME or NAME=VALUE
func SplitDefine(def string) (string, string) {
	name, value, _ := strings.Cut(strings.TrimSpace(def), "=")
	return strings.TrimSpace(name), strings.TrimSpace(value)
}
