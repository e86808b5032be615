package intent

import (
	"context"
	"strings"
	"unicode"
)

// Matcher 级联中的一个分类策略。
// Match 不返回错误：失败、缺失模型、无匹配都表现为空 Signal。
type Matcher interface {
	Level() Level
	Match(ctx context.Context, text string) Signal
}

// Normalize 小写化，标点替换为空格，合并空白
func Normalize(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return strings.Join(strings.Fields(mapped), " ")
}

// Tokenize 规范化后按空白切分
func Tokenize(text string) []string {
	return strings.Fields(Normalize(text))
}
