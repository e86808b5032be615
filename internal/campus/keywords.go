package campus

import (
	"strings"
	"unicode"

	"github.com/aihub/campus-companion/internal/intent"
)

var stopWords = toSet(
	"a", "an", "the", "is", "are", "was", "of", "for", "to", "in", "on", "at", "and", "or",
	"me", "my", "i", "you", "your", "we", "can", "could", "please", "tell", "give", "show",
	"what", "whats", "which", "who", "whom", "how", "do", "does", "get", "find", "need", "want",
	"know", "about", "with", "there", "this", "that", "it",
)

// triggerWords 触发意图的词本身不是查找对象
var triggerWords = toSet(
	"phone", "number", "contact", "mobile", "email", "mail", "call", "helpline", "extension",
	"where", "location", "located", "address", "directions", "building", "floor", "room", "way",
	"professor", "prof", "faculty", "hod", "head", "department", "dept", "lecturer", "teacher",
	"dean", "dr", "mr", "mrs", "ms", "instructor", "sir", "madam",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// ExtractKeywords 去掉停用词和触发词，保留可能的名称片段，保持原顺序且去重
func ExtractKeywords(query string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, tok := range intent.Tokenize(query) {
		if len([]rune(tok)) < 2 {
			continue
		}
		if _, ok := stopWords[tok]; ok {
			continue
		}
		if _, ok := triggerWords[tok]; ok {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// roomCandidates 提取房间号，"AB-101"、"ab 101"、"ab101" 都归一为 "ab101" 和数字部分 "101"
func roomCandidates(query string) []string {
	tokens := intent.Tokenize(query)
	var out []string
	seen := map[string]struct{}{}
	add := func(s string) {
		if _, ok := seen[s]; ok || s == "" {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for i, tok := range tokens {
		if !hasDigit(tok) {
			continue
		}
		if i > 0 && isLetters(tokens[i-1]) && len(tokens[i-1]) <= 3 {
			if _, stop := stopWords[tokens[i-1]]; !stop {
				add(tokens[i-1] + tok)
			}
		}
		add(tok)
	}
	return out
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func isLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
