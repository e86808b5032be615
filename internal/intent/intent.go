package intent

import (
	"fmt"
	"strings"
)

// Intent 查询意图，取值为封闭集合
type Intent string

// 声明顺序即平分时的最终排序依据
const (
	ContactLookup     Intent = "db_contact"
	LocationLookup    Intent = "db_location"
	FacultyLookup     Intent = "db_faculty"
	DocumentKnowledge Intent = "rag"
	SmallTalk         Intent = "small_talk"
	Fallback          Intent = "ai_fallback"
)

var declared = []Intent{
	ContactLookup,
	LocationLookup,
	FacultyLookup,
	DocumentKnowledge,
	SmallTalk,
	Fallback,
}

var declarationIndex = func() map[Intent]int {
	idx := make(map[Intent]int, len(declared))
	for i, in := range declared {
		idx[in] = i
	}
	return idx
}()

// All 按声明顺序返回全部意图
func All() []Intent {
	out := make([]Intent, len(declared))
	copy(out, declared)
	return out
}

// Valid 是否属于封闭集合
func (i Intent) Valid() bool {
	_, ok := declarationIndex[i]
	return ok
}

func (i Intent) String() string { return string(i) }

// order 声明序号，未知意图排在最后
func (i Intent) order() int {
	if idx, ok := declarationIndex[i]; ok {
		return idx
	}
	return len(declared)
}

// Parse 解析意图标签，大小写和首尾空白不敏感
func Parse(label string) (Intent, error) {
	in := Intent(strings.ToLower(strings.TrimSpace(label)))
	if !in.Valid() {
		return "", fmt.Errorf("unknown intent %q", label)
	}
	return in, nil
}
