package campus

import (
	"context"
	"strings"

	"github.com/aihub/campus-companion/internal/intent"
)

const (
	greetingReply  = "Hello! I'm Campus Companion. Ask me about contacts, campus locations, faculty, or academic rules."
	thanksReply    = "You're welcome! Let me know if you need anything else on campus."
	farewellReply  = "Goodbye! Good luck with your classes."
	aboutReply     = "I'm Campus Companion, an assistant for campus contacts, locations, faculty details and academic policies."
	wellbeingReply = "I'm doing well, thanks for asking! What can I help you find on campus?"
)

// SmallTalkHandler 寒暄回复，不访问任何外部资源
type SmallTalkHandler struct{}

// NewSmallTalkHandler 创建寒暄处理器
func NewSmallTalkHandler() *SmallTalkHandler { return &SmallTalkHandler{} }

// Lookup 总是返回一条回复
func (h *SmallTalkHandler) Lookup(_ context.Context, query string) (*Record, error) {
	norm := " " + intent.Normalize(query) + " "
	reply := greetingReply
	switch {
	case containsAny(norm, " thank", " thanks "):
		reply = thanksReply
	case containsAny(norm, " bye ", " goodbye ", " see you "):
		reply = farewellReply
	case containsAny(norm, " who are you ", " what are you "):
		reply = aboutReply
	case containsAny(norm, " how are you "):
		reply = wellbeingReply
	}
	return &Record{Kind: "small_talk", Title: "Campus Companion", Text: reply}, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
