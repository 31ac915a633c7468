package suggest

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/cropwise/kisan/pkg/chat"
)

// hashWindow bounds how much conversation the fingerprint covers.
const hashWindow = 8

// ContextHash fingerprints the tail of a conversation so callers can skip
// regenerating suggestions when nothing relevant changed. Only the last
// few messages participate; earlier history cannot affect the result.
func ContextHash(messages []chat.ChatMessage) string {
	if len(messages) > hashWindow {
		messages = messages[len(messages)-hashWindow:]
	}

	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, string(m.Role)+":"+m.Content)
	}

	h := fnv.New32a()
	h.Write([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%x", h.Sum32())
}
