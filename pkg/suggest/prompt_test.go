package suggest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropwise/kisan/pkg/chat"
)

func TestBuildConversationContext(t *testing.T) {
	t.Parallel()

	got := buildConversationContext([]chat.ChatMessage{
		{Role: chat.MessageRoleUser, Content: "my onion crop has spots"},
		{Role: chat.MessageRoleAssistant, Content: "looks like purple blotch"},
	})
	assert.Equal(t, "user: my onion crop has spots\nassistant: looks like purple blotch", got)
}

func TestBuildConversationContextCapsLongMessages(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", contentCap+100)
	got := buildConversationContext([]chat.ChatMessage{
		{Role: chat.MessageRoleUser, Content: long},
	})
	assert.Equal(t, "user: "+long[:contentCap]+"...", got)

	short := strings.Repeat("a", contentCap)
	got = buildConversationContext([]chat.ChatMessage{
		{Role: chat.MessageRoleUser, Content: short},
	})
	assert.Equal(t, "user: "+short, got, "messages at the cap pass through untouched")
}

func TestBuildConversationContextCapCountsRunes(t *testing.T) {
	t.Parallel()

	// Devanagari runes are 3 bytes each; a byte-based cap would cut this
	// to a third of the intended length and split a rune at the boundary.
	long := strings.Repeat("क", contentCap+50)
	got := buildConversationContext([]chat.ChatMessage{
		{Role: chat.MessageRoleUser, Content: long},
	})

	require.True(t, utf8.ValidString(got), "truncation must not split a character")
	body := strings.TrimSuffix(strings.TrimPrefix(got, "user: "), "...")
	assert.Equal(t, contentCap, utf8.RuneCountInString(body))
	assert.NotContains(t, got, "�")
}

func TestBuildSystemPrompt(t *testing.T) {
	t.Parallel()

	t.Run("bare", func(t *testing.T) {
		t.Parallel()
		prompt := buildSystemPrompt(nil, nil)
		assert.Contains(t, prompt, "Generate exactly 4 farming follow-up questions")
		assert.Contains(t, prompt, "(general)")
		assert.NotContains(t, prompt, "USER PROFILE:")
	})

	t.Run("with profile and location", func(t *testing.T) {
		t.Parallel()
		prompt := buildSystemPrompt(
			&chat.UserProfile{Name: "Ravi", Language: "हिंदी", MainCrops: []string{"प्याज", "टमाटर"}},
			&chat.LocationContext{CityName: "Nashik", StateName: "Maharashtra", AreaSizeSqM: 20000},
		)
		assert.Contains(t, prompt, "USER PROFILE:")
		assert.Contains(t, prompt, "- Name: Ravi")
		assert.Contains(t, prompt, "- Main Crops: प्याज, टमाटर")
		assert.Contains(t, prompt, "- City: Nashik")
		assert.Contains(t, prompt, "- Farm Area: 4.94 acres")
		assert.Contains(t, prompt, "(हिंदी)")
		assert.Contains(t, prompt, "- Experience: Not specified")
	})
}
