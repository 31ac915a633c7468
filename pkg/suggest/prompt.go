package suggest

import (
	"fmt"
	"strings"

	"github.com/cropwise/kisan/pkg/chat"
)

// contentCap bounds how much of each message reaches the prompt.
const contentCap = 500

// buildSystemPrompt asks for exactly four follow-up questions, grounded in
// whatever profile and location detail is available.
func buildSystemPrompt(profile *chat.UserProfile, location *chat.LocationContext) string {
	var userInfo string
	if profile != nil || location != nil {
		var sb strings.Builder
		sb.WriteString("\nUSER PROFILE:\n")
		if profile != nil {
			fmt.Fprintf(&sb, "- Name: %s\n", orDefault(profile.Name))
			fmt.Fprintf(&sb, "- Language: %s\n", orDefault(profile.Language))
			fmt.Fprintf(&sb, "- Experience: %s\n", orDefault(profile.Experience))
			fmt.Fprintf(&sb, "- Farm Type: %s\n", orDefault(profile.FarmType))
			fmt.Fprintf(&sb, "- Farm Size: %s\n", orDefault(profile.FarmSize))
			fmt.Fprintf(&sb, "- Main Crops: %s\n", orDefault(profile.CropsLabel()))
		}
		if location != nil {
			fmt.Fprintf(&sb, "- Location: %s\n", orDefault(location.Address))
			fmt.Fprintf(&sb, "- City: %s\n", orDefault(location.CityName))
			fmt.Fprintf(&sb, "- State: %s\n", orDefault(location.StateName))
			fmt.Fprintf(&sb, "- Farm Area: %s\n", orDefault(location.AcresLabel()))
			coords := "Not specified"
			if location.Latitude != 0 {
				coords = fmt.Sprintf("%g, %g", location.Latitude, location.Longitude)
			}
			fmt.Fprintf(&sb, "- Coordinates: %s\n", coords)
		}
		sb.WriteString("\nUse this profile to make suggestions specific to their crops, experience level, location and farm context.\n")
		userInfo = sb.String()
	}

	language := ""
	crops := "general"
	if profile != nil {
		if profile.Language != "" {
			language = fmt.Sprintf(" (%s)", profile.Language)
		}
		if c := profile.CropsLabel(); c != "" {
			crops = c
		}
	}

	return fmt.Sprintf(`Generate exactly 4 farming follow-up questions based on the recent conversation exchange.
%s
Requirements:
- Same language as the user message%s
- Build on the assistant's advice with deeper/practical questions
- From farmer's perspective (what would they ask next)
- Each question 10-25 words, specific and actionable
- Consider user's crops (%s), experience level, and location

Return ONLY a valid JSON array of 4 strings.
Example: ["কি সার দেব?", "কখন রোপণ করব?", "দাম কত?", "রোগ হলে কি করব?"]`, userInfo, language, crops)
}

// buildConversationContext renders the exchange as "role: content" lines,
// each message capped so prompts stay compact.
func buildConversationContext(messages []chat.ChatMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		content := m.Content
		// Rune-based so Devanagari/Odia text is neither over-truncated nor
		// cut mid-character.
		if runes := []rune(content); len(runes) > contentCap {
			content = string(runes[:contentCap]) + "..."
		}
		lines = append(lines, string(m.Role)+": "+content)
	}
	return strings.Join(lines, "\n")
}

func orDefault(s string) string {
	if s == "" {
		return "Not specified"
	}
	return s
}
