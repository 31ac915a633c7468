package suggest

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
)

var cropRe = regexp.MustCompile(`(?i)(pyaaj|प्याज|onion)`)

// Heuristic produces suggestions without any model call by matching the
// last exchange against per-language keyword pools. The language is picked
// from the script of the text itself: runes from the Devanagari block
// select the Hindi pool, Oriya the Odia pool, everything else the English
// pool. Each pool ends with a generic closer so the result is never empty.
func Heuristic(assistantText, userText string) (queries []string) {
	// The pools are static data; a panic here would only come from a
	// future edit, but suggestions must never take the conversation down.
	defer func() {
		if r := recover(); r != nil {
			queries = []string{
				"अगला सवाल क्या पूछूँ?",
				"फसल देखभाल के लिए अभी कौन सा कदम प्राथमिक है?",
				"मौसम जोखिम कम करने के उपाय क्या हैं?",
			}
		}
	}()

	source := assistantText + "\n" + userText
	lower := strings.ToLower(source)
	cropRef := cropRe.FindString(source)

	add := func(q string) {
		if len(queries) < maxQueries && !slices.Contains(queries, q) {
			queries = append(queries, q)
		}
	}

	switch {
	case hasScript(source, unicode.Devanagari):
		if strings.Contains(lower, "मौसम") || strings.Contains(lower, "weather") {
			add("अगले 3 दिनों के मौसम को देखते हुए अभी क्या तैयारी करूँ?")
		}
		if cropRef != "" {
			crop := "फसल"
			if strings.Contains(cropRef, "प्याज") {
				crop = "प्याज"
			}
			add(crop + " में रोग से बचाव के लिए अगला कदम क्या है?")
		}
		if strings.Contains(lower, "जल निकासी") || strings.Contains(lower, "drain") {
			add("जल निकासी बेहतर करने का सबसे त्वरित समाधान क्या है?")
		}
		add("अगर बारिश जारी रही तो नुकसान कम कैसे करूँ?")

	case hasScript(source, unicode.Oriya):
		if strings.Contains(lower, "ପାଗ") || strings.Contains(lower, "weather") {
			add("ଆସନ୍ତା ୩ ଦିନ ପାଗ ଦେଖି କଣ ପ୍ରସ୍ତୁତି କରିବି?")
		}
		if cropRef != "" {
			add("ପିଆଜ ରୋଗ ରୋକଥାମ ପାଇଁ ବର୍ତ୍ତମାନ କଣ କରିବି?")
		}
		if strings.Contains(lower, "drain") || strings.Contains(source, "ନିସ୍ସରଣ") {
			add("ଜଳ ନିସ୍ସରଣ ଶୀଘ୍ର କେମିତି ସୁଧାରିବି?")
		}
		add("ଲମ୍ବା ବର୍ଷାର ପ୍ରଭାବ କେମିତି କମେଇବି?")

	default:
		if strings.Contains(lower, "weather") || strings.Contains(lower, "forecast") {
			add("Given the next 3 days forecast what should I prepare first?")
		}
		if cropRef != "" {
			crop := "crop"
			if strings.Contains(strings.ToLower(cropRef), "onion") {
				crop = "onion"
			}
			add("How do I prevent disease pressure in my " + crop + " right now?")
		}
		if strings.Contains(lower, "drain") {
			add("What is the quickest low-cost way to improve drainage?")
		}
		add("If rain continues how do I reduce losses?")
	}

	return queries
}

func hasScript(s string, table *unicode.RangeTable) bool {
	for _, r := range s {
		if unicode.Is(table, r) {
			return true
		}
	}
	return false
}
