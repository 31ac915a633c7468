package suggest

import (
	"context"
	"fmt"

	"github.com/cropwise/kisan/pkg/chat"
)

// Onboarding language labels as submitted by the profile form.
const (
	languageHindi = "हिंदी"
	languageOdia  = "ଓଡ଼ିଆ"
)

// OnboardingMessages builds the seeded welcome exchange used to bootstrap
// suggestions right after onboarding, before any real conversation
// exists. The pair is phrased per the profile language so the generated
// suggestions come out in the same language.
func OnboardingMessages(profile *chat.UserProfile, location *chat.LocationContext) []chat.ChatMessage {
	language, name, crops := "", "", ""
	if profile != nil {
		language = profile.Language
		name = profile.Name
		crops = profile.CropsLabel()
	}
	city := ""
	if location != nil {
		city = location.CityName
	}

	var welcome, response string
	switch language {
	case languageOdia:
		welcome = "ନମସ୍କାର! ମୁଁ ଆପଣଙ୍କର କୃଷି ସହାୟକ। ଆପଣଙ୍କ ଫସଲ ବିଷୟରେ କୌଣସି ପ୍ରଶ୍ନ ଅଛି କି?"
		response = fmt.Sprintf("ନମସ୍କାର %s! ମୁଁ ଆପଣଙ୍କର %s ଚାଷ ପାଇଁ ସାହାଯ୍ୟ କରିବାକୁ ଏଠାରେ ଅଛି। ଆପଣଙ୍କ %sର ପାଣିପାଗ ଓ ବଜାର ଦର ବିଷୟରେ ମଧ୍ୟ ସୂଚନା ଦେଇପାରିବି।",
			fallback(name, "କୃଷକ ଭାଇ"), fallback(crops, "ଫସଲ"), fallback(city, "ଅଞ୍ଚଳ"))
	case languageHindi:
		welcome = "नमस्कार! मैं आपका कृषि सहायक हूँ। आपकी फसल के बारे में कोई सवाल है?"
		response = fmt.Sprintf("नमस्कार %s! मैं आपकी %s की खेती में मदद करने के लिए यहाँ हूँ। आपके %s के मौसम और बाज़ार भाव की जानकारी भी दे सकता हूँ।",
			fallback(name, "किसान भाई"), fallback(crops, "फसल"), fallback(city, "क्षेत्र"))
	default:
		welcome = "Hello! I am your farming assistant. Do you have any questions about your crops?"
		response = fmt.Sprintf("Hello %s! I'm here to help with your %s farming. I can also provide weather and market information for %s.",
			fallback(name, "Farmer"), fallback(crops, "crops"), fallback(city, "your area"))
	}

	return []chat.ChatMessage{
		{ID: "onboarding-user", Role: chat.MessageRoleUser, Content: welcome},
		{ID: "onboarding-assistant", Role: chat.MessageRoleAssistant, Content: response},
	}
}

// Bootstrap generates initial suggestions from the seeded onboarding
// exchange and persists them into the default scope.
func (o *Orchestrator) Bootstrap(ctx context.Context, profile *chat.UserProfile, location *chat.LocationContext) (Result, error) {
	return o.Generate(ctx, Request{
		Messages: OnboardingMessages(profile, location),
		Profile:  profile,
		Location: location,
		Force:    true,
	})
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
