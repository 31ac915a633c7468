package chat

import (
	"fmt"
	"strings"
)

// UserContextPrefix marks the system message carrying the farmer profile.
// An existing message with this prefix is replaced rather than duplicated.
const UserContextPrefix = "USER CONTEXT"

// UserContext is the flat profile attached to chat requests. All fields
// are optional; empty ones are omitted from the system message.
type UserContext struct {
	Name       string  `json:"name,omitempty"`
	Location   string  `json:"location,omitempty"`
	Language   string  `json:"language,omitempty"`
	FarmType   string  `json:"farmType,omitempty"`
	Experience string  `json:"experience,omitempty"`
	MainCrops  string  `json:"mainCrops,omitempty"`
	FarmSize   string  `json:"farmSize,omitempty"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
	CityName   string  `json:"cityName,omitempty"`
	StateName  string  `json:"stateName,omitempty"`
}

// IsZero reports whether no field is set.
func (u UserContext) IsZero() bool {
	return u == UserContext{}
}

// SystemMessage renders the profile as the USER CONTEXT system message
// prepended to agent conversations. Field order is fixed so repeated
// requests produce identical messages.
func (u UserContext) SystemMessage() string {
	var lines []string
	add := func(key, value string) {
		if value != "" {
			lines = append(lines, key+": "+value)
		}
	}
	add("name", u.Name)
	add("location", u.Location)
	add("language", u.Language)
	add("farmType", u.FarmType)
	add("experience", u.Experience)
	add("mainCrops", u.MainCrops)
	add("farmSize", u.FarmSize)
	if u.Latitude != 0 {
		add("latitude", fmt.Sprintf("%g", u.Latitude))
	}
	if u.Longitude != 0 {
		add("longitude", fmt.Sprintf("%g", u.Longitude))
	}
	add("cityName", u.CityName)
	add("stateName", u.StateName)

	var sb strings.Builder
	sb.WriteString(UserContextPrefix + "\n")
	sb.WriteString(strings.Join(lines, "\n"))
	sb.WriteString("\n---\n")
	sb.WriteString("Use this factual profile to tailor agronomic, weather, and market advice.\n")
	sb.WriteString("Adjust language to the user's preferred language if specified (language field).\n")
	sb.WriteString("Do NOT redundantly ask for these details unless they are missing or clarification is truly needed.\n")
	sb.WriteString("If location is present, prioritize localized recommendations.\n")
	return sb.String()
}

// UserProfile describes the farmer as captured during onboarding.
type UserProfile struct {
	Name       string   `json:"name,omitempty"`
	Language   string   `json:"language,omitempty"`
	Experience string   `json:"experience,omitempty"`
	FarmType   string   `json:"farmType,omitempty"`
	FarmSize   string   `json:"farmSize,omitempty"`
	MainCrops  []string `json:"mainCrops,omitempty"`
}

// CropsLabel flattens MainCrops for prompt interpolation.
func (p UserProfile) CropsLabel() string {
	return strings.Join(p.MainCrops, ", ")
}

// LocationContext describes the selected farm location.
type LocationContext struct {
	Address         string  `json:"address,omitempty"`
	CityName        string  `json:"cityName,omitempty"`
	StateName       string  `json:"stateName,omitempty"`
	AreaSizeAcres   string  `json:"areaSizeAcres,omitempty"`
	AreaSizeSqM     float64 `json:"areaSizeSqMeters,omitempty"`
	Latitude        float64 `json:"latitude,omitempty"`
	Longitude       float64 `json:"longitude,omitempty"`
}

const acresPerSquareMeter = 0.000247105

// AcresLabel returns the explicit acre string when present, otherwise
// derives one from the area in square meters.
func (l LocationContext) AcresLabel() string {
	if l.AreaSizeAcres != "" {
		return l.AreaSizeAcres
	}
	if l.AreaSizeSqM > 0 {
		return fmt.Sprintf("%.2f acres", l.AreaSizeSqM*acresPerSquareMeter)
	}
	return ""
}
