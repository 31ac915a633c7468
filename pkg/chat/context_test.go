package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContextIsZero(t *testing.T) {
	t.Parallel()

	assert.True(t, UserContext{}.IsZero())
	assert.False(t, UserContext{Name: "Ramesh"}.IsZero())
	assert.False(t, UserContext{Latitude: 20.27}.IsZero())
}

func TestUserContextSystemMessage(t *testing.T) {
	t.Parallel()

	msg := UserContext{
		Name:      "Ramesh",
		Location:  "Nashik",
		Language:  "हिंदी",
		MainCrops: "onion, tomato",
		Latitude:  20.0059,
		Longitude: 73.7909,
		CityName:  "Nashik",
		StateName: "Maharashtra",
	}.SystemMessage()

	require.True(t, strings.HasPrefix(msg, UserContextPrefix+"\n"))

	// Fields render in a fixed order so repeated requests are identical.
	nameIdx := strings.Index(msg, "name: Ramesh")
	locIdx := strings.Index(msg, "location: Nashik")
	langIdx := strings.Index(msg, "language: हिंदी")
	cropsIdx := strings.Index(msg, "mainCrops: onion, tomato")
	require.NotEqual(t, -1, nameIdx)
	require.NotEqual(t, -1, locIdx)
	require.NotEqual(t, -1, langIdx)
	require.NotEqual(t, -1, cropsIdx)
	assert.Less(t, nameIdx, locIdx)
	assert.Less(t, locIdx, langIdx)
	assert.Less(t, langIdx, cropsIdx)

	assert.Contains(t, msg, "latitude: 20.0059")
	assert.Contains(t, msg, "longitude: 73.7909")
	assert.Contains(t, msg, "stateName: Maharashtra")
	assert.Contains(t, msg, "Adjust language to the user's preferred language")
	assert.Contains(t, msg, "Do NOT redundantly ask for these details")
}

func TestUserContextSystemMessageOmitsEmptyFields(t *testing.T) {
	t.Parallel()

	msg := UserContext{Name: "Ramesh"}.SystemMessage()

	assert.Contains(t, msg, "name: Ramesh")
	assert.NotContains(t, msg, "location:")
	assert.NotContains(t, msg, "latitude:")
	assert.NotContains(t, msg, "farmSize:")
}

func TestUserContextSystemMessageDeterministic(t *testing.T) {
	t.Parallel()

	u := UserContext{Name: "Ramesh", Language: "English", CityName: "Pune"}
	first := u.SystemMessage()
	for range 5 {
		assert.Equal(t, first, u.SystemMessage())
	}
}

func TestUserProfileCropsLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", UserProfile{}.CropsLabel())
	assert.Equal(t, "onion", UserProfile{MainCrops: []string{"onion"}}.CropsLabel())
	assert.Equal(t, "onion, tomato", UserProfile{MainCrops: []string{"onion", "tomato"}}.CropsLabel())
}

func TestLocationContextAcresLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", LocationContext{}.AcresLabel())
	assert.Equal(t, "3 acres", LocationContext{AreaSizeAcres: "3 acres"}.AcresLabel())

	// 10000 sq meters is roughly two and a half acres.
	assert.Equal(t, "2.47 acres", LocationContext{AreaSizeSqM: 10000}.AcresLabel())

	// The explicit label wins over the derived one.
	assert.Equal(t, "5 acres", LocationContext{AreaSizeAcres: "5 acres", AreaSizeSqM: 10000}.AcresLabel())
}
