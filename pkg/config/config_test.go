package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapConfigGetters(t *testing.T) {
	c := NewMapConfig(map[string]string{
		"DREPO_PORT":   "2360",
		"DREPO_SECURE": "yes",
		"S3_USE_SSL":   "off",
	})

	assert.Equal(t, "2360", c.GetKey("DREPO_PORT"))
	assert.Equal(t, 2360, c.GetIntKey("DREPO_PORT"))
	assert.Equal(t, "", c.GetKey("NO_SUCH_KEY"))
	assert.Equal(t, "fallback", c.GetKeyWithDefault("NO_SUCH_KEY", "fallback"))
	assert.Equal(t, 7, c.GetIntKeyWithDefault("NO_SUCH_KEY", 7))

	assert.True(t, c.GetBoolKeyWithDefault("DREPO_SECURE", false))
	assert.False(t, c.GetBoolKeyWithDefault("S3_USE_SSL", true))
	assert.True(t, c.GetBoolKeyWithDefault("NO_SUCH_KEY", true))
}

func TestPackageGettersUseConfiguredConfiger(t *testing.T) {
	original := GetConfig()
	defer SetConfig(original)

	SetConfig(NewMapConfig(map[string]string{
		"DREPO_SITE_NAME": "Test Portal",
		"SMTP_PORT":       "2525",
	}))

	assert.Equal(t, "Test Portal", GetKey("DREPO_SITE_NAME"))
	assert.Equal(t, 2525, GetIntKeyWithDefault("SMTP_PORT", 587))
	assert.Equal(t, "drepod", GetKeyWithDefault("NO_SUCH_KEY", "drepod"))
}
