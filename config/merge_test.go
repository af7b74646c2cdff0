package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeConfigs(t *testing.T) {
	base := &Config{
		Provider:     ProviderConfig{URL: "http://a", Token: "t", ServerID: 1},
		Filters:      FiltersConfig{Queues: []string{"sales"}},
		PauseReasons: []string{"Break"},
		Extensions: map[string]interface{}{
			"logging": map[string]interface{}{"level": "info", "report_caller": true},
		},
	}
	override := &Config{
		Provider: ProviderConfig{URL: "http://b"},
		Filters:  FiltersConfig{MemberExpr: "paused == false"},
		Redis:    RedisConfig{Enabled: true, Addr: "localhost:6379"},
		Extensions: map[string]interface{}{
			"logging": map[string]interface{}{"level": "debug"},
			"custom":  "value",
		},
	}

	merged := mergeConfigs(base, override)

	assert.Equal(t, "http://b", merged.Provider.URL)
	assert.Equal(t, "t", merged.Provider.Token)
	assert.Equal(t, 1, merged.Provider.ServerID)
	assert.Equal(t, []string{"sales"}, merged.Filters.Queues)
	assert.Equal(t, "paused == false", merged.Filters.MemberExpr)
	assert.Equal(t, []string{"Break"}, merged.PauseReasons)
	assert.True(t, merged.Redis.Enabled)
	assert.Equal(t, map[string]interface{}{"level": "debug", "report_caller": true}, merged.Extensions["logging"])
	assert.Equal(t, "value", merged.Extensions["custom"])

	// base is not modified
	assert.Equal(t, "http://a", base.Provider.URL)
	assert.Equal(t, "info", base.Extensions["logging"].(map[string]interface{})["level"])
}
