package config

// mergeConfigs merges override configuration into base. Scalars and lists
// set in override replace base values; maps are merged key by key.
func mergeConfigs(base, override *Config) *Config {
	result := *base

	result.Provider = mergeProvider(result.Provider, override.Provider)

	if override.Sync.RefreshInterval != "" {
		result.Sync.RefreshInterval = override.Sync.RefreshInterval
	}
	if override.Sync.SummaryInterval != "" {
		result.Sync.SummaryInterval = override.Sync.SummaryInterval
	}

	result.Filters = mergeFilters(result.Filters, override.Filters)

	if len(override.PauseReasons) > 0 {
		result.PauseReasons = override.PauseReasons
	}
	if len(override.StatusLabels) > 0 {
		labels := make(map[string]string, len(base.StatusLabels)+len(override.StatusLabels))
		for k, v := range base.StatusLabels {
			labels[k] = v
		}
		for k, v := range override.StatusLabels {
			labels[k] = v
		}
		result.StatusLabels = labels
	}

	if override.Server.Socket != "" {
		result.Server.Socket = override.Server.Socket
	}
	if override.Server.Listen != "" {
		result.Server.Listen = override.Server.Listen
	}

	result.Redis = mergeRedis(result.Redis, override.Redis)

	// Merge extensions
	if override.Extensions != nil {
		merged := make(map[string]interface{}, len(base.Extensions)+len(override.Extensions))
		for key, value := range base.Extensions {
			merged[key] = value
		}
		for key, value := range override.Extensions {
			// If both base and override have the same extension key, merge them
			if baseMap, ok := merged[key].(map[string]interface{}); ok {
				if overrideMap, ok := value.(map[string]interface{}); ok {
					mergedMap := make(map[string]interface{}, len(baseMap)+len(overrideMap))
					for k, v := range baseMap {
						mergedMap[k] = v
					}
					for k, v := range overrideMap {
						mergedMap[k] = v
					}
					merged[key] = mergedMap
					continue
				}
			}
			merged[key] = value
		}
		result.Extensions = merged
	}

	return &result
}

func mergeProvider(base, override ProviderConfig) ProviderConfig {
	result := base

	if override.URL != "" {
		result.URL = override.URL
	}
	if override.Token != "" {
		result.Token = override.Token
	}
	if override.Timeout != "" {
		result.Timeout = override.Timeout
	}
	if override.ReconnectMax != "" {
		result.ReconnectMax = override.ReconnectMax
	}
	if override.ServerID != 0 {
		result.ServerID = override.ServerID
	}

	return result
}

func mergeFilters(base, override FiltersConfig) FiltersConfig {
	result := base

	if len(override.Queues) > 0 {
		result.Queues = override.Queues
	}
	if len(override.Members) > 0 {
		result.Members = override.Members
	}
	if override.QueueExpr != "" {
		result.QueueExpr = override.QueueExpr
	}
	if override.MemberExpr != "" {
		result.MemberExpr = override.MemberExpr
	}

	return result
}

func mergeRedis(base, override RedisConfig) RedisConfig {
	result := base

	if override.Enabled {
		result.Enabled = true
	}
	if override.Addr != "" {
		result.Addr = override.Addr
	}
	if override.Password != "" {
		result.Password = override.Password
	}
	if override.DB != 0 {
		result.DB = override.DB
	}
	if override.Channel != "" {
		result.Channel = override.Channel
	}

	return result
}
