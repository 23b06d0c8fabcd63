// Package config loads the exchange process's runtime configuration,
// generalized from original_source/src/config.rs's environment-driven
// Config (rabbit_url/instruments/app_id) into a viper-backed loader that
// also accepts a config file.
package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"vantage/internal/matching"
)

// Config is the fully resolved process configuration.
type Config struct {
	AppID string

	Instruments []uuid.UUID

	GatewayAddress    string
	BroadcastAddress  string
	MetricsAddress    string

	CommandQueueSize int
	ResultQueueSize  int

	LogLevel string

	SelfTradePolicy  matching.SelfTradePolicy
	TriggerReference matching.TriggerReference
}

func defaults(v *viper.Viper) {
	v.SetDefault("app_id", "vantage")
	v.SetDefault("gateway_address", "0.0.0.0:9001")
	v.SetDefault("broadcast_address", "0.0.0.0:9002")
	v.SetDefault("metrics_address", "0.0.0.0:9090")
	v.SetDefault("command_queue_size", 1024)
	v.SetDefault("result_queue_size", 1024)
	v.SetDefault("log_level", "info")
	v.SetDefault("self_trade_policy", "cancel_maker")
	v.SetDefault("trigger_reference", "last_trade")
}

// Load reads configuration from (in ascending priority) defaults, an
// optional config file at path, and VANTAGE_-prefixed environment
// variables, the way the original's Config.from_env layered dotenv over
// hardcoded defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("VANTAGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	instrumentStrs := v.GetStringSlice("instruments")
	if len(instrumentStrs) == 0 {
		if raw := v.GetString("instruments"); raw != "" {
			instrumentStrs = strings.Split(raw, ",")
		}
	}
	instruments := make([]uuid.UUID, 0, len(instrumentStrs))
	for _, s := range instrumentStrs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid instrument id %q: %w", s, err)
		}
		instruments = append(instruments, id)
	}
	if len(instruments) == 0 {
		instruments = append(instruments, uuid.New())
	}

	selfTrade, err := parseSelfTradePolicy(v.GetString("self_trade_policy"))
	if err != nil {
		return Config{}, err
	}
	triggerRef, err := parseTriggerReference(v.GetString("trigger_reference"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppID:            v.GetString("app_id"),
		Instruments:      instruments,
		GatewayAddress:   v.GetString("gateway_address"),
		BroadcastAddress: v.GetString("broadcast_address"),
		MetricsAddress:   v.GetString("metrics_address"),
		CommandQueueSize: v.GetInt("command_queue_size"),
		ResultQueueSize:  v.GetInt("result_queue_size"),
		LogLevel:         v.GetString("log_level"),
		SelfTradePolicy:  selfTrade,
		TriggerReference: triggerRef,
	}, nil
}

func parseSelfTradePolicy(s string) (matching.SelfTradePolicy, error) {
	switch strings.ToLower(s) {
	case "cancel_maker", "":
		return matching.CancelMaker, nil
	case "cancel_taker":
		return matching.CancelTaker, nil
	case "cancel_both":
		return matching.CancelBoth, nil
	case "allow_cross":
		return matching.AllowCross, nil
	default:
		return 0, fmt.Errorf("config: unknown self_trade_policy %q", s)
	}
}

func parseTriggerReference(s string) (matching.TriggerReference, error) {
	switch strings.ToLower(s) {
	case "last_trade", "":
		return matching.LastTradeReference, nil
	case "best_opposite":
		return matching.BestOppositeReference, nil
	case "midpoint":
		return matching.MidpointReference, nil
	default:
		return 0, fmt.Errorf("config: unknown trigger_reference %q", s)
	}
}
