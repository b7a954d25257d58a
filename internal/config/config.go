package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	defaultTurnDuration     = 30 * time.Second
	defaultBotAutoFillDelay = 5 * time.Second
	defaultBotMinDelay      = 1 * time.Second
	defaultBotMaxDelay      = 3 * time.Second
	defaultTicketTTL        = 10 * time.Minute
	defaultTicketIssuer     = "schafkopf"
	defaultDealsPerMatch    = 0
)

type GameConfig struct {
	TurnDurationSeconds int `json:"turn_duration_seconds"`
	// BotAutoFillDelaySeconds configures how many seconds to wait before filling empty seats with bots.
	BotAutoFillDelaySeconds int `json:"bot_auto_fill_delay_seconds"`
	BotMinDelaySeconds      int `json:"bot_min_delay_seconds"`
	BotMaxDelaySeconds      int `json:"bot_max_delay_seconds"`
	// TicketTTLSeconds bounds how long a dropped player may reclaim a seat.
	TicketTTLSeconds int    `json:"ticket_ttl_seconds"`
	TicketIssuer     string `json:"ticket_issuer"`
	// DealsPerMatch closes the match after that many deals; 0 means unlimited.
	DealsPerMatch int `json:"deals_per_match"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		if c.BotMinDelaySeconds > c.BotMaxDelaySeconds && c.BotMaxDelaySeconds > 0 {
			loadErr = fmt.Errorf("bot_min_delay_seconds %d exceeds bot_max_delay_seconds %d", c.BotMinDelaySeconds, c.BotMaxDelaySeconds)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration, nil before a successful load.
func GetGameConfig() *GameConfig {
	return cfg
}

func seconds(v int, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return time.Duration(v) * time.Second
}

// TurnDuration is how long a seat may think before the server acts for it.
func TurnDuration() time.Duration {
	if cfg == nil {
		return defaultTurnDuration
	}
	return seconds(cfg.TurnDurationSeconds, defaultTurnDuration)
}

// BotAutoFillDelay is how long a lobby waits before bots take the empty seats.
func BotAutoFillDelay() time.Duration {
	if cfg == nil {
		return defaultBotAutoFillDelay
	}
	return seconds(cfg.BotAutoFillDelaySeconds, defaultBotAutoFillDelay)
}

// BotDelayRange returns the bounds of the artificial thinking time of bots.
func BotDelayRange() (time.Duration, time.Duration) {
	if cfg == nil {
		return defaultBotMinDelay, defaultBotMaxDelay
	}
	lo := seconds(cfg.BotMinDelaySeconds, defaultBotMinDelay)
	hi := seconds(cfg.BotMaxDelaySeconds, defaultBotMaxDelay)
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// TicketTTL is the lifetime of seat tickets.
func TicketTTL() time.Duration {
	if cfg == nil {
		return defaultTicketTTL
	}
	return seconds(cfg.TicketTTLSeconds, defaultTicketTTL)
}

// TicketIssuer is the iss claim of seat tickets.
func TicketIssuer() string {
	if cfg == nil || cfg.TicketIssuer == "" {
		return defaultTicketIssuer
	}
	return cfg.TicketIssuer
}

// DealsPerMatch returns the deal limit of a match, 0 for none.
func DealsPerMatch() int {
	if cfg == nil || cfg.DealsPerMatch < 0 {
		return defaultDealsPerMatch
	}
	return cfg.DealsPerMatch
}
