package bot

import (
	"fmt"
	"math/rand"
)

// BotLevel selects a Brain implementation.
type BotLevel int

const (
	BotLevelRandom BotLevel = iota
	BotLevelPassive
)

// ParseBotLevel maps an identity style to a level. An empty style means random.
func ParseBotLevel(style string) (BotLevel, error) {
	switch style {
	case "", "random":
		return BotLevelRandom, nil
	case "passive":
		return BotLevelPassive, nil
	default:
		return 0, fmt.Errorf("unknown bot style: %q", style)
	}
}

// NewBrain creates a new AI brain based on the specified level.
func NewBrain(level BotLevel, rng *rand.Rand) (Brain, error) {
	switch level {
	case BotLevelRandom:
		return NewRandomBrain(rng), nil
	case BotLevelPassive:
		return PassiveBrain{}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}

// NewAgent builds the agent for a bot identity.
func NewAgent(identity BotIdentity, rng *rand.Rand) (*Agent, error) {
	level, err := ParseBotLevel(identity.Style)
	if err != nil {
		return nil, err
	}
	brain, err := NewBrain(level, rng)
	if err != nil {
		return nil, err
	}
	return &Agent{ID: identity.UserID, Name: identity.DisplayName, Strategy: brain}, nil
}
