package domain

import "errors"

var (
	ErrIllegalBid        = errors.New("illegal bid")
	ErrIllegalPlay       = errors.New("illegal play")
	ErrOutOfTurn         = errors.New("out of turn")
	ErrNotReady          = errors.New("game has no contract yet")
	ErrAlreadyOver       = errors.New("game is already over")
	ErrContractAssigned  = errors.New("contract already assigned")
	ErrInvalidContract   = errors.New("invalid contract")
	ErrInvalidDeal       = errors.New("invalid deal")
	ErrIntentPhaseOver   = errors.New("all intents already announced")
	ErrIntentPhaseActive = errors.New("intents still being announced")
	ErrAuctionFinished   = errors.New("auction is finished")
	ErrGameNotOver       = errors.New("game is not over")
)
