package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"
)

// gRPC status codes used by runtime errors.
const (
	codeInvalidArgument = 3
	codeNotFound        = 5
	codeInternal        = 13
	codeUnauthenticated = 16
)

type seatTicketRequest struct {
	MatchID string `json:"match_id"`
}

type seatTicketResponse struct {
	Ticket string `json:"ticket"`
}

// rpcSeatTicket asks a match for a fresh ticket on the caller's seat.
// Payload: {"match_id": "..."}
func rpcSeatTicket(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("authentication required", codeUnauthenticated)
	}

	var req seatTicketRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.MatchID == "" {
		return "", runtime.NewError("match_id required", codeInvalidArgument)
	}

	signal, _ := json.Marshal(seatSignal{Op: signalSeatTicket, UserID: userID})
	token, err := nk.MatchSignal(ctx, req.MatchID, string(signal))
	if err != nil {
		logger.Warn("rpcSeatTicket: Signal to match %s failed: %v", req.MatchID, err)
		return "", runtime.NewError("match not found", codeNotFound)
	}
	if token == "" {
		return "", runtime.NewError("no seat in match", codeNotFound)
	}

	b, _ := json.Marshal(seatTicketResponse{Ticket: token})
	return string(b), nil
}

// rpcPlayerStats returns the caller's stats record.
func rpcPlayerStats(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("authentication required", codeUnauthenticated)
	}

	stats, err := NewNakamaStatsAdapter(nk).ReadStats(ctx, userID)
	if err != nil {
		logger.Error("rpcPlayerStats: Failed to read stats for %s: %v", userID, err)
		return "", runtime.NewError("internal error", codeInternal)
	}
	b, _ := json.Marshal(stats)
	return string(b), nil
}
