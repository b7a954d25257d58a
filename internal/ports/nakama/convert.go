package nakama

import (
	"fmt"
	"strconv"
	"time"

	"schafkopf/internal/app"
	"schafkopf/internal/domain"
	"schafkopf/internal/ports"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func cardsToValues(cards []domain.Card) []interface{} {
	out := make([]interface{}, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

func intsToValues(xs []int) []interface{} {
	out := make([]interface{}, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func stringsToValues(xs []string) []interface{} {
	out := make([]interface{}, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// eventPayload maps an app event to its op code and message fields.
func eventPayload(ev app.Event) (int64, map[string]interface{}, error) {
	switch p := ev.Payload.(type) {
	case app.DealStartedPayload:
		return OpDealStarted, map[string]interface{}{
			"deal_id":     p.DealID,
			"deal_number": p.DealNumber,
			"forehand":    p.Forehand,
		}, nil
	case app.HandDealtPayload:
		return OpHandDealt, map[string]interface{}{
			"seat": p.Seat,
			"hand": cardsToValues(p.Hand),
		}, nil
	case app.IntentAnnouncedPayload:
		return OpIntentAnnounced, map[string]interface{}{
			"seat":        p.Seat,
			"intent":      p.Intent,
			"next_bidder": p.NextBidder,
		}, nil
	case app.BidPlacedPayload:
		return OpBidPlaced, map[string]interface{}{
			"seat":        p.Seat,
			"bid":         p.Bid.String(),
			"next_bidder": p.NextBidder,
		}, nil
	case app.ContractDecidedPayload:
		return OpContractDecided, map[string]interface{}{
			"contract":     p.Contract.String(),
			"declarer":     p.Declarer,
			"first_player": p.FirstPlayer,
		}, nil
	case app.CardPlayedPayload:
		return OpCardPlayed, map[string]interface{}{
			"seat":        p.Seat,
			"card":        p.Card.String(),
			"trick":       p.Trick,
			"next_player": p.NextPlayer,
		}, nil
	case app.TrickCompletedPayload:
		return OpTrickCompleted, map[string]interface{}{
			"trick":  p.Trick,
			"winner": p.Winner,
			"points": p.Points,
		}, nil
	case app.DealEndedPayload:
		r := p.Summary.Result
		return OpDealEnded, map[string]interface{}{
			"deal_id":      p.Summary.DealID,
			"contract":     r.Contract.String(),
			"declarer":     r.Declarer,
			"partner":      r.Partner,
			"points":       intsToValues(r.Points[:]),
			"tricks":       intsToValues(r.Tricks[:]),
			"outcome":      outcome(r),
			"schneider":    r.Schneider,
			"schwarz":      r.Schwarz,
			"ramsch_loser": r.RamschLoser,
			"score":        intsToValues(p.Score[:]),
		}, nil
	default:
		return 0, nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

func encodePayload(fields map[string]interface{}) ([]byte, error) {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(msg)
}

// decodeRequest reads a client message. An empty body is an empty request.
func decodeRequest(data []byte) (*structpb.Struct, error) {
	req := &structpb.Struct{}
	if len(data) == 0 {
		return req, nil
	}
	if err := proto.Unmarshal(data, req); err != nil {
		return nil, err
	}
	return req, nil
}

func requestString(req *structpb.Struct, key string) (string, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	if _, ok := v.GetKind().(*structpb.Value_StringValue); !ok {
		return "", fmt.Errorf("field %q is not a string", key)
	}
	return v.GetStringValue(), nil
}

func requestBool(req *structpb.Struct, key string) (bool, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return false, fmt.Errorf("missing field %q", key)
	}
	if _, ok := v.GetKind().(*structpb.Value_BoolValue); !ok {
		return false, fmt.Errorf("field %q is not a bool", key)
	}
	return v.GetBoolValue(), nil
}

func requestCard(req *structpb.Struct) (domain.Card, error) {
	s, err := requestString(req, "card")
	if err != nil {
		return domain.Card{}, err
	}
	return domain.ParseCard(s)
}

func requestContract(req *structpb.Struct) (domain.Contract, error) {
	s, err := requestString(req, "contract")
	if err != nil {
		return domain.Contract{}, err
	}
	return domain.ParseContract(s)
}

func outcome(r domain.Result) string {
	switch {
	case r.Contract.Kind == domain.ContractRamsch:
		return "ramsch"
	case r.DeclarerWon:
		return "declarer_won"
	default:
		return "declarer_lost"
	}
}

// dealRecord flattens a finished deal for the archive.
func dealRecord(matchID string, seats [4]string, summary app.DealSummary, finishedAt time.Time) ports.DealRecord {
	plays := make([]string, len(summary.Plays))
	for i, p := range summary.Plays {
		plays[i] = strconv.Itoa(p.Seat) + ":" + p.Card.String()
	}
	return ports.DealRecord{
		MatchID:    matchID,
		DealID:     summary.DealID,
		Number:     summary.Number,
		Forehand:   summary.Forehand,
		Contract:   summary.Contract.String(),
		Declarer:   summary.Result.Declarer,
		Points:     summary.Result.Points,
		Outcome:    outcome(summary.Result),
		Plays:      plays,
		Seats:      seats,
		FinishedAt: finishedAt.UTC(),
	}
}

// statsUpdates derives the per-player stats of a finished deal. Bots and empty seats are skipped.
func statsUpdates(seats [4]string, result domain.Result) []ports.StatsUpdate {
	updates := make([]ports.StatsUpdate, 0, len(seats))
	for seat, userID := range seats {
		if userID == "" || isBotUserId(userID) {
			continue
		}
		updates = append(updates, ports.StatsUpdate{
			UserID:      userID,
			Declared:    seat == result.Declarer,
			DeclarerWon: seat == result.Declarer && result.DeclarerWon,
			Points:      result.Points[seat],
		})
	}
	return updates
}
