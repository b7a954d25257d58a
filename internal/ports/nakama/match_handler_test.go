package nakama

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"

	"schafkopf/internal/app"
	"schafkopf/internal/bot"
	"schafkopf/internal/domain"
	"schafkopf/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/types/known/structpb"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode    int64
	data      []byte
	presences []runtime.Presence
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	messages     []sentMessage
	labelUpdates int
	lastLabel    string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.messages = append(md.messages, sentMessage{
		opCode:    opCode,
		data:      append([]byte(nil), data...),
		presences: presences,
	})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

func (md *mockDispatcher) byOpCode(opCode int64) []sentMessage {
	var out []sentMessage
	for _, m := range md.messages {
		if m.opCode == opCode {
			out = append(out, m)
		}
	}
	return out
}

func (md *mockDispatcher) last(t *testing.T) sentMessage {
	t.Helper()
	if len(md.messages) == 0 {
		t.Fatal("no message was sent")
	}
	return md.messages[len(md.messages)-1]
}

type mockPresence struct {
	userID string
}

func (p mockPresence) GetHidden() bool                   { return false }
func (p mockPresence) GetPersistence() bool              { return false }
func (p mockPresence) GetUsername() string               { return "name-" + p.userID }
func (p mockPresence) GetStatus() string                 { return "" }
func (p mockPresence) GetReason() runtime.PresenceReason { return 0 }
func (p mockPresence) GetUserId() string                 { return p.userID }
func (p mockPresence) GetSessionId() string              { return "session-" + p.userID }
func (p mockPresence) GetNodeId() string                 { return "node" }

type mockMatchData struct {
	mockPresence
	opCode int64
	data   []byte
}

func (m mockMatchData) GetOpCode() int64      { return m.opCode }
func (m mockMatchData) GetData() []byte       { return m.data }
func (m mockMatchData) GetReliable() bool     { return true }
func (m mockMatchData) GetReceiveTime() int64 { return 0 }

type mockArchive struct {
	records []ports.DealRecord
}

func (m *mockArchive) SaveDeal(ctx context.Context, record ports.DealRecord) error {
	m.records = append(m.records, record)
	return nil
}

type mockStats struct {
	updates []ports.StatsUpdate
}

func (m *mockStats) InitStatsOnce(ctx context.Context, userID string) (bool, error) {
	return true, nil
}

func (m *mockStats) RecordDeal(ctx context.Context, updates []ports.StatsUpdate) error {
	m.updates = append(m.updates, updates...)
	return nil
}

func init() {
	// Load bot identities for testing.
	if err := bot.LoadIdentities("test_bot_identities.json"); err != nil {
		panic("Failed to load bot identities for tests: " + err.Error())
	}
}

func newTestState(t *testing.T) *MatchState {
	t.Helper()
	env := map[string]string{envTicketSecret: "test-secret"}
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_MATCH_ID, "match-1")
	state := newMatchState(ctx, env, rand.New(rand.NewSource(1)))
	state.Archive = &mockArchive{}
	state.Stats = &mockStats{}
	return state
}

func presences(userIDs ...string) map[string]runtime.Presence {
	out := make(map[string]runtime.Presence)
	for _, id := range userIDs {
		out[id] = mockPresence{userID: id}
	}
	return out
}

func encodeRequest(t *testing.T, fields map[string]interface{}) []byte {
	t.Helper()
	data, err := encodePayload(fields)
	if err != nil {
		t.Fatalf("encodePayload error: %v", err)
	}
	return data
}

func decodeMessage(t *testing.T, m sentMessage) *structpb.Struct {
	t.Helper()
	msg, err := decodeRequest(m.data)
	if err != nil {
		t.Fatalf("decode message %d: %v", m.opCode, err)
	}
	return msg
}

// seatFullTable seats user-1 and user-2 plus two bots and starts a deal.
func seatFullTable(t *testing.T, state *MatchState) {
	t.Helper()
	state.Seats = [app.SeatsPerTable]string{"user-1", "user-2", bot.GetBotIdentity(0).UserID, bot.GetBotIdentity(1).UserID}
	state.Presences = presences("user-1", "user-2")
	state.OwnerSeat = 0
	if _, err := state.App.StartDeal(state.Table); err != nil {
		t.Fatalf("StartDeal error: %v", err)
	}
}

func TestFindFirstHumanSeat(t *testing.T) {
	bot1 := bot.GetBotIdentity(0).UserID
	bot2 := bot.GetBotIdentity(1).UserID

	tests := []struct {
		name      string
		seats     []string
		connected []string
		want      int
	}{
		{
			name:      "FirstHumanAfterBot",
			seats:     []string{bot1, "user-1", "", ""},
			connected: []string{"user-1"},
			want:      1,
		},
		{
			name:  "AllBots",
			seats: []string{bot1, bot2, "", ""},
			want:  -1,
		},
		{
			name:  "AllEmpty",
			seats: []string{"", "", "", ""},
			want:  -1,
		},
		{
			name:      "SkipsAbsentHuman",
			seats:     []string{"user-1", bot1, "user-2", ""},
			connected: []string{"user-2"},
			want:      2,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := findFirstHumanSeat(test.seats, presences(test.connected...)); got != test.want {
				t.Fatalf("findFirstHumanSeat() = %d, want %d", got, test.want)
			}
		})
	}
}

func TestShouldTerminateNoHumans(t *testing.T) {
	bot1 := bot.GetBotIdentity(0).UserID
	bot3 := bot.GetBotIdentity(2).UserID

	tests := []struct {
		name      string
		seats     []string
		connected []string
		want      bool
	}{
		{"BotsAndEmpty", []string{bot1, "", bot3, ""}, nil, true},
		{"HumanConnected", []string{bot1, "user-1", "", ""}, []string{"user-1"}, false},
		{"HumanAway", []string{bot1, "user-1", "", ""}, nil, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := shouldTerminateNoHumans(test.seats, presences(test.connected...)); got != test.want {
				t.Fatalf("shouldTerminateNoHumans() = %t, want %t", got, test.want)
			}
		})
	}
}

func TestMatchLabel(t *testing.T) {
	state := newTestState(t)
	state.Seats[0] = "user-1"

	raw, err := matchLabel(state)
	if err != nil {
		t.Fatalf("matchLabel error: %v", err)
	}
	var label map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &label); err != nil {
		t.Fatalf("label is not JSON: %v", err)
	}
	if label["open"] != float64(3) || label["game"] != "schafkopf" || label["phase"] != "lobby" {
		t.Fatalf("unexpected label %v", label)
	}

	seatFullTable(t, state)
	raw, _ = matchLabel(state)
	label = nil
	if err := json.Unmarshal([]byte(raw), &label); err != nil {
		t.Fatalf("label is not JSON: %v", err)
	}
	if label["open"] != float64(0) || label["phase"] != "bidding" {
		t.Fatalf("unexpected label during deal %v", label)
	}
}

func TestProcessBots_FillsOpenSeats(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestState(t)
	state.Seats = [app.SeatsPerTable]string{"user-1", "", "", ""}
	state.Presences = presences("user-1")
	state.BotAutoFillDelay = 2
	state.LastWaitingTick = 8
	state.Tick = 9

	handler.processBots(state, dispatcher, noopLogger{})
	if state.GetOpenSeatsCount() != 3 {
		t.Fatalf("bots added before the delay passed")
	}

	state.Tick = 10
	handler.processBots(state, dispatcher, noopLogger{})

	if state.GetOpenSeatsCount() != 0 {
		t.Fatalf("Expected no open seat after auto-fill, got %d", state.GetOpenSeatsCount())
	}
	for i := 1; i < app.SeatsPerTable; i++ {
		if !isBotUserId(state.Seats[i]) {
			t.Fatalf("seat %d holds %q, want a bot", i, state.Seats[i])
		}
		if _, ok := state.Bots[state.Seats[i]]; !ok {
			t.Fatalf("no agent for bot in seat %d", i)
		}
	}
	if state.LastWaitingTick != 0 {
		t.Fatalf("Expected auto-fill timer reset, got %d", state.LastWaitingTick)
	}
	if len(dispatcher.byOpCode(OpMatchState)) == 0 || dispatcher.labelUpdates == 0 {
		t.Fatalf("Expected match state broadcast and label update after auto-fill")
	}
}

func TestMatchLoop_PlaysDealWithBotsAndTimeouts(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestState(t)
	state.BotsEnabled = true
	state.BotAutoFillDelay = 0
	state.BotMinDelay = 0
	state.BotMaxDelay = 0
	state.TurnSeconds = 0
	ctx := context.Background()

	human := mockPresence{userID: "user-1"}
	handler.MatchJoin(ctx, noopLogger{}, nil, nil, dispatcher, 0, state, []runtime.Presence{human})
	if state.OwnerSeat != 0 {
		t.Fatalf("OwnerSeat = %d, want 0", state.OwnerSeat)
	}
	if len(dispatcher.byOpCode(OpSeatTicket)) != 1 {
		t.Fatal("expected a seat ticket on join")
	}

	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 1, state, nil)
	if state.GetOpenSeatsCount() != 0 {
		t.Fatalf("bots did not fill the table")
	}

	start := mockMatchData{mockPresence: human, opCode: OpStartDeal}
	result := handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 2, state, []runtime.MatchData{start})
	if result == nil {
		t.Fatal("match terminated unexpectedly")
	}
	if state.Table.Deal == nil {
		t.Fatal("deal was not started")
	}

	for tick := int64(3); tick < 200 && state.Table.DealsPlayed == 0; tick++ {
		if handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, tick, state, nil) == nil {
			t.Fatal("match terminated unexpectedly")
		}
	}
	if state.Table.DealsPlayed != 1 {
		t.Fatalf("deal did not finish, stage %s", state.Table.Deal.Stage())
	}

	hands := dispatcher.byOpCode(OpHandDealt)
	if len(hands) != 1 || len(hands[0].presences) != 1 || hands[0].presences[0].GetUserId() != "user-1" {
		t.Fatalf("hands must only go to the connected human, got %d messages", len(hands))
	}
	if n := len(dispatcher.byOpCode(OpCardPlayed)); n != domain.DeckSize {
		t.Fatalf("%d card messages, want %d", n, domain.DeckSize)
	}
	if n := len(dispatcher.byOpCode(OpTrickCompleted)); n != domain.TricksPerGame {
		t.Fatalf("%d trick messages, want %d", n, domain.TricksPerGame)
	}

	ended := dispatcher.byOpCode(OpDealEnded)
	if len(ended) != 1 {
		t.Fatalf("%d deal ended messages", len(ended))
	}
	total := 0
	for _, v := range decodeMessage(t, ended[0]).GetFields()["points"].GetListValue().GetValues() {
		total += int(v.GetNumberValue())
	}
	if total != domain.TotalDeckPoints {
		t.Fatalf("points in deal ended message sum to %d", total)
	}

	archive := state.Archive.(*mockArchive)
	if len(archive.records) != 1 || archive.records[0].MatchID != "match-1" || len(archive.records[0].Plays) != domain.DeckSize {
		t.Fatalf("unexpected archive records %+v", archive.records)
	}
	stats := state.Stats.(*mockStats)
	if len(stats.updates) != 1 || stats.updates[0].UserID != "user-1" {
		t.Fatalf("stats must only be recorded for humans, got %+v", stats.updates)
	}
	if state.phase() != phaseLobby {
		t.Fatalf("phase after deal = %s", state.phase())
	}
}

func TestHandleAction_Errors(t *testing.T) {
	handler := &matchHandler{}
	ctx := context.Background()
	human := mockPresence{userID: "user-1"}

	tests := []struct {
		name     string
		opCode   int64
		data     map[string]interface{}
		raw      []byte
		dealt    bool
		wantCode float64
	}{
		{"PlayWithoutDeal", OpPlayCard, map[string]interface{}{"card": "acorns-ace"}, nil, false, ErrCodeConflict},
		{"PlayDuringBidding", OpPlayCard, map[string]interface{}{"card": "acorns-ace"}, nil, true, ErrCodeConflict},
		{"BadCard", OpPlayCard, map[string]interface{}{"card": "joker"}, nil, true, ErrCodeBadRequest},
		{"BadContract", OpBid, map[string]interface{}{"contract": "grand"}, nil, true, ErrCodeBadRequest},
		{"MissingIntent", OpAnnounceIntent, map[string]interface{}{}, nil, true, ErrCodeBadRequest},
		{"Malformed", OpAnnounceIntent, nil, []byte{0xff, 0xff, 0xff}, true, ErrCodeBadRequest},
		{"NotOwner", OpStartDeal, nil, nil, false, ErrCodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &mockDispatcher{}
			state := newTestState(t)
			if tt.dealt {
				seatFullTable(t, state)
			} else {
				state.Seats[0] = "user-1"
				state.Presences = presences("user-1")
				state.OwnerSeat = 3
			}

			data := tt.raw
			if tt.data != nil {
				data = encodeRequest(t, tt.data)
			}
			msg := mockMatchData{mockPresence: human, opCode: tt.opCode, data: data}
			handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{msg})

			errs := dispatcher.byOpCode(OpGameError)
			if len(errs) != 1 {
				t.Fatalf("%d error messages, want 1", len(errs))
			}
			code := decodeMessage(t, errs[0]).GetFields()["code"].GetNumberValue()
			if code != tt.wantCode {
				t.Fatalf("error code %v, want %v", code, tt.wantCode)
			}
		})
	}
}

func TestHandleAnnounceIntent_Broadcasts(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestState(t)
	seatFullTable(t, state)
	forehand := state.Table.Deal.Forehand
	userID := state.Seats[forehand]
	if userID != "user-1" {
		t.Fatalf("first deal forehand is seat %d", forehand)
	}

	msg := mockMatchData{
		mockPresence: mockPresence{userID: userID},
		opCode:       OpAnnounceIntent,
		data:         encodeRequest(t, map[string]interface{}{"intent": true}),
	}
	handler.handleAnnounceIntent(context.Background(), state, dispatcher, noopLogger{}, msg)

	sent := dispatcher.last(t)
	if sent.opCode != OpIntentAnnounced || sent.presences != nil {
		t.Fatalf("last message op %d, want broadcast of %d", sent.opCode, OpIntentAnnounced)
	}
	fields := decodeMessage(t, sent).GetFields()
	if !fields["intent"].GetBoolValue() || fields["next_bidder"].GetNumberValue() != 1 {
		t.Fatalf("unexpected payload %v", fields)
	}
	if !state.Table.Deal.Auction.Intent(0) {
		t.Fatal("intent was not recorded")
	}
}

func TestMatchJoinAttempt_SeatReclaim(t *testing.T) {
	handler := &matchHandler{}
	ctx := context.Background()
	state := newTestState(t)
	seatFullTable(t, state)
	delete(state.Presences, "user-1")

	attempt := func(userID string, metadata map[string]string) bool {
		_, ok, _ := handler.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, &mockDispatcher{}, 1, state, mockPresence{userID: userID}, metadata)
		return ok
	}

	if attempt("user-1", nil) {
		t.Fatal("reclaim without ticket accepted")
	}
	good, err := state.Tickets.Issue("user-1", "match-1", 0)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if !attempt("user-1", map[string]string{metadataTicket: good}) {
		t.Fatal("reclaim with valid ticket rejected")
	}
	wrongSeat, _ := state.Tickets.Issue("user-1", "match-1", 1)
	if attempt("user-1", map[string]string{metadataTicket: wrongSeat}) {
		t.Fatal("ticket for another seat accepted")
	}
	otherMatch, _ := state.Tickets.Issue("user-1", "match-2", 0)
	if attempt("user-1", map[string]string{metadataTicket: otherMatch}) {
		t.Fatal("ticket for another match accepted")
	}
	if attempt("stranger", nil) {
		t.Fatal("stranger joined a full table during a deal")
	}
	if !attempt("user-2", nil) {
		t.Fatal("connected player rejected")
	}
}

func TestMatchJoin_ReplacesBotBetweenDeals(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestState(t)
	botID := bot.GetBotIdentity(0).UserID
	state.Seats = [app.SeatsPerTable]string{"user-1", botID, bot.GetBotIdentity(1).UserID, bot.GetBotIdentity(2).UserID}
	state.Presences = presences("user-1")

	_, ok, _ := handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, mockPresence{userID: "user-2"}, nil)
	if !ok {
		t.Fatal("join rejected although a bot could be replaced")
	}
	handler.MatchJoin(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.Presence{mockPresence{userID: "user-2"}})

	if state.Seats[1] != "user-2" {
		t.Fatalf("seat 1 holds %q, want user-2", state.Seats[1])
	}
	if _, ok := state.Bots[botID]; ok {
		t.Fatal("replaced bot agent was kept")
	}
}

func TestMatchLeave_ReservesSeatDuringDeal(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	ctx := context.Background()
	state := newTestState(t)
	seatFullTable(t, state)

	result := handler.MatchLeave(ctx, noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.Presence{mockPresence{userID: "user-1"}})
	if result == nil {
		t.Fatal("match terminated while a human is connected")
	}
	if state.Seats[0] != "user-1" {
		t.Fatalf("seat 0 freed during the deal")
	}
	if state.OwnerSeat != 1 {
		t.Fatalf("OwnerSeat = %d, want 1", state.OwnerSeat)
	}

	result = handler.MatchLeave(ctx, noopLogger{}, nil, nil, dispatcher, 2, state, []runtime.Presence{mockPresence{userID: "user-2"}})
	if result != nil {
		t.Fatal("match kept running without humans")
	}
}

func TestProcessTurn_AbsentPlayerActsPassively(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestState(t)
	seatFullTable(t, state)
	delete(state.Presences, "user-1")
	state.Tick = 5

	handler.processTurn(context.Background(), state, dispatcher, noopLogger{})

	if state.Table.Deal.Auction.Intent(0) {
		t.Fatal("absent player announced intent")
	}
	if seat, _ := state.Table.Deal.Auction.NextBidder(); seat != 1 {
		t.Fatalf("next bidder = %d, want 1", seat)
	}

	// user-2 is connected and still has time.
	handler.processTurn(context.Background(), state, dispatcher, noopLogger{})
	if seat, _ := state.Table.Deal.Auction.NextBidder(); seat != 1 {
		t.Fatalf("connected player was not given time")
	}
	if state.TurnDeadline != 5+int64(state.TurnSeconds) {
		t.Fatalf("TurnDeadline = %d", state.TurnDeadline)
	}
}

func TestMatchSignal_IssuesSeatTicket(t *testing.T) {
	handler := &matchHandler{}
	state := newTestState(t)
	state.Seats[2] = "user-1"

	signal, _ := json.Marshal(seatSignal{Op: signalSeatTicket, UserID: "user-1"})
	_, token := handler.MatchSignal(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 1, state, string(signal))
	if token == "" {
		t.Fatal("no ticket issued")
	}
	ticket, err := state.Tickets.Verify(token, "match-1")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ticket.Seat != 2 || ticket.UserID != "user-1" {
		t.Fatalf("unexpected ticket %+v", ticket)
	}

	other, _ := json.Marshal(seatSignal{Op: signalSeatTicket, UserID: "nobody"})
	if _, token := handler.MatchSignal(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 1, state, string(other)); token != "" {
		t.Fatal("ticket issued for a user without seat")
	}
	if _, token := handler.MatchSignal(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 1, state, "garbage"); token != "" {
		t.Fatal("ticket issued for garbage signal")
	}
}
