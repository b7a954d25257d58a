package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"schafkopf/internal/app"
	"schafkopf/internal/bot"
	"schafkopf/internal/config"
	"schafkopf/internal/domain"
	"schafkopf/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	MatchID   string                      `json:"match_id"`
	Seats     [app.SeatsPerTable]string   `json:"seats"`      // user IDs, empty string means seat is empty
	OwnerSeat int                         `json:"owner_seat"` // seat index of the match owner
	Tick      int64                       `json:"tick"`
	Presences map[string]runtime.Presence `json:"-"` // connected users only
	App       *app.Service                `json:"-"`
	Table     *app.Table                  `json:"-"`
	Tickets   *app.TicketService          `json:"-"` // nil disables seat reclaim
	Archive   ports.DealArchivePort       `json:"-"`
	Stats     ports.StatsPort             `json:"-"`

	BotsEnabled      bool                  `json:"bots_enabled"`
	BotMinDelay      int                   `json:"bot_min_delay"`       // min seconds a bot waits
	BotMaxDelay      int                   `json:"bot_max_delay"`       // max seconds a bot waits
	BotAutoFillDelay int                   `json:"bot_auto_fill_delay"` // seconds before empty seats get bots
	BotWaitUntil     int64                 `json:"bot_wait_until"`
	LastWaitingTick  int64                 `json:"last_waiting_tick"` // when the lobby started waiting, 0 when not waiting
	Bots             map[string]*bot.Agent `json:"-"`

	TurnSeconds  int   `json:"turn_seconds"`
	TurnSeat     int   `json:"turn_seat"` // seat the turn timer runs for
	TurnDeadline int64 `json:"turn_deadline"`

	DealsPerMatch int        `json:"deals_per_match"`
	Rng           *rand.Rand `json:"-"`
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetHumanPlayerCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" && !isBotUserId(seat) {
			count++
		}
	}
	return count
}

func (ms *MatchState) seatOf(userID string) int {
	if userID == "" {
		return -1
	}
	for i, seatUserID := range ms.Seats {
		if seatUserID == userID {
			return i
		}
	}
	return -1
}

func (ms *MatchState) isConnected(userID string) bool {
	_, ok := ms.Presences[userID]
	return ok
}

func (ms *MatchState) dealInProgress() bool {
	return ms.Table != nil && ms.Table.InProgress()
}

func (ms *MatchState) phase() string {
	if ms.Table == nil || ms.Table.Deal == nil {
		return phaseLobby
	}
	switch ms.Table.Deal.Stage() {
	case app.StageBidding:
		return phaseBidding
	case app.StagePlaying:
		return phasePlaying
	default:
		return phaseLobby
	}
}

func (ms *MatchState) dealLimitReached() bool {
	return ms.DealsPerMatch > 0 && ms.Table != nil && ms.Table.DealsPlayed >= ms.DealsPerMatch
}

// isBotUserId reports whether the given user id represents a bot seat.
func isBotUserId(userId string) bool {
	return bot.IsBot(userId)
}

// findFirstHumanSeat returns the first seat held by a connected human or -1 if none exist.
func findFirstHumanSeat(seats []string, presences map[string]runtime.Presence) int {
	for i, userId := range seats {
		if userId == "" || isBotUserId(userId) {
			continue
		}
		if _, ok := presences[userId]; ok {
			return i
		}
	}
	return -1
}

// shouldTerminateNoHumans returns true when no human is connected to the match.
func shouldTerminateNoHumans(seats []string, presences map[string]runtime.Presence) bool {
	return findFirstHumanSeat(seats, presences) == -1
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	if err := bot.LoadIdentities(botIdentitiesPath); err != nil {
		logger.Warn("MatchInit: Could not load bot identities: %v", err)
	}
	if err := config.LoadGameConfig(gameConfigPath); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	state := newMatchState(ctx, env, rand.New(rand.NewSource(time.Now().UnixNano())))
	if nk != nil {
		state.Archive = NewNakamaArchiveAdapter(nk)
		state.Stats = NewNakamaStatsAdapter(nk)
	}
	if state.Tickets == nil {
		logger.Warn("MatchInit: %s not set, seat reclaim is disabled.", envTicketSecret)
	}

	label, err := matchLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1 // one tick per second; all delays are counted in ticks
	return state, tickRate, label
}

// newMatchState builds the initial state from config defaults and env overrides.
func newMatchState(ctx context.Context, env map[string]string, rng *rand.Rand) *MatchState {
	minDelay, maxDelay := config.BotDelayRange()
	state := &MatchState{
		Presences:        make(map[string]runtime.Presence),
		App:              app.NewService(rng),
		OwnerSeat:        -1,
		Bots:             make(map[string]*bot.Agent),
		BotMinDelay:      int(minDelay / time.Second),
		BotMaxDelay:      int(maxDelay / time.Second),
		BotAutoFillDelay: int(config.BotAutoFillDelay() / time.Second),
		TurnSeconds:      int(config.TurnDuration() / time.Second),
		TurnSeat:         domain.NoSeat,
		DealsPerMatch:    config.DealsPerMatch(),
		Rng:              rng,
	}
	state.Table = state.App.NewTable()
	if matchID, ok := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string); ok {
		state.MatchID = matchID
	}

	if val, ok := env[envBotsEnabled]; ok {
		state.BotsEnabled = val == "true"
	}
	envInt(env, envBotMinDelay, &state.BotMinDelay)
	envInt(env, envBotMaxDelay, &state.BotMaxDelay)
	envInt(env, envBotAutoFillDelay, &state.BotAutoFillDelay)
	envInt(env, envTurnSeconds, &state.TurnSeconds)
	if state.BotMaxDelay < state.BotMinDelay {
		state.BotMaxDelay = state.BotMinDelay
	}

	if secret := env[envTicketSecret]; secret != "" {
		state.Tickets = app.NewTicketService(secret, config.TicketIssuer(), config.TicketTTL())
	}
	return state
}

func envInt(env map[string]string, key string, dst *int) {
	val, ok := env[key]
	if !ok {
		return
	}
	if i, err := strconv.Atoi(val); err == nil && i > 0 {
		*dst = i
	}
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	userID := presence.GetUserId()
	if seat := matchState.seatOf(userID); seat >= 0 {
		// A seat held through a running deal is only handed back against a ticket.
		if matchState.dealInProgress() && !matchState.isConnected(userID) {
			if err := matchState.verifyTicket(userID, seat, metadata[metadataTicket]); err != nil {
				logger.Warn("MatchJoinAttempt: User %s failed to reclaim seat %d: %v", userID, seat, err)
				return state, false, "seat ticket required"
			}
		}
		return state, true, ""
	}

	// Allow join if there is an empty seat OR a bot to replace (if no deal is running)
	if matchState.GetOpenSeatsCount() <= 0 {
		hasBot := false
		if !matchState.dealInProgress() {
			for _, seat := range matchState.Seats {
				if isBotUserId(seat) {
					hasBot = true
					break
				}
			}
		}
		if !hasBot {
			return state, false, "Match full"
		}
	}

	return state, true, ""
}

func (ms *MatchState) verifyTicket(userID string, seat int, token string) error {
	if ms.Tickets == nil {
		return errors.New("seat reclaim disabled")
	}
	ticket, err := ms.Tickets.Verify(token, ms.MatchID)
	if err != nil {
		return err
	}
	if ticket.UserID != userID || ticket.Seat != seat {
		return app.ErrInvalidTicket
	}
	return nil
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p

		if seat := matchState.seatOf(userID); seat >= 0 {
			logger.Info("MatchJoin: User %s is back in seat %d.", userID, seat)
			mh.resendHand(matchState, dispatcher, logger, seat)
			mh.sendSeatTicket(matchState, dispatcher, logger, seat)
			continue
		}

		// Assign seat: Try empty seats first, then bots (between deals)
		assigned := -1
		for i, seatUserId := range matchState.Seats {
			if seatUserId == "" {
				assigned = i
				break
			}
		}
		if assigned < 0 && !matchState.dealInProgress() {
			for i, seatUserId := range matchState.Seats {
				if isBotUserId(seatUserId) {
					logger.Info("MatchJoin: Replacing bot %s with human %s in seat %d", seatUserId, userID, i)
					delete(matchState.Bots, seatUserId)
					assigned = i
					break
				}
			}
		}
		if assigned < 0 {
			logger.Warn("MatchJoin: User %s joined but no seat (empty or bot) was available.", userID)
			continue
		}
		matchState.Seats[assigned] = userID
		mh.sendSeatTicket(matchState, dispatcher, logger, assigned)
	}

	mh.ensureOwner(matchState, logger)
	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastMatchState(matchState, dispatcher, logger)

	return matchState
}

// ensureOwner keeps the owner on a connected human seat.
func (mh *matchHandler) ensureOwner(state *MatchState, logger runtime.Logger) {
	if state.OwnerSeat >= 0 {
		userID := state.Seats[state.OwnerSeat]
		if userID != "" && !isBotUserId(userID) && state.isConnected(userID) {
			return
		}
	}
	state.OwnerSeat = findFirstHumanSeat(state.Seats[:], state.Presences)
	if state.OwnerSeat >= 0 {
		logger.Debug("Owner set to human seat %d.", state.OwnerSeat)
	}
}

// MatchLeave is called when one or more players leave the match.
// During a deal the seat stays reserved and the turn timer plays for the absent player.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)

		seat := matchState.seatOf(userID)
		if seat < 0 {
			continue
		}
		if matchState.dealInProgress() {
			logger.Info("MatchLeave: User %s left during a deal, seat %d stays reserved.", userID, seat)
			continue
		}
		matchState.Seats[seat] = ""
		logger.Debug("MatchLeave: User %s left, seat %d freed.", userID, seat)
	}

	if shouldTerminateNoHumans(matchState.Seats[:], matchState.Presences) {
		logger.Info("MatchLeave: Terminating match with no humans.")
		return nil
	}

	mh.ensureOwner(matchState, logger)
	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastMatchState(matchState, dispatcher, logger)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartDeal:
			mh.handleStartDeal(ctx, matchState, dispatcher, logger, msg)
		case OpAnnounceIntent:
			mh.handleAnnounceIntent(ctx, matchState, dispatcher, logger, msg)
		case OpBid:
			mh.handleBid(ctx, matchState, dispatcher, logger, msg)
		case OpPlayCard:
			mh.handlePlayCard(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.BotsEnabled {
		mh.processBots(matchState, dispatcher, logger)
	}
	mh.processTurn(ctx, matchState, dispatcher, logger)

	if matchState.dealLimitReached() && !matchState.dealInProgress() {
		logger.Info("MatchLoop: Deal limit of %d reached, closing match.", matchState.DealsPerMatch)
		return nil
	}

	return matchState
}

// processBots fills empty lobby seats with bots once humans waited long enough.
func (mh *matchHandler) processBots(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.dealInProgress() || state.GetHumanPlayerCount() == 0 || state.GetOpenSeatsCount() == 0 {
		state.LastWaitingTick = 0
		return
	}
	if state.LastWaitingTick == 0 {
		state.LastWaitingTick = state.Tick
		logger.Debug("processBots: Open seats detected, starting auto-fill timer.")
	}
	if state.Tick-state.LastWaitingTick < int64(state.BotAutoFillDelay) {
		return
	}

	for i, seat := range state.Seats {
		if seat != "" {
			continue
		}
		identity := bot.GetBotIdentity(i)
		agent, err := bot.NewAgent(identity, state.Rng)
		if err != nil {
			logger.Error("processBots: Failed to create bot agent for %s: %v", identity.UserID, err)
			continue
		}
		state.Seats[i] = identity.UserID
		state.Bots[identity.UserID] = agent
		logger.Info("processBots: Added bot %s (%s) to seat %d", identity.Username, identity.UserID, i)
	}
	state.LastWaitingTick = 0
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastMatchState(state, dispatcher, logger)
}

// processTurn acts for the seat on turn when it is a bot, its player is gone, or its timer ran out.
func (mh *matchHandler) processTurn(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if !state.dealInProgress() {
		state.resetTurn()
		return
	}
	seat, ok := state.App.CurrentActor(state.Table)
	if !ok {
		return
	}
	if seat != state.TurnSeat {
		state.TurnSeat = seat
		state.TurnDeadline = state.Tick + int64(state.TurnSeconds)
		state.BotWaitUntil = 0
	}

	userID := state.Seats[seat]
	var decider app.Decider
	switch {
	case isBotUserId(userID):
		if state.BotWaitUntil == 0 {
			delay := state.BotMinDelay
			if spread := state.BotMaxDelay - state.BotMinDelay; spread > 0 {
				delay += state.Rng.Intn(spread + 1)
			}
			state.BotWaitUntil = state.Tick + int64(delay)
			logger.Debug("processTurn: Bot %s (seat %d) will act at tick %d (current %d)", userID, seat, state.BotWaitUntil, state.Tick)
		}
		if state.Tick < state.BotWaitUntil {
			return
		}
		decider = state.botAgent(userID)
	case !state.isConnected(userID):
		logger.Debug("processTurn: Seat %d is away, playing passively.", seat)
		decider = &bot.Agent{ID: userID, Strategy: bot.PassiveBrain{}}
	case state.Tick >= state.TurnDeadline:
		logger.Info("processTurn: Turn timer expired for seat %d.", seat)
		decider = &bot.Agent{ID: userID, Strategy: bot.PassiveBrain{}}
	default:
		return
	}

	events, err := state.App.Step(state.Table, seat, decider)
	if err != nil {
		logger.Error("processTurn: Seat %d failed to act: %v", seat, err)
		return
	}
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
}

func (ms *MatchState) resetTurn() {
	ms.TurnSeat = domain.NoSeat
	ms.TurnDeadline = 0
	ms.BotWaitUntil = 0
}

func (ms *MatchState) botAgent(userID string) *bot.Agent {
	if agent, ok := ms.Bots[userID]; ok {
		return agent
	}
	identity, ok := bot.GetBotConfig(userID)
	if !ok {
		identity = bot.BotIdentity{UserID: userID}
	}
	agent, err := bot.NewAgent(identity, ms.Rng)
	if err != nil {
		agent = &bot.Agent{ID: userID, Strategy: bot.PassiveBrain{}}
	}
	ms.Bots[userID] = agent
	return agent
}

func (mh *matchHandler) handleStartDeal(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	senderSeat := state.seatOf(senderID)

	logger.Info("StartDeal: Request received from %s (seat=%d, owner_seat=%d, open=%d)", senderID, senderSeat, state.OwnerSeat, state.GetOpenSeatsCount())

	if senderSeat < 0 || senderSeat != state.OwnerSeat {
		logger.Warn("StartDeal: User %s tried to deal but is not owner (owner_seat=%d)", senderID, state.OwnerSeat)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeForbidden, "only the owner may deal")
		return
	}
	if state.GetOpenSeatsCount() > 0 {
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeConflict, "all four seats must be taken")
		return
	}
	if humans := state.GetHumanPlayerCount(); humans < app.MinHumansToStartDeal {
		logger.Warn("StartDeal: Cannot deal with %d humans. Need at least %d.", humans, app.MinHumansToStartDeal)
		return
	}
	if state.dealLimitReached() {
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeConflict, "deal limit reached")
		return
	}

	events, err := state.App.StartDeal(state.Table)
	if err != nil {
		logger.Warn("StartDeal: Failed to start deal: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeConflict, err.Error())
		return
	}
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)

	for seat := range state.Seats {
		mh.sendSeatTicket(state, dispatcher, logger, seat)
	}
	logger.Info("StartDeal: Deal %d started, forehand seat %d.", state.Table.Deal.Number, state.Table.Deal.Forehand)
}

func (mh *matchHandler) handleAnnounceIntent(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	mh.handleAction(ctx, state, dispatcher, logger, msg, "AnnounceIntent", func(seat int, req *structpb.Struct) ([]app.Event, error) {
		intent, err := requestBool(req, "intent")
		if err != nil {
			return nil, err
		}
		return state.App.AnnounceIntent(state.Table, seat, intent)
	})
}

func (mh *matchHandler) handleBid(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	mh.handleAction(ctx, state, dispatcher, logger, msg, "Bid", func(seat int, req *structpb.Struct) ([]app.Event, error) {
		contract, err := requestContract(req)
		if err != nil {
			return nil, err
		}
		return state.App.Bid(state.Table, seat, contract)
	})
}

func (mh *matchHandler) handlePlayCard(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	mh.handleAction(ctx, state, dispatcher, logger, msg, "PlayCard", func(seat int, req *structpb.Struct) ([]app.Event, error) {
		card, err := requestCard(req)
		if err != nil {
			return nil, err
		}
		return state.App.PlayCard(state.Table, seat, card)
	})
}

// handleAction resolves the sender's seat, decodes the request and runs apply on it.
func (mh *matchHandler) handleAction(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData, name string, apply func(seat int, req *structpb.Struct) ([]app.Event, error)) {
	senderID := msg.GetUserId()
	senderSeat := state.seatOf(senderID)
	if senderSeat < 0 {
		logger.Warn("%s: User %s has no seat.", name, senderID)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeForbidden, "no seat in this match")
		return
	}

	req, err := decodeRequest(msg.GetData())
	if err != nil {
		logger.Warn("%s: Invalid request from %s: %v", name, senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeBadRequest, "malformed request")
		return
	}

	events, err := apply(senderSeat, req)
	if err != nil {
		logger.Warn("%s: User %s (seat %d) failed: %v", name, senderID, senderSeat, err)
		mh.sendError(state, dispatcher, logger, senderID, errorCode(err), err.Error())
		return
	}
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrOutOfTurn),
		errors.Is(err, app.ErrNotBidding),
		errors.Is(err, app.ErrNotPlaying),
		errors.Is(err, app.ErrNoDeal),
		errors.Is(err, domain.ErrAlreadyOver),
		errors.Is(err, domain.ErrIntentPhaseOver),
		errors.Is(err, domain.ErrIntentPhaseActive),
		errors.Is(err, domain.ErrAuctionFinished):
		return ErrCodeConflict
	default:
		return ErrCodeBadRequest
	}
}

// dispatchEvents sends events to clients and runs the bookkeeping a finished deal needs.
func (mh *matchHandler) dispatchEvents(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	phaseChanged := false
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
		switch ev.Kind {
		case app.EventDealStarted, app.EventContractDecided:
			phaseChanged = true
		case app.EventDealEnded:
			phaseChanged = true
			mh.finishDeal(ctx, state, logger, ev.Payload.(app.DealEndedPayload).Summary)
		}
	}
	// The next actor always gets a fresh timer, even when the same seat acts again.
	state.resetTurn()

	if phaseChanged {
		mh.ensureOwner(state, logger)
		mh.updateLabel(state, dispatcher, logger)
		mh.broadcastMatchState(state, dispatcher, logger)
	}
}

func (mh *matchHandler) finishDeal(ctx context.Context, state *MatchState, logger runtime.Logger, summary app.DealSummary) {
	logger.Info("Deal %s ended: %s, points %v", summary.DealID, outcome(summary.Result), summary.Result.Points)

	if state.Archive != nil {
		if err := state.Archive.SaveDeal(ctx, dealRecord(state.MatchID, state.Seats, summary, time.Now())); err != nil {
			logger.Error("Failed to archive deal %s: %v", summary.DealID, err)
		}
	}
	if state.Stats != nil {
		if err := state.Stats.RecordDeal(ctx, statsUpdates(state.Seats, summary.Result)); err != nil {
			logger.Error("Failed to record stats for deal %s: %v", summary.DealID, err)
		}
	}

	// Seats reserved for players who never came back are released.
	for i, userID := range state.Seats {
		if userID != "" && !isBotUserId(userID) && !state.isConnected(userID) {
			logger.Info("Releasing seat %d of absent user %s.", i, userID)
			state.Seats[i] = ""
		}
	}
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, fields, err := eventPayload(ev)
	if err != nil {
		logger.Warn("broadcastEvent: %v", err)
		return
	}
	data, err := encodePayload(fields)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, seat := range ev.Recipients {
			if seat < 0 || seat >= len(state.Seats) {
				continue
			}
			if p, ok := state.Presences[state.Seats[seat]]; ok {
				recipients = append(recipients, p)
			}
		}

		// Private events for bots or absent players must not leak to everyone else.
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast event %v: %v", ev.Kind, err)
	}
}

// resendHand gives a returning player the cards still in their hand.
func (mh *matchHandler) resendHand(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, seat int) {
	if !state.dealInProgress() {
		return
	}
	hand := state.Table.Deal.Game.Hand(seat).Cards
	domain.SortHand(hand)
	mh.broadcastEvent(state, dispatcher, logger, app.Event{
		Kind:       app.EventHandDealt,
		Payload:    app.HandDealtPayload{Seat: seat, Hand: hand},
		Recipients: []int{seat},
	})
}

// sendSeatTicket privately hands a connected human a fresh ticket for their seat.
func (mh *matchHandler) sendSeatTicket(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, seat int) {
	userID := state.Seats[seat]
	presence, ok := state.Presences[userID]
	if !ok || state.Tickets == nil || state.MatchID == "" {
		return
	}
	token, err := state.Tickets.Issue(userID, state.MatchID, seat)
	if err != nil {
		logger.Error("Failed to issue seat ticket for %s: %v", userID, err)
		return
	}
	data, err := encodePayload(map[string]interface{}{"seat": seat, "ticket": token})
	if err != nil {
		logger.Error("Failed to marshal seat ticket: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpSeatTicket, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("Failed to send seat ticket to %s: %v", userID, err)
	}
}

func (mh *matchHandler) broadcastMatchState(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	players := make([]interface{}, 0, len(state.Seats))
	for i, userID := range state.Seats {
		if userID == "" {
			continue
		}

		displayName := userID
		if p, exists := state.Presences[userID]; exists {
			displayName = p.GetUsername()
		} else if name := bot.GetBotDisplayName(userID); name != "" {
			displayName = name
		}

		cardsRemaining := 0
		if state.Table != nil && state.Table.Deal != nil {
			cardsRemaining = len(state.Table.Deal.Game.Hand(i).Cards)
		}

		players = append(players, map[string]interface{}{
			"user_id":         userID,
			"seat":            i,
			"is_owner":        i == state.OwnerSeat,
			"is_bot":          isBotUserId(userID),
			"connected":       isBotUserId(userID) || state.isConnected(userID),
			"display_name":    displayName,
			"cards_remaining": cardsRemaining,
		})
	}

	snapshot := map[string]interface{}{
		"seats":      stringsToValues(state.Seats[:]),
		"owner_seat": state.OwnerSeat,
		"tick":       state.Tick,
		"phase":      state.phase(),
		"players":    players,
	}
	if state.Table != nil {
		snapshot["score"] = intsToValues(state.Table.Score[:])
		snapshot["deals_played"] = state.Table.DealsPlayed
		snapshot["next_forehand"] = state.Table.NextForehand
	}

	data, err := encodePayload(snapshot)
	if err != nil {
		logger.Error("Failed to marshal match state: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpMatchState, data, nil, nil, true); err != nil {
		logger.Error("Failed to broadcast match state: %v", err)
	}
}

// sendError sends a GameError message to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	data, err := encodePayload(map[string]interface{}{
		"code":    code,
		"message": message,
	})
	if err != nil {
		logger.Error("Failed to marshal game error: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	if err := dispatcher.BroadcastMessage(OpGameError, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("Failed to send error to %s: %v", userID, err)
	}
}

// matchLabel renders the label used by quick match queries.
func matchLabel(state *MatchState) (string, error) {
	label, err := structpb.NewStruct(map[string]interface{}{
		labelKeyOpenSeats: state.GetOpenSeatsCount(),
		labelKeyGame:      labelGameName,
		labelKeyPhase:     state.phase(),
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := protojson.Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := matchLabel(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d grace seconds", graceSeconds)
	return state
}

// seatSignal is the MatchSignal payload used by the seat ticket RPC.
type seatSignal struct {
	Op     string `json:"op"`
	UserID string `json:"user_id"`
}

const signalSeatTicket = "seat_ticket"

// MatchSignal answers seat ticket requests with a signed ticket, or an empty string when the
// user holds no seat.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, ""
	}

	var signal seatSignal
	if err := json.Unmarshal([]byte(data), &signal); err != nil || signal.Op != signalSeatTicket {
		logger.Warn("MatchSignal: Unsupported signal %q", data)
		return matchState, ""
	}
	seat := matchState.seatOf(signal.UserID)
	if seat < 0 || matchState.Tickets == nil {
		return matchState, ""
	}
	token, err := matchState.Tickets.Issue(signal.UserID, matchState.MatchID, seat)
	if err != nil {
		logger.Error("MatchSignal: Failed to issue ticket for %s: %v", signal.UserID, err)
		return matchState, ""
	}
	return matchState, token
}
