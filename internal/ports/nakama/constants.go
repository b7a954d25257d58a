package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "quick_match"
	// RpcSeatTicket returns a fresh seat ticket for the caller's seat in a match.
	RpcSeatTicket = "seat_ticket"
	// RpcPlayerStats returns the caller's stats record.
	RpcPlayerStats = "player_stats"

	// MatchNameSchafkopf is the authoritative match handler name registered with Nakama.
	MatchNameSchafkopf = "schafkopf_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartDeal      int64 = 1
	OpAnnounceIntent int64 = 2
	OpBid            int64 = 3
	OpPlayCard       int64 = 4

	// Server -> Client events
	OpMatchState      int64 = 100
	OpDealStarted     int64 = 101
	OpIntentAnnounced int64 = 102
	OpBidPlaced       int64 = 103
	OpContractDecided int64 = 104
	OpCardPlayed      int64 = 105
	OpTrickCompleted  int64 = 106
	OpDealEnded       int64 = 107
	OpSeatTicket      int64 = 108 // send privately
	OpHandDealt       int64 = 109 // send privately
	OpGameError       int64 = 110 // send privately
)

// Error codes carried by OpGameError.
const (
	ErrCodeBadRequest = 400
	ErrCodeForbidden  = 403
	ErrCodeConflict   = 409
)

const (
	labelKeyOpenSeats = "open"
	labelKeyGame      = "game"
	labelKeyPhase     = "phase"
	labelGameName     = "schafkopf"

	phaseLobby   = "lobby"
	phaseBidding = "bidding"
	phasePlaying = "playing"

	envBotsEnabled      = "schafkopf_bots_enabled"
	envBotMinDelay      = "schafkopf_bot_min_delay_sec"
	envBotMaxDelay      = "schafkopf_bot_max_delay_sec"
	envBotAutoFillDelay = "schafkopf_bot_auto_fill_delay_sec"
	envTurnSeconds      = "schafkopf_turn_seconds"
	envTicketSecret     = "schafkopf_ticket_secret"

	metadataTicket = "ticket"

	dealCollection  = "schafkopf_deals"
	statsCollection = "schafkopf_stats"
	statsKey        = "stats"

	gameConfigPath    = "data/game_config.json"
	botIdentitiesPath = "data/bot_identities.json"
)
