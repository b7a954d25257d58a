package app

// MinHumansToStartDeal is how many human players must be seated before the owner may deal.
// Empty seats are filled by bots when they are enabled.
const MinHumansToStartDeal = 1

// SeatsPerTable is fixed by the game.
const SeatsPerTable = 4
