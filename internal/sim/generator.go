package sim

import (
	"fmt"
	"math/rand"
)

type ClubSeed struct {
	Name   string
	Budget int64
}

type PlayerSeed struct {
	Name        string
	Position    string
	MarketValue int64
}

// TransferProposal names players and clubs by their API-assigned IDs; the
// service fills those in from the seeded roster.
type TransferProposal struct {
	PlayerIndex int
	ClubIndex   int
	Fee         int64
}

// Generator produces a deterministic synthetic market for a given seed, so a
// demo run can be replayed exactly.
type Generator struct {
	rnd      *rand.Rand
	sequence int
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

var cityNames = []string{
	"Rivertown", "Eastport", "Highfield", "Santa Lucia", "Nordhaven",
	"Valdoria", "Westmere", "Portus", "Monteverde", "Aldgate",
}

var clubSuffixes = []string{"FC", "United", "City", "Athletic", "Rovers"}

var firstNames = []string{
	"Marco", "Luka", "Kylian", "Jude", "Pedro", "Erling", "Victor", "Bruno",
	"Jamal", "Rodri", "Martin", "Florian", "Rafael", "Nico", "Gabriel",
}

var lastNames = []string{
	"Silva", "Modric", "Fernandes", "Haaland", "Osman", "Kovac", "Martinez",
	"Wirtz", "Leao", "Olise", "Gundogan", "Barella", "Saliba", "Torres",
}

func (g *Generator) NextClub() ClubSeed {
	g.sequence++
	name := fmt.Sprintf("%s %s",
		cityNames[g.rnd.Intn(len(cityNames))],
		clubSuffixes[g.rnd.Intn(len(clubSuffixes))])
	// suffix the sequence so generated names never collide with the unique
	// constraint, whatever the seed
	name = fmt.Sprintf("%s %d", name, g.sequence)
	// 50M to 550M euros
	budget := int64(50_000_000 + g.rnd.Intn(500_000_001))
	return ClubSeed{Name: name, Budget: budget}
}

func (g *Generator) NextPlayer() PlayerSeed {
	g.sequence++
	name := fmt.Sprintf("%s %s %d",
		firstNames[g.rnd.Intn(len(firstNames))],
		lastNames[g.rnd.Intn(len(lastNames))],
		g.sequence)
	position := g.pickPosition()
	return PlayerSeed{
		Name:        name,
		Position:    position,
		MarketValue: g.pickMarketValue(position),
	}
}

// NextProposal picks a player and a destination club at random. The caller
// rejects same-club moves; fees wander around market value so some proposals
// exceed the buyer's budget on purpose.
func (g *Generator) NextProposal(playerCount, clubCount int, marketValue func(int) int64) TransferProposal {
	playerIndex := g.rnd.Intn(playerCount)
	clubIndex := g.rnd.Intn(clubCount)
	value := marketValue(playerIndex)
	// 60% to 180% of market value
	fee := value*int64(60+g.rnd.Intn(121)) / 100
	return TransferProposal{
		PlayerIndex: playerIndex,
		ClubIndex:   clubIndex,
		Fee:         fee,
	}
}

func (g *Generator) pickPosition() string {
	p := g.rnd.Intn(100)
	switch {
	case p < 9:
		return "GK"
	case p < 40:
		return "DF"
	case p < 72:
		return "MF"
	default:
		return "FW"
	}
}

func (g *Generator) pickMarketValue(position string) int64 {
	base := int64(1_000_000)
	var spread int
	switch position {
	case "GK":
		spread = 40_000_000
	case "DF":
		spread = 70_000_000
	case "MF":
		spread = 120_000_000
	default:
		spread = 180_000_000
	}
	return base + int64(g.rnd.Intn(spread))
}
