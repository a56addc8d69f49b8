package logic

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Target tiers. Defenders outrank anything a defender is standing next to,
// which outranks the rest of the base.
const (
	TierPlain            = 1
	TierDefenderAdjacent = 2
	TierDefender         = 3
)

// Candidate is one target the companion could commit to.
type Candidate struct {
	Kind     TargetKind
	ID       int
	Tile     Coords
	Tier     int
	Distance int
	HP       int
}

// ScoreEnv is what a score expression can see.
type ScoreEnv struct {
	Tier     int  `expr:"tier"`
	Distance int  `expr:"distance"`
	HP       int  `expr:"hp"`
	Defender bool `expr:"defender"`
}

// Scorer ranks candidates with a compiled expression, e.g.
// "tier * 1000 - distance". A nil Scorer uses that default.
type Scorer struct {
	program *vm.Program
}

func NewScorer(src string) (*Scorer, error) {
	program, err := expr.Compile(src, expr.Env(ScoreEnv{}), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("compile score expression %q: %w", src, err)
	}
	return &Scorer{program: program}, nil
}

// Score evaluates one candidate.
func (s *Scorer) Score(c Candidate) (float64, error) {
	if s == nil {
		return float64(c.Tier*1000 - c.Distance), nil
	}
	env := ScoreEnv{
		Tier:     c.Tier,
		Distance: c.Distance,
		HP:       c.HP,
		Defender: c.Kind == TargetDefender,
	}
	out, err := vm.Run(s.program, env)
	if err != nil {
		return 0, fmt.Errorf("score candidate %s/%d: %w", c.Kind, c.ID, err)
	}
	score, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("score candidate %s/%d: got %T", c.Kind, c.ID, out)
	}
	return score, nil
}

// candidates lists every target reachable from pos within maxDist route
// tiles, defenders first, then buildings, each in snapshot order.
func (e *Engine) candidates(pos Coords, maxDist int) []Candidate {
	st := e.state
	var out []Candidate

	for _, d := range st.Defenders {
		if !d.Alive {
			continue
		}
		dist, ok := e.routes.Distance(pos, d.Pos)
		if !ok || dist > maxDist {
			continue
		}
		out = append(out, Candidate{Kind: TargetDefender, ID: d.ID, Tile: d.Pos, Tier: TierDefender, Distance: dist, HP: d.Health})
	}

	for _, b := range st.Buildings {
		if b.HP <= 0 {
			continue
		}
		tiles := e.board.RoadsAround(b.Origin, b.Width)
		tier := TierPlain
		if e.defenderOnAny(tiles) {
			tier = TierDefenderAdjacent
		}
		tile, dist, ok := e.closestTile(pos, tiles)
		if !ok || dist > maxDist {
			continue
		}
		out = append(out, Candidate{Kind: TargetBuilding, ID: b.ID, Tile: tile, Tier: tier, Distance: dist, HP: b.HP})
	}
	return out
}

func (e *Engine) defenderOnAny(tiles []Coords) bool {
	for _, d := range e.state.Defenders {
		if !d.Alive {
			continue
		}
		for _, t := range tiles {
			if d.Pos == t {
				return true
			}
		}
	}
	return false
}

func (e *Engine) closestTile(from Coords, tiles []Coords) (Coords, int, bool) {
	var (
		best     Coords
		bestDist int
		found    bool
	)
	for _, t := range tiles {
		d, ok := e.routes.Distance(from, t)
		if !ok {
			continue
		}
		if !found || d < bestDist {
			best, bestDist, found = t, d, true
		}
	}
	return best, bestDist, found
}

// rankTarget returns the best scoring candidate. Ties keep the earlier one.
func (e *Engine) rankTarget(pos Coords, maxDist int) (Candidate, bool, error) {
	var (
		best      Candidate
		bestScore float64
		found     bool
	)
	for _, c := range e.candidates(pos, maxDist) {
		score, err := e.scorer.Score(c)
		if err != nil {
			return Candidate{}, false, err
		}
		if !found || score > bestScore {
			best, bestScore, found = c, score, true
		}
	}
	return best, found, nil
}
