package deck

import (
	"errors"
	"fmt"
	"time"
)

// Validation modes control who decides whether an answer is correct.
const (
	ValidationHostJudged = "host-judged"
	ValidationAutoCheck  = "auto-check"
)

// Defaults applied by Validate when a deck omits rule values.
const (
	DefaultBuzzOpenDelayMs   = 3000
	DefaultAnswerTimeSeconds = 10
)

var ErrInvalidDeck = errors.New("invalid deck")

// Media is an optional attachment shown alongside a clue.
type Media struct {
	Type string `json:"type" yaml:"type"` // image, audio, or video
	URL  string `json:"url" yaml:"url"`
}

// Clue is a single board cell.
type Clue struct {
	ID                string   `json:"id" yaml:"id"`
	Value             int      `json:"value" yaml:"value"`
	Text              string   `json:"clueText" yaml:"clueText"`
	AcceptableAnswers []string `json:"acceptableAnswers" yaml:"acceptableAnswers"`
	IsDailyDouble     bool     `json:"isDailyDouble,omitempty" yaml:"isDailyDouble,omitempty"`
	Media             *Media   `json:"media,omitempty" yaml:"media,omitempty"`
}

// Category is an ordered column of clues.
type Category struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Clues []Clue `json:"clues" yaml:"clues"`
}

// Round is an ordered list of categories.
type Round struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Categories []Category `json:"categories" yaml:"categories"`
}

// Player is a deck-declared participant. Players may also join at runtime
// without being declared here.
type Player struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Team  string `json:"team,omitempty" yaml:"team,omitempty"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// Rules carries the per-game timing and judging configuration.
type Rules struct {
	BuzzOpenDelayMs   int    `json:"buzzOpenDelayMs" yaml:"buzzOpenDelayMs"`
	AnswerTimeSeconds int    `json:"answerTimeSeconds" yaml:"answerTimeSeconds"`
	ReboundEnabled    bool   `json:"reboundEnabled" yaml:"reboundEnabled"`
	ValidationMode    string `json:"validationMode" yaml:"validationMode"`
	BuzzersEnabled    bool   `json:"buzzersEnabled" yaml:"buzzersEnabled"`
}

// BuzzOpenDelay returns the delay between a clue being shown and buzzing
// opening.
func (r Rules) BuzzOpenDelay() time.Duration {
	return time.Duration(r.BuzzOpenDelayMs) * time.Millisecond
}

// AnswerTime returns the budget a player has to answer after winning the
// buzz.
func (r Rules) AnswerTime() time.Duration {
	return time.Duration(r.AnswerTimeSeconds) * time.Second
}

// Deck is the immutable source material for a game session.
type Deck struct {
	Title   string   `json:"title" yaml:"title"`
	Players []Player `json:"players" yaml:"players"`
	Rounds  []Round  `json:"rounds" yaml:"rounds"`
	Rules   Rules    `json:"rules" yaml:"rules"`
}

// Validate checks deck shape and fills rule defaults in place.
func (d *Deck) Validate() error {
	if len(d.Rounds) == 0 {
		return fmt.Errorf("%w: deck has no rounds", ErrInvalidDeck)
	}

	seen := make(map[string]bool)
	for ri, round := range d.Rounds {
		if len(round.Categories) == 0 {
			return fmt.Errorf("%w: round %q has no categories", ErrInvalidDeck, round.Name)
		}
		for _, cat := range round.Categories {
			if cat.ID == "" {
				return fmt.Errorf("%w: category %q in round %d has no id", ErrInvalidDeck, cat.Name, ri)
			}
			if len(cat.Clues) == 0 {
				return fmt.Errorf("%w: category %q has no clues", ErrInvalidDeck, cat.Name)
			}
			for _, clue := range cat.Clues {
				if clue.ID == "" {
					return fmt.Errorf("%w: clue in category %q has no id", ErrInvalidDeck, cat.Name)
				}
				if seen[clue.ID] {
					return fmt.Errorf("%w: duplicate clue id %q", ErrInvalidDeck, clue.ID)
				}
				seen[clue.ID] = true
				if clue.Value <= 0 {
					return fmt.Errorf("%w: clue %q has non-positive value %d", ErrInvalidDeck, clue.ID, clue.Value)
				}
				if len(clue.AcceptableAnswers) == 0 {
					return fmt.Errorf("%w: clue %q has no acceptable answers", ErrInvalidDeck, clue.ID)
				}
			}
		}
	}

	if d.Rules.BuzzOpenDelayMs <= 0 {
		d.Rules.BuzzOpenDelayMs = DefaultBuzzOpenDelayMs
	}
	if d.Rules.AnswerTimeSeconds <= 0 {
		d.Rules.AnswerTimeSeconds = DefaultAnswerTimeSeconds
	}
	switch d.Rules.ValidationMode {
	case "":
		d.Rules.ValidationMode = ValidationAutoCheck
	case ValidationHostJudged, ValidationAutoCheck:
	default:
		return fmt.Errorf("%w: unknown validation mode %q", ErrInvalidDeck, d.Rules.ValidationMode)
	}

	return nil
}

// FindClue resolves a clue within the given round by category and clue id.
func (d *Deck) FindClue(roundIdx int, categoryID, clueID string) (*Category, *Clue, bool) {
	if roundIdx < 0 || roundIdx >= len(d.Rounds) {
		return nil, nil, false
	}
	for ci := range d.Rounds[roundIdx].Categories {
		cat := &d.Rounds[roundIdx].Categories[ci]
		if cat.ID != categoryID {
			continue
		}
		for cli := range cat.Clues {
			if cat.Clues[cli].ID == clueID {
				return cat, &cat.Clues[cli], true
			}
		}
		return cat, nil, false
	}
	return nil, nil, false
}

// CountClues returns the number of clues in the given round.
func (d *Deck) CountClues(roundIdx int) int {
	if roundIdx < 0 || roundIdx >= len(d.Rounds) {
		return 0
	}
	total := 0
	for _, cat := range d.Rounds[roundIdx].Categories {
		total += len(cat.Clues)
	}
	return total
}
