package economy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // reference timezone must resolve on hosts without zoneinfo
)

// Config holds every pay table and constant the economy games consume.
// It is plain data so operators can override it from a JSON file.
type Config struct {
	LoanAmount        int64  `json:"loanAmount"`
	ReferenceTimezone string `json:"referenceTimezone"`

	Slots    SlotsConfig    `json:"slots"`
	Stacking StackingConfig `json:"stacking"`
	Fishing  FishingConfig  `json:"fishing"`
	Cards    CardsConfig    `json:"cards"`
	Wordle   WordleConfig   `json:"wordle"`
}

// SlotsConfig is the reel and pay table for slots.
// Multipliers are percentages of the bet: 200 pays double.
type SlotsConfig struct {
	AllowedBets    []int64      `json:"allowedBets"`
	Reels          int          `json:"reels"`
	Symbols        []SlotSymbol `json:"symbols"`
	PairMultiplier int64        `json:"pairMultiplier"`
}

// SlotSymbol is one reel symbol with its draw weight and triple payout
type SlotSymbol struct {
	Name             string `json:"name"`
	Weight           int    `json:"weight"`
	TripleMultiplier int64  `json:"tripleMultiplier"`
}

// StackingConfig describes the stacking field and its payout tiers
type StackingConfig struct {
	Cost       int64        `json:"cost"`
	FieldWidth int          `json:"fieldWidth"`
	BaseWidth  int          `json:"baseWidth"`
	BaseSpeed  int          `json:"baseSpeed"` // units per second
	SpeedStep  int          `json:"speedStep"` // added per row
	Tolerance  int          `json:"tolerance"` // accepted drift from the server position
	MaxHeight  int          `json:"maxHeight"`
	RunTimeout Duration     `json:"runTimeout"` // idle time after which a run is forfeited
	Tiers      []PayoutTier `json:"tiers"`
}

// PayoutTier pays Multiplier percent of the cost once Height rows are stacked
type PayoutTier struct {
	Height     int   `json:"height"`
	Multiplier int64 `json:"multiplier"`
}

// FishingConfig describes the pond and what lives in it
type FishingConfig struct {
	AllowedBets []int64    `json:"allowedBets"`
	PondWidth   int        `json:"pondWidth"`
	PondHeight  int        `json:"pondHeight"`
	Spawn       int        `json:"spawn"`
	HookRadius  int        `json:"hookRadius"`
	ReelWindow  Duration   `json:"reelWindow"`
	Entities    []FishKind `json:"entities"`
}

// FishKind is one catchable entity type
type FishKind struct {
	Name       string `json:"name"`
	Weight     int    `json:"weight"`
	Radius     int    `json:"radius"`
	Multiplier int64  `json:"multiplier"`
}

// CardsConfig describes packs, rarities and the card catalog
type CardsConfig struct {
	FreeCooldown Duration        `json:"freeCooldown"`
	Packs        map[string]Pack `json:"packs"`
	Rarities     []Rarity        `json:"rarities"`
	Catalog      []Card          `json:"catalog"`
}

// Pack is a purchasable bundle of cards
type Pack struct {
	Price int64 `json:"price"`
	Size  int   `json:"size"`
}

// Rarity is a card tier with its draw weight and resale price
type Rarity struct {
	Name      string `json:"name"`
	Weight    int    `json:"weight"`
	SellPrice int64  `json:"sellPrice"`
}

// Card is one collectible
type Card struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rarity string `json:"rarity"`
}

// WordleConfig is the daily word pay table
type WordleConfig struct {
	MaxGuesses int `json:"maxGuesses"`
	// PayoutByGuess[i] is paid for a win on guess i+1
	PayoutByGuess []int64 `json:"payoutByGuess"`
}

// Duration is a time.Duration that reads "90s" style strings from JSON
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// DefaultConfig returns the built-in pay tables
func DefaultConfig() Config {
	return Config{
		LoanAmount:        500,
		ReferenceTimezone: "America/New_York",
		Slots: SlotsConfig{
			AllowedBets: []int64{10, 25, 50, 100},
			Reels:       3,
			Symbols: []SlotSymbol{
				{Name: "cherry", Weight: 30, TripleMultiplier: 500},
				{Name: "lemon", Weight: 25, TripleMultiplier: 800},
				{Name: "bell", Weight: 20, TripleMultiplier: 1200},
				{Name: "star", Weight: 15, TripleMultiplier: 2000},
				{Name: "seven", Weight: 8, TripleMultiplier: 5000},
				{Name: "diamond", Weight: 2, TripleMultiplier: 10000},
			},
			PairMultiplier: 200,
		},
		Stacking: StackingConfig{
			Cost:       100,
			FieldWidth: 100,
			BaseWidth:  40,
			BaseSpeed:  40,
			SpeedStep:  5,
			Tolerance:  8,
			MaxHeight:  15,
			RunTimeout: Duration(5 * time.Minute),
			Tiers: []PayoutTier{
				{Height: 3, Multiplier: 50},
				{Height: 5, Multiplier: 120},
				{Height: 8, Multiplier: 200},
				{Height: 12, Multiplier: 500},
				{Height: 15, Multiplier: 1000},
			},
		},
		Fishing: FishingConfig{
			AllowedBets: []int64{10, 25, 50},
			PondWidth:   100,
			PondHeight:  60,
			Spawn:       6,
			HookRadius:  3,
			ReelWindow:  Duration(30 * time.Second),
			Entities: []FishKind{
				{Name: "boot", Weight: 20, Radius: 5, Multiplier: 0},
				{Name: "minnow", Weight: 35, Radius: 4, Multiplier: 100},
				{Name: "bass", Weight: 25, Radius: 4, Multiplier: 200},
				{Name: "pike", Weight: 14, Radius: 3, Multiplier: 400},
				{Name: "goldfish", Weight: 5, Radius: 2, Multiplier: 1000},
				{Name: "kraken", Weight: 1, Radius: 2, Multiplier: 5000},
			},
		},
		Cards: CardsConfig{
			FreeCooldown: Duration(24 * time.Hour),
			Packs: map[string]Pack{
				"basic":   {Price: 100, Size: 3},
				"premium": {Price: 300, Size: 5},
			},
			Rarities: []Rarity{
				{Name: "common", Weight: 70, SellPrice: 10},
				{Name: "rare", Weight: 25, SellPrice: 50},
				{Name: "legendary", Weight: 5, SellPrice: 250},
			},
			Catalog: []Card{
				{ID: "slime", Name: "Slime", Rarity: "common"},
				{ID: "goomba", Name: "Goomba", Rarity: "common"},
				{ID: "octorok", Name: "Octorok", Rarity: "common"},
				{ID: "met", Name: "Met", Rarity: "common"},
				{ID: "chocobo", Name: "Chocobo", Rarity: "rare"},
				{ID: "metroid", Name: "Metroid", Rarity: "rare"},
				{ID: "cacodemon", Name: "Cacodemon", Rarity: "rare"},
				{ID: "master-sword", Name: "Master Sword", Rarity: "legendary"},
				{ID: "triforce", Name: "Triforce", Rarity: "legendary"},
			},
		},
		Wordle: WordleConfig{
			MaxGuesses:    6,
			PayoutByGuess: []int64{500, 300, 200, 120, 80, 50},
		},
	}
}

// LoadConfig reads a JSON override file on top of the defaults.
// Fields absent from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read economy config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse economy config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Location returns the reference timezone used for calendar-day resets
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.ReferenceTimezone)
}

// Validate checks the tables are usable
func (c Config) Validate() error {
	var errs []error
	if c.LoanAmount <= 0 {
		errs = append(errs, errors.New("loanAmount must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("referenceTimezone: %w", err))
	}
	if len(c.Slots.AllowedBets) == 0 || len(c.Slots.Symbols) == 0 || c.Slots.Reels < 2 {
		errs = append(errs, errors.New("slots needs bets, symbols and at least 2 reels"))
	}
	if err := checkBets("slots", c.Slots.AllowedBets); err != nil {
		errs = append(errs, err)
	}
	if !anyPositive(c.Slots.Symbols, func(s SlotSymbol) int { return s.Weight }) {
		errs = append(errs, errors.New("slots needs at least one symbol with a positive weight"))
	}
	if c.Stacking.Cost <= 0 || c.Stacking.BaseWidth <= 0 || c.Stacking.FieldWidth < c.Stacking.BaseWidth {
		errs = append(errs, errors.New("stacking needs a positive cost and a base that fits the field"))
	}
	if c.Stacking.RunTimeout <= 0 || c.Fishing.ReelWindow <= 0 {
		errs = append(errs, errors.New("stacking runTimeout and fishing reelWindow must be positive"))
	}
	if len(c.Fishing.AllowedBets) == 0 || len(c.Fishing.Entities) == 0 || c.Fishing.Spawn <= 0 {
		errs = append(errs, errors.New("fishing needs bets, entities and a positive spawn count"))
	}
	if err := checkBets("fishing", c.Fishing.AllowedBets); err != nil {
		errs = append(errs, err)
	}
	if !anyPositive(c.Fishing.Entities, func(f FishKind) int { return f.Weight }) {
		errs = append(errs, errors.New("fishing needs at least one entity with a positive weight"))
	}
	if len(c.Cards.Rarities) == 0 || len(c.Cards.Catalog) == 0 {
		errs = append(errs, errors.New("cards needs rarities and a catalog"))
	}
	if !anyPositive(c.Cards.Rarities, func(r Rarity) int { return r.Weight }) {
		errs = append(errs, errors.New("cards needs at least one rarity with a positive weight"))
	}
	stocked := make(map[string]bool)
	for _, card := range c.Cards.Catalog {
		if c.Cards.rarity(card.Rarity) == nil {
			errs = append(errs, fmt.Errorf("card %s has unknown rarity %s", card.ID, card.Rarity))
		}
		stocked[card.Rarity] = true
	}
	for _, r := range c.Cards.Rarities {
		if r.Weight > 0 && !stocked[r.Name] {
			errs = append(errs, fmt.Errorf("rarity %s can be drawn but has no cards", r.Name))
		}
	}
	if c.Wordle.MaxGuesses <= 0 || len(c.Wordle.PayoutByGuess) < c.Wordle.MaxGuesses {
		errs = append(errs, errors.New("wordle needs a payout for every allowed guess"))
	}
	return errors.Join(errs...)
}

func checkBets(game string, bets []int64) error {
	for _, b := range bets {
		if b <= 0 {
			return fmt.Errorf("%s bets must be positive, got %d", game, b)
		}
	}
	return nil
}

func anyPositive[T any](items []T, weight func(T) int) bool {
	for _, item := range items {
		if weight(item) > 0 {
			return true
		}
	}
	return false
}

func (c CardsConfig) rarity(name string) *Rarity {
	for i := range c.Rarities {
		if c.Rarities[i].Name == name {
			return &c.Rarities[i]
		}
	}
	return nil
}
