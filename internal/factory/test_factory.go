package factory

import (
	"time"

	"github.com/sqrrr/gamehub/internal/dependencies/mocks"
	"github.com/sqrrr/gamehub/internal/dependencies/random"
	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/services/economy"
	"github.com/sqrrr/gamehub/internal/services/round"
	"github.com/sqrrr/gamehub/internal/storage"
	"github.com/sqrrr/gamehub/internal/storage/memory"
	"github.com/sqrrr/gamehub/internal/testutil"
)

// TestSeed is the economy seed used by test apps
var TestSeed = []byte("factory-test-seed")

// TestCatalog has a single item so every round plays the same content
func TestCatalog() *round.Catalog {
	catalog, err := round.NewCatalog([]model.ContentItem{{
		ID:   "zelda-overworld",
		File: "zelda.mp3",
		Answers: map[model.Category][]string{
			model.CategoryGame: {"The Legend of Zelda", "Zelda"},
			model.CategorySong: {"Overworld Theme"},
		},
	}})
	if err != nil {
		panic(err)
	}
	return catalog
}

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithStorage(memory.New(), Config{})
}

// NewTestAppWithStorage wires a test app over an existing store, which lets
// tests restart the app and check what survived
func NewTestAppWithStorage(store storage.Storage, cfg Config) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	catalog := cfg.Catalog
	if catalog == nil {
		catalog = TestCatalog()
	}

	app, err := newWithDependencies(dependencies{
		store:   store,
		clock:   mockClock,
		random:  mockRandom,
		tokens:  random.New(),
		rng:     economy.StreamSource(TestSeed),
		catalog: catalog,
		economy: economy.DefaultConfig(),
		logger:  testutil.NopLogger(),
	}, cfg)
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// LoadTestDictionary loads a small five-letter word list for wordle
func (t *TestApp) LoadTestDictionary() error {
	words := []string{
		"about", "above", "board", "brave", "crane", "crate", "early", "earth",
		"fight", "final", "flame", "ghost", "grape", "heart", "house", "light",
		"magic", "money", "music", "night", "ocean", "pixel", "plant", "power",
		"quest", "river", "round", "slate", "sound", "space", "stone", "sword",
		"table", "tiger", "water", "world", "zelda",
	}
	return t.Dictionary.LoadWords(words)
}
