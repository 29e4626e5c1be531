package dictionary

import (
	"bufio"
	"context"
	"hash/fnv"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/storage"
)

// WordLength is the length of every daily word and every accepted guess
const WordLength = 5

// Service provides the word list for the daily word game
type Service struct {
	storage storage.Storage

	mu      sync.RWMutex
	words   map[string]struct{}
	answers []string // sorted, WordLength letters only
	loaded  bool
}

// New creates a new dictionary Service
func New(storage storage.Storage) *Service {
	return &Service{
		storage: storage,
		words:   make(map[string]struct{}),
	}
}

// LoadFromStorage loads dictionary words from storage
func (s *Service) LoadFromStorage(ctx context.Context) error {
	words, err := s.storage.GetDictionaryWords(ctx)
	if err != nil {
		return err
	}
	return s.loadWords(words)
}

// LoadFromFile loads dictionary words from a file (one word per line)
func (s *Service) LoadFromFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" && !strings.HasPrefix(word, "#") {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Save to storage for future use
	if err := s.storage.SaveDictionaryWords(ctx, words); err != nil {
		return err
	}

	return s.loadWords(words)
}

// LoadWords directly loads a slice of words (useful for testing)
func (s *Service) LoadWords(words []string) error {
	return s.loadWords(words)
}

func (s *Service) loadWords(words []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.words = make(map[string]struct{}, len(words))
	s.answers = s.answers[:0]
	for _, word := range words {
		w := strings.ToLower(word)
		if _, dup := s.words[w]; dup {
			continue
		}
		s.words[w] = struct{}{}
		if len(w) == WordLength && isLetters(w) {
			s.answers = append(s.answers, w)
		}
	}
	sort.Strings(s.answers)
	s.loaded = true
	return nil
}

// IsValidWord checks if a word is an accepted guess
func (s *Service) IsValidWord(word string) bool {
	if len(word) != WordLength {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return false
	}

	_, ok := s.words[strings.ToLower(word)]
	return ok
}

// IsLoaded returns whether the dictionary has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// WordCount returns the number of words in the dictionary
func (s *Service) WordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// DailyWord returns the answer for a day key. The same key always maps to
// the same word for a given word list.
func (s *Service) DailyWord(dayKey string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded || len(s.answers) == 0 {
		return "", model.ErrDictionaryNotLoaded
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(dayKey))
	return s.answers[int(h.Sum32()%uint32(len(s.answers)))], nil
}

func isLetters(w string) bool {
	for _, r := range w {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// ErrDictionaryNotLoaded is returned when operations are attempted before loading
var ErrDictionaryNotLoaded = model.ErrDictionaryNotLoaded
