// internal/words/words.go
package words

import (
	"math/rand"
	"sync"
	"time"
)

// DefaultRecentWindow is how many previously picked words are excluded from
// selection to avoid immediate repeats.
const DefaultRecentWindow = 10

// DefaultList is the embedded word list used when no external source is
// configured.
var DefaultList = []string{
	"apple", "banana", "bicycle", "bridge", "butterfly", "cactus", "camera",
	"candle", "castle", "caterpillar", "chair", "cloud", "compass", "crown",
	"diamond", "dinosaur", "dolphin", "dragon", "drum", "elephant", "envelope",
	"feather", "fireworks", "flashlight", "flower", "fountain", "giraffe",
	"guitar", "hammer", "hamburger", "helicopter", "hourglass", "igloo",
	"island", "jellyfish", "kangaroo", "kite", "ladder", "lighthouse",
	"lightning", "mermaid", "microphone", "moon", "mountain", "mushroom",
	"octopus", "owl", "paintbrush", "palm tree", "parachute", "penguin",
	"piano", "pineapple", "pirate", "pizza", "pyramid", "rainbow", "robot",
	"rocket", "sailboat", "sandcastle", "scissors", "skateboard", "snowman",
	"spider", "submarine", "sunflower", "telescope", "tornado", "tractor",
	"treasure", "trophy", "turtle", "umbrella", "unicorn", "volcano", "waffle",
	"whale", "windmill", "zebra",
}

// Bank hands out pseudo-random words for rounds, excluding a short window of
// recently used words so back-to-back rounds don't repeat.
type Bank struct {
	mu        sync.Mutex
	words     []string
	recent    []string
	recentMax int
	rng       *rand.Rand
}

// NewBank builds a Bank over the given word list. An empty or nil list falls
// back to DefaultList.
func NewBank(list []string) *Bank {
	if len(list) == 0 {
		list = DefaultList
	}
	words := make([]string, len(list))
	copy(words, list)

	recentMax := DefaultRecentWindow
	// The exclusion window must leave at least one candidate.
	if recentMax >= len(words) {
		recentMax = len(words) - 1
	}

	return &Bank{
		words:     words,
		recentMax: recentMax,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Pick returns a pseudo-random word that was not handed out within the recent
// window, and records it as used.
func (b *Bank) Pick() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	candidates := make([]string, 0, len(b.words))
	for _, w := range b.words {
		if !b.isRecent(w) {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		// recentMax guarantees this can't happen, but never return "".
		candidates = b.words
	}

	word := candidates[b.rng.Intn(len(candidates))]

	b.recent = append(b.recent, word)
	if len(b.recent) > b.recentMax {
		b.recent = b.recent[len(b.recent)-b.recentMax:]
	}
	return word
}

// Size returns how many words the bank can draw from.
func (b *Bank) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.words)
}

func (b *Bank) isRecent(word string) bool {
	for _, r := range b.recent {
		if r == word {
			return true
		}
	}
	return false
}
