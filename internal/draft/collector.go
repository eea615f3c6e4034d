package draft

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Item is one incoming text message that may be part of a longer story.
type Item struct {
	ChatID int64
	UserID int64
	Text   string
}

// Story is the merged draft for one chat once the sender went quiet.
type Story struct {
	ChatID int64
	UserID int64
	Text   string
}

type Options struct {
	Debounce time.Duration
	OnReady  func(Story)
}

// Collector stitches bursts of consecutive messages back into one story.
// Telegram splits long pasted texts across several messages; each new
// fragment restarts the debounce timer and the merged draft is handed to
// OnReady once the window closes.
type Collector struct {
	mu       sync.Mutex
	debounce time.Duration
	onReady  func(Story)
	pending  map[string]*pendingStory
}

type pendingStory struct {
	story Story
	timer *time.Timer
}

func New(opts Options) *Collector {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1500 * time.Millisecond
	}

	return &Collector{
		debounce: debounce,
		onReady:  opts.OnReady,
		pending:  make(map[string]*pendingStory),
	}
}

func (c *Collector) Add(item Item) {
	text := strings.TrimSpace(item.Text)
	if text == "" {
		return
	}

	key := makeKey(item.ChatID, item.UserID)

	c.mu.Lock()
	defer c.mu.Unlock()

	ps, ok := c.pending[key]
	if !ok {
		ps = &pendingStory{
			story: Story{ChatID: item.ChatID, UserID: item.UserID, Text: text},
		}
		c.pending[key] = ps
	} else {
		ps.story.Text += "\n" + text
	}

	if ps.timer != nil {
		ps.timer.Stop()
	}
	ps.timer = time.AfterFunc(c.debounce, func() {
		c.flush(key)
	})
}

// Discard drops a pending draft without flushing it.
func (c *Collector) Discard(chatID, userID int64) {
	key := makeKey(chatID, userID)

	c.mu.Lock()
	defer c.mu.Unlock()

	ps, ok := c.pending[key]
	if !ok {
		return
	}
	if ps.timer != nil {
		ps.timer.Stop()
	}
	delete(c.pending, key)
}

func (c *Collector) flush(key string) {
	c.mu.Lock()
	ps, ok := c.pending[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, key)
	story := ps.story
	onReady := c.onReady
	c.mu.Unlock()

	if onReady != nil {
		onReady(story)
	}
}

func makeKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}
