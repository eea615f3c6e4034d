package draft

import (
	"testing"
	"time"
)

func TestCollectorMergesBurst(t *testing.T) {
	ready := make(chan Story, 1)
	c := New(Options{
		Debounce: 40 * time.Millisecond,
		OnReady:  func(s Story) { ready <- s },
	})

	c.Add(Item{ChatID: 10, UserID: 20, Text: "part one"})
	time.Sleep(10 * time.Millisecond)
	c.Add(Item{ChatID: 10, UserID: 20, Text: "part two"})

	select {
	case got := <-ready:
		if got.ChatID != 10 || got.UserID != 20 {
			t.Errorf("ids = %d/%d", got.ChatID, got.UserID)
		}
		if got.Text != "part one\npart two" {
			t.Errorf("text = %q", got.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("draft never flushed")
	}

	select {
	case extra := <-ready:
		t.Fatalf("unexpected second flush: %+v", extra)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestCollectorRestartsDebounceOnEachFragment(t *testing.T) {
	ready := make(chan Story, 1)
	c := New(Options{
		Debounce: 60 * time.Millisecond,
		OnReady:  func(s Story) { ready <- s },
	})

	c.Add(Item{ChatID: 1, UserID: 1, Text: "a"})

	// Keep feeding fragments inside the window; nothing may flush yet.
	for i := 0; i < 3; i++ {
		time.Sleep(20 * time.Millisecond)
		select {
		case got := <-ready:
			t.Fatalf("flushed while still typing: %+v", got)
		default:
		}
		c.Add(Item{ChatID: 1, UserID: 1, Text: "b"})
	}

	select {
	case got := <-ready:
		if got.Text != "a\nb\nb\nb" {
			t.Errorf("text = %q", got.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("draft never flushed")
	}
}

func TestCollectorKeepsChatsApart(t *testing.T) {
	ready := make(chan Story, 2)
	c := New(Options{
		Debounce: 30 * time.Millisecond,
		OnReady:  func(s Story) { ready <- s },
	})

	c.Add(Item{ChatID: 1, UserID: 1, Text: "first chat"})
	c.Add(Item{ChatID: 2, UserID: 2, Text: "second chat"})

	got := map[int64]string{}
	for i := 0; i < 2; i++ {
		select {
		case s := <-ready:
			got[s.ChatID] = s.Text
		case <-time.After(2 * time.Second):
			t.Fatal("missing flush")
		}
	}

	if got[1] != "first chat" || got[2] != "second chat" {
		t.Errorf("stories crossed chats: %v", got)
	}
}

func TestCollectorDiscard(t *testing.T) {
	ready := make(chan Story, 1)
	c := New(Options{
		Debounce: 30 * time.Millisecond,
		OnReady:  func(s Story) { ready <- s },
	})

	c.Add(Item{ChatID: 5, UserID: 5, Text: "never mind"})
	c.Discard(5, 5)

	select {
	case got := <-ready:
		t.Fatalf("discarded draft flushed anyway: %+v", got)
	case <-time.After(120 * time.Millisecond):
	}
}

func TestCollectorIgnoresBlankFragments(t *testing.T) {
	ready := make(chan Story, 1)
	c := New(Options{
		Debounce: 30 * time.Millisecond,
		OnReady:  func(s Story) { ready <- s },
	})

	c.Add(Item{ChatID: 3, UserID: 3, Text: "   \n  "})

	select {
	case got := <-ready:
		t.Fatalf("blank fragment flushed: %+v", got)
	case <-time.After(120 * time.Millisecond):
	}
}
