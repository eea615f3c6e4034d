package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"story-canvas-ai-bot/internal/gemini"
	"story-canvas-ai-bot/internal/illustration"
)

// State names the stage a controller is in. Transitions happen only
// through Controller methods.
type State int

const (
	StateIdle State = iota
	StateAnalyzing
	StateAnalyzed
	StateGenerating
	StateGenerated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnalyzing:
		return "analyzing"
	case StateAnalyzed:
		return "analyzed"
	case StateGenerating:
		return "generating"
	case StateGenerated:
		return "generated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrPreconditionNotMet marks an action whose local requirements were
	// not satisfied. Nothing was sent to the backend.
	ErrPreconditionNotMet = errors.New("precondition not met")

	// ErrBusy marks an action that arrived while a backend call was in
	// flight. The action is rejected, not queued.
	ErrBusy = errors.New("another request is in flight")
)

// Gateway is the slice of the Gemini client the controller needs.
type Gateway interface {
	GenerateText(ctx context.Context, apiKey, prompt string) (string, error)
	GenerateImage(ctx context.Context, apiKey, prompt string) (gemini.Response, error)
}

// Illustration is one generated image with the title frozen at the moment
// generation started.
type Illustration struct {
	Data     []byte
	MimeType string
	Title    string
}

// Filename is the download name for the image: slugged frozen title plus
// a fixed png extension.
func (i Illustration) Filename() string {
	return illustration.ExportFilename(i.Title)
}

// Snapshot is a read-only copy of the controller fields for rendering.
type Snapshot struct {
	State          State
	Story          string
	VisualElements string
	StyleOptions   []string
	SelectedStyle  string
	Title          string
	HasImage       bool
}

// Controller drives one story through analysis, style and title choice,
// and image generation. A mutex guards the fields; network calls run
// outside the lock so reads stay responsive and a second submission is
// rejected instead of queued.
type Controller struct {
	mu sync.Mutex
	gw Gateway

	state    State
	story    string
	analysis *illustration.Analysis
	style    string
	title    string
	image    *Illustration
}

func New(gw Gateway) *Controller {
	return &Controller{gw: gw}
}

// SubmitStory runs the analysis stage. Allowed from any settled state; a
// new story replaces the previous analysis wholesale and drops any
// previous illustration. On failure the controller returns to the state
// it was in, fields untouched.
func (c *Controller) SubmitStory(ctx context.Context, apiKey, story string) error {
	story = strings.TrimSpace(story)

	c.mu.Lock()
	if c.state == StateAnalyzing || c.state == StateGenerating {
		c.mu.Unlock()
		return ErrBusy
	}
	if story == "" {
		c.mu.Unlock()
		return fmt.Errorf("%w: story is empty", ErrPreconditionNotMet)
	}
	if strings.TrimSpace(apiKey) == "" {
		c.mu.Unlock()
		return fmt.Errorf("%w: api key is missing", ErrPreconditionNotMet)
	}
	prev := c.state
	c.state = StateAnalyzing
	c.mu.Unlock()

	raw, err := c.gw.GenerateText(ctx, apiKey, illustration.BuildAnalysisPrompt(story))

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = prev
		return err
	}

	analysis := illustration.ParseAnalysis(raw)
	c.state = StateAnalyzed
	c.story = story
	c.analysis = &analysis
	c.style = analysis.StyleOptions[0]
	c.title = analysis.SuggestedTitle
	c.image = nil
	return nil
}

// SetStyle picks one of the styles the analysis offered.
func (c *Controller) SetStyle(style string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.settledWithAnalysisLocked() {
		return fmt.Errorf("%w: no analysis to pick a style from", ErrPreconditionNotMet)
	}
	for _, opt := range c.analysis.StyleOptions {
		if opt == style {
			c.style = style
			return nil
		}
	}
	return fmt.Errorf("%w: style %q is not one of the offered options", ErrPreconditionNotMet, style)
}

// SetTitle replaces the editable title.
func (c *Controller) SetTitle(title string) error {
	title = strings.TrimSpace(title)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.settledWithAnalysisLocked() {
		return fmt.Errorf("%w: no analysis to title", ErrPreconditionNotMet)
	}
	if title == "" {
		return fmt.Errorf("%w: title is empty", ErrPreconditionNotMet)
	}
	c.title = title
	return nil
}

// SubmitIllustration runs the generation stage with the selected style
// and current title. Allowed once an analysis exists; generating again
// replaces the previous image wholesale. On failure the controller
// returns to the state it was in, previous image intact.
func (c *Controller) SubmitIllustration(ctx context.Context, apiKey string) error {
	c.mu.Lock()
	if c.state == StateAnalyzing || c.state == StateGenerating {
		c.mu.Unlock()
		return ErrBusy
	}
	if !c.settledWithAnalysisLocked() {
		c.mu.Unlock()
		return fmt.Errorf("%w: no analysis yet", ErrPreconditionNotMet)
	}
	if strings.TrimSpace(apiKey) == "" {
		c.mu.Unlock()
		return fmt.Errorf("%w: api key is missing", ErrPreconditionNotMet)
	}
	if c.style == "" || c.title == "" {
		c.mu.Unlock()
		return fmt.Errorf("%w: style and title are required", ErrPreconditionNotMet)
	}
	prev := c.state
	title := c.title
	prompt := illustration.BuildIllustrationPrompt(c.analysis.VisualElements, c.style, c.story)
	c.state = StateGenerating
	c.mu.Unlock()

	resp, err := c.gw.GenerateImage(ctx, apiKey, prompt)

	var data []byte
	var mimeType string
	if err == nil {
		data, mimeType, err = illustration.ExtractImage(resp)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = prev
		return err
	}

	c.state = StateGenerated
	c.image = &Illustration{Data: data, MimeType: mimeType, Title: title}
	return nil
}

// Reset returns the controller to its initial state, story included.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateAnalyzing || c.state == StateGenerating {
		return ErrBusy
	}
	c.state = StateIdle
	c.story = ""
	c.analysis = nil
	c.style = ""
	c.title = ""
	c.image = nil
	return nil
}

// ResetKeepingStory drops everything derived from the story but keeps
// the story itself, ready for a fresh analysis.
func (c *Controller) ResetKeepingStory() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateAnalyzing || c.state == StateGenerating {
		return ErrBusy
	}
	c.state = StateIdle
	c.analysis = nil
	c.style = ""
	c.title = ""
	c.image = nil
	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Story() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.story
}

// Illustration returns a copy of the generated image, or nil before the
// first successful generation.
func (c *Controller) Illustration() *Illustration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.image == nil {
		return nil
	}
	img := *c.image
	return &img
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:         c.state,
		Story:         c.story,
		SelectedStyle: c.style,
		Title:         c.title,
		HasImage:      c.image != nil,
	}
	if c.analysis != nil {
		snap.VisualElements = c.analysis.VisualElements
		snap.StyleOptions = append([]string(nil), c.analysis.StyleOptions...)
	}
	return snap
}

func (c *Controller) settledWithAnalysisLocked() bool {
	return c.analysis != nil && (c.state == StateAnalyzed || c.state == StateGenerated)
}
