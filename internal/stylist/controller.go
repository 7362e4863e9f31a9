// Package stylist owns the application state of the image stylist: the
// current source image, the ordered list of generation results, the global
// processing status and the user-visible error. All mutation goes through
// Controller methods so there is a single writer for the state.
//
// Generation requests run concurrently. Each result is updated by its
// identifier the moment its own request settles, and batch operations
// return only after every request has settled.
package stylist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fpang/gemini-stylist/internal/jobs"
	"github.com/fpang/gemini-stylist/internal/metrics"
)

var (
	ErrNoImage          = errors.New("no source image loaded")
	ErrNoStyles         = errors.New("no styles requested")
	ErrEmptyInstruction = errors.New("custom instruction is empty")
	ErrCustomEditFailed = errors.New("custom edit failed")
	// ErrNoOutput is reported when the generator returns without an image.
	ErrNoOutput = errors.New("generator returned no image")
)

// CustomEditErrorMessage is the user-visible error recorded when a custom
// edit fails.
const CustomEditErrorMessage = "Failed to apply custom edit. Please try again."

// Status is the global processing status.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
)

// Generator produces a stylized version of src following instruction.
type Generator interface {
	Generate(ctx context.Context, src *SourceImage, instruction string) (*Image, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, src *SourceImage, instruction string) (*Image, error)

func (f GeneratorFunc) Generate(ctx context.Context, src *SourceImage, instruction string) (*Image, error) {
	return f(ctx, src, instruction)
}

// Options tunes a Controller. The zero value issues every request
// immediately and labels all failures "unknown".
type Options struct {
	// Limiter paces request starts. Nil means no pacing.
	Limiter *rate.Limiter
	// Classify names the cause of a generation failure for logs and metrics.
	Classify func(error) string
}

// State is a point-in-time copy of the controller state.
type State struct {
	Status            Status             `json:"status"`
	HasImage          bool               `json:"hasImage"`
	Source            *SourceInfo        `json:"source,omitempty"`
	Results           []GenerationResult `json:"results"`
	Error             string             `json:"error,omitempty"`
	CustomInstruction string             `json:"customInstruction"`
	Version           uint64             `json:"version"`
}

// Outcome reports how one request of a batch settled.
type Outcome struct {
	ID    string
	Label string
	Err   error
}

// Controller drives generation requests and reconciles their results.
type Controller struct {
	gen  Generator
	opts Options

	mu       sync.Mutex
	source   *SourceImage
	results  resultList
	inflight int
	errMsg   string
	draft    string
	version  uint64
	changed  chan struct{}
}

// NewController creates a Controller with an empty result list.
func NewController(gen Generator, opts Options) *Controller {
	if opts.Classify == nil {
		opts.Classify = func(error) string { return "unknown" }
	}
	return &Controller{
		gen:     gen,
		opts:    opts,
		results: resultList{},
		changed: make(chan struct{}),
	}
}

// commit publishes a mutation to waiters. Callers hold c.mu.
func (c *Controller) commit() {
	c.version++
	close(c.changed)
	c.changed = make(chan struct{})
}

// SetImage replaces the source image and clears the user-visible error.
// Results produced from the previous image stay in the list.
func (c *Controller) SetImage(img *SourceImage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = img
	c.errMsg = ""
	c.commit()
	log.Info().
		Str("filename", img.Filename).
		Str("mime_type", img.MIMEType).
		Int("bytes", len(img.Data)).
		Msg("Source image set")
}

// ClearImage drops the source image and empties the result list.
// Requests still in flight settle into nothing.
func (c *Controller) ClearImage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = nil
	c.results = resultList{}
	c.commit()
	log.Info().Msg("Source image cleared")
}

// Source returns the current source image, or nil.
func (c *Controller) Source() *SourceImage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// SetCustomInstruction stores the pending custom-edit text.
func (c *Controller) SetCustomInstruction(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = s
	c.commit()
}

// State returns a snapshot of the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	s := State{
		Status:            StatusIdle,
		HasImage:          c.source != nil,
		Results:           c.results.clone(),
		Error:             c.errMsg,
		CustomInstruction: c.draft,
		Version:           c.version,
	}
	if c.inflight > 0 {
		s.Status = StatusProcessing
	}
	if c.source != nil {
		info := c.source.Info()
		s.Source = &info
	}
	return s
}

// WaitForChange blocks until the state version exceeds since or ctx is
// done, then returns the current snapshot.
func (c *Controller) WaitForChange(ctx context.Context, since uint64) State {
	for {
		c.mu.Lock()
		if c.version > since {
			s := c.snapshot()
			c.mu.Unlock()
			return s
		}
		ch := c.changed
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return c.State()
		}
	}
}

// Result looks up a result by ID.
func (c *Controller) Result(id string) (GenerationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.results.indexOf(id)
	if i < 0 {
		return GenerationResult{}, false
	}
	return c.results[i], true
}

// RunBatch replaces the result list with one loading entry per style and
// generates all of them concurrently. It returns once every request has
// settled; a failed request marks its own entry failed and never affects
// its siblings. Outcomes are returned in style order.
func (c *Controller) RunBatch(ctx context.Context, styles []StyleDefinition) ([]Outcome, error) {
	c.mu.Lock()
	src := c.source
	if src == nil {
		c.mu.Unlock()
		return nil, ErrNoImage
	}
	if len(styles) == 0 {
		c.mu.Unlock()
		return nil, ErrNoStyles
	}

	now := time.Now()
	entries := make(resultList, len(styles))
	for i, s := range styles {
		entries[i] = GenerationResult{
			ID:        jobs.GenerateID("style-"),
			Label:     s.Name,
			State:     StateLoading,
			CreatedAt: now,
		}
	}
	c.results = entries.clone()
	c.errMsg = ""
	c.inflight++
	c.commit()
	c.mu.Unlock()

	log.Info().
		Int("styles", len(styles)).
		Str("source", src.Filename).
		Msg("Starting style batch")

	start := time.Now()
	outcomes := make([]Outcome, len(styles))
	var g errgroup.Group
	for i, s := range styles {
		id := entries[i].ID
		g.Go(func() error {
			img, err := c.generate(ctx, src, s.Prompt, "batch", id, s.Name)
			c.settle(id, img)
			outcomes[i] = Outcome{ID: id, Label: s.Name, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	c.finish()

	log.Info().
		Int("styles", len(styles)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Style batch settled")

	return outcomes, nil
}

// RunSingle prepends one loading "Custom Edit" entry and generates it.
// On success the entry is updated in place. On failure the entry is
// removed and CustomEditErrorMessage is recorded. The pending custom
// instruction is cleared either way.
func (c *Controller) RunSingle(ctx context.Context, instruction string) (GenerationResult, error) {
	c.mu.Lock()
	src := c.source
	if src == nil {
		c.mu.Unlock()
		return GenerationResult{}, ErrNoImage
	}
	if strings.TrimSpace(instruction) == "" {
		c.mu.Unlock()
		return GenerationResult{}, ErrEmptyInstruction
	}

	entry := GenerationResult{
		ID:        jobs.GenerateID("custom-"),
		Label:     CustomEditLabel,
		State:     StateLoading,
		CreatedAt: time.Now(),
	}
	c.results = append(resultList{entry}, c.results...)
	c.errMsg = ""
	c.inflight++
	c.commit()
	c.mu.Unlock()

	img, genErr := c.generate(ctx, src, instruction, "single", entry.ID, CustomEditLabel)

	c.mu.Lock()
	i := c.results.indexOf(entry.ID)
	if genErr == nil {
		entry.State = StateSucceeded
		entry.Output = img
		entry.SettledAt = time.Now()
		if i >= 0 {
			c.results[i] = entry
		}
	} else {
		if i >= 0 {
			c.results = append(c.results[:i:i], c.results[i+1:]...)
		}
		c.errMsg = CustomEditErrorMessage
	}
	c.draft = ""
	c.inflight--
	c.commit()
	c.mu.Unlock()

	if genErr != nil {
		return GenerationResult{}, fmt.Errorf("%w: %w", ErrCustomEditFailed, genErr)
	}
	return entry, nil
}

// generate calls the generator once and treats an empty response as a
// failure. It records per-request logs and metrics.
func (c *Controller) generate(ctx context.Context, src *SourceImage, instruction, path, id, label string) (*Image, error) {
	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for request slot: %w", err)
		}
	}

	log.Debug().
		Str("id", id).
		Str("label", label).
		Str("path", path).
		Msg("Generation started")

	start := time.Now()
	img, err := c.gen.Generate(ctx, src, instruction)
	if err == nil && (img == nil || len(img.Data) == 0) {
		err = ErrNoOutput
	}
	elapsed := time.Since(start)

	m := metrics.New(metrics.Namespace).
		Dimension("Path", path).
		Metric("GenerationLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("Generations").
		Property("resultId", id).
		Property("label", label)

	if err != nil {
		class := c.opts.Classify(err)
		m.Count("GenerationFailures").Property("failureClass", class)
		m.Flush()
		log.Warn().
			Err(err).
			Str("id", id).
			Str("label", label).
			Str("failure_class", class).
			Dur("duration", elapsed).
			Msg("Generation failed")
		return nil, err
	}
	m.Metric("OutputBytes", float64(len(img.Data)), metrics.UnitBytes).Flush()

	log.Info().
		Str("id", id).
		Str("label", label).
		Int("output_bytes", len(img.Data)).
		Dur("duration", elapsed).
		Msg("Generation succeeded")
	return img, nil
}

// settle moves a loading batch entry to its terminal state. A nil image
// marks the entry failed. Entries that no longer exist are ignored.
func (c *Controller) settle(id string, img *Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.results.indexOf(id)
	if i < 0 || !c.results[i].Loading() {
		log.Debug().Str("id", id).Msg("Discarding result for entry no longer in list")
		return
	}
	if img != nil {
		c.results[i].State = StateSucceeded
		c.results[i].Output = img
	} else {
		c.results[i].State = StateFailed
	}
	c.results[i].SettledAt = time.Now()
	c.commit()
}

func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	c.commit()
}
