package chart

import (
	"fmt"
	"slices"
	"sync"
)

// Frame is what a renderer receives on every redraw.
type Frame struct {
	Chart string `json:"chart"`
	Data  []int  `json:"data"`
}

// Renderer draws a frame on some surface. Render must not block for long.
type Renderer interface {
	Render(f Frame)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(f Frame)

func (fn RendererFunc) Render(f Frame) { fn(f) }

// Chart is a bar chart with a static configuration and a mutable data series.
type Chart struct {
	cfg      Config
	renderer Renderer

	mu   sync.Mutex
	data []int
}

// New creates a chart with every bar at zero.
func New(cfg Config, r Renderer) *Chart {
	return &Chart{
		cfg:      cfg,
		renderer: r,
		data:     make([]int, len(cfg.Labels)),
	}
}

// Name identifies the chart in frames.
func (c *Chart) Name() string { return c.cfg.Name }

// Config returns the static configuration.
func (c *Chart) Config() Config { return c.cfg }

// Replace swaps the data series in place. The series length must match the labels.
func (c *Chart) Replace(data []int) error {
	if len(data) != len(c.cfg.Labels) {
		return fmt.Errorf("chart %s: got %d values for %d labels", c.cfg.Name, len(data), len(c.cfg.Labels))
	}
	c.mu.Lock()
	copy(c.data, data)
	c.mu.Unlock()
	return nil
}

// Data returns a copy of the current series.
func (c *Chart) Data() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.data)
}

// Redraw pushes the current series to the renderer.
func (c *Chart) Redraw() {
	if c.renderer == nil {
		return
	}
	c.renderer.Render(Frame{Chart: c.cfg.Name, Data: c.Data()})
}
