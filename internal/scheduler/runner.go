package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/mule-ai/inkdash/internal/config"
	"github.com/mule-ai/inkdash/pkg/plugin"
	"github.com/mule-ai/inkdash/pkg/render"
	"github.com/mule-ai/inkdash/pkg/types"
)

// DefaultRenderTimeout bounds a single scheduled render.
const DefaultRenderTimeout = 60 * time.Second

// Runner renders configured instances on their schedules and keeps the
// resulting frames.
type Runner struct {
	scheduler *Scheduler
	plugins   *plugin.Registry
	device    render.Device
	frames    *Frames
	timeout   time.Duration
	now       func() time.Time
	onFrame   func(Frame)
	logger    logr.Logger
}

func NewRunner(s *Scheduler, plugins *plugin.Registry, device render.Device, frames *Frames, l logr.Logger) *Runner {
	return &Runner{
		scheduler: s,
		plugins:   plugins,
		device:    device,
		frames:    frames,
		timeout:   DefaultRenderTimeout,
		now:       time.Now,
		logger:    l.WithName("runner"),
	}
}

func (r *Runner) Frames() *Frames {
	return r.frames
}

// OnFrame registers fn to be called after every stored frame. It must be set
// before the scheduler starts.
func (r *Runner) OnFrame(fn func(Frame)) {
	r.onFrame = fn
}

// Sync makes the scheduled tasks match instances and drops the frames of
// instances that are no longer configured. Instances with an empty schedule
// are rendered on demand only. All instances are tried; the returned error
// joins every failure.
func (r *Runner) Sync(instances []config.Instance) error {
	configured := make(map[string]bool, len(instances))
	wanted := make(map[string]bool, len(instances))
	var errs []error
	for _, inst := range instances {
		configured[inst.Name] = true
		if inst.Schedule == "" {
			continue
		}
		if _, err := r.plugins.Get(inst.Plugin); err != nil {
			errs = append(errs, fmt.Errorf("instance %s: %w", inst.Name, err))
			continue
		}
		err := r.scheduler.UpdateTask(inst.Name, inst.Schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()
			_, _ = r.RunNow(ctx, inst)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("instance %s: invalid schedule %q: %w", inst.Name, inst.Schedule, err))
			continue
		}
		wanted[inst.Name] = true
	}

	for _, key := range r.scheduler.Keys() {
		if !wanted[key] {
			r.scheduler.RemoveTask(key)
		}
	}
	for _, name := range r.frames.Names() {
		if !configured[name] {
			r.frames.Delete(name)
		}
	}
	return errors.Join(errs...)
}

// RunNow renders inst once and stores the frame. A failed render keeps the
// previous frame.
func (r *Runner) RunNow(ctx context.Context, inst config.Instance) (Frame, error) {
	runID := uuid.NewString()
	l := r.logger.WithValues("instance", inst.Name, "plugin", inst.Plugin, "run", runID)

	p, err := r.plugins.Get(inst.Plugin)
	if err != nil {
		l.Error(err, "Unknown plugin")
		return Frame{}, err
	}

	start := r.now()
	img, err := plugin.Generate(ctx, p, types.Settings(inst.Settings).Clone(), r.device, l)
	if err != nil {
		return Frame{}, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		l.Error(err, "Failed to encode frame")
		return Frame{}, fmt.Errorf("encode frame: %w", err)
	}

	frame := Frame{
		Instance:   inst.Name,
		Plugin:     inst.Plugin,
		RunID:      runID,
		PNG:        buf.Bytes(),
		RenderedAt: start,
	}
	r.frames.Put(frame)
	if r.onFrame != nil {
		r.onFrame(frame)
	}
	l.Info("Frame rendered", "bytes", len(frame.PNG), "took", r.now().Sub(start).String())
	return frame, nil
}
