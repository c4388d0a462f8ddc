// Package diag periodically logs a snapshot of the allocator's
// occupancy, the kind of low-ceremony background reporter a long-lived
// kernel or daemon runs so an operator staring at a log has some idea
// of memory pressure without reaching for a metrics dashboard.
package diag

import (
	"fmt"
	"io"

	"github.com/robfig/cron/v3"

	"kalloc/buddy"
	"kalloc/slab"
)

// Reporter logs a point-in-time summary of a buddy.Area and
// slab.Registry on a cron schedule.
type Reporter struct {
	area     *buddy.Area
	registry *slab.Registry
	out      io.Writer
	cron     *cron.Cron
}

// NewReporter builds a Reporter that writes to out whenever the
// schedule passed to Start fires.
func NewReporter(area *buddy.Area, registry *slab.Registry, out io.Writer) *Reporter {
	return &Reporter{
		area:     area,
		registry: registry,
		out:      out,
		cron:     cron.New(),
	}
}

// Start schedules the periodic report and begins running it in the
// background. spec is a standard five-field cron expression parsed by
// robfig/cron's default parser ("* * * * *", minute resolution); a
// six-field expression with a seconds field is not supported. Calling
// Start twice without an intervening Stop is a programming error.
func (r *Reporter) Start(spec string) error {
	_, err := r.cron.AddFunc(spec, r.report)
	if err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop halts the schedule and waits for any in-flight report to finish.
func (r *Reporter) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// report writes one snapshot line per cache plus a summary buddy line.
func (r *Reporter) report() {
	fmt.Fprintf(r.out, "buddy: %d pages free\n", r.area.NumFreePages())
	r.registry.ForEach(func(c *slab.Cache) {
		s := c.Stats()
		fmt.Fprintf(r.out, "slab %-20s slabs=%-4d active=%-6d capacity=%-6d\n",
			s.Name, s.NumSlabs, s.NumActive, s.NumObjs)
	})
}
