package wgpu_engine

import (
	"time"

	"honnef.co/go/veneer/profiler"
)

// Profiler measures CPU time spent in (possibly nested) groups of
// work. A nil Profiler is valid and records nothing.
type Profiler struct {
	// finished top-level groups awaiting collection
	groups []*ProfilerGroup
	// slice to reuse for next frame
	spare []*ProfilerGroup

	// free list of profiler groups
	freeGroups []*ProfilerGroup
	// free list of profiler results
	results []ProfilerResult
}

func NewProfiler() *Profiler {
	return &Profiler{}
}

func NewNopProfiler() *Profiler {
	return nil
}

func (p *Profiler) Start(label string) *ProfilerGroup {
	if p == nil {
		return nil
	}

	g := p.getGroup()
	// Don't use *g = ProfilerGroup{...} so that we reuse g.children.
	g.profiler = p
	g.Label = label
	g.cpuStart = time.Now()
	p.groups = append(p.groups, g)
	return g
}

func (p *Profiler) getGroup() *ProfilerGroup {
	if len(p.freeGroups) > 0 {
		g := p.freeGroups[len(p.freeGroups)-1]
		p.freeGroups = p.freeGroups[:len(p.freeGroups)-1]
		clear(g.children)
		g.children = g.children[:0]
		g.cpuEnd = time.Time{}
		g.parent = nil
		return g
	} else {
		return &ProfilerGroup{}
	}
}

type ProfilerGroup struct {
	Label    string
	cpuStart time.Time
	cpuEnd   time.Time
	children []*ProfilerGroup
	profiler *Profiler
	parent   *ProfilerGroup
}

func (g *ProfilerGroup) End() {
	if g == nil {
		return
	}

	if !g.cpuEnd.IsZero() {
		panic("trying to end same group twice")
	}
	g.cpuEnd = time.Now()
}

func (g *ProfilerGroup) Start(label string) profiler.ProfilerGroup {
	if g == nil {
		return (*ProfilerGroup)(nil)
	}
	return g.Nest(label)
}

func (g *ProfilerGroup) Nest(label string) *ProfilerGroup {
	if g == nil {
		return nil
	}
	cg := g.profiler.getGroup()
	cg.profiler = g.profiler
	cg.Label = label
	cg.cpuStart = time.Now()
	cg.parent = g
	g.children = append(g.children, cg)
	return cg
}

type ProfilerResult struct {
	Label    string
	CPUStart time.Time
	CPUEnd   time.Time
	Children []ProfilerResult
}

func (res ProfilerResult) Duration() time.Duration {
	return res.CPUEnd.Sub(res.CPUStart)
}

func (p *Profiler) populateResult(g *ProfilerGroup, res *ProfilerResult) {
	// Don't use *res = ProfilerResult{...} so that we reuse
	// res.Children.
	res.Label = g.Label
	res.CPUStart = g.cpuStart
	res.CPUEnd = g.cpuEnd
	if cap(res.Children) >= len(g.children) {
		res.Children = res.Children[:len(g.children)]
	} else {
		res.Children = make([]ProfilerResult, len(g.children))
	}
	for i, cg := range g.children {
		p.populateResult(cg, &res.Children[i])
	}
}

// Collect returns the results of all groups that have ended since the
// previous call. The returned slice is reused by the next call.
func (p *Profiler) Collect() []ProfilerResult {
	if p == nil {
		return nil
	}

	out := p.results[:0]
	kept := p.spare[:0]
	for _, g := range p.groups {
		if g.cpuEnd.IsZero() {
			kept = append(kept, g)
			continue
		}
		if cap(out) > len(out) {
			out = out[:len(out)+1]
		} else {
			out = append(out, ProfilerResult{})
		}
		p.populateResult(g, &out[len(out)-1])
		p.free(g)
	}
	p.spare = p.groups[:0]
	p.groups = kept
	p.results = out
	return out
}

func (p *Profiler) free(g *ProfilerGroup) {
	for _, cg := range g.children {
		p.free(cg)
	}
	p.freeGroups = append(p.freeGroups, g)
}
