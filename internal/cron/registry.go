package cron

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Job is one unit of background work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs by unique name and runs them in registration order.
type Registry struct {
	order  []string
	byName map[string]Job
}

// NewRegistry registers jobs in order and rejects duplicate names.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{byName: map[string]Job{}}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("nil job")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("job name is required")
	}
	if r.byName == nil {
		r.byName = map[string]Job{}
	}
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	r.byName[name] = job
	r.order = append(r.order, name)
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	out := make([]Job, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Names lists the registered job names, sorted.
func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// Only narrows the registry to the named jobs. An empty selection keeps every
// job; an unknown name is an error.
func (r *Registry) Only(names ...string) (*Registry, error) {
	want := map[string]bool{}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			want[n] = true
		}
	}
	if len(want) == 0 {
		return r, nil
	}
	for n := range want {
		if _, ok := r.byName[n]; !ok {
			return nil, fmt.Errorf("unknown job %q (have %s)", n, strings.Join(r.Names(), ", "))
		}
	}
	sub := &Registry{byName: map[string]Job{}}
	for _, n := range r.order {
		if want[n] {
			sub.byName[n] = r.byName[n]
			sub.order = append(sub.order, n)
		}
	}
	return sub, nil
}
