package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is one maintenance task run by the cron worker. Run reports how many rows it touched.
type Job interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

// Registry holds uniquely named jobs in the order they run.
type Registry struct {
	order []string
	jobs  map[string]Job
}

// NewRegistry registers jobs in order and panics when two share a name.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{jobs: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			panic(err)
		}
	}
	return r
}

// Register appends job. Nil jobs are ignored.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := job.Name()
	if _, dup := r.jobs[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.order = append(r.order, name)
	r.jobs[name] = job
	return nil
}

// Jobs returns the registered jobs in run order.
func (r *Registry) Jobs() []Job {
	out := make([]Job, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.jobs[name])
	}
	return out
}

// Only narrows the registry to a comma-separated list of job names.
// An empty selector keeps every job.
func (r *Registry) Only(selector string) (*Registry, error) {
	if strings.TrimSpace(selector) == "" {
		return r, nil
	}
	sub := &Registry{jobs: map[string]Job{}}
	for _, name := range strings.Split(selector, ",") {
		name = strings.TrimSpace(name)
		job, ok := r.jobs[name]
		if !ok {
			return nil, fmt.Errorf("unknown cron job %q (have %s)", name, strings.Join(r.order, ", "))
		}
		if err := sub.Register(job); err != nil {
			return nil, err
		}
	}
	return sub, nil
}
