package cron

import (
	"context"
	"fmt"
)

// Job is one read-only sweep run by the stock worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in registration order, unique by name.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry from jobs, skipping nils and repeated names.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		_ = registry.Register(job)
	}
	return registry
}

// Register adds a job. A second job with the same name is rejected.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	if _, ok := r.Lookup(job.Name()); ok {
		return fmt.Errorf("job %q already registered", job.Name())
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Lookup finds a job by name.
func (r *Registry) Lookup(name string) (Job, bool) {
	for _, job := range r.jobs {
		if job.Name() == name {
			return job, true
		}
	}
	return nil, false
}

// Only returns a registry restricted to the named jobs.
func (r *Registry) Only(names ...string) (*Registry, error) {
	subset := &Registry{}
	for _, name := range names {
		job, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown job %q", name)
		}
		if err := subset.Register(job); err != nil {
			return nil, err
		}
	}
	return subset, nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
