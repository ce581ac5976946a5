package service

import (
	"context"
	"errors"
	"fmt"
)

// provisioningScope records every resource created during one submission with
// the function that removes it. Rollback only ever touches what was recorded.
type provisioningScope struct {
	releases []scopedRelease
}

type scopedRelease struct {
	resource string
	release  func(ctx context.Context) error
}

func (p *provisioningScope) track(resource string, release func(ctx context.Context) error) {
	p.releases = append(p.releases, scopedRelease{resource: resource, release: release})
}

// rollback releases recorded resources newest first and reports which were
// removed. Every release is attempted even when an earlier one fails.
func (p *provisioningScope) rollback(ctx context.Context) ([]string, error) {
	var (
		released []string
		errs     []error
	)
	for i := len(p.releases) - 1; i >= 0; i-- {
		r := p.releases[i]
		if err := r.release(ctx); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", r.resource, err))
			continue
		}
		released = append(released, r.resource)
	}
	p.releases = nil
	return released, errors.Join(errs...)
}

// commit keeps every recorded resource.
func (p *provisioningScope) commit() {
	p.releases = nil
}
