package markets

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher periodically rewarms the overview cache so API reads stay on the
// fast path during market hours.
type Refresher struct {
	service *Service
	cron    *cron.Cron
}

// NewRefresher creates a refresher around the given service
func NewRefresher(service *Service) *Refresher {
	return &Refresher{
		service: service,
		cron:    cron.New(),
	}
}

// Start registers the refresh job and starts the scheduler. An immediate
// refresh is performed so the cache is warm before the first tick.
func (r *Refresher) Start(ctx context.Context, spec string) error {
	_, err := r.cron.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		snapshot := r.service.Refresh(runCtx)
		if len(snapshot.Errors) > 0 {
			log.Printf("[WARN] overview refresh completed with %d failed sections: %v", len(snapshot.Errors), snapshot.Errors)
		}
	})
	if err != nil {
		return err
	}

	initCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	r.service.Refresh(initCtx)

	r.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}
