package job

import (
	"context"
	"log"
	"time"
)

// Schedule runs one batch immediately and then one per interval until ctx
// is done. Batch errors are logged; the next tick tries again.
func (r *Runner) Schedule(ctx context.Context, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := r.RunBatch(ctx, batchSize); err != nil && ctx.Err() == nil {
			log.Printf("batch failed stage=%s err=%v", r.stage, err)
		}
		if r.after != nil && ctx.Err() == nil {
			r.after(ctx)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
