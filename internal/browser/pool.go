package browser

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Pool errors.
var ErrPoolShuttingDown = errors.New("pool is shutting down")

// Stats summarizes the live state of a Pool.
type Stats struct {
	TotalInstances     int
	AvailableInstances int
	ActiveInstances    int32
}

// Pool manages a set of Chrome browser processes. Crawl-worker
// concurrency (spec.md §5/§6, default 10) is decoupled from pool
// size: Acquire hands out an *Instance* to share, not an exclusive
// checkout, so a PoolSize of 1 reproduces the prototype's one
// long-lived browser connection with many concurrently open tabs
// (spec.md §2) instead of serializing every page behind a single
// process-wide lock. Tab creation/teardown on a shared instance is
// itself serialized through ViewportArbiter.EnterTabCreate
// (instance.go's NewTab/CloseTab), which is the layer actually meant
// to guard concurrent CDP access to one browser.
type Pool struct {
	config      Config
	logger      *zap.Logger
	instances   []*Instance
	nextIdx     atomic.Uint64
	activeCount atomic.Int32
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewPool creates a pool of Chrome instances, initialized sequentially;
// it fails fast and tears down any already-created instances if one
// fails to start.
func NewPool(config Config, logger *zap.Logger) (*Pool, error) {
	if config.PoolSize <= 0 {
		config.PoolSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		config:    config,
		logger:    logger,
		instances: make([]*Instance, config.PoolSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	for idx := 0; idx < config.PoolSize; idx++ {
		instance, err := New(idx, config, logger)
		if err != nil {
			logger.Error("failed to create chrome instance, terminating pool",
				zap.Int("instance_id", idx),
				zap.Error(err),
			)
			for j := 0; j < idx; j++ {
				if pool.instances[j] != nil {
					pool.instances[j].Terminate()
				}
			}
			cancel()
			return nil, err
		}

		pool.instances[idx] = instance

		logger.Debug("chrome instance created", zap.Int("instance_id", idx))
	}

	logger.Info("chrome pool initialized", zap.Int("pool_size", config.PoolSize))
	return pool, nil
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	available := 0
	for _, inst := range p.instances {
		if s := inst.Status(); s != StatusDead && s != StatusClosed {
			available++
		}
	}
	return Stats{
		TotalInstances:     len(p.instances),
		AvailableInstances: available,
		ActiveInstances:    p.activeCount.Load(),
	}
}

// Acquire hands out a Chrome instance to share, round-robining across
// the pool so load spreads evenly when PoolSize > 1. It never blocks
// and never reports the pool as exhausted: many pages run concurrent
// tabs on the same instance (spec.md §2/§5), so there's no exclusive
// slot to run out of — only a pool mid-shutdown, or a dead instance
// whose restart itself fails, refuses a caller.
func (p *Pool) Acquire() (*Instance, error) {
	select {
	case <-p.ctx.Done():
		return nil, ErrPoolShuttingDown
	default:
	}

	idx := int(p.nextIdx.Add(1)-1) % len(p.instances)
	instance := p.instances[idx]

	if err := instance.EnsureAlive(); err != nil {
		p.logger.Error("failed to restart dead instance",
			zap.Int("instance_id", idx),
			zap.Error(err),
		)
		return nil, err
	}
	instance.MaybeRestart(p.logger)

	p.activeCount.Add(1)
	instance.acquireTab()

	p.logger.Debug("instance acquired",
		zap.Int("instance_id", idx),
		zap.Int32("active_tabs", instance.ActiveTabs()),
		zap.Int32("active_count", p.activeCount.Load()),
	)

	return instance, nil
}

// Release marks one page's tab against instance as finished.
func (p *Pool) Release(instance *Instance) {
	if instance == nil {
		return
	}

	p.activeCount.Add(-1)
	instance.releaseTab()

	p.logger.Debug("instance released",
		zap.Int("instance_id", instance.ID()),
		zap.Int32("active_tabs", instance.ActiveTabs()),
		zap.Int32("active_count", p.activeCount.Load()),
	)
}

// Shutdown gracefully shuts down the pool, waiting for active tabs to
// release up to ShutdownTimeout before forcing termination.
func (p *Pool) Shutdown() error {
	p.cancel()

	activeCount := p.activeCount.Load()
	p.logger.Info("pool shutdown started", zap.Int32("active_tabs", activeCount))

	timeout := p.config.ShutdownTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		if p.activeCount.Load() == 0 {
			p.logger.Info("all tabs released gracefully")
			break
		}
		if time.Now().After(deadline) {
			p.logger.Warn("shutdown timeout exceeded, forcing termination",
				zap.Int32("active_tabs", p.activeCount.Load()),
			)
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	for idx, instance := range p.instances {
		if instance != nil {
			if err := instance.Terminate(); err != nil {
				p.logger.Error("failed to terminate instance",
					zap.Int("instance_id", idx),
					zap.Error(err),
				)
			}
		}
	}

	p.logger.Info("pool shutdown complete")
	return nil
}
