package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"newsdesk/internal/workflow"
)

// WorkerService manages background workers for the application
type WorkerService struct {
	workflow *workflow.Service
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	mu       sync.RWMutex
}

// NewWorkerService creates a new worker service. The interval controls
// how often the scheduled-publish sweep runs.
func NewWorkerService(wf *workflow.Service, interval time.Duration) *WorkerService {
	ctx, cancel := context.WithCancel(context.Background())

	if interval <= 0 {
		interval = time.Minute
	}

	return &WorkerService{
		workflow: wf,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		running:  false,
	}
}

// Start starts all background workers
func (ws *WorkerService) Start() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.running {
		return nil // Already running
	}

	log.Println("Starting background workers...")

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		ws.runScheduledPublisher()
	}()

	ws.running = true
	log.Println("Background workers started successfully")

	return nil
}

// Stop stops all background workers
func (ws *WorkerService) Stop() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.running {
		return // Not running
	}

	log.Println("Stopping background workers...")

	// Cancel context to signal all workers to stop
	ws.cancel()

	// Wait for all workers to finish
	ws.wg.Wait()

	ws.running = false
	log.Println("Background workers stopped")
}

// IsRunning returns whether the worker service is currently running
func (ws *WorkerService) IsRunning() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.running
}

// runScheduledPublisher promotes due scheduled articles to published on a
// fixed interval. A missed tick is harmless: the next sweep picks up
// everything that became due in the meantime.
func (ws *WorkerService) runScheduledPublisher() {
	log.Println("Starting scheduled publish worker...")

	ticker := time.NewTicker(ws.interval)
	defer ticker.Stop()

	// Run one sweep immediately so restarts don't delay due articles.
	ws.sweep()

	for {
		select {
		case <-ws.ctx.Done():
			log.Println("Scheduled publish worker stopped")
			return

		case <-ticker.C:
			ws.sweep()
		}
	}
}

func (ws *WorkerService) sweep() {
	published, err := ws.workflow.PublishDue(ws.ctx)
	if err != nil {
		if ws.ctx.Err() != nil {
			return
		}
		log.Printf("Scheduled publish sweep failed: %v", err)
		return
	}
	if published > 0 {
		log.Printf("Scheduled publish sweep promoted %d article(s)", published)
	}
}
