package simulator

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"
)

// DefaultInterval is the tick period of a simulated device.
const DefaultInterval = 2 * time.Second

// Supervisor runs one goroutine per simulated zone and tears them down on
// demand. Zones advance independently: un tick lento o fallito su una zona
// non blocca le altre.
type Supervisor struct {
	client   *Client
	interval time.Duration

	mu      sync.Mutex
	cancels map[int64]context.CancelFunc
	wg      sync.WaitGroup
}

func NewSupervisor(client *Client, interval time.Duration) *Supervisor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Supervisor{
		client:   client,
		interval: interval,
		cancels:  make(map[int64]context.CancelFunc),
	}
}

// StartZone seeds a device from the zone record and starts its tick loop.
// Starting an already running zone is a no-op.
func (s *Supervisor) StartZone(ctx context.Context, zoneID int64) error {
	s.mu.Lock()
	if _, running := s.cancels[zoneID]; running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	zone, err := s.client.GetZone(ctx, zoneID)
	if err != nil {
		return fmt.Errorf("seed zone %d: %w", zoneID, err)
	}
	state := SeedFromZone(zone)

	zoneCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if _, running := s.cancels[zoneID]; running {
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.cancels[zoneID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(zoneCtx, zoneID, state)
	log.Printf("simulator: zone %d started (tick %s)", zoneID, s.interval)
	return nil
}

// StopZone stops one zone's loop, if running.
func (s *Supervisor) StopZone(zoneID int64) {
	s.mu.Lock()
	cancel, ok := s.cancels[zoneID]
	if ok {
		delete(s.cancels, zoneID)
	}
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// StopAll stops every zone and waits for the loops to drain.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	for id, cancel := range s.cancels {
		cancel()
		delete(s.cancels, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Supervisor) run(ctx context.Context, zoneID int64, state DeviceState) {
	defer s.wg.Done()

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + zoneID))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("simulator: zone %d stopped", zoneID)
			return
		case now := <-ticker.C:
			state.Step(rng, now)
			resp, err := s.client.ReportSensorData(ctx, zoneID, state.Reading())
			if err != nil {
				log.Printf("simulator: zone %d report failed: %v", zoneID, err)
				continue
			}
			state.Apply(resp.Commands)
		}
	}
}
