package clockdrift

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewService(t *testing.T) {
	log := logrus.New()
	config := &Config{
		NTPServer:    "pool.ntp.org",
		SyncInterval: 5 * time.Minute,
	}

	service := NewService(log, config)
	assert.NotNil(t, service)
	assert.Equal(t, config, service.config)
	assert.NotNil(t, service.scheduler)
}

func TestService_GetDrift(t *testing.T) {
	log := logrus.New()
	config := &Config{
		NTPServer:    "pool.ntp.org",
		SyncInterval: 5 * time.Minute,
	}

	service := NewService(log, config)

	// Initial drift should be zero.
	assert.Equal(t, time.Duration(0), service.GetDrift())

	// Set a mock drift.
	service.mu.Lock()
	service.clockDrift = 1 * time.Second
	service.mu.Unlock()

	assert.Equal(t, 1*time.Second, service.GetDrift())
}

func TestService_Now(t *testing.T) {
	log := logrus.New()
	config := &Config{
		NTPServer:    "pool.ntp.org",
		SyncInterval: 5 * time.Minute,
	}

	service := NewService(log, config)

	// Set a known drift.
	service.mu.Lock()
	service.clockDrift = 1 * time.Second
	service.mu.Unlock()

	now := service.Now()
	system := time.Now()

	// Now() should be roughly one second ahead of the system clock.
	diff := now.Sub(system)
	assert.Greater(t, diff, 900*time.Millisecond)
	assert.Less(t, diff, 1100*time.Millisecond)
}

func TestSystemClock(t *testing.T) {
	clock := SystemClock{}

	assert.Equal(t, time.Duration(0), clock.GetDrift())
	assert.WithinDuration(t, time.Now(), clock.Now(), time.Second)
}
