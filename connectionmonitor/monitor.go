package connectionmonitor

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// healthCheckInterval defines the interval between connection health checks.
	healthCheckInterval = 30 * time.Second
	// maxReconnectAttempts defines the maximum number of reconnection attempts
	// per failed health check.
	maxReconnectAttempts = 3
)

// ConnectionMonitor keeps an RPC connection healthy in the background. A
// stale connection would freeze balances and gas estimates without any
// visible error, so the monitor probes periodically and reconnects on
// failure.
type ConnectionMonitor interface {
	// Start starts connection monitoring.
	Start(ctx context.Context) error
	// Stop stops connection monitoring.
	Stop()
}

// BlockchainClient is the connection under supervision.
type BlockchainClient interface {
	// CheckConnection checks if the connection is alive.
	CheckConnection(ctx context.Context) error
	// Reconnect re-establishes the connection.
	Reconnect(ctx context.Context) error
}

type connectionMonitor struct {
	client       BlockchainClient
	logger       *logrus.Logger
	chainName    string
	stopChan     chan struct{}
	isMonitoring bool
	monitorMutex sync.RWMutex
}

// NewConnectionMonitor creates a connection monitor.
//
// Parameters:
// - client: the connection to supervise.
// - logger: the logger for logging events.
// - chainName: the chain name used in log fields.
//
// Returns:
// - ConnectionMonitor: the monitor instance, not yet started.
func NewConnectionMonitor(
	client BlockchainClient,
	logger *logrus.Logger,
	chainName string,
) ConnectionMonitor {
	return &connectionMonitor{
		client:    client,
		logger:    logger,
		chainName: chainName,
		stopChan:  make(chan struct{}),
	}
}

// Start starts connection monitoring.
//
// Parameters:
// - ctx: the context bounding the monitoring lifetime.
//
// Returns:
// - error: an error if the monitor is already running.
func (m *connectionMonitor) Start(ctx context.Context) error {
	m.monitorMutex.Lock()
	if m.isMonitoring {
		m.monitorMutex.Unlock()
		return errors.Errorf("connection monitor is already running for chain %s", m.chainName)
	}
	m.stopChan = make(chan struct{})
	m.isMonitoring = true
	stopped := m.stopChan
	m.monitorMutex.Unlock()

	go m.monitorConnection(ctx, stopped)
	return nil
}

// Stop stops connection monitoring.
func (m *connectionMonitor) Stop() {
	m.monitorMutex.Lock()
	defer m.monitorMutex.Unlock()

	if !m.isMonitoring {
		return
	}

	close(m.stopChan)
	m.isMonitoring = false
}

// monitorConnection probes the connection on a fixed cadence until stopped.
func (m *connectionMonitor) monitorConnection(ctx context.Context, stopped chan struct{}) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.WithField("chain", m.chainName).Info("Connection monitoring stopped due to context cancellation")
			return

		case <-stopped:
			m.logger.WithField("chain", m.chainName).Info("Connection monitoring stopped")
			return

		case <-ticker.C:
			if err := m.checkAndReconnect(ctx); err != nil {
				m.logger.WithFields(logrus.Fields{
					"chain": m.chainName,
					"error": err,
				}).Error("Failed to check or reconnect")
			}
		}
	}
}

// checkAndReconnect probes the connection and reconnects with backoff when
// the probe fails.
//
// Parameters:
// - ctx: the context for managing the probe.
//
// Returns:
// - error: an error if every reconnection attempt fails.
func (m *connectionMonitor) checkAndReconnect(ctx context.Context) error {
	checkErr := m.client.CheckConnection(ctx)
	if checkErr == nil {
		return nil
	}

	m.logger.WithFields(logrus.Fields{
		"chain": m.chainName,
		"error": checkErr,
	}).Warn("Connection check failed, attempting to reconnect")

	operation := func() (struct{}, error) {
		if err := m.client.Reconnect(ctx); err != nil {
			m.logger.WithFields(logrus.Fields{
				"chain": m.chainName,
				"error": err,
			}).Error("Reconnection attempt failed")
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithMaxTries(maxReconnectAttempts),
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to reconnect to chain %s", m.chainName)
	}

	m.logger.WithField("chain", m.chainName).Info("Client successfully reconnected")
	return nil
}
