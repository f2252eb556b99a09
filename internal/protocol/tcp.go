// internal/protocol/tcp.go
package protocol

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TCPConfig holds TCP transport configuration
type TCPConfig struct {
	Host           string
	Port           int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	BufferSize     int
	UseMLLP        bool
	KeepAlive      bool
}

// TCPTransport implements Transport over a TCP socket
type TCPTransport struct {
	config *TCPConfig
	conn   net.Conn
	logger *zap.Logger
	mutex  sync.RWMutex
	isOpen bool
	stats  TransportStats
}

// NewTCPTransport creates a new TCP transport
func NewTCPTransport(config *TCPConfig, logger *zap.Logger) Transport {
	if config.BufferSize <= 0 {
		config.BufferSize = 4096
	}
	return &TCPTransport{
		config: config,
		logger: logger.With(
			zap.String("transport", "tcp"),
			zap.String("host", config.Host),
			zap.Int("port", config.Port),
		),
	}
}

// Connect opens the TCP connection
func (t *TCPTransport) Connect(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.isOpen {
		return nil
	}

	t.logger.Info("Opening TCP connection", zap.Bool("mllp", t.config.UseMLLP))

	dialer := &net.Dialer{
		Timeout:   t.config.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	address := fmt.Sprintf("%s:%d", t.config.Host, t.config.Port)
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		t.stats.ErrorCount++
		t.logger.Error("Failed to open TCP connection", zap.Error(err))
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok && t.config.KeepAlive {
		tcpConn.SetKeepAlive(true)
		tcpConn.SetKeepAlivePeriod(30 * time.Second)
	}

	t.conn = conn
	t.isOpen = true
	t.stats.IsConnected = true
	t.stats.LastActivity = time.Now()

	t.logger.Info("TCP connection opened successfully")
	return nil
}

// Disconnect closes the TCP connection. Calling it on a closed transport is a no-op.
func (t *TCPTransport) Disconnect() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.isOpen || t.conn == nil {
		return nil
	}

	err := t.conn.Close()
	t.conn = nil
	t.isOpen = false
	t.stats.IsConnected = false

	if err != nil {
		t.logger.Warn("Error while closing TCP connection", zap.Error(err))
		return fmt.Errorf("failed to close TCP connection: %w", err)
	}

	t.logger.Info("TCP connection closed")
	return nil
}

// IsConnected returns whether the connection is open
func (t *TCPTransport) IsConnected() bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.isOpen && t.conn != nil
}

// Send writes a message to the socket, MLLP framed when configured
func (t *TCPTransport) Send(ctx context.Context, data []byte) error {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if !t.isOpen || t.conn == nil {
		return ErrNotOpen
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	payload := data
	if t.config.UseMLLP {
		payload = wrapMLLP(data)
	}

	if t.config.WriteTimeout > 0 {
		t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
	}

	startTime := time.Now()
	n, err := t.conn.Write(payload)
	if err != nil {
		t.stats.ErrorCount++
		t.logger.Error("TCP write failed", zap.Error(err))
		return fmt.Errorf("failed to write to TCP connection: %w", err)
	}

	if n != len(payload) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(payload))
	}

	t.stats.BytesWritten += int64(n)
	t.stats.OperationCount++
	t.stats.LastActivity = time.Now()
	t.updateAverageLatency(time.Since(startTime))

	t.logger.Debug("TCP write completed", zap.Int("bytes", n))
	return nil
}

// Receive reads one message from the socket. A read timeout yields (nil, nil).
func (t *TCPTransport) Receive(ctx context.Context) ([]byte, error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if !t.isOpen || t.conn == nil {
		return nil, ErrNotOpen
	}

	if t.config.ReadTimeout > 0 {
		t.conn.SetReadDeadline(time.Now().Add(t.config.ReadTimeout))
	}

	buffer := make([]byte, t.config.BufferSize)

	done := make(chan struct {
		data []byte
		err  error
	}, 1)

	go func() {
		n, err := t.conn.Read(buffer)
		result := struct {
			data []byte
			err  error
		}{}

		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				// Silence on the wire, not a failure
				result.data = nil
			} else {
				result.err = fmt.Errorf("failed to read from TCP connection: %w", err)
			}
		} else {
			result.data = make([]byte, n)
			copy(result.data, buffer[:n])
		}
		done <- result
	}()

	select {
	case result := <-done:
		if result.err != nil {
			t.stats.ErrorCount++
			return nil, result.err
		}
		if len(result.data) == 0 {
			return nil, nil
		}

		t.stats.BytesRead += int64(len(result.data))
		t.stats.OperationCount++
		t.stats.LastActivity = time.Now()

		if t.config.UseMLLP {
			return unwrapMLLP(result.data), nil
		}
		return result.data, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats returns link statistics
func (t *TCPTransport) Stats() TransportStats {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.stats
}

// updateAverageLatency updates the running average latency
func (t *TCPTransport) updateAverageLatency(newLatency time.Duration) {
	if t.stats.AverageLatency == 0 {
		t.stats.AverageLatency = newLatency
	} else {
		t.stats.AverageLatency = (t.stats.AverageLatency + newLatency) / 2
	}
}
