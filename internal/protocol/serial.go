// internal/protocol/serial.go
package protocol

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// SerialConfig holds serial transport configuration
type SerialConfig struct {
	Port        string
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      string
	ReadTimeout time.Duration
	BufferSize  int
	UseSTX      bool
}

// SerialTransport implements Transport over a serial line
type SerialTransport struct {
	config *SerialConfig
	port   serial.Port
	logger *zap.Logger
	mutex  sync.RWMutex
	isOpen bool
	stats  TransportStats
}

// NewSerialTransport creates a new serial transport
func NewSerialTransport(config *SerialConfig, logger *zap.Logger) Transport {
	if config.BufferSize <= 0 {
		config.BufferSize = 4096
	}
	return &SerialTransport{
		config: config,
		logger: logger.With(
			zap.String("transport", "serial"),
			zap.String("port", config.Port),
		),
	}
}

// Connect opens the serial port
func (s *SerialTransport) Connect(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.isOpen {
		return nil
	}

	s.logger.Info("Opening serial port",
		zap.Int("baud_rate", s.config.BaudRate),
		zap.Int("data_bits", s.config.DataBits),
	)

	mode := &serial.Mode{
		BaudRate: s.config.BaudRate,
		DataBits: s.config.DataBits,
		StopBits: serial.StopBits(s.config.StopBits),
	}

	switch s.config.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}

	port, err := serial.Open(s.config.Port, mode)
	if err != nil {
		s.stats.ErrorCount++
		s.logger.Error("Failed to open serial port", zap.Error(err))
		return fmt.Errorf("failed to open serial port %s: %w", s.config.Port, err)
	}

	if s.config.ReadTimeout > 0 {
		if err := port.SetReadTimeout(s.config.ReadTimeout); err != nil {
			port.Close()
			return fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	s.port = port
	s.isOpen = true
	s.stats.IsConnected = true
	s.stats.LastActivity = time.Now()

	s.logger.Info("Serial port opened successfully")
	return nil
}

// Disconnect closes the serial port. Calling it on a closed transport is a no-op.
func (s *SerialTransport) Disconnect() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isOpen || s.port == nil {
		return nil
	}

	err := s.port.Close()
	s.port = nil
	s.isOpen = false
	s.stats.IsConnected = false

	if err != nil {
		s.logger.Warn("Error while closing serial port", zap.Error(err))
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	s.logger.Info("Serial port closed")
	return nil
}

// IsConnected returns whether the port is open
func (s *SerialTransport) IsConnected() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.isOpen && s.port != nil
}

// Send writes a message to the serial line
func (s *SerialTransport) Send(ctx context.Context, data []byte) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isOpen || s.port == nil {
		return ErrNotOpen
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	payload := data
	if s.config.UseSTX {
		payload = wrapSTX(data)
	}

	startTime := time.Now()
	n, err := s.port.Write(payload)
	if err != nil {
		s.stats.ErrorCount++
		s.logger.Error("Serial write failed", zap.Error(err))
		return fmt.Errorf("failed to write to serial port: %w", err)
	}

	if n != len(payload) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(payload))
	}

	s.stats.BytesWritten += int64(n)
	s.stats.OperationCount++
	s.stats.LastActivity = time.Now()
	s.updateAverageLatency(time.Since(startTime))

	s.logger.Debug("Serial write completed", zap.Int("bytes", n))
	return nil
}

// Receive reads one frame from the serial line. The port's read timeout
// expiring with nothing buffered yields (nil, nil).
func (s *SerialTransport) Receive(ctx context.Context) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isOpen || s.port == nil {
		return nil, ErrNotOpen
	}

	buffer := make([]byte, s.config.BufferSize)

	done := make(chan struct {
		data []byte
		err  error
	}, 1)

	go func() {
		n, err := s.port.Read(buffer)
		result := struct {
			data []byte
			err  error
		}{}

		if err != nil && err != io.EOF {
			result.err = fmt.Errorf("failed to read from serial port: %w", err)
		} else {
			result.data = make([]byte, n)
			copy(result.data, buffer[:n])
		}
		done <- result
	}()

	select {
	case result := <-done:
		if result.err != nil {
			s.stats.ErrorCount++
			return nil, result.err
		}
		if len(result.data) == 0 {
			return nil, nil
		}

		s.stats.BytesRead += int64(len(result.data))
		s.stats.OperationCount++
		s.stats.LastActivity = time.Now()

		if s.config.UseSTX {
			return unwrapSTX(result.data), nil
		}
		return result.data, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats returns link statistics
func (s *SerialTransport) Stats() TransportStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.stats
}

// updateAverageLatency updates the running average latency
func (s *SerialTransport) updateAverageLatency(newLatency time.Duration) {
	if s.stats.AverageLatency == 0 {
		s.stats.AverageLatency = newLatency
	} else {
		s.stats.AverageLatency = (s.stats.AverageLatency + newLatency) / 2
	}
}
