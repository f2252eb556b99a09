// internal/protocol/factory.go
package protocol

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"lis-service/internal/config"
	"lis-service/internal/model"
)

// NewTransport builds the transport matching the equipment's connection type.
// Network-style types map to TCP, serial-style types to a serial line. HL7 over
// TCP gets MLLP framing; everything else is raw passthrough.
func NewTransport(equipment *model.Equipment, cfg *config.EquipmentConfig, logger *zap.Logger) (Transport, error) {
	switch {
	case equipment.ConnectionType.IsNetwork():
		return newTCPTransport(equipment, cfg, logger)
	case equipment.ConnectionType.IsSerial():
		return newSerialTransport(equipment, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedConnection, equipment.ConnectionType)
	}
}

func newTCPTransport(equipment *model.Equipment, cfg *config.EquipmentConfig, logger *zap.Logger) (Transport, error) {
	if equipment.IPAddress == nil || *equipment.IPAddress == "" {
		return nil, fmt.Errorf("equipment %d has no ip_address configured", equipment.ID)
	}
	if equipment.Port == nil || *equipment.Port < 1 || *equipment.Port > 65535 {
		return nil, fmt.Errorf("equipment %d has no valid port configured", equipment.ID)
	}

	tcpConfig := &TCPConfig{
		Host:           *equipment.IPAddress,
		Port:           *equipment.Port,
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReceiveTimeout,
		WriteTimeout:   cfg.CommandTimeout,
		BufferSize:     cfg.ReadBufferSize,
		UseMLLP:        equipment.Protocol == model.ProtocolHL7,
		KeepAlive:      true,
	}

	logger.Info("Creating TCP transport",
		zap.Int64("equipment_id", equipment.ID),
		zap.String("host", tcpConfig.Host),
		zap.Int("port", tcpConfig.Port),
		zap.Bool("mllp", tcpConfig.UseMLLP),
	)

	return NewTCPTransport(tcpConfig, logger), nil
}

func newSerialTransport(equipment *model.Equipment, cfg *config.EquipmentConfig, logger *zap.Logger) (Transport, error) {
	if equipment.ComPort == nil || *equipment.ComPort == "" {
		return nil, fmt.Errorf("equipment %d has no com_port configured", equipment.ID)
	}

	serialConfig := &SerialConfig{
		Port:        *equipment.ComPort,
		BaudRate:    cfg.SerialDefaults.BaudRate,
		DataBits:    cfg.SerialDefaults.DataBits,
		StopBits:    cfg.SerialDefaults.StopBits,
		Parity:      cfg.SerialDefaults.Parity,
		ReadTimeout: cfg.ReceiveTimeout,
		BufferSize:  cfg.ReadBufferSize,
		UseSTX:      equipment.Protocol == model.ProtocolASTM,
	}

	// Per-equipment line settings override the configured defaults
	if equipment.BaudRate != nil && *equipment.BaudRate > 0 {
		serialConfig.BaudRate = *equipment.BaudRate
	}
	if equipment.DataBits != nil && *equipment.DataBits > 0 {
		serialConfig.DataBits = *equipment.DataBits
	}
	if equipment.StopBits != nil && *equipment.StopBits > 0 {
		serialConfig.StopBits = *equipment.StopBits
	}
	if equipment.Parity != nil && *equipment.Parity != "" {
		serialConfig.Parity = *equipment.Parity
	}
	if serialConfig.ReadTimeout <= 0 {
		serialConfig.ReadTimeout = 2 * time.Second
	}

	logger.Info("Creating serial transport",
		zap.Int64("equipment_id", equipment.ID),
		zap.String("port", serialConfig.Port),
		zap.Int("baud_rate", serialConfig.BaudRate),
	)

	return NewSerialTransport(serialConfig, logger), nil
}
