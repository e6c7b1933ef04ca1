package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/driver"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/contracts"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/logger"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/rabbitmq"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// DriverStatusListener keeps the drivers table in sync with availability
// updates published by the driver app gateway. BUSY is owned by the matching
// flow and never applied from the outside.
type DriverStatusListener struct {
	logger     *logger.Logger
	client     *rabbitmq.Client
	uow        ports.UnitOfWork
	driverRepo ports.DriverRepository
}

// NewDriverStatusListener constructs a listener over the driver status queue.
func NewDriverStatusListener(log *logger.Logger, client *rabbitmq.Client, uow ports.UnitOfWork, driverRepo ports.DriverRepository) *DriverStatusListener {
	return &DriverStatusListener{
		logger:     log,
		client:     client,
		uow:        uow,
		driverRepo: driverRepo,
	}
}

// Run consumes driver status messages until ctx is cancelled.
func (listener *DriverStatusListener) Run(ctx context.Context) error {
	return listener.client.Consume(ctx, contracts.QueueDriverStatus, "matching-driver-status", 8, listener.handle)
}

func (listener *DriverStatusListener) handle(ctx context.Context, d amqp.Delivery) error {
	var msg contracts.DriverStatusMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		listener.logger.Error(ctx, "driver_status_decode_failed", "Failed to decode driver status message", err, map[string]any{
			"routing_key": d.RoutingKey,
		})
		return err
	}

	status := driver.Status(msg.Status)
	if !status.Valid() {
		return fmt.Errorf("invalid driver status %q", msg.Status)
	}

	// external updates may only toggle OFFLINE/ONLINE
	if status == driver.StatusBusy {
		listener.logger.Debug(ctx, "driver_status_ignored", "BUSY transitions are owned by the matching flow", map[string]any{
			"driver_id": msg.DriverID,
		})
		return nil
	}

	err := listener.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return listener.driverRepo.SetStatusUnlessBusy(txCtx, msg.DriverID, status)
	})
	if errors.Is(err, ports.ErrConflict) {
		// the driver is mid-ride; only the booking flow may free them
		listener.logger.Debug(ctx, "driver_status_ignored", "Driver is BUSY, external update dropped", map[string]any{
			"driver_id": msg.DriverID,
			"status":    msg.Status,
		})
		return nil
	}
	if err != nil {
		listener.logger.Error(ctx, "driver_status_update_failed", "Failed to update driver status", err, map[string]any{
			"driver_id": msg.DriverID,
			"status":    msg.Status,
		})
		return err
	}

	listener.logger.Info(ctx, "driver_status_updated", "Driver availability updated", map[string]any{
		"driver_id": msg.DriverID,
		"status":    msg.Status,
	})
	return nil
}
