package ws

import (
	"go.uber.org/zap"

	"github.com/minhanhland/inventory/internal/domain"
)

// Notifier is the producer-facing side of the broadcaster. The CRUD layer
// calls it after a write commits; failures are logged, never returned,
// because the write already succeeded.
type Notifier struct {
	hub    *Hub
	logger *zap.Logger
}

// NewNotifier creates a Notifier publishing through the given hub.
func NewNotifier(hub *Hub, logger *zap.Logger) *Notifier {
	return &Notifier{hub: hub, logger: logger}
}

// PublishCreated announces a new product to its partition.
func (n *Notifier) PublishCreated(product *domain.Product, subdivisionID, apartmentTypeID string) {
	n.publish(EventProductCreated, TypeProductCreated, product, subdivisionID, apartmentTypeID)
}

// PublishUpdated announces a changed product to its partition.
func (n *Notifier) PublishUpdated(product *domain.Product, subdivisionID, apartmentTypeID string) {
	n.publish(EventProductUpdated, TypeProductUpdated, product, subdivisionID, apartmentTypeID)
}

// PublishDeleted announces a removal. Only the id (plus the human-readable
// apartment code when known) goes over the wire.
func (n *Notifier) PublishDeleted(productID, apartmentCode, subdivisionID, apartmentTypeID string) {
	payload := DeletedPayload{ID: productID, ApartmentCode: apartmentCode}
	n.publish(EventProductDeleted, TypeProductDeleted, payload, subdivisionID, apartmentTypeID)
}

func (n *Notifier) publish(event, envelopeType string, payload any, subdivisionID, apartmentTypeID string) {
	key := RoomKey{Subdivision: subdivisionID, ApartmentType: apartmentTypeID}

	frame, err := MarshalEvent(event, envelopeType, payload)
	if err != nil {
		n.logger.Error("failed to encode event",
			zap.String("event", event),
			zap.String("room", key.String()),
			zap.Error(err),
		)
		return
	}

	delivered := n.hub.Publish(key, frame)
	n.logger.Debug("event published",
		zap.String("event", event),
		zap.String("room", key.String()),
		zap.Int("delivered", delivered),
	)
}
