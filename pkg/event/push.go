package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// KitchenTopic carries kitchen queue events.
	KitchenTopic = "cocina"
	// tableTopicPrefix scopes events to a single table, e.g. "mesa-5".
	tableTopicPrefix = "mesa-"
)

// Kind identifies a push event type as sent by the server.
type Kind string

const (
	KindNewItem       Kind = "nuevo_item"
	KindItemReady     Kind = "item_listo"
	KindItemDelivered Kind = "item_entregado"
)

// aliases maps English spellings to the canonical server kinds.
var aliases = map[string]Kind{
	"new_item":       KindNewItem,
	"item_ready":     KindItemReady,
	"item_delivered": KindItemDelivered,
}

// TableTopic returns the push topic for the table with the given id.
func TableTopic(tableID string) string {
	return tableTopicPrefix + tableID
}

// TableIDFromTopic extracts the table id from a table topic.
func TableIDFromTopic(topic string) (string, bool) {
	if !strings.HasPrefix(topic, tableTopicPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(topic, tableTopicPrefix)
	return id, id != ""
}

// Event is a decoded push frame. Payload is left raw so that decoding
// failures stay local to the consumer.
type Event struct {
	Kind    Kind            `json:"kind"`
	ID      string          `json:"id,omitempty"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Canonical returns the server spelling of k and whether k is recognized.
func (k Kind) Canonical() (Kind, bool) {
	switch k {
	case KindNewItem, KindItemReady, KindItemDelivered:
		return k, true
	}
	if c, ok := aliases[string(k)]; ok {
		return c, true
	}
	return k, false
}

// NewItemPayload is sent when an item is added to an order.
type NewItemPayload struct {
	ItemID      int    `json:"detalle_id"`
	ProductName string `json:"producto_nombre"`
	Quantity    int    `json:"cantidad"`
	TableNumber int    `json:"mesa_numero"`
	OrderID     int    `json:"pedido_id"`
	Status      string `json:"estado"`
}

// ItemReadyPayload is sent to a table topic when the kitchen finishes an item.
type ItemReadyPayload struct {
	ItemID      int    `json:"detalle_id"`
	ProductName string `json:"producto_nombre"`
	TableNumber int    `json:"mesa_numero"`
	NewStatus   string `json:"nuevo_estado"`
}

// ItemDeliveredPayload is sent to the kitchen topic when a waiter delivers an item.
type ItemDeliveredPayload struct {
	ItemID int `json:"detalle_id"`
}

// Decode unmarshals the payload of a recognized event into its typed form.
func (e Event) Decode() (any, error) {
	kind, ok := e.Kind.Canonical()
	if !ok {
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}

	var dest any
	switch kind {
	case KindNewItem:
		dest = &NewItemPayload{}
	case KindItemReady:
		dest = &ItemReadyPayload{}
	case KindItemDelivered:
		dest = &ItemDeliveredPayload{}
	}

	if len(e.Payload) == 0 {
		return nil, fmt.Errorf("empty payload for %s", kind)
	}
	if err := json.Unmarshal(e.Payload, dest); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return dest, nil
}
