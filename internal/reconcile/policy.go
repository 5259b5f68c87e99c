package reconcile

import (
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/aquamarinepk/aqm"
)

// Action is what a view does in response to a push event.
type Action int

const (
	Ignore Action = iota
	FullRefresh
)

func (a Action) String() string {
	switch a {
	case FullRefresh:
		return "full_refresh"
	default:
		return "ignore"
	}
}

// Policy maps push events to view actions. Every recognized event triggers
// a full refresh so that views converge to server truth.
type Policy struct {
	logger aqm.Logger
}

func NewPolicy(logger aqm.Logger) *Policy {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Policy{logger: logger}
}

// OnEvent never fails: unknown kinds and undecodable payloads are ignored so
// one bad event cannot break the live stream.
func (p *Policy) OnEvent(evt event.Event) Action {
	kind, ok := evt.Kind.Canonical()
	if !ok {
		p.logger.Debug("ignoring unknown event kind", "kind", evt.Kind, "topic", evt.Topic)
		return Ignore
	}

	payload, err := evt.Decode()
	if err != nil {
		p.logger.Error("ignoring malformed event", "kind", kind, "topic", evt.Topic, "error", err)
		return Ignore
	}

	switch pl := payload.(type) {
	case *event.NewItemPayload:
		p.logger.Info("new item", "topic", evt.Topic, "product", pl.ProductName, "quantity", pl.Quantity, "table", pl.TableNumber)
	case *event.ItemReadyPayload:
		p.logger.Info("item ready", "topic", evt.Topic, "item_id", pl.ItemID, "product", pl.ProductName)
	case *event.ItemDeliveredPayload:
		p.logger.Info("item delivered", "topic", evt.Topic, "item_id", pl.ItemID)
	}

	return FullRefresh
}
