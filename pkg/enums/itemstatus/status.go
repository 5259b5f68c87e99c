package itemstatus

import (
	"strings"
)

// Status is the lifecycle state of an order or of a single order item.
// Items never reach Paid; only orders do.
type Status struct {
	Name string
	rank int
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	switch s {
	case Statuses.Received:
		return "Received"
	case Statuses.InProgress:
		return "In Progress"
	case Statuses.Ready:
		return "Ready"
	case Statuses.Delivered:
		return "Delivered"
	case Statuses.Paid:
		return "Paid"
	}
	if len(s.Name) == 0 {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

// Rank orders statuses from least to most advanced.
// Unknown statuses parsed from the wire rank -1.
func (s Status) Rank() int {
	return s.rank
}

func (s Status) IsZero() bool {
	return s.Name == ""
}

type Enum struct {
	Received   Status
	InProgress Status
	Ready      Status
	Delivered  Status
	Paid       Status
}

var Statuses = Enum{
	Received:   Status{Name: "recibido", rank: 0},
	InProgress: Status{Name: "preparacion", rank: 1},
	Ready:      Status{Name: "listo", rank: 2},
	Delivered:  Status{Name: "entregado", rank: 3},
	Paid:       Status{Name: "pagado", rank: 4},
}

var All = []Status{
	Statuses.Received,
	Statuses.InProgress,
	Statuses.Ready,
	Statuses.Delivered,
	Statuses.Paid,
}

// Item lists the statuses an order item can hold.
var Item = All[:4]

// ByName returns the status for a given name, or nil if not found.
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// Parse maps a wire value to a Status. Unknown values keep their name and
// rank -1.
func Parse(name string) Status {
	if s := ByName(name); s != nil {
		return *s
	}
	return Status{Name: name, rank: -1}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.Name), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	*s = Parse(string(text))
	return nil
}
