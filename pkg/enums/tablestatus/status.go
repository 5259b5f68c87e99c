package tablestatus

import "strings"

// Status is the occupancy state of a dining table.
type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	if len(s.Name) == 0 {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

// Occupied reports whether the table holds guests. A table being charged is
// still occupied.
func (s Status) Occupied() bool {
	return s == Statuses.Occupied || s == Statuses.Paying
}

type Enum struct {
	Available Status
	Occupied  Status
	Paying    Status
}

var Statuses = Enum{
	Available: Status{Name: "disponible"},
	Occupied:  Status{Name: "ocupada"},
	Paying:    Status{Name: "pagando"},
}

var All = []Status{
	Statuses.Available,
	Statuses.Occupied,
	Statuses.Paying,
}

// ByName returns the status for a given name, or nil if not found.
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.Name), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	s.Name = string(text)
	return nil
}
