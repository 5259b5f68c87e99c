package station

import "strings"

// Station is the preparation queue a product is routed to.
type Station struct {
	Name string
}

func (s Station) Code() string {
	return s.Name
}

func (s Station) Label() string {
	if len(s.Name) == 0 {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

// SkipsPreparation reports whether items of this station go straight from
// received to deliverable. Bar drinks have no cooking phase.
func (s Station) SkipsPreparation() bool {
	return s == Stations.Bar
}

type Enum struct {
	Kitchen Station
	Bar     Station
}

var Stations = Enum{
	Kitchen: Station{Name: "cocina"},
	Bar:     Station{Name: "bar"},
}

var All = []Station{
	Stations.Kitchen,
	Stations.Bar,
}

// ByName returns the station for a given name, or nil if not found.
// The English alias "kitchen" is accepted for route parameters.
func ByName(name string) *Station {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "kitchen" {
		name = Stations.Kitchen.Name
	}
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

func (s Station) MarshalText() ([]byte, error) {
	return []byte(s.Name), nil
}

func (s *Station) UnmarshalText(text []byte) error {
	s.Name = string(text)
	return nil
}
