// Package emirates holds the static table of UAE emirates and the cities the
// AWQAF API publishes prayer times for.
package emirates

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"prayer-times-ics/internal/apperr"
)

//go:embed emirates.json
var tableJSON []byte

// City is a location with prayer-time coverage.
type City struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Emirate is one of the seven emirates and its cities.
type Emirate struct {
	Name   string `json:"name"`
	Cities []City `json:"cities"`
}

var table = mustParse(tableJSON)

func mustParse(data []byte) []Emirate {
	var out []Emirate
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("emirates: invalid embedded table: %v", err))
	}
	return out
}

// All returns every emirate in table order. The result is a copy.
func All() []Emirate {
	out := make([]Emirate, len(table))
	for i, e := range table {
		out[i] = Emirate{Name: e.Name, Cities: append([]City(nil), e.Cities...)}
	}
	return out
}

// Names returns the emirate names in table order.
func Names() []string {
	names := make([]string, len(table))
	for i, e := range table {
		names[i] = e.Name
	}
	return names
}

// Find returns the emirate matching name case-insensitively.
func Find(name string) (Emirate, error) {
	name = strings.TrimSpace(name)
	for _, e := range table {
		if strings.EqualFold(e.Name, name) {
			return Emirate{Name: e.Name, Cities: append([]City(nil), e.Cities...)}, nil
		}
	}
	return Emirate{}, apperr.Lookup("resolving emirate", fmt.Errorf("emirate %q not found", name))
}

// Cities returns the cities of an emirate.
func Cities(emirate string) ([]City, error) {
	e, err := Find(emirate)
	if err != nil {
		return nil, err
	}
	return e.Cities, nil
}

// Lookup resolves an emirate and city to their canonical spelling.
func Lookup(emirate, city string) (Emirate, City, error) {
	e, err := Find(emirate)
	if err != nil {
		return Emirate{}, City{}, err
	}
	city = strings.TrimSpace(city)
	for _, c := range e.Cities {
		if strings.EqualFold(c.Name, city) {
			return e, c, nil
		}
	}
	return Emirate{}, City{}, apperr.Lookup("resolving city", fmt.Errorf("city %q not found in %s", city, e.Name))
}
