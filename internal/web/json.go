package web

import (
	"encoding/json"

	"github.com/sweeney/nexus-sensor/internal/ook"
	"github.com/sweeney/nexus-sensor/internal/status"
)

// ReadingsJSON is the JSON representation of the reading history.
type ReadingsJSON struct {
	Readings []status.ReadingJSON `json:"readings"`
}

func formatReadings(readings []ook.Reading) []byte {
	out := ReadingsJSON{Readings: make([]status.ReadingJSON, 0, len(readings))}
	for _, r := range readings {
		out.Readings = append(out.Readings, status.NewReadingJSON(r))
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return data
}
