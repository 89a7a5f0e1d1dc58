package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/geodesim/internal/dynamo"
)

type ExportData struct {
	RunMetadata
	Lambdas []float64    `json:"lambdas"`
	States  [][8]float64 `json:"states"`
}

// ExportJSON writes one element of a stored run as indented JSON.
func (s *Store) ExportJSON(w io.Writer, runID string, element int) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	lambdas, states, err := s.LoadStates(runID, element)
	if err != nil {
		return err
	}
	return WriteJSON(w, *meta, lambdas, states)
}

func WriteJSON(w io.Writer, meta RunMetadata, lambdas []float64, states []dynamo.Tangent) error {
	data := ExportData{
		RunMetadata: meta,
		Lambdas:     lambdas,
		States:      make([][8]float64, len(states)),
	}
	for i, p := range states {
		copy(data.States[i][:4], p.X[:])
		copy(data.States[i][4:], p.V[:])
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
