package utils

import (
	"bytes"
	"fmt"
	"math"

	"github.com/sugawarayuuta/sonnet"

	"arbTimeline/internal/domain"
	"arbTimeline/internal/timeline"
)

// opportunityEnvelope is the API response shape {"success": true, "data": [...]}.
type opportunityEnvelope struct {
	Success bool                    `json:"success"`
	Data    []domain.RawOpportunity `json:"data"`
}

// DecodeOpportunitiesJSON accepts either a bare array of opportunities or
// an API envelope holding one under "data".
func DecodeOpportunitiesJSON(data []byte) ([]domain.RawOpportunity, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var raws []domain.RawOpportunity
		if err := sonnet.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("failed to decode opportunity array: %w", err)
		}
		return raws, nil
	}
	var env opportunityEnvelope
	if err := sonnet.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("failed to decode opportunity envelope: %w", err)
	}
	return env.Data, nil
}

// SceneDocument is the JSON form of a composed scene.
type SceneDocument struct {
	Width      float64          `json:"width"`
	Height     float64          `json:"height"`
	Scale      float64          `json:"scale"`
	PanOffset  float64          `json:"pan_offset"`
	Baseline   [3]float64       `json:"baseline"` // x1, x2, y
	Markers    []MarkerDocument `json:"markers"`
	Connectors [][3]float64     `json:"connectors"` // x, fromY, toY
	TimeTicks  []TickDocument   `json:"time_ticks"`
	ValueTicks []TickDocument   `json:"value_ticks"`
	CurvePath  string           `json:"curve_path,omitempty"`
	AreaPath   string           `json:"area_path,omitempty"`
	Legend     []LegendDocument `json:"legend"`
}

// MarkerDocument is one marker in a SceneDocument.
type MarkerDocument struct {
	ID         string  `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Radius     float64 `json:"r"`
	Level      int     `json:"level"`
	Hovered    bool    `json:"hovered,omitempty"`
	ProfitRate float64 `json:"profit_rate"`
}

// TickDocument is an axis label at a position.
type TickDocument struct {
	Pos   float64 `json:"pos"`
	Label string  `json:"label"`
}

// LegendDocument is one legend row. Open bounds are omitted.
type LegendDocument struct {
	Level string   `json:"level"`
	Low   *float64 `json:"low,omitempty"`
	High  *float64 `json:"high,omitempty"`
	Label string   `json:"label"`
	Empty bool     `json:"empty,omitempty"`
}

// NewSceneDocument converts s into its JSON form.
func NewSceneDocument(s timeline.Scene) SceneDocument {
	doc := SceneDocument{
		Width:     s.Width,
		Height:    s.Height,
		Scale:     s.View.Scale,
		PanOffset: s.View.PanOffset,
		Baseline:  [3]float64{s.Baseline.X1, s.Baseline.X2, s.Baseline.Y},
		CurvePath: s.Curve.Path,
		AreaPath:  s.Curve.AreaPath,
	}
	for _, m := range s.Markers {
		doc.Markers = append(doc.Markers, MarkerDocument{
			ID:         m.Event.ID,
			X:          m.X,
			Y:          m.Y,
			Radius:     m.Radius,
			Level:      int(m.Level),
			Hovered:    m.Hovered,
			ProfitRate: m.Event.ProfitRate,
		})
	}
	for _, c := range s.Connectors {
		doc.Connectors = append(doc.Connectors, [3]float64{c.X, c.FromY, c.ToY})
	}
	for _, t := range s.TimeTicks {
		doc.TimeTicks = append(doc.TimeTicks, TickDocument{Pos: t.X, Label: t.Label})
	}
	for _, t := range s.Curve.Ticks {
		doc.ValueTicks = append(doc.ValueTicks, TickDocument{Pos: t.Y, Label: t.Label})
	}
	for _, e := range s.Legend {
		entry := LegendDocument{Level: e.Level.String(), Label: e.Label, Empty: e.Empty}
		if !math.IsInf(e.Low, 0) {
			low := e.Low
			entry.Low = &low
		}
		if !math.IsInf(e.High, 0) {
			high := e.High
			entry.High = &high
		}
		doc.Legend = append(doc.Legend, entry)
	}
	return doc
}

// MarshalScene encodes s as JSON.
func MarshalScene(s timeline.Scene) ([]byte, error) {
	return sonnet.Marshal(NewSceneDocument(s))
}
