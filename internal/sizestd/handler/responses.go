package handler

import (
	"encoding/json"

	"gonogo/internal/sizestd"
)

// SizeStandardResponse is the body of GET /naics/{code}/size-standard.
type SizeStandardResponse struct {
	NAICS       string      `json:"naics"`
	Title       string      `json:"title"`
	Basis       string      `json:"basis"`
	Threshold   json.Number `json:"threshold"`
	Unit        string      `json:"unit"`
	EffectiveFY int         `json:"effective_fy"`
	Source      string      `json:"source"`
}

// ImportResponse is the body of a successful import.
type ImportResponse struct {
	Imported int `json:"imported"`
}

func toResponse(row sizestd.Standard, source sizestd.Source) SizeStandardResponse {
	return SizeStandardResponse{
		NAICS:       row.NAICS.String(),
		Title:       row.DisplayTitle(),
		Basis:       string(row.Basis),
		Threshold:   json.Number(row.Threshold.String()),
		Unit:        row.Unit,
		EffectiveFY: row.EffectiveFY,
		Source:      string(source),
	}
}
