package dto

import "travel-time-service/internal/domain"

type GeocodeResponse struct {
	Results []domain.GeocodeResult `json:"results"`
}
