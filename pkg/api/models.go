package api

import (
	"time"
)

type Label struct {
	Name   string
	Advice []string
}

type LabelsResponse struct {
	Labels     []Label
	Pesticides []string
}

type Prediction struct {
	Filename        string
	Label           string
	Confidence      float32
	Probabilities   map[string]float32
	Recommendations []string
}

type Quality struct {
	Status string
	Tier   string
}

type Record struct {
	Id         uint
	Filename   string
	Prediction string
	Confidence float32
	CreatedAt  time.Time

	ImageBase64 string `json:"ImageBase64,omitempty"`
}

type HistoryParams struct {
	Limit  *int `schema:"limit"`
	Images bool `schema:"images"`
}

type HistoryResponse struct {
	Records []Record
	Total   int
	Quality Quality
}
