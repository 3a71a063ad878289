package api

import (
	"leaf-backend/internal/core"
	"leaf-backend/internal/history"
	"leaf-backend/pkg/api"
)

func convertPrediction(filename string, p core.Prediction, recs *core.Recommendations) api.Prediction {
	probs := make(map[string]float32, len(p.Probabilities))
	for label, score := range p.Probabilities {
		probs[string(label)] = score
	}
	return api.Prediction{
		Filename:        filename,
		Label:           string(p.Label),
		Confidence:      p.Confidence,
		Probabilities:   probs,
		Recommendations: recs.For(p.Label),
	}
}

func convertRecord(r history.Record, withImage bool) api.Record {
	record := api.Record{
		Id:         r.ID,
		Filename:   r.Filename,
		Prediction: string(r.Prediction),
		Confidence: r.Confidence,
		CreatedAt:  r.CreatedAt,
	}
	if withImage {
		record.ImageBase64 = r.ImageBase64
	}
	return record
}

func convertRecords(rs []history.Record, withImages bool) []api.Record {
	records := make([]api.Record, 0, len(rs))
	for _, r := range rs {
		records = append(records, convertRecord(r, withImages))
	}
	return records
}

func convertQuality(q core.Quality) api.Quality {
	return api.Quality{Status: q.Status, Tier: string(q.Tier)}
}

func convertLabels(recs *core.Recommendations) []api.Label {
	labels := make([]api.Label, 0, len(core.ClassNames))
	for _, label := range core.ClassNames {
		labels = append(labels, api.Label{Name: string(label), Advice: recs.For(label)})
	}
	return labels
}
