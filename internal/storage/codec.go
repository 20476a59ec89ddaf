package storage

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"gazepomdp/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func EncodeGenome(g model.Genome) ([]byte, error) {
	return json.Marshal(g)
}

func DecodeGenome(data []byte) (model.Genome, error) {
	var genome model.Genome
	if err := json.Unmarshal(data, &genome); err != nil {
		return model.Genome{}, err
	}
	if err := checkVersion(genome.VersionedRecord); err != nil {
		return model.Genome{}, err
	}
	return genome, nil
}

func EncodeEvaluationSummary(s model.EvaluationSummary) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeEvaluationSummary(data []byte) (model.EvaluationSummary, error) {
	var summary model.EvaluationSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.EvaluationSummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.EvaluationSummary{}, err
	}
	return summary, nil
}

func EncodeFitnessHistory(history []float64) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeFitnessHistory(data []byte) ([]float64, error) {
	var history []float64
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
