// Package artifact loads the externally trained model artifacts: merchant
// and category frequency tables, the feature preprocessor parameters, and
// the exported classifier ensemble. Everything loaded here is immutable
// after Open returns; concurrent transactions read it without locking.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
)

// FrequencyTable maps an exact string key to its historical occurrence
// count. Unseen keys resolve to the table's default, which the exporter
// chooses per table (rare for merchants, the median count for categories).
type FrequencyTable struct {
	counts map[string]float64
	def    float64
}

// NewFrequencyTable builds a table from a counts map and a fallback value.
func NewFrequencyTable(counts map[string]float64, def float64) *FrequencyTable {
	return &FrequencyTable{counts: counts, def: def}
}

// Lookup resolves key, falling back to the table default.
func (t *FrequencyTable) Lookup(key string) float64 {
	if v, ok := t.counts[key]; ok {
		return v
	}
	return t.def
}

// Len returns the number of known keys.
func (t *FrequencyTable) Len() int {
	return len(t.counts)
}

// frequencyFile is the serialized form of one table.
type frequencyFile struct {
	Counts  map[string]float64 `json:"counts"`
	Default float64            `json:"default"`
}

func loadFrequencyTable(path string) (*FrequencyTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f frequencyFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Counts) == 0 {
		return nil, fmt.Errorf("%s has no counts", path)
	}
	return NewFrequencyTable(f.Counts, f.Default), nil
}
