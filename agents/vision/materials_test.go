// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renoscope/platform/shared/types"
)

func TestFilterKitchenObjects(t *testing.T) {
	objects := []types.DetectedObject{
		{Name: "refrigerator", Confidence: 0.92, BBox: [4]int{0, 0, 200, 400}},
		{Name: "oven", Confidence: 0.45, BBox: [4]int{0, 0, 100, 100}},  // below threshold
		{Name: "person", Confidence: 0.99, BBox: [4]int{0, 0, 100, 300}}, // not kitchen class
		{Name: "sink", Confidence: 0.51, BBox: [4]int{0, 0, 120, 80}},
		{Name: "dining table", Confidence: 0.80, BBox: [4]int{0, 0, 300, 200}},
	}

	kept := FilterKitchenObjects(objects)
	require.Len(t, kept, 3)
	assert.Equal(t, "refrigerator", kept[0].Name)
	assert.Equal(t, "sink", kept[1].Name)
	assert.Equal(t, "dining table", kept[2].Name)
}

func TestInferMaterialsAddsBaselines(t *testing.T) {
	objects := []types.DetectedObject{
		{Name: "refrigerator", Confidence: 0.9, BBox: [4]int{0, 0, 220, 420}},
	}

	materials := InferMaterials(objects)
	require.Len(t, materials, 4)

	assert.Equal(t, types.MaterialStainlessSteel, materials[0].Material)
	assert.InDelta(t, 220.0*420.0/10764.0, materials[0].AreaSqm, 1e-9)
	assert.Equal(t, "refrigerator", materials[0].Location)

	// Baseline surfaces follow the detected materials.
	assert.Equal(t, types.MaterialWood, materials[1].Material)
	assert.Equal(t, 14.0, materials[1].AreaSqm)
	assert.Equal(t, types.MaterialGranite, materials[2].Material)
	assert.Equal(t, 7.5, materials[2].AreaSqm)
	assert.Equal(t, types.MaterialTile, materials[3].Material)
	assert.Equal(t, 18.5, materials[3].AreaSqm)
}

func TestInferMaterialsEmptyDetections(t *testing.T) {
	assert.Empty(t, InferMaterials(nil))
}

func TestCalculateMeasurementsAppliesMinimumArea(t *testing.T) {
	objects := []types.DetectedObject{
		{Name: "sink", Confidence: 0.8, BBox: [4]int{0, 0, 120, 80}},
	}

	m := CalculateMeasurements(objects)
	assert.Equal(t, 40.0, m.TotalKitchenArea)
	assert.Equal(t, 0, m.ApplianceCount)
	assert.Equal(t, 14.0, m.CabinetArea)
	assert.Equal(t, 7.5, m.CountertopArea)
	assert.Equal(t, 18.5, m.FlooringArea)
}

func TestCalculateMeasurementsCountsAppliances(t *testing.T) {
	objects := []types.DetectedObject{
		{Name: "refrigerator", Confidence: 0.9, BBox: [4]int{0, 0, 700, 700}},
		{Name: "oven", Confidence: 0.9, BBox: [4]int{0, 0, 500, 500}},
		{Name: "microwave", Confidence: 0.9, BBox: [4]int{0, 0, 300, 300}},
		{Name: "dining table", Confidence: 0.9, BBox: [4]int{0, 0, 300, 300}},
	}

	m := CalculateMeasurements(objects)
	assert.Equal(t, 3, m.ApplianceCount)

	wantArea := (700.0*700.0 + 500.0*500.0 + 300.0*300.0 + 300.0*300.0) / 10764.0
	assert.InDelta(t, wantArea, m.TotalKitchenArea, 1e-9)
	assert.Greater(t, m.TotalKitchenArea, 40.0)
}
