// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"renoscope/platform/shared/types"
)

// Pixel-to-area conversion and inferred baseline surfaces. The baselines
// cover surfaces YOLO classes cannot see directly (cabinetry runs,
// countertop, floor) and are added whenever anything kitchen-like is
// detected.
const (
	pixelsPerSqm = 10764.0

	minKitchenAreaSqm   = 40.0
	baselineCabinetSqm  = 14.0
	baselineCountertop  = 7.5
	baselineFlooringSqm = 18.5

	minDetectionConfidence = 0.5
)

// kitchenClasses are the detector classes the agent keeps.
var kitchenClasses = map[string]bool{
	"refrigerator": true,
	"oven":         true,
	"microwave":    true,
	"sink":         true,
	"dining table": true,
}

// applianceClasses count toward the appliance total.
var applianceClasses = map[string]bool{
	"refrigerator": true,
	"oven":         true,
	"microwave":    true,
}

// materialMap maps detector classes to renovation materials.
var materialMap = map[string]types.MaterialType{
	"cabinet":      types.MaterialWood,
	"countertop":   types.MaterialGranite,
	"refrigerator": types.MaterialStainlessSteel,
	"sink":         types.MaterialStainlessSteel,
	"oven":         types.MaterialStainlessSteel,
	"microwave":    types.MaterialStainlessSteel,
	"dining table": types.MaterialWood,
	"flooring":     types.MaterialTile,
}

// FilterKitchenObjects keeps kitchen-relevant detections above the
// confidence threshold.
func FilterKitchenObjects(objects []types.DetectedObject) []types.DetectedObject {
	kept := make([]types.DetectedObject, 0, len(objects))
	for _, obj := range objects {
		if kitchenClasses[obj.Name] && obj.Confidence > minDetectionConfidence {
			kept = append(kept, obj)
		}
	}
	return kept
}

// InferMaterials derives material surfaces from filtered detections. Each
// mapped object contributes its bbox area; the baseline cabinet, countertop,
// and flooring surfaces are appended whenever anything was detected.
func InferMaterials(objects []types.DetectedObject) []types.MaterialInfo {
	materials := make([]types.MaterialInfo, 0, len(objects)+3)

	for _, obj := range objects {
		material, ok := materialMap[obj.Name]
		if !ok {
			continue
		}
		materials = append(materials, types.MaterialInfo{
			Material: material,
			AreaSqm:  obj.PixelArea() / pixelsPerSqm,
			Location: obj.Name,
		})
	}

	if len(objects) > 0 {
		materials = append(materials,
			types.MaterialInfo{Material: types.MaterialWood, AreaSqm: baselineCabinetSqm, Location: "cabinet"},
			types.MaterialInfo{Material: types.MaterialGranite, AreaSqm: baselineCountertop, Location: "countertop"},
			types.MaterialInfo{Material: types.MaterialTile, AreaSqm: baselineFlooringSqm, Location: "flooring"},
		)
	}

	return materials
}

// CalculateMeasurements derives kitchen geometry from filtered detections.
// Total area is floored at the minimum realistic kitchen size.
func CalculateMeasurements(objects []types.DetectedObject) types.Measurements {
	totalArea := 0.0
	applianceCount := 0
	for _, obj := range objects {
		totalArea += obj.PixelArea() / pixelsPerSqm
		if applianceClasses[obj.Name] {
			applianceCount++
		}
	}
	if totalArea < minKitchenAreaSqm {
		totalArea = minKitchenAreaSqm
	}

	return types.Measurements{
		TotalKitchenArea: totalArea,
		CabinetArea:      baselineCabinetSqm,
		CountertopArea:   baselineCountertop,
		FlooringArea:     baselineFlooringSqm,
		ApplianceCount:   applianceCount,
	}
}
