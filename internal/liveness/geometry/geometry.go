// Package geometry implements containment checks against the preview circle.
package geometry

import "livecheck/internal/liveness/models"

const (
	// PreviewSide is the width and height of the square preview area.
	PreviewSide = 325.0
	// PreviewTopOffset is the preview's distance from the top of the viewport.
	PreviewTopOffset = 50.0
	// EdgeOffset is the total amount face bounds are shrunk before containment.
	EdgeOffset = 50.0
	// TooBigMargin is subtracted from PreviewSide to get the too-big threshold.
	TooBigMargin = 90.0
)

// TooBigSide is the face side length at or above which the face counts as too close.
const TooBigSide = PreviewSide - TooBigMargin

// Contains reports whether inside lies within outside on all four sides.
// Touching edges count as contained.
func Contains(outside, inside models.Rect) bool {
	return inside.MinX >= outside.MinX &&
		inside.MinY >= outside.MinY &&
		inside.MaxX() <= outside.MaxX() &&
		inside.MaxY() <= outside.MaxY()
}

// PreviewRect returns the preview area for a viewport width: centred
// horizontally, PreviewTopOffset from the top.
func PreviewRect(viewportWidth float64) models.Rect {
	return models.Rect{
		MinX:   (viewportWidth - PreviewSide) / 2,
		MinY:   PreviewTopOffset,
		Width:  PreviewSide,
		Height: PreviewSide,
	}
}

// TooBig reports whether bounds meet the too-close threshold on both axes.
func TooBig(bounds models.Rect) bool {
	return bounds.Width >= TooBigSide && bounds.Height >= TooBigSide
}
