// Package dem reads elevation rasters and maps between raster and
// geographic coordinates.
package dem

import "errors"

var (
	// ErrIncorrectGeoTags is returned when the raster carries a full model
	// transformation matrix instead of the supported pixel-scale plus
	// tie-point pair, or is missing either of the supported tags.
	ErrIncorrectGeoTags = errors.New("incorrect geo tags: only pixel scale and tie point tags are supported")

	// ErrIncorrectGeoTagData is returned when the supported tags carry the
	// wrong number of values: pixel scale needs exactly 3, tie point exactly 6.
	ErrIncorrectGeoTagData = errors.New("incorrect geo tag data: pixel scale needs 3 values and tie point 6")
)

// Transform is the affine mapping between raster (pixel) and geographic
// (model) coordinates of one tile. The raster Y axis is inverted because
// raster rows grow downward while model latitude grows upward.
type Transform struct {
	RasterX, RasterY float32
	ModelX, ModelY   float32
	ScaleX, ScaleY   float32
}

// TransformFromTags builds a Transform from raw geo-tag values.
func TransformFromTags(pixelScale, tiePoints, modelTransformation []float64) (Transform, error) {
	if modelTransformation != nil {
		return Transform{}, ErrIncorrectGeoTags
	}
	if pixelScale == nil || tiePoints == nil {
		return Transform{}, ErrIncorrectGeoTags
	}
	if len(pixelScale) != 3 || len(tiePoints) != 6 {
		return Transform{}, ErrIncorrectGeoTagData
	}
	return Transform{
		RasterX: float32(tiePoints[0]),
		RasterY: float32(tiePoints[1]),
		ModelX:  float32(tiePoints[3]),
		ModelY:  float32(tiePoints[4]),
		ScaleX:  float32(pixelScale[0]),
		ScaleY:  float32(pixelScale[1]),
	}, nil
}

// ToModel converts raster pixel coordinates to model coordinates
// (x = longitude, y = latitude).
func (t Transform) ToModel(x, y float32) (float32, float32) {
	return (x-t.RasterX)*t.ScaleX + t.ModelX,
		(y-t.RasterY)*-t.ScaleY + t.ModelY
}

// ToRaster converts model coordinates back to raster pixel coordinates.
// It is the exact algebraic inverse of ToModel.
func (t Transform) ToRaster(x, y float32) (float32, float32) {
	return (x-t.ModelX)/t.ScaleX + t.RasterX,
		(y-t.ModelY)/-t.ScaleY + t.RasterY
}
