package dem

import (
	"errors"
	gomath "math"
	"math/rand"
	"testing"
)

func testTransform() Transform {
	t, err := TransformFromTags(
		[]float64{0.000277, 0.000277, 0},
		[]float64{0, 0, 0, 20.0, 50.0, 0},
		nil,
	)
	if err != nil {
		panic(err)
	}
	return t
}

func TestTransformFromTags_Errors(t *testing.T) {
	cases := []struct {
		name                string
		pixelScale          []float64
		tiePoints           []float64
		modelTransformation []float64
		want                error
	}{
		{
			name:                "full transformation matrix unsupported",
			pixelScale:          []float64{1, 1, 0},
			tiePoints:           []float64{0, 0, 0, 0, 0, 0},
			modelTransformation: make([]float64, 16),
			want:                ErrIncorrectGeoTags,
		},
		{
			name:      "missing pixel scale",
			tiePoints: []float64{0, 0, 0, 0, 0, 0},
			want:      ErrIncorrectGeoTags,
		},
		{
			name:       "missing tie point",
			pixelScale: []float64{1, 1, 0},
			want:       ErrIncorrectGeoTags,
		},
		{
			name:       "short pixel scale",
			pixelScale: []float64{1, 1},
			tiePoints:  []float64{0, 0, 0, 0, 0, 0},
			want:       ErrIncorrectGeoTagData,
		},
		{
			name:       "long tie point",
			pixelScale: []float64{1, 1, 0},
			tiePoints:  []float64{0, 0, 0, 0, 0, 0, 0},
			want:       ErrIncorrectGeoTagData,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := TransformFromTags(c.pixelScale, c.tiePoints, c.modelTransformation)
			if !errors.Is(err, c.want) {
				t.Errorf("got error %v, want %v", err, c.want)
			}
		})
	}
}

func TestTransformToModel_YInverted(t *testing.T) {
	tr := testTransform()

	// Raster rows grow downward, model latitude grows upward.
	_, topLat := tr.ToModel(0, 0)
	_, lowerLat := tr.ToModel(0, 100)
	if lowerLat >= topLat {
		t.Errorf("row 100 latitude %f should be south of row 0 latitude %f", lowerLat, topLat)
	}

	lon, lat := tr.ToModel(0, 0)
	if lon != 20.0 || lat != 50.0 {
		t.Errorf("tie point should map to model point, got (%f, %f)", lon, lat)
	}
}

func TestTransformRoundTrip(t *testing.T) {
	tr := testTransform()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		x := rng.Float32() * 3600
		y := rng.Float32() * 3600
		mx, my := tr.ToModel(x, y)
		bx, by := tr.ToRaster(mx, my)
		if gomath.Abs(float64(bx-x)) > 1e-2 || gomath.Abs(float64(by-y)) > 1e-2 {
			t.Fatalf("round trip (%f, %f) -> (%f, %f) -> (%f, %f)", x, y, mx, my, bx, by)
		}
	}
}
