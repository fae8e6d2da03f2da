package observation

import (
	"testing"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

func TestBundleSetAndGet(t *testing.T) {
	bundle := NewBundle([]Channel{Sensor, Bump})

	if !bundle.Has(Sensor) || !bundle.Has(Bump) {
		t.Fatal("expected the bundle to carry its declared channels")
	}
	if bundle.Has(RGB) {
		t.Error("expected rgb outside the channel set")
	}

	sensor := mat.NewVecDense(3, []float64{1, 2, 3})
	if err := bundle.Set(Sensor, Vector{sensor}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := bundle.Set(Bump, Bool(true)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := bundle.Set(RGB, Bool(false)); err == nil {
		t.Error("expected an error setting a channel outside the set")
	}

	got, err := bundle.Vector(Sensor)
	if err != nil {
		t.Fatalf("vector: %v", err)
	}
	if got.AtVec(1) != 2 {
		t.Errorf("expected sensor[1] = 2, got %v", got.AtVec(1))
	}

	bump, err := bundle.Bool(Bump)
	if err != nil {
		t.Fatalf("bool: %v", err)
	}
	if !bump {
		t.Error("expected bump true")
	}

	// Type-mismatched accessors report errors
	if _, err := bundle.Image(Sensor); err == nil {
		t.Error("expected an error reading a vector channel as an image")
	}
	if _, err := bundle.Vector(Scan); err == nil {
		t.Error("expected an error reading an unset channel")
	}
}

func TestBundleCopyIsDeep(t *testing.T) {
	bundle := NewBundle([]Channel{Sensor, Scan})

	sensor := mat.NewVecDense(2, []float64{1, 2})
	if err := bundle.Set(Sensor, Vector{sensor}); err != nil {
		t.Fatalf("set: %v", err)
	}

	points := tensor.New(tensor.WithShape(1, 3),
		tensor.WithBacking([]float64{3, 4, 5}))
	if err := bundle.Set(Scan, Points{points}); err != nil {
		t.Fatalf("set: %v", err)
	}

	clone := bundle.Copy()

	sensor.SetVec(0, -99)
	points.Data().([]float64)[0] = -99

	cloned, err := clone.Vector(Sensor)
	if err != nil {
		t.Fatalf("vector: %v", err)
	}
	if cloned.AtVec(0) != 1 {
		t.Errorf("expected the copied sensor unchanged, got %v",
			cloned.AtVec(0))
	}

	clonedScan, err := clone.Points(Scan)
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	if clonedScan.Data().([]float64)[0] != 3 {
		t.Errorf("expected the copied scan unchanged, got %v",
			clonedScan.Data().([]float64)[0])
	}
}
