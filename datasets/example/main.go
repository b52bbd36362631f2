package main

// Example command that demonstrates loading a benchmark dataset and
// converting a small batch into gomlx tensors.
//
// The first run downloads the benchmark into the user cache directory
// (override with $IMAGELOAD_CACHE); later runs read it from there.
//
// Usage:
//   go run ./datasets/example [benchmark]
//
// The benchmark defaults to mnist. Unknown names fall back to mnist.

import (
	"fmt"
	"log"
	"os"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/Noofbiz/imageload/benchmark"
	"github.com/Noofbiz/imageload/datasets"
)

func main() {
	name := benchmark.MNIST
	if len(os.Args) > 1 {
		name = os.Args[1]
	}

	ds, err := benchmark.LoadSimple(name)
	if err != nil {
		log.Fatalf("failed to load %s: %v", name, err)
	}
	fmt.Printf("Loaded %s: %d classes\n", ds.Name, ds.NumClasses)
	fmt.Printf("  Train: x=%v y=%v\n", ds.Train.X.Shape, ds.Train.Y.Shape)
	fmt.Printf("  Test:  x=%v y=%v\n", ds.Test.X.Shape, ds.Test.Y.Shape)

	// Take the first N training samples as a batch.
	n := min(8, ds.Train.Len())
	if n == 0 {
		return
	}
	x := &datasets.Array{
		Data:  ds.Train.X.Data[:n*ds.Train.X.SampleSize()],
		Shape: append([]int{n}, ds.Train.X.Shape[1:]...),
	}
	y := &datasets.Array{
		Data:  ds.Train.Y.Data[:n*ds.Train.Y.SampleSize()],
		Shape: []int{n, ds.NumClasses},
	}
	batch, err := datasets.NewSplit(x, y)
	if err != nil {
		log.Fatalf("failed to build batch: %v", err)
	}

	xT, yT := batch.Tensors()
	fmt.Printf("Created batch tensors: x=%s y=%s\n", xT.Shape(), yT.Shape())

	// Read the labels back from the tensor to show the round trip.
	labels := tensors.CopyFlatData[float32](yT)
	back := &datasets.Array{Data: labels, Shape: []int{n, ds.NumClasses}}
	fmt.Printf("  Batch classes: %v\n", datasets.ClassIndex(back))
}
