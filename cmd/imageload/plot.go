package main

import (
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Noofbiz/imageload/datasets"
)

// plotClassCounts writes a PNG bar chart with the number of train (blue) and
// test (red) samples per class.
func plotClassCounts(outPath string, ds *datasets.Dataset) error {
	train := countValues(datasets.ClassCounts(ds.Train.Y))
	test := countValues(datasets.ClassCounts(ds.Test.Y))

	p := plot.New()
	p.Title.Text = ds.Name + ": samples per class"
	p.X.Label.Text = "class"
	p.Y.Label.Text = "samples"

	width := barWidth(len(train))
	trainBars, err := plotter.NewBarChart(train, width)
	if err != nil {
		return err
	}
	trainBars.Color = color.RGBA{R: 20, G: 80, B: 200, A: 220}
	trainBars.LineStyle.Width = 0
	trainBars.Offset = -width / 2

	testBars, err := plotter.NewBarChart(test, width)
	if err != nil {
		return err
	}
	testBars.Color = color.RGBA{R: 200, G: 30, B: 30, A: 220}
	testBars.LineStyle.Width = 0
	testBars.Offset = width / 2

	p.Add(plotter.NewGrid(), trainBars, testBars)
	p.Legend.Add("train", trainBars)
	p.Legend.Add("test", testBars)
	p.Legend.Top = true
	p.NominalX(classTicks(len(train))...)

	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return p.Save(12*vg.Inch, 5*vg.Inch, outPath)
}

func countValues(counts []int) plotter.Values {
	v := make(plotter.Values, len(counts))
	for i, c := range counts {
		v[i] = float64(c)
	}
	return v
}

// barWidth shrinks the bars so a couple hundred classes still fit the page.
func barWidth(numClasses int) vg.Length {
	w := 12 * vg.Inch / vg.Length(2*numClasses+2)
	if w > vg.Points(12) {
		w = vg.Points(12)
	}
	return w
}

// classTicks labels every class for small depths and every tenth otherwise.
func classTicks(numClasses int) []string {
	ticks := make([]string, numClasses)
	step := 1
	if numClasses > 20 {
		step = 10
	}
	for i := 0; i < numClasses; i += step {
		ticks[i] = strconv.Itoa(i)
	}
	return ticks
}
