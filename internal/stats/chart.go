package stats

import (
	"bytes"
	"errors"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/DevSeige-Studios/WaterfallBot/internal/storage"
)

var ErrNotEnoughData = errors.New("not enough activity data to chart")

// RenderActivityChart draws the hourly message counts as a PNG line
// chart for embedding in a stats reply.
func RenderActivityChart(buckets []storage.BucketCount) ([]byte, error) {
	if len(buckets) < 2 {
		return nil, ErrNotEnoughData
	}

	xs := make([]time.Time, len(buckets))
	ys := make([]float64, len(buckets))
	for i, bucket := range buckets {
		xs[i] = bucket.Bucket
		ys[i] = float64(bucket.Count)
	}

	graph := chart.Chart{
		Title:  "Messages per hour",
		Width:  800,
		Height: 300,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("Jan 2 15:04"),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
