package influx

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"interop-dashboard/internal/model"
)

const measurement = "dashboard_view"

// Writer records applied view states in InfluxDB.
type Writer struct {
	client influxdb2.Client
	api    api.WriteAPIBlocking
	site   string
	now    func() time.Time
}

// NewWriter creates an InfluxDB write API client. Caller should call Close() when done.
func NewWriter(url, token, org, bucket, site string) (*Writer, error) {
	if url == "" || bucket == "" {
		return nil, fmt.Errorf("influx: url and bucket are required")
	}
	client := influxdb2.NewClient(url, token)
	writeAPI := client.WriteAPIBlocking(org, bucket)
	return &Writer{client: client, api: writeAPI, site: site, now: time.Now}, nil
}

// Close releases the InfluxDB client.
func (w *Writer) Close() {
	w.client.Close()
}

// Health checks that InfluxDB is reachable and the token is valid.
func (w *Writer) Health(ctx context.Context) error {
	_, err := w.client.Health(ctx)
	return err
}

// Record saves one view state point stamped with the current time.
func (w *Writer) Record(ctx context.Context, v model.ViewState) error {
	if err := w.api.WritePoint(ctx, w.point(v)); err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	return nil
}

func (w *Writer) point(v model.ViewState) *write.Point {
	p := influxdb2.NewPointWithMeasurement(measurement)
	if w.site != "" {
		p.AddTag("site", w.site)
	}
	return p.AddField("people_count", v.PeopleCount).
		AddField("door_open", v.DoorOpen).
		AddField("door_known", v.DoorKnown).
		AddField("light_color", v.LightColor).
		AddField("red", v.LuminositySeries[0]).
		AddField("green", v.LuminositySeries[1]).
		AddField("blue", v.LuminositySeries[2]).
		AddField("clear", v.LuminositySeries[3]).
		AddField("entrada", v.IOSeries[0]).
		AddField("saida", v.IOSeries[1]).
		SetTime(w.now())
}
