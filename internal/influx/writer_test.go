package influx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"interop-dashboard/internal/model"
)

func TestPointFields(t *testing.T) {
	w, err := NewWriter("http://localhost:8086", "t", "org", "bucket", "lab1")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()
	stamp := time.Unix(1700000000, 0)
	w.now = func() time.Time { return stamp }

	p := w.point(model.ViewState{
		PeopleCount:      6,
		DoorOpen:         true,
		DoorKnown:        true,
		LightColor:       "rgba(1, 2, 3, 1)",
		LuminositySeries: [4]int{1, 2, 3, 4},
		IOSeries:         [3]int{8, 2, 6},
	})
	if p.Name() != measurement {
		t.Fatalf("unexpected measurement %q", p.Name())
	}
	if !p.Time().Equal(stamp) {
		t.Fatalf("unexpected time %v", p.Time())
	}
	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if fields["people_count"] != int64(6) || fields["entrada"] != int64(8) || fields["door_open"] != true {
		t.Fatalf("unexpected fields %v", fields)
	}
	tags := p.TagList()
	if len(tags) != 1 || tags[0].Key != "site" || tags[0].Value != "lab1" {
		t.Fatalf("unexpected tags %+v", tags)
	}
}

func TestRecordWritesLineProtocol(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/write" || r.URL.Query().Get("bucket") != "bucket" {
			http.Error(w, "unexpected", http.StatusBadRequest)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w, err := NewWriter(srv.URL, "token", "org", "bucket", "lab1")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	if err := w.Record(context.Background(), model.ViewState{PeopleCount: 3, LightColor: model.ColorNoLuminosity}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !strings.HasPrefix(body, "dashboard_view,site=lab1 ") || !strings.Contains(body, "people_count=3i") {
		t.Fatalf("unexpected line protocol %q", body)
	}
}

func TestNewWriterValidates(t *testing.T) {
	if _, err := NewWriter("", "", "", "bucket", ""); err == nil {
		t.Fatalf("expected error for missing url")
	}
}
