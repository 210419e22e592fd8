package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/nexus-sensor/internal/ook"
	"github.com/sweeney/nexus-sensor/internal/status"
)

type fakeHistory struct {
	readings []ook.Reading
	err      error
	limit    int
}

func (h *fakeHistory) Recent(_ context.Context, limit int) ([]ook.Reading, error) {
	h.limit = limit
	if h.err != nil {
		return nil, h.err
	}
	return h.readings, nil
}

func testReading() ook.Reading {
	return ook.Reading{
		Fields: ook.Fields{ID: 0xAA, BatteryOK: true, Channel: 1, TemperatureTenths: 123, Humidity: 91},
		Time:   time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC),
	}
}

func newTestServer(t *testing.T, history History) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Source:      "gpiochip0/27",
		Channel:     2,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		Topic:       "rtl_433/Nexus-TH",
		HTTPAddr:    ":80",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr, history)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	tr.RecordReading(testReading(), true)
	tr.UpdateDecoder(ook.Stats{Frames: 3, Readings: 1})
	tr.SetMQTTConnected(true)

	resp, body := get(t, ts.URL+"/index.json")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal([]byte(body), &sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.LastReading == nil {
		t.Fatal("expected last_reading")
	}
	if sj.Status.LastReading.TemperatureC != 12.3 {
		t.Errorf("temperature: got %v, want 12.3", sj.Status.LastReading.TemperatureC)
	}
	if sj.Status.Decoder.Frames != 3 {
		t.Errorf("frames: got %d, want 3", sj.Status.Decoder.Frames)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected")
	}
}

func TestHTMLEndpoint(t *testing.T) {
	for _, path := range []string{"/", "/index.html"} {
		t.Run(path, func(t *testing.T) {
			ts, tr := newTestServer(t, nil)
			tr.RecordReading(testReading(), true)

			resp, body := get(t, ts.URL+path)
			if resp.StatusCode != 200 {
				t.Errorf("status: got %d, want 200", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type: got %q", ct)
			}
			for _, want := range []string{"Nexus Sensor", "12.3 &deg;C", "91 %", "channel 2", "gpiochip0/27"} {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q", want)
				}
			}
			if strings.Contains(body, "/readings.json") {
				t.Error("history link shown without a history")
			}
		})
	}
}

func TestHTMLBeforeFirstReading(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	_, body := get(t, ts.URL+"/")
	if !strings.Contains(body, "No reading yet") {
		t.Error("expected placeholder before the first reading")
	}
}

func TestHTMLNegativeTemperatureAndLowBattery(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	r := testReading()
	r.TemperatureTenths = -45
	r.BatteryOK = false
	tr.RecordReading(r, true)

	_, body := get(t, ts.URL+"/")
	if !strings.Contains(body, "-4.5 &deg;C") {
		t.Error("expected negative temperature")
	}
	if !strings.Contains(body, `class="low">low`) {
		t.Error("expected low battery marker")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, _ := get(t, ts.URL+"/nonexistent")
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestReadingsWithoutHistory(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, _ := get(t, ts.URL+"/readings.json")
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestReadingsEndpoint(t *testing.T) {
	older := testReading()
	older.Time = older.Time.Add(-time.Minute)
	older.Channel = 0
	h := &fakeHistory{readings: []ook.Reading{testReading(), older}}
	ts, _ := newTestServer(t, h)

	resp, body := get(t, ts.URL+"/readings.json?n=2")
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if h.limit != 2 {
		t.Errorf("limit: got %d, want 2", h.limit)
	}

	var rj ReadingsJSON
	if err := json.Unmarshal([]byte(body), &rj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if len(rj.Readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(rj.Readings))
	}
	if rj.Readings[0].Time != "2026-01-01T00:05:00Z" || rj.Readings[1].Channel != 1 {
		t.Errorf("unexpected readings: %+v", rj.Readings)
	}

	_, page := get(t, ts.URL+"/")
	if !strings.Contains(page, "/readings.json") {
		t.Error("expected history link when a history is configured")
	}
}

func TestReadingsLimit(t *testing.T) {
	tests := []struct {
		query     string
		wantCode  int
		wantLimit int
	}{
		{"", 200, 0},
		{"?n=10", 200, 10},
		{"?n=100000", 200, MaxHistory},
		{"?n=0", 400, -1},
		{"?n=ten", 400, -1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			h := &fakeHistory{limit: -1}
			ts, _ := newTestServer(t, h)

			resp, _ := get(t, ts.URL+"/readings.json"+tt.query)
			if resp.StatusCode != tt.wantCode {
				t.Errorf("status: got %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if h.limit != tt.wantLimit {
				t.Errorf("limit: got %d, want %d", h.limit, tt.wantLimit)
			}
		})
	}
}

func TestReadingsEmptyIsArray(t *testing.T) {
	ts, _ := newTestServer(t, &fakeHistory{})

	_, body := get(t, ts.URL+"/readings.json")
	if !strings.Contains(body, `"readings": []`) {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestReadingsHistoryError(t *testing.T) {
	ts, _ := newTestServer(t, &fakeHistory{err: errors.New("database is locked")})

	resp, _ := get(t, ts.URL+"/readings.json")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t, nil)

	var sj1 status.StatusJSON
	_, body := get(t, ts.URL+"/index.json")
	json.Unmarshal([]byte(body), &sj1)
	if sj1.Status.LastReading != nil {
		t.Error("expected no reading initially")
	}

	tr.RecordReading(testReading(), true)
	tr.SetMQTTConnected(true)

	var sj2 status.StatusJSON
	_, body = get(t, ts.URL+"/index.json")
	json.Unmarshal([]byte(body), &sj2)
	if sj2.Status.LastReading == nil || sj2.Status.LastReading.Humidity != 91 {
		t.Errorf("expected reading after update, got %+v", sj2.Status.LastReading)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
