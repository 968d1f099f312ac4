package daemon

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"testing"
	"time"

	"logowatch/internal/config"
	"logowatch/internal/detect"
	"logowatch/internal/monitor"
	"logowatch/internal/notifications"
	"logowatch/internal/report"
	"logowatch/internal/services"
	"logowatch/internal/store"
	"logowatch/internal/testsupport"
	"logowatch/internal/twitch"
)

type stubPlatform struct {
	streams []twitch.LiveStream
	frame   image.Image
}

func (p *stubPlatform) GetLiveStreams(ctx context.Context, logins []string) ([]twitch.LiveStream, error) {
	return p.streams, nil
}

func (p *stubPlatform) GetFrame(ctx context.Context, stream twitch.LiveStream) (image.Image, error) {
	if p.frame == nil {
		return nil, services.Wrap(services.ErrNotFound, "twitch", "get frame", "no frame", nil)
	}
	return p.frame, nil
}

func newTestDaemon(t *testing.T, platform monitor.Platform) (*Daemon, *config.Config, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Paths.Bind = "127.0.0.1:0"
	st := testsupport.MustOpenStore(t, cfg)

	ref := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range ref.Pix {
		ref.Pix[i] = uint8(i * 37)
	}
	matcher, err := detect.NewMatcher(ref, detect.Options{Threshold: cfg.Detection.Threshold})
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	mon := monitor.New(platform, matcher, st, cfg, nil)
	reporter, err := report.New(st, cfg, nil)
	if err != nil {
		t.Fatalf("new reporter: %v", err)
	}
	d, err := New(cfg, st, mon, reporter, notifications.NewService(cfg), nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, cfg, st
}

func TestStartRejectsSecondInstance(t *testing.T) {
	platform := &stubPlatform{}
	first, cfg, st := newTestDaemon(t, platform)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first start failed: %v", err)
	}

	mon := monitor.New(platform, mustMatcher(t, cfg), st, cfg, nil)
	reporter, err := report.New(st, cfg, nil)
	if err != nil {
		t.Fatalf("new reporter: %v", err)
	}
	second, err := New(cfg, st, mon, reporter, notifications.NewService(cfg), nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("start after release failed: %v", err)
	}
	second.Stop()
}

func mustMatcher(t *testing.T, cfg *config.Config) *detect.Matcher {
	t.Helper()
	ref := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range ref.Pix {
		ref.Pix[i] = uint8(i * 37)
	}
	matcher, err := detect.NewMatcher(ref, detect.Options{Threshold: cfg.Detection.Threshold})
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	return matcher
}

func TestRunPassRecordsStatusAndDashboard(t *testing.T) {
	platform := &stubPlatform{
		streams: []twitch.LiveStream{{
			UserLogin:   "alpha",
			UserName:    "AlphaTV",
			Title:       "live",
			ViewerCount: 5,
		}},
		frame: image.NewGray(image.Rect(0, 0, 64, 64)),
	}
	d, _, st := newTestDaemon(t, platform)

	d.runPass(context.Background())

	status := d.Status()
	if status.LastPassAt.IsZero() {
		t.Fatal("expected last pass timestamp")
	}
	if status.LastSummary.Checked != 3 || status.LastSummary.Live != 1 || status.LastSummary.Analyzed != 1 {
		t.Fatalf("unexpected summary %#v", status.LastSummary)
	}
	if status.LastError != "" {
		t.Fatalf("unexpected pass error %q", status.LastError)
	}

	records, err := st.All(context.Background())
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(records) != 1 || records[0].Streamer != "alpha" {
		t.Fatalf("expected persisted record, got %#v", records)
	}
}

func TestServerEndpoints(t *testing.T) {
	platform := &stubPlatform{
		streams: []twitch.LiveStream{{UserLogin: "alpha", UserName: "AlphaTV"}},
		frame:   image.NewGray(image.Rect(0, 0, 64, 64)),
	}
	d, cfg, _ := newTestDaemon(t, platform)
	d.runPass(context.Background())

	srv := NewServer(cfg, d, d.logger)
	if srv == nil {
		t.Fatal("expected server for configured bind")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("server start failed: %v", err)
	}
	defer srv.Stop()
	base := "http://" + srv.Addr()

	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("healthz request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz returned %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/api/detections?limit=10")
	if err != nil {
		t.Fatalf("detections request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("detections returned %d", resp.StatusCode)
	}
	var listing struct {
		Detections []struct {
			Streamer string `json:"streamer"`
		} `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode detections: %v", err)
	}
	if len(listing.Detections) != 1 || listing.Detections[0].Streamer != "alpha" {
		t.Fatalf("unexpected detections payload %#v", listing)
	}

	statusResp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	defer statusResp.Body.Close()
	var statusPayload map[string]any
	if err := json.NewDecoder(statusResp.Body).Decode(&statusPayload); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if statusPayload["total_checks"].(float64) != 1 {
		t.Fatalf("unexpected status payload %#v", statusPayload)
	}
	if statusPayload["last_checked"].(float64) != 3 || statusPayload["last_analyzed"].(float64) != 1 {
		t.Fatalf("unexpected pass counters %#v", statusPayload)
	}

	dashResp, err := http.Get(base + "/")
	if err != nil {
		t.Fatalf("dashboard request failed: %v", err)
	}
	dashResp.Body.Close()
	if dashResp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard returned %d", dashResp.StatusCode)
	}
}

func TestPassTimeoutBounded(t *testing.T) {
	d, cfg, _ := newTestDaemon(t, &stubPlatform{})
	cfg.Monitor.CheckIntervalHours = 1
	if got := d.passTimeout(); got != 15*time.Minute {
		t.Fatalf("expected 15m cap, got %v", got)
	}
	cfg.Monitor.CheckIntervalHours = 0
	if got := d.interval(); got != time.Hour {
		t.Fatalf("expected 1h fallback, got %v", got)
	}
}
