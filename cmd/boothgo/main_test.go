package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cjeanneret/BoothGo/internal/booth"
	"github.com/cjeanneret/BoothGo/internal/config"
	"github.com/cjeanneret/BoothGo/internal/dispatch"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
	"github.com/disintegration/imaging"
)

// ---------- webPortFlag ----------

func TestWebPortFlag_EmptyString(t *testing.T) {
	w := &webPortFlag{defaultPort: 8080}
	if err := w.Set(""); err != nil {
		t.Fatalf("Set(\"\") error: %v", err)
	}
	if w.port() != 8080 {
		t.Errorf("port() = %d, want 8080", w.port())
	}
}

func TestWebPortFlag_ValidPorts(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"1", 1},
		{"80", 80},
		{"8980", 8980},
		{"65535", 65535},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			w := &webPortFlag{defaultPort: 8080}
			if err := w.Set(tc.input); err != nil {
				t.Fatalf("Set(%q) error: %v", tc.input, err)
			}
			if w.port() != tc.want {
				t.Errorf("port() = %d, want %d", w.port(), tc.want)
			}
		})
	}
}

func TestWebPortFlag_InvalidPorts(t *testing.T) {
	for _, input := range []string{"0", "-1", "65536", "abc", "80.5"} {
		t.Run(input, func(t *testing.T) {
			w := &webPortFlag{defaultPort: 8080}
			if err := w.Set(input); err == nil {
				t.Errorf("Set(%q) should fail", input)
			}
		})
	}
}

func TestWebPortFlag_Unset(t *testing.T) {
	w := &webPortFlag{defaultPort: 8080}
	if w.port() != 8080 {
		t.Errorf("unset port() = %d, want 8080", w.port())
	}
	if w.String() != "8080" {
		t.Errorf("String() = %q, want 8080", w.String())
	}
	if w.Type() != "port" {
		t.Errorf("Type() = %q", w.Type())
	}
}

func TestServeCmd_WebFlag(t *testing.T) {
	cmd := newServeCmd(&rootOptions{})
	if err := cmd.ParseFlags([]string{"--web"}); err != nil {
		t.Fatalf("--web alone: %v", err)
	}
	if got := cmd.Flags().Lookup("web").Value.String(); got != "8080" {
		t.Errorf("--web = %s, want 8080", got)
	}

	cmd = newServeCmd(&rootOptions{})
	if err := cmd.ParseFlags([]string{"--web=8980"}); err != nil {
		t.Fatalf("--web=8980: %v", err)
	}
	if got := cmd.Flags().Lookup("web").Value.String(); got != "8980" {
		t.Errorf("--web = %s, want 8980", got)
	}
}

// ---------- root command ----------

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "run", "render", "strips"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %q not found (err=%v)", name, err)
		}
	}
	if f := root.PersistentFlags().Lookup("config"); f == nil || f.DefValue != filepath.Join("configs", "default.yaml") {
		t.Errorf("config flag = %+v", f)
	}
}

func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	yaml := "event:\n  name: Test\n  brand_image: " + filepath.Join(dir, "brand.png") + "\n" +
		"camera:\n  type: mock\n  width_px: 40\n  height_px: 30\n" +
		"archive:\n  dir: " + filepath.Join(dir, "strips") + "\n" + extra
	path := filepath.Join(dir, "booth.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootOptions_DebugOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "")

	opts := &rootOptions{configPath: path, debugLevel: 0}
	cfg, err := opts.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Defaults.DebugLevel != 0 {
		t.Errorf("debug level = %d, want 0", cfg.Defaults.DebugLevel)
	}

	opts.debugLevel = 7
	if _, err := opts.load(); err == nil {
		t.Error("debug level 7 should be rejected")
	}
}

func TestStripsCmd_Empty(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", path, "--debug", "0", "strips"})
	if err := root.Execute(); err != nil {
		t.Fatalf("strips: %v", err)
	}
	if !strings.Contains(out.String(), "no strips yet") {
		t.Errorf("output = %q", out.String())
	}
}

// ---------- wiring ----------

func TestNewCameraFromConfig(t *testing.T) {
	g := &gpio.MockDriver{}
	cases := []struct {
		name    string
		cam     config.CameraConfig
		wantErr bool
	}{
		{"mock", config.CameraConfig{Type: "mock", WidthPx: 40, HeightPx: 30}, false},
		{"command", config.CameraConfig{Type: "command", Command: []string{"libcamera-still", "-o", "{output}"}}, false},
		{"command_without_output", config.CameraConfig{Type: "command", Command: []string{"libcamera-still"}}, true},
		{"hotfolder", config.CameraConfig{Type: "hotfolder", HotFolder: t.TempDir()}, false},
		{"hotfolder_with_shutter", config.CameraConfig{Type: "hotfolder", HotFolder: t.TempDir(), FocusPin: 23, ShutterPin: 24}, false},
		{"hotfolder_without_dir", config.CameraConfig{Type: "hotfolder"}, true},
		{"unknown", config.CameraConfig{Type: "polaroid"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{Camera: tc.cam}
			cam, err := newCameraFromConfig(g, cfg)
			if tc.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cam == nil {
				t.Fatal("camera is nil")
			}
		})
	}
}

func TestNewCameraFromConfig_MockOrientation(t *testing.T) {
	cfg := &config.Config{Camera: config.CameraConfig{Type: "mock", WidthPx: 8, HeightPx: 4, Orientation: int(camera.Right)}}
	cam, err := newCameraFromConfig(&gpio.MockDriver{}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	f, err := cam.Capture(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if f.Orientation != camera.Right {
		t.Errorf("orientation = %s, want %s", f.Orientation, camera.Right)
	}
}

func TestNewPrinterAndMailer(t *testing.T) {
	cfg := &config.Config{}
	if p := newPrinter(cfg); p != nil {
		t.Errorf("disabled printer = %v, want nil", p)
	}
	if m := newMailer(cfg); m != nil {
		t.Errorf("disabled mailer = %v, want nil", m)
	}

	cfg.Print = config.PrintConfig{Enabled: true, Command: "lp", Printer: "selphy", JobName: "PhotoStrip"}
	p, ok := newPrinter(cfg).(*dispatch.LPPrinter)
	if !ok {
		t.Fatal("printer is not an LPPrinter")
	}
	if p.Printer != "selphy" || p.JobName != "PhotoStrip" {
		t.Errorf("printer = %+v", p)
	}

	cfg.Mail = config.MailConfig{Enabled: true, Host: "smtp.example.com", Port: 587, From: "a@b", To: "c@d", MaxAttachmentBytes: 1 << 20}
	m, ok := newMailer(cfg).(*dispatch.SMTPMailer)
	if !ok {
		t.Fatal("mailer is not an SMTPMailer")
	}
	if err := m.Available(); err != nil {
		t.Errorf("configured mailer unavailable: %v", err)
	}
	if m.MaxBytes != 1<<20 {
		t.Errorf("MaxBytes = %d", m.MaxBytes)
	}
}

func TestBoothOptions(t *testing.T) {
	cfg, err := config.Parse([]byte("event:\n  name: Wedding\n  brand_image: b.png\ncamera:\n  type: mock\n"))
	if err != nil {
		t.Fatal(err)
	}
	o := boothOptions(cfg, camera.NewMock(camera.Settings{}, 4, 4), imaging.New(2, 2, color.White), nil, nil, nil)
	if o.Timing.Count != 3 || o.Timing.TickInterval != 2*time.Second {
		t.Errorf("timing = %+v", o.Timing)
	}
	if o.TransitionDuration != 380*time.Millisecond {
		t.Errorf("transition = %v, want 380ms", o.TransitionDuration)
	}
	if o.AttachmentName != "PhotoBooth.jpeg" || o.EventName != "Wedding" {
		t.Errorf("options = %+v", o)
	}
}

// ---------- render ----------

func TestRenderFiles(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, c := range []color.NRGBA{{R: 255, A: 255}, {G: 255, A: 255}} {
		p := filepath.Join(dir, "photo"+string(rune('a'+i))+".png")
		if err := imaging.Save(imaging.New(40, 30, c), p); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	brand := imaging.New(10, 5, color.NRGBA{B: 255, A: 255})
	out := filepath.Join(dir, "strip.jpeg")

	if err := renderFiles(paths, brand, 10, 90, out); err != nil {
		t.Fatalf("renderFiles: %v", err)
	}
	img, err := imaging.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := img.Bounds().Size(), image.Pt(40, 90); got != want {
		t.Errorf("strip size = %v, want %v", got, want)
	}
}

func TestRenderFiles_MissingPhoto(t *testing.T) {
	dir := t.TempDir()
	err := renderFiles([]string{filepath.Join(dir, "nope.jpg")}, imaging.New(2, 2, color.White), 10, 84, filepath.Join(dir, "out.jpeg"))
	if err == nil {
		t.Fatal("expected error for missing photo")
	}
}

// ---------- runOnce ----------

func newTestBooth(t *testing.T, cam camera.Camera, p dispatch.Printer) *booth.Booth {
	t.Helper()
	b, err := booth.New(booth.Options{
		Camera: cam,
		Brand:  imaging.New(10, 5, color.NRGBA{B: 255, A: 255}),
		Timing: capture.Timing{
			Count:         1,
			InitialDelay:  5 * time.Millisecond,
			StartDelay:    5 * time.Millisecond,
			TickInterval:  5 * time.Millisecond,
			ClearInterval: 2 * time.Millisecond,
			NiceDelay:     2 * time.Millisecond,
		},
		PhotosPerStrip:     3,
		PromptDelay:        10 * time.Millisecond,
		TransitionDuration: 10 * time.Millisecond,
		TransitionFPS:      200,
		Printer:            p,
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return b
}

type okPrinter struct{ jobs chan []byte }

func (p *okPrinter) Print(ctx context.Context, data []byte) error {
	p.jobs <- data
	return nil
}

func TestRunOnce(t *testing.T) {
	cam := camera.NewMock(camera.Settings{}, 40, 30)
	b := newTestBooth(t, cam, nil)

	ev, err := runOnce(context.Background(), b, nil, 10*time.Second)
	if err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if ev.Width != 40 || ev.Height != 130 {
		t.Errorf("strip = %dx%d, want 40x130", ev.Width, ev.Height)
	}
	if cam.Shots() != 3 {
		t.Errorf("shots = %d, want 3", cam.Shots())
	}
}

func TestRunOnce_Print(t *testing.T) {
	p := &okPrinter{jobs: make(chan []byte, 1)}
	b := newTestBooth(t, camera.NewMock(camera.Settings{}, 40, 30), p)

	act := dispatch.Print
	if _, err := runOnce(context.Background(), b, &act, 10*time.Second); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	select {
	case data := <-p.jobs:
		if len(data) == 0 {
			t.Error("empty print job")
		}
	default:
		t.Error("nothing was printed")
	}
}

func TestRunOnce_PrintDisabled(t *testing.T) {
	b := newTestBooth(t, camera.NewMock(camera.Settings{}, 40, 30), nil)

	act := dispatch.Print
	_, err := runOnce(context.Background(), b, &act, 10*time.Second)
	if err == nil || !strings.Contains(err.Error(), "Printing failed!") {
		t.Errorf("err = %v, want printing alert", err)
	}
}

func TestRunOnce_CameraMissing(t *testing.T) {
	cam := camera.NewMock(camera.Settings{}, 40, 30)
	cam.Missing = true
	b := newTestBooth(t, cam, nil)

	_, err := runOnce(context.Background(), b, nil, 10*time.Second)
	if err == nil || !strings.Contains(err.Error(), "Camera not present!") {
		t.Errorf("err = %v, want camera alert", err)
	}
}

func TestRunOnce_Timeout(t *testing.T) {
	b := newTestBooth(t, camera.NewMock(camera.Settings{}, 40, 30), nil)

	if _, err := runOnce(context.Background(), b, nil, time.Millisecond); err == nil {
		t.Error("expected timeout error")
	}
}
