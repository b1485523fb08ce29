package main

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/cjeanneret/BoothGo/internal/archive"
	"github.com/cjeanneret/BoothGo/internal/booth"
	"github.com/cjeanneret/BoothGo/internal/config"
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/dispatch"
	"github.com/cjeanneret/BoothGo/internal/hw/button"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/hw/flash"
	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
	"github.com/disintegration/imaging"
)

// app is the wired booth with the hardware and storage it owns.
type app struct {
	cfg     *config.Config
	gpio    gpio.Driver
	booth   *booth.Booth
	archive *archive.Archive
	button  *button.Button // nil when no trigger button is wired
}

// newApp initializes the hardware, the archive and the booth controller.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	g, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return nil, fmt.Errorf("init GPIO failed: %w", err)
	}
	a := &app{cfg: cfg, gpio: g}

	debug.Step(2, "Initializing camera")
	cam, err := newCameraFromConfig(g, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init camera failed: %w", err)
	}
	debug.Value("Camera type", cfg.Camera.Type)
	debug.Value("Camera device", cfg.Camera.Device)

	debug.Step(3, "Loading brand image")
	brand, err := loadBrand(cfg.Event.BrandImage)
	if err != nil {
		a.Close()
		return nil, err
	}
	debug.Value("Brand image", cfg.Event.BrandImage)

	debug.Step(4, "Opening strip archive")
	a.archive, err = openArchive(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	debug.Step(5, "Initializing booth")
	a.booth, err = booth.New(boothOptions(cfg, cam, brand, newPrinter(cfg), newMailer(cfg), a.archive))
	if err != nil {
		a.Close()
		return nil, err
	}
	debug.Value("Event", cfg.Event.Name)
	debug.Value("Photos per strip", cfg.Countdown.PhotosPerStrip)
	debug.Value("Printing", cfg.Print.Enabled)
	debug.Value("Mail", cfg.Mail.Enabled)

	debug.Step(6, "Initializing trigger button and flash")
	if cfg.GPIO.ButtonPin > 0 {
		a.button, err = button.New(g, cfg.GPIO.ButtonPin, cfg.Debounce())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init button failed: %w", err)
		}
		debug.Value("Button pin", cfg.GPIO.ButtonPin)
	}
	if cfg.GPIO.FlashPin > 0 {
		light, err := flash.New(g, cfg.GPIO.FlashPin)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init flash failed: %w", err)
		}
		a.booth.Subscribe(flashSink(light))
		debug.Value("Flash pin", cfg.GPIO.FlashPin)
	}
	return a, nil
}

// Run drives the booth and the trigger button until ctx is done.
func (a *app) Run(ctx context.Context) error {
	if a.button != nil {
		go func() {
			if err := a.button.Watch(ctx, a.booth.Tap); err != nil && !errors.Is(err, context.Canceled) {
				debug.Error(fmt.Errorf("button: %w", err))
			}
		}()
	}
	err := a.booth.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the archive and the GPIO driver.
func (a *app) Close() error {
	var errs []error
	if a.archive != nil {
		errs = append(errs, a.archive.Close())
	}
	if a.gpio != nil {
		errs = append(errs, a.gpio.Close())
	}
	return errors.Join(errs...)
}

func boothOptions(cfg *config.Config, cam camera.Camera, brand image.Image, p dispatch.Printer, m dispatch.Mailer, arc booth.Archiver) booth.Options {
	return booth.Options{
		Camera: cam,
		Brand:  brand,
		Timing: capture.Timing{
			Count:         cfg.Countdown.Count,
			InitialDelay:  cfg.InitialDelay(),
			StartDelay:    cfg.StartDelay(),
			TickInterval:  cfg.TickInterval(),
			ClearInterval: cfg.ClearInterval(),
			NiceDelay:     cfg.NiceDelay(),
		},
		PhotosPerStrip:     cfg.Countdown.PhotosPerStrip,
		Padding:            cfg.Strip.PaddingPx,
		JPEGQuality:        cfg.Strip.JPEGQuality,
		PromptDelay:        cfg.PromptDelay(),
		TransitionDuration: cfg.TransitionDuration(),
		TransitionFPS:      cfg.Defaults.TransitionFPS,
		EventName:          cfg.Event.Name,
		MailBody:           cfg.Mail.Body,
		AttachmentName:     cfg.Mail.AttachmentName,
		Printer:            p,
		Mailer:             m,
		Archiver:           arc,
	}
}

// newCameraFromConfig selects a camera implementation based on configuration.
func newCameraFromConfig(g gpio.Driver, cfg *config.Config) (camera.Camera, error) {
	s := camera.Settings{
		Device:      cfg.Camera.Device,
		Flash:       cfg.Camera.Flash,
		Orientation: camera.Orientation(cfg.Camera.Orientation),
	}
	switch cfg.Camera.Type {
	case "mock":
		return camera.NewMock(s, cfg.Camera.WidthPx, cfg.Camera.HeightPx), nil
	case "command":
		c, err := camera.NewCommand(s, cfg.Camera.Command, cfg.CaptureTimeout())
		if err != nil {
			return nil, err
		}
		return c, nil
	case "hotfolder":
		if cfg.Camera.HotFolder == "" {
			return nil, fmt.Errorf("camera.hot_folder is required for the hotfolder camera")
		}
		var shutter camera.Shooter
		if cfg.Camera.ShutterPin > 0 {
			shutter = camera.NewRemoteShutter(g, cfg.Camera.FocusPin, cfg.Camera.ShutterPin, cfg.FocusDelay(), cfg.ShutterDelay())
			debug.Value("Focus pin", cfg.Camera.FocusPin)
			debug.Value("Shutter pin", cfg.Camera.ShutterPin)
		}
		return camera.NewHotFolder(s, cfg.Camera.HotFolder, shutter, cfg.CaptureTimeout()), nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}

func loadBrand(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load brand image: %w", err)
	}
	return img, nil
}

// newPrinter returns nil when printing is disabled.
func newPrinter(cfg *config.Config) dispatch.Printer {
	if !cfg.Print.Enabled {
		return nil
	}
	return &dispatch.LPPrinter{
		Command: cfg.Print.Command,
		Printer: cfg.Print.Printer,
		JobName: cfg.Print.JobName,
		Options: cfg.Print.Options,
	}
}

// newMailer returns nil when mail is disabled.
func newMailer(cfg *config.Config) dispatch.Mailer {
	if !cfg.Mail.Enabled {
		return nil
	}
	return &dispatch.SMTPMailer{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		To:       cfg.Mail.To,
		MaxBytes: cfg.Mail.MaxAttachmentBytes,
	}
}

func openArchive(ctx context.Context, cfg *config.Config) (*archive.Archive, error) {
	var up archive.Uploader
	if s := cfg.Archive.S3; s != nil {
		u, err := archive.NewS3Uploader(ctx, archive.S3Options{
			Endpoint:  s.Endpoint,
			Region:    s.Region,
			Bucket:    s.Bucket,
			Prefix:    s.Prefix,
			AccessKey: s.AccessKey,
			SecretKey: s.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 uploader failed: %w", err)
		}
		up = u
		debug.Value("S3 bucket", s.Bucket)
	}
	arc, err := archive.Open(cfg.Archive.Dir, cfg.Archive.Database, up)
	if err != nil {
		return nil, fmt.Errorf("open archive failed: %w", err)
	}
	debug.Value("Archive dir", cfg.Archive.Dir)
	return arc, nil
}

// flashSink drives the flash light from the countdown overlay.
func flashSink(l *flash.Light) booth.Sink {
	return booth.SinkFunc(func(e booth.Event) {
		if e.Type != booth.EventFlash {
			return
		}
		if err := l.Set(e.Alpha); err != nil {
			debug.Error(fmt.Errorf("flash: %w", err))
		}
	})
}
