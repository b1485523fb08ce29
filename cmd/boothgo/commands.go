package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cjeanneret/BoothGo/internal/booth"
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/dispatch"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/logic/strip"
	"github.com/cjeanneret/BoothGo/internal/web"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	webPort := &webPortFlag{defaultPort: 8080}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the kiosk: booth controller and touch screen page",
		Long: `Start the booth controller and the web server that serves the kiosk page.
The trigger button and the flash light are driven when their GPIO pins are set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			logs := web.NewBroadcaster()
			debug.SetOutput(io.MultiWriter(os.Stdout, web.LogWriter(logs)))

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			defer cancel()

			events := web.NewBroadcaster()
			a.booth.Subscribe(events)
			kiosk := web.KioskConfig{
				EventName:      cfg.Event.Name,
				PhotosPerStrip: cfg.Countdown.PhotosPerStrip,
				PreviewHeight:  cfg.Strip.PreviewHeight,
				TransitionMs:   cfg.Defaults.TransitionMs,
				Actions:        booth.PromptActions(),
			}
			h := web.NewHandlers(logs, events, a.booth, a.archive, kiosk, cfg.TapCooldown(), nil)
			srv := web.NewServer(fmt.Sprintf(":%d", webPort.port()), h)

			boothErr := make(chan error, 1)
			go func() {
				boothErr <- a.Run(ctx)
				cancel()
			}()
			err = srv.Run(ctx)
			cancel()
			return errors.Join(err, <-boothErr)
		},
	}
	cmd.Flags().Var(webPort, "web", "web server port")
	cmd.Flags().Lookup("web").NoOptDefVal = strconv.Itoa(webPort.defaultPort)
	return cmd
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		action  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Take one strip without the kiosk page",
		Long: `Run a single session headless: tap, count down, capture and render one strip,
then optionally print or email it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var act *dispatch.Action
			if action != "" {
				a, err := dispatch.ParseAction(action)
				if err != nil {
					return err
				}
				act = &a
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			done := make(chan error, 1)
			go func() { done <- a.Run(ctx) }()
			ev, err := runOnce(ctx, a.booth, act, timeout)
			cancel()
			if runErr := <-done; runErr != nil {
				debug.Error(runErr)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "strip %dx%d ready\n", ev.Width, ev.Height)
			return nil
		},
	}
	cmd.Flags().StringVarP(&action, "action", "a", "", "action once the strip is shown (print|email|start-over|cancel)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "give up after this long")
	return cmd
}

// runOnce taps the booth, waits for the strip and the prompt, then runs act
// when set. It returns the strip event. b must already be running.
func runOnce(ctx context.Context, b *booth.Booth, act *dispatch.Action, timeout time.Duration) (booth.Event, error) {
	events := make(chan booth.Event, 256)
	b.Subscribe(booth.SinkFunc(func(e booth.Event) {
		select {
		case events <- e:
		default:
		}
	}))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wait := func(done func(booth.Event) bool) (booth.Event, error) {
		for {
			select {
			case <-ctx.Done():
				return booth.Event{}, fmt.Errorf("session: %w", ctx.Err())
			case e := <-events:
				if e.Type == booth.EventAlert {
					return e, fmt.Errorf("%s: %s", e.Alert, e.Message)
				}
				if done(e) {
					return e, nil
				}
			}
		}
	}

	b.Tap()
	shown, err := wait(func(e booth.Event) bool { return e.Type == booth.EventStrip })
	if err != nil {
		return shown, err
	}
	debug.Info("Session: strip %dx%d", shown.Width, shown.Height)
	if _, err := wait(func(e booth.Event) bool { return e.Type == booth.EventPrompt }); err != nil {
		return shown, err
	}
	if act == nil {
		return shown, nil
	}

	b.Act(*act)
	switch *act {
	case dispatch.Print:
		_, err = wait(func(e booth.Event) bool { return e.Type == booth.EventPrompt })
	case dispatch.Email:
		_, err = wait(func(e booth.Event) bool { return e.Type == booth.EventDismiss && e.Message != "" })
	case dispatch.StartOver:
		_, err = wait(func(e booth.Event) bool { return e.Type == booth.EventReset })
	}
	return shown, err
}

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var (
		output    string
		brandPath string
	)

	cmd := &cobra.Command{
		Use:   "render <photo> [photo...]",
		Short: "Lay out existing photos as a strip",
		Long: `Compose a strip from photo files with the configured logo, padding and JPEG
quality. Photos are placed top to bottom in the order given; EXIF orientation is honored.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if brandPath == "" {
				brandPath = cfg.Event.BrandImage
			}
			brand, err := loadBrand(brandPath)
			if err != nil {
				return err
			}
			return renderFiles(args, brand, cfg.Strip.PaddingPx, cfg.Strip.JPEGQuality, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "strip.jpeg", "output JPEG path")
	cmd.Flags().StringVar(&brandPath, "brand", "", "logo image, defaults to event.brand_image")
	return cmd
}

func renderFiles(paths []string, brand image.Image, padding, quality int, output string) error {
	frames := make([]camera.Frame, 0, len(paths))
	for _, p := range paths {
		img, o, err := camera.DecodeFile(p)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		frames = append(frames, camera.Frame{Image: img, Orientation: o})
		debug.Verbose("Render: %s %dx%d (%s)", p, img.Bounds().Dx(), img.Bounds().Dy(), o)
	}
	s, err := strip.New(frames, brand, strip.WithPadding(padding))
	if err != nil {
		return err
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := strip.EncodeJPEG(f, s.Compose(), quality); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	debug.Info("Render: wrote %s", output)
	return nil
}

func newStripsCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "strips",
		Short: "List the most recent archived strips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			arc, err := openArchive(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer arc.Close()

			recs, err := arc.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "no strips yet")
				return nil
			}
			for _, r := range recs {
				remote := r.Remote
				if remote == "" {
					remote = "-"
				}
				fmt.Fprintf(out, "%s  %-14s  %dx%d  %-8s  %s  %s\n",
					r.ID[:8], humanize.Time(r.CreatedAt), r.Width, r.Height,
					humanize.Bytes(uint64(r.Bytes)), r.Path, remote)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of strips to list")
	return cmd
}
