package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EventConfig describes the event the booth is running at.
type EventConfig struct {
	Name       string `yaml:"name"`        // e.g., "Kim and Ben's Wedding"
	BrandImage string `yaml:"brand_image"` // logo drawn on every strip
}

// CameraConfig describes how to capture photos.
// Type selects a concrete implementation ("mock", "command", "hotfolder").
type CameraConfig struct {
	Type             string   `yaml:"type"`
	Device           string   `yaml:"device"`             // "front" or "rear"
	Flash            bool     `yaml:"flash"`              // camera flash (off for a booth)
	Command          []string `yaml:"command"`            // capture tool argv; "{output}" is replaced by the file path
	HotFolder        string   `yaml:"hot_folder"`         // directory a tethered camera writes into
	CaptureTimeoutMs int      `yaml:"capture_timeout_ms"` // max wait for one photo
	WidthPx          int      `yaml:"width_px"`           // mock frame size
	HeightPx         int      `yaml:"height_px"`
	Orientation      int      `yaml:"orientation"` // orientation tag forced on captured frames (0 = as reported)
	FocusPin         int      `yaml:"focus_pin"`   // BCM, remote shutter half-press (hotfolder only, 0 = not used)
	ShutterPin       int      `yaml:"shutter_pin"` // BCM, remote shutter full-press (hotfolder only, 0 = not used)
	FocusDelayMs     int      `yaml:"focus_delay_ms"`
	ShutterDelayMs   int      `yaml:"shutter_delay_ms"`
}

// CountdownConfig holds the countdown timings.
type CountdownConfig struct {
	Count           int `yaml:"count"`             // countdown goes Start, 1 .. count
	InitialDelayMs  int `yaml:"initial_delay_ms"`  // before "Start"
	StartDelayMs    int `yaml:"start_delay_ms"`    // between "Start" and the first tick
	TickIntervalMs  int `yaml:"tick_interval_ms"`  // between labels
	ClearIntervalMs int `yaml:"clear_interval_ms"` // flash overlay clear tick
	NiceDelayMs     int `yaml:"nice_delay_ms"`     // after capture before "Nice!"
	PhotosPerStrip  int `yaml:"photos_per_strip"`
}

// StripConfig controls strip composition and encoding.
type StripConfig struct {
	PaddingPx     int `yaml:"padding_px"`
	JPEGQuality   int `yaml:"jpeg_quality"`   // 1-100
	PreviewHeight int `yaml:"preview_height"` // height of the on-screen preview (0 = full size)
	PromptDelayMs int `yaml:"prompt_delay_ms"`
}

// PrintConfig describes the CUPS printer.
type PrintConfig struct {
	Enabled bool     `yaml:"enabled"`
	Command string   `yaml:"command"` // default "lp"
	Printer string   `yaml:"printer"` // CUPS destination, empty = system default
	JobName string   `yaml:"job_name"`
	Options []string `yaml:"options"` // extra "-o" options
}

// MailConfig describes the SMTP relay and the fixed message parts.
type MailConfig struct {
	Enabled            bool   `yaml:"enabled"`
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	From               string `yaml:"from"`
	To                 string `yaml:"to"`
	Body               string `yaml:"body"`
	AttachmentName     string `yaml:"attachment_name"`
	MaxAttachmentBytes int64  `yaml:"max_attachment_bytes"`
}

// S3Config is optional: off-site copy of every strip.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// ArchiveConfig describes where rendered strips are kept.
type ArchiveConfig struct {
	Dir      string    `yaml:"dir"`
	Database string    `yaml:"database"`
	S3       *S3Config `yaml:"s3,omitempty"` // optional
}

// GPIOConfig wires the physical trigger button and flash light.
type GPIOConfig struct {
	ButtonPin  int `yaml:"button_pin"` // BCM, 0 = not used. Active LOW (pull-up).
	FlashPin   int `yaml:"flash_pin"`  // BCM, 0 = not used. HIGH = light on.
	DebounceMs int `yaml:"debounce_ms"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	TransitionMs  int  `yaml:"transition_ms"`   // fade duration
	TransitionFPS int  `yaml:"transition_fps"`  // fade frames per second sent to the screen
	TapCooldownMs int  `yaml:"tap_cooldown_ms"` // minimum time between two taps
	DebugLevel    int  `yaml:"debug_level"`     // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO      bool `yaml:"mock_gpio"`       // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Event     EventConfig     `yaml:"event"`
	Camera    CameraConfig    `yaml:"camera"`
	Countdown CountdownConfig `yaml:"countdown"`
	Strip     StripConfig     `yaml:"strip"`
	Print     PrintConfig     `yaml:"print"`
	Mail      MailConfig      `yaml:"mail"`
	Archive   ArchiveConfig   `yaml:"archive"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
}

// MaxConfigFileBytes caps the size of a config file.
const MaxConfigFileBytes = 1 << 20

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxConfigFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, validates it and fills in defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	if cfg.Camera.Type == "" {
		return nil, fmt.Errorf("camera.type is required")
	}
	if cfg.Event.BrandImage == "" {
		return nil, fmt.Errorf("event.brand_image is required")
	}
	if cfg.Camera.Device == "" {
		cfg.Camera.Device = "front"
	}
	if cfg.Camera.Device != "front" && cfg.Camera.Device != "rear" {
		return nil, fmt.Errorf("camera.device must be front or rear, got %q", cfg.Camera.Device)
	}
	if cfg.Camera.Orientation < 0 || cfg.Camera.Orientation > 8 {
		return nil, fmt.Errorf("camera.orientation must be between 0 and 8, got %d", cfg.Camera.Orientation)
	}
	if cfg.Camera.CaptureTimeoutMs <= 0 {
		cfg.Camera.CaptureTimeoutMs = 10000
	}
	if cfg.Camera.FocusDelayMs <= 0 {
		cfg.Camera.FocusDelayMs = 300
	}
	if cfg.Camera.ShutterDelayMs <= 0 {
		cfg.Camera.ShutterDelayMs = 100
	}
	if cfg.Camera.WidthPx <= 0 {
		cfg.Camera.WidthPx = 640
	}
	if cfg.Camera.HeightPx <= 0 {
		cfg.Camera.HeightPx = 480
	}

	// Countdown defaults mirror a 60 Hz display link: 120 frames per tick, 10 per clear.
	if cfg.Countdown.Count <= 0 {
		cfg.Countdown.Count = 3
	}
	if cfg.Countdown.InitialDelayMs <= 0 {
		cfg.Countdown.InitialDelayMs = 1000
	}
	if cfg.Countdown.StartDelayMs <= 0 {
		cfg.Countdown.StartDelayMs = 2000
	}
	if cfg.Countdown.TickIntervalMs <= 0 {
		cfg.Countdown.TickIntervalMs = 2000
	}
	if cfg.Countdown.ClearIntervalMs <= 0 {
		cfg.Countdown.ClearIntervalMs = 166
	}
	if cfg.Countdown.NiceDelayMs <= 0 {
		cfg.Countdown.NiceDelayMs = 200
	}
	if cfg.Countdown.PhotosPerStrip <= 0 {
		cfg.Countdown.PhotosPerStrip = 3
	}

	if cfg.Strip.PaddingPx < 0 {
		return nil, fmt.Errorf("strip.padding_px must be >= 0, got %d", cfg.Strip.PaddingPx)
	}
	if cfg.Strip.PaddingPx == 0 {
		cfg.Strip.PaddingPx = 10
	}
	if cfg.Strip.JPEGQuality < 0 || cfg.Strip.JPEGQuality > 100 {
		return nil, fmt.Errorf("strip.jpeg_quality must be between 1 and 100, got %d", cfg.Strip.JPEGQuality)
	}
	if cfg.Strip.JPEGQuality == 0 {
		cfg.Strip.JPEGQuality = 84
	}
	if cfg.Strip.PromptDelayMs <= 0 {
		cfg.Strip.PromptDelayMs = 1000
	}

	if cfg.Print.Command == "" {
		cfg.Print.Command = "lp"
	}
	if cfg.Print.JobName == "" {
		cfg.Print.JobName = "PhotoStrip"
	}

	if cfg.Mail.Enabled {
		if cfg.Mail.Host == "" {
			return nil, fmt.Errorf("mail.host is required when mail is enabled")
		}
		if cfg.Mail.To == "" || cfg.Mail.From == "" {
			return nil, fmt.Errorf("mail.from and mail.to are required when mail is enabled")
		}
	}
	if cfg.Mail.Port <= 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Mail.Body == "" {
		cfg.Mail.Body = "Thanks for coming! We love you!"
	}
	if cfg.Mail.AttachmentName == "" {
		cfg.Mail.AttachmentName = "PhotoBooth.jpeg"
	}
	if cfg.Mail.MaxAttachmentBytes <= 0 {
		cfg.Mail.MaxAttachmentBytes = 10 << 20 // 10 MiB
	}

	if cfg.Archive.Dir == "" {
		cfg.Archive.Dir = "strips"
	}
	if cfg.Archive.Database == "" {
		cfg.Archive.Database = "strips.db"
	}
	if s := cfg.Archive.S3; s != nil {
		if s.Bucket == "" {
			return nil, fmt.Errorf("archive.s3.bucket is required when s3 is configured")
		}
		if s.Region == "" {
			s.Region = "us-east-1"
		}
	}

	if cfg.GPIO.DebounceMs <= 0 {
		cfg.GPIO.DebounceMs = 50
	}

	if cfg.Defaults.TransitionMs <= 0 {
		cfg.Defaults.TransitionMs = 380
	}
	if cfg.Defaults.TransitionFPS <= 0 {
		cfg.Defaults.TransitionFPS = 30
	}
	if cfg.Defaults.TapCooldownMs <= 0 {
		cfg.Defaults.TapCooldownMs = 500
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}

	return &cfg, nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// CaptureTimeout returns the max wait for a single photo.
func (c *Config) CaptureTimeout() time.Duration {
	return ms(c.Camera.CaptureTimeoutMs)
}

// FocusDelay returns how long the remote shutter holds focus before firing.
func (c *Config) FocusDelay() time.Duration {
	return ms(c.Camera.FocusDelayMs)
}

// ShutterDelay returns how long the remote shutter stays pressed.
func (c *Config) ShutterDelay() time.Duration {
	return ms(c.Camera.ShutterDelayMs)
}

// InitialDelay returns the delay before the "Start" label.
func (c *Config) InitialDelay() time.Duration {
	return ms(c.Countdown.InitialDelayMs)
}

// StartDelay returns the delay between "Start" and the first tick.
func (c *Config) StartDelay() time.Duration {
	return ms(c.Countdown.StartDelayMs)
}

// TickInterval returns the duration between two countdown labels.
func (c *Config) TickInterval() time.Duration {
	return ms(c.Countdown.TickIntervalMs)
}

// ClearInterval returns the period of the flash clear tick.
func (c *Config) ClearInterval() time.Duration {
	return ms(c.Countdown.ClearIntervalMs)
}

// NiceDelay returns the delay between capture and the "Nice!" label.
func (c *Config) NiceDelay() time.Duration {
	return ms(c.Countdown.NiceDelayMs)
}

// PromptDelay returns the delay between showing a strip and prompting for actions.
func (c *Config) PromptDelay() time.Duration {
	return ms(c.Strip.PromptDelayMs)
}

// TransitionDuration returns the fade duration.
func (c *Config) TransitionDuration() time.Duration {
	return ms(c.Defaults.TransitionMs)
}

// TapCooldown returns the minimum time between two accepted taps.
func (c *Config) TapCooldown() time.Duration {
	return ms(c.Defaults.TapCooldownMs)
}

// Debounce returns the trigger button debounce time.
func (c *Config) Debounce() time.Duration {
	return ms(c.GPIO.DebounceMs)
}
