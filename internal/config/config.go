// Package config loads runtime settings from the environment. A .env file
// in the working directory is read first when present; variables already
// set in the environment take precedence over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayusman/gesturemix/internal/monitoring"
	"github.com/ayusman/gesturemix/internal/pipeline"
)

// Environment variable names.
const (
	EnvHTTPAddr          = "GESTUREMIX_HTTP_ADDR"
	EnvDBPath            = "GESTUREMIX_DB_PATH"
	EnvStaticDir         = "GESTUREMIX_STATIC_DIR"
	EnvCameraID          = "GESTUREMIX_CAMERA_ID"
	EnvCameraMirror      = "GESTUREMIX_CAMERA_MIRROR"
	EnvFPS               = "GESTUREMIX_FPS"
	EnvIdleFPS           = "GESTUREMIX_IDLE_FPS"
	EnvMotionThreshold   = "GESTUREMIX_MOTION_THRESHOLD"
	EnvMQTTBroker        = "GESTUREMIX_MQTT_BROKER"
	EnvMQTTClientID      = "GESTUREMIX_MQTT_CLIENT_ID"
	EnvMQTTUsername      = "GESTUREMIX_MQTT_USERNAME"
	EnvMQTTPassword      = "GESTUREMIX_MQTT_PASSWORD"
	EnvMQTTTopicPrefix   = "GESTUREMIX_MQTT_TOPIC_PREFIX"
	EnvMQTTCommandTopic  = "GESTUREMIX_MQTT_COMMAND_TOPIC"
	EnvMinConfidence     = "GESTUREMIX_MIN_CONFIDENCE"
	EnvOutlierMultiplier = "GESTUREMIX_OUTLIER_MULTIPLIER"
	EnvEdgePenalty       = "GESTUREMIX_EDGE_PENALTY"
	EnvHandTimeout       = "GESTUREMIX_HAND_TIMEOUT"
)

// MQTTConfig holds the control publisher settings. An empty Broker disables
// publishing.
type MQTTConfig struct {
	Broker       string
	ClientID     string
	Username     string
	Password     string
	TopicPrefix  string
	CommandTopic string
}

// Enabled reports whether a broker is configured.
func (c MQTTConfig) Enabled() bool { return c.Broker != "" }

// Config is the complete runtime configuration.
type Config struct {
	HTTPAddr        string
	DBPath          string
	StaticDir       string
	CameraID        int
	CameraMirror    bool
	FPS             int     // capture rate while hands are moving
	IdleFPS         int     // capture rate after IdleTimeout without motion
	MotionThreshold float64 // percent of changed pixels counted as motion
	IdleTimeout     time.Duration
	MQTT            MQTTConfig
	Pipeline        pipeline.Config
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		HTTPAddr:        ":8080",
		DBPath:          defaultDBPath(),
		CameraID:        0,
		FPS:             60,
		IdleFPS:         5,
		MotionThreshold: 1.0,
		IdleTimeout:     2 * time.Second,
		MQTT: MQTTConfig{
			ClientID:     "gesturemix",
			TopicPrefix:  "gesturemix/control",
			CommandTopic: "gesturemix/command/profile",
		},
		Pipeline: pipeline.DefaultConfig(),
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "gesturemix.db"
	}
	return filepath.Join(home, ".gesturemix", "gesturemix.db")
}

// Load reads the given .env files (".env" when none are named), applies
// environment overrides to the defaults and validates the result. Missing
// .env files are ignored; malformed values are reported.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	c := Default()
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str(EnvHTTPAddr, &c.HTTPAddr)
	str(EnvDBPath, &c.DBPath)
	str(EnvStaticDir, &c.StaticDir)
	integer(EnvCameraID, &c.CameraID)
	boolean(EnvCameraMirror, &c.CameraMirror)
	integer(EnvFPS, &c.FPS)
	integer(EnvIdleFPS, &c.IdleFPS)
	float(EnvMotionThreshold, &c.MotionThreshold)

	str(EnvMQTTBroker, &c.MQTT.Broker)
	str(EnvMQTTClientID, &c.MQTT.ClientID)
	str(EnvMQTTUsername, &c.MQTT.Username)
	str(EnvMQTTPassword, &c.MQTT.Password)
	str(EnvMQTTTopicPrefix, &c.MQTT.TopicPrefix)
	str(EnvMQTTCommandTopic, &c.MQTT.CommandTopic)

	float(EnvMinConfidence, &c.Pipeline.Gesture.MinConfidence)
	float(EnvOutlierMultiplier, &c.Pipeline.Smoothing.Outlier.Multiplier)
	float(EnvEdgePenalty, &c.Pipeline.Gesture.EdgePenalty)
	duration(EnvHandTimeout, &c.Pipeline.Smoothing.HandTimeout)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	monitoring.Logf("config: http %s, db %s, camera %d at %d fps, mqtt enabled %v",
		c.HTTPAddr, c.DBPath, c.CameraID, c.FPS, c.MQTT.Enabled())
	return c, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case c.HTTPAddr == "":
		return errors.New("http address is required")
	case c.DBPath == "":
		return errors.New("database path is required")
	case c.FPS <= 0 || c.FPS > 240:
		return fmt.Errorf("fps must be in 1..240, got %d", c.FPS)
	case c.IdleFPS <= 0 || c.IdleFPS > c.FPS:
		return fmt.Errorf("idle fps must be in 1..%d, got %d", c.FPS, c.IdleFPS)
	case c.MotionThreshold < 0 || c.MotionThreshold > 100:
		return fmt.Errorf("motion threshold must be a percentage, got %g", c.MotionThreshold)
	case c.Pipeline.Smoothing.Outlier.Multiplier <= 0:
		return fmt.Errorf("outlier multiplier must be positive, got %g", c.Pipeline.Smoothing.Outlier.Multiplier)
	case c.Pipeline.Smoothing.HandTimeout <= 0:
		return fmt.Errorf("hand timeout must be positive, got %s", c.Pipeline.Smoothing.HandTimeout)
	}
	if err := c.Pipeline.Gesture.Validate(); err != nil {
		return fmt.Errorf("gesture config: %w", err)
	}
	return nil
}
