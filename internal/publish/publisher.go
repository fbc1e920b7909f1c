package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/gesturemix/internal/mapping"
	"github.com/ayusman/gesturemix/internal/monitoring"
	"github.com/ayusman/gesturemix/internal/pipeline"
)

// Client is the part of an MQTT client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Config holds publisher settings.
type Config struct {
	TopicPrefix    string        // e.g. "gesturemix/control"
	QoS            byte          // control values are superseded quickly; 0 is usual
	Epsilon        float64       // smaller value changes are not republished
	PublishTimeout time.Duration // wait per publish before giving up
}

// DefaultConfig returns the standard publisher settings.
func DefaultConfig() Config {
	return Config{
		TopicPrefix:    "gesturemix/control",
		QoS:            0,
		Epsilon:        1e-4,
		PublishTimeout: time.Second,
	}
}

// ControlMessage is the payload published for one control target.
type ControlMessage struct {
	Target    string              `json:"target"`
	MappingID string              `json:"mapping_id,omitempty"`
	ProfileID string              `json:"profile_id"`
	Mode      mapping.ControlMode `json:"mode,omitempty"`
	Value     float64             `json:"value"`
	State     bool                `json:"state"`
	Fired     bool                `json:"fired,omitempty"`
	Active    bool                `json:"active"`
	Timestamp time.Time           `json:"timestamp"`
}

// ProfileMessage is published, retained, when the active profile changes.
type ProfileMessage struct {
	ProfileID string    `json:"profile_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes control values that changed since the previous
// frame. Targets that stop being driven get a final inactive message.
type Publisher struct {
	client Client
	cfg    Config
	frames chan pipeline.Output

	last    map[string]mapping.ControlValue
	profile string
}

// NewPublisher creates a publisher writing through client.
func NewPublisher(client Client, cfg Config) *Publisher {
	cfg.TopicPrefix = strings.TrimRight(cfg.TopicPrefix, "/")
	return &Publisher{
		client: client,
		cfg:    cfg,
		frames: make(chan pipeline.Output, 1),
		last:   make(map[string]mapping.ControlValue),
	}
}

// Offer queues out without blocking. An output that was not yet published
// is replaced; a fired trigger is carried over so it is never lost.
func (p *Publisher) Offer(out pipeline.Output) {
	for {
		select {
		case p.frames <- out:
			return
		default:
		}
		select {
		case stale := <-p.frames:
			out = carryFired(stale, out)
		default:
		}
	}
}

// carryFired copies fired controls of stale into next when next does not
// drive the same target.
func carryFired(stale, next pipeline.Output) pipeline.Output {
	var extra []mapping.ControlValue
	for _, c := range stale.Controls {
		if !c.Fired {
			continue
		}
		driven := false
		for _, n := range next.Controls {
			if n.Target == c.Target {
				driven = true
				break
			}
		}
		if !driven {
			extra = append(extra, c)
		}
	}
	if len(extra) == 0 {
		return next
	}
	next.Controls = append(append([]mapping.ControlValue(nil), next.Controls...), extra...)
	return next
}

// errorLogEvery limits publish failures to one log line per n frames.
const errorLogEvery = 100

// Run publishes queued outputs until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	monitoring.Logf("mqtt: publishing controls under %s", p.cfg.TopicPrefix)
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out := <-p.frames:
			if err := p.Publish(out); err != nil {
				if failures%errorLogEvery == 0 {
					monitoring.Logf("mqtt: %v (%d failures)", err, failures+1)
				}
				failures++
			}
		}
	}
}

// Publish sends the changes in out. It is not safe for concurrent use; Run
// calls it from a single goroutine.
func (p *Publisher) Publish(out pipeline.Output) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if out.ProfileID != "" && out.ProfileID != p.profile {
		p.profile = out.ProfileID
		record(p.send(p.cfg.TopicPrefix+"/profile", true, ProfileMessage{ProfileID: out.ProfileID, Timestamp: out.Timestamp}))
	}

	current := make(map[string]bool, len(out.Controls))
	for _, c := range out.Controls {
		current[c.Target] = true
		prev, seen := p.last[c.Target]
		p.last[c.Target] = c
		if seen && !p.changed(prev, c) {
			continue
		}
		record(p.send(p.Topic(c.Target), false, ControlMessage{
			Target:    c.Target,
			MappingID: c.MappingID,
			ProfileID: out.ProfileID,
			Mode:      c.Mode,
			Value:     c.Value,
			State:     c.State,
			Fired:     c.Fired,
			Active:    true,
			Timestamp: out.Timestamp,
		}))
	}

	for target, prev := range p.last {
		if current[target] {
			continue
		}
		delete(p.last, target)
		record(p.send(p.Topic(target), false, ControlMessage{
			Target:    target,
			MappingID: prev.MappingID,
			ProfileID: out.ProfileID,
			Mode:      prev.Mode,
			Value:     prev.Value,
			State:     prev.State,
			Timestamp: out.Timestamp,
		}))
	}
	return firstErr
}

func (p *Publisher) changed(prev, cur mapping.ControlValue) bool {
	return cur.Fired ||
		prev.MappingID != cur.MappingID ||
		prev.State != cur.State ||
		math.Abs(prev.Value-cur.Value) > p.cfg.Epsilon
}

// Topic returns the topic for a control target. Dots become topic levels
// and MQTT wildcards are replaced.
func (p *Publisher) Topic(target string) string {
	t := strings.NewReplacer(".", "/", "+", "_", "#", "_").Replace(target)
	return p.cfg.TopicPrefix + "/" + strings.Trim(t, "/")
}

func (p *Publisher) send(topic string, retained bool, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}
	token := p.client.Publish(topic, p.cfg.QoS, retained, payload)
	if !token.WaitTimeout(p.cfg.PublishTimeout) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
