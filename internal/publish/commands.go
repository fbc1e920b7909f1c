package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/gesturemix/internal/mapping"
	"github.com/ayusman/gesturemix/internal/monitoring"
)

// Subscriber is the part of an MQTT client used for commands.
type Subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Activator switches the active profile.
type Activator interface {
	Activate(id string) (*mapping.Profile, error)
}

type profileCommand struct {
	ProfileID string `json:"profile_id"`
}

// ListenProfileCommands subscribes to topic and activates the profile named
// in each message. Payloads are either a bare profile id or
// {"profile_id": "..."}.
func ListenProfileCommands(client Subscriber, topic string, reg Activator) error {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		if err := applyProfileCommand(reg, msg.Payload()); err != nil {
			monitoring.Logf("mqtt: profile command on %s: %v", msg.Topic(), err)
		}
	}
	token := client.Subscribe(topic, 1, handler)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	monitoring.Logf("mqtt: listening for profile commands on %s", topic)
	return nil
}

func applyProfileCommand(reg Activator, payload []byte) error {
	id := strings.TrimSpace(string(payload))
	if strings.HasPrefix(id, "{") {
		var cmd profileCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return fmt.Errorf("decode command: %w", err)
		}
		id = strings.TrimSpace(cmd.ProfileID)
	}
	if id == "" {
		return errors.New("empty profile id")
	}
	_, err := reg.Activate(id)
	return err
}
