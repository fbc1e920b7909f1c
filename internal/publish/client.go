// Package publish sends resolved control values to the audio engine over
// MQTT and accepts profile switch commands from it.
package publish

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/gesturemix/internal/monitoring"
)

// ClientConfig holds MQTT client configuration
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Connect creates an MQTT client and connects it to the broker. The client
// reconnects on its own after a lost connection.
func Connect(config ClientConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetOnConnectHandler(connectHandler)
	opts.SetConnectionLostHandler(connectLostHandler)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	monitoring.Logf("mqtt: connected to broker %s", config.Broker)
	return client, nil
}

// Disconnect closes the connection, waiting briefly for in-flight work.
func Disconnect(client mqtt.Client) {
	client.Disconnect(250)
	monitoring.Logf("mqtt: disconnected")
}

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	monitoring.Logf("mqtt: connection established")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	monitoring.Logf("mqtt: connection lost: %v", err)
}
