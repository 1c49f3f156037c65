package mqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermovent/ventd/internal/store"
	"github.com/thermovent/ventd/internal/vent"
	"github.com/thermovent/ventd/internal/vent/driver/servo"
)

type fakeToken struct{}

func (fakeToken) Wait() bool                     { return true }
func (fakeToken) WaitTimeout(time.Duration) bool { return true }
func (fakeToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (fakeToken) Error() error                   { return nil }

type fakeClient struct {
	paho.Client

	mu        sync.Mutex
	published map[string]string
	handlers  map[string]paho.MessageHandler
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		published: map[string]string{},
		handlers:  map[string]paho.MessageHandler{},
	}
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := payload.(type) {
	case string:
		c.published[topic] = v
	case []byte:
		c.published[topic] = string(v)
	}
	return fakeToken{}
}

func (c *fakeClient) Subscribe(topic string, _ byte, handler paho.MessageHandler) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	return fakeToken{}
}

func (c *fakeClient) Unsubscribe(...string) paho.Token {
	return fakeToken{}
}

func (c *fakeClient) last(topic string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published[topic]
}

func (c *fakeClient) deliver(t *testing.T, topic, payload string) {
	t.Helper()
	c.mu.Lock()
	handler := c.handlers[topic]
	c.mu.Unlock()
	require.NotNil(t, handler, "no handler for %s", topic)
	handler(c, fakeMessage{topic: topic, payload: payload})
}

type fakeMessage struct {
	topic   string
	payload string
}

func (fakeMessage) Duplicate() bool   { return false }
func (fakeMessage) Qos() byte         { return 0 }
func (fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string   { return m.topic }
func (fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte { return []byte(m.payload) }
func (fakeMessage) Ack()              {}

func newTestBridge(t *testing.T) (*Bridge, *fakeClient, *vent.Gateway) {
	t.Helper()

	gateway, err := vent.NewGateway("vent_living", vent.NewLog(store.NewMemory()), &servo.Dumb{Name: "vent_living"})
	require.NoError(t, err)

	client := newFakeClient()
	bridge := NewBridge(client, gateway)
	require.NoError(t, bridge.Subscribe(context.Background()))

	return bridge, client, gateway
}

func TestBridgeTopics(t *testing.T) {
	bridge, _, _ := newTestBridge(t)

	assert.Equal(t, "ventd/vent_living/state", bridge.StateTopic)
	assert.Equal(t, "ventd/vent_living/position", bridge.PositionTopic)
	assert.Equal(t, "ventd/vent_living/set", bridge.CommandTopic)
	assert.Equal(t, "ventd/vent_living/position/set", bridge.SetPositionTopic)
}

func TestBridgePublishesRecoveredState(t *testing.T) {
	_, client, _ := newTestBridge(t)

	assert.Equal(t, "closed", client.last("ventd/vent_living/state"))
	assert.Equal(t, "10000", client.last("ventd/vent_living/position"))
}

func TestBridgeCommands(t *testing.T) {
	t.Run("open drives to full open", func(t *testing.T) {
		bridge, client, gateway := newTestBridge(t)

		client.deliver(t, bridge.CommandTopic, "open")
		for i := 0; i < 90; i++ {
			require.NoError(t, gateway.Tick())
		}

		angle, category := gateway.Position()
		assert.Equal(t, 180, angle)
		assert.Equal(t, vent.CategoryOpen, category)
		assert.Equal(t, "open", client.last(bridge.StateTopic))
		assert.Equal(t, "0", client.last(bridge.PositionTopic))
	})

	t.Run("stop freezes a move", func(t *testing.T) {
		bridge, client, gateway := newTestBridge(t)

		client.deliver(t, bridge.CommandTopic, "open")
		for i := 0; i < 10; i++ {
			require.NoError(t, gateway.Tick())
		}
		client.deliver(t, bridge.CommandTopic, "stop")

		angle, category := gateway.Position()
		assert.Equal(t, 100, angle)
		assert.Equal(t, vent.CategoryPartial, category)
		assert.Equal(t, "partial", client.last(bridge.StateTopic))
	})

	t.Run("unknown commands are ignored", func(t *testing.T) {
		bridge, client, gateway := newTestBridge(t)

		client.deliver(t, bridge.CommandTopic, "reverse")
		angle, _ := gateway.Position()
		assert.Equal(t, 90, angle)
	})
}

func TestBridgeSetPosition(t *testing.T) {
	t.Run("lift scale command moves the vent", func(t *testing.T) {
		bridge, client, gateway := newTestBridge(t)

		client.deliver(t, bridge.SetPositionTopic, "5000")
		for i := 0; i < 45; i++ {
			require.NoError(t, gateway.Tick())
		}

		angle, _ := gateway.Position()
		assert.Equal(t, 135, angle)
		assert.Equal(t, "5000", client.last(bridge.PositionTopic))
	})

	t.Run("out of range scale is rejected, not clamped", func(t *testing.T) {
		bridge, client, gateway := newTestBridge(t)

		client.deliver(t, bridge.SetPositionTopic, "10001")
		client.deliver(t, bridge.SetPositionTopic, "-1")
		client.deliver(t, bridge.SetPositionTopic, "nonsense")

		angle, category := gateway.Position()
		assert.Equal(t, 90, angle)
		assert.Equal(t, vent.CategoryClosed, category)
	})
}

func TestBridgeCrossAdapterVisibility(t *testing.T) {
	// A command issued directly on the gateway (as the CoAP front-end
	// does) must surface on the MQTT attributes without any MQTT action.
	bridge, client, gateway := newTestBridge(t)

	_, err := gateway.SetTarget(135)
	require.NoError(t, err)
	for i := 0; i < 45; i++ {
		require.NoError(t, gateway.Tick())
	}

	assert.Equal(t, "partial", client.last(bridge.StateTopic))
	assert.Equal(t, "5000", client.last(bridge.PositionTopic))
}

func TestHACoverDiscovery(t *testing.T) {
	bridge, client, _ := newTestBridge(t)

	cover := NewHACoverFromBridge(bridge, "aa:bb:cc:ff:fe:dd:ee:ff")
	assert.Equal(t, bridge.StateTopic, cover.StateTopic)
	assert.Equal(t, ScaleOpen, cover.PositionOpen)
	assert.Equal(t, ScaleClosed, cover.PositionClosed)

	require.NoError(t, PublishHAAutoDiscovery(client, "homeassistant", cover))
	payload := client.last("homeassistant/cover/ventd/vent_living/config")
	assert.Contains(t, payload, `"pos_open":0`)
	assert.Contains(t, payload, `"pos_clsd":10000`)
	assert.Contains(t, payload, `"device_class":"damper"`)
}
