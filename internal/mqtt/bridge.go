// Package mqtt is the cluster-attribute front-end: vent position and
// category are published as retained attributes, and lift commands come
// back in on the set topics. Everything funnels through the gateway, so
// a command arriving here is immediately visible to the CoAP front-end
// and vice versa.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/thermovent/ventd/internal/vent"
)

const (
	mqttOpenCmd  = "open"
	mqttCloseCmd = "close"
	mqttStopCmd  = "stop"
)

type Bridge struct {
	mqtt    paho.Client
	gateway *vent.Gateway

	StateTopic    string
	PositionTopic string
	MetadataTopic string

	CommandTopic     string
	SetPositionTopic string
}

func NewBridge(mqtt paho.Client, gateway *vent.Gateway) *Bridge {
	bridge := &Bridge{mqtt: mqtt, gateway: gateway}
	bridge.StateTopic = fmt.Sprintf("ventd/%s/state", gateway.Name())
	bridge.PositionTopic = fmt.Sprintf("ventd/%s/position", gateway.Name())
	bridge.MetadataTopic = fmt.Sprintf("ventd/%s/metadata", gateway.Name())
	bridge.CommandTopic = fmt.Sprintf("ventd/%s/set", gateway.Name())
	bridge.SetPositionTopic = fmt.Sprintf("ventd/%s/position/set", gateway.Name())

	gateway.Subscribe(bridge.onVentUpdateHandler())

	return bridge
}

func (b *Bridge) SetMetadata(value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if token := b.mqtt.Publish(b.MetadataTopic, 0, true, payload); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "%s: MQTT metadata publish failed", b.gateway.Name())
	}

	return nil
}

func (b *Bridge) Subscribe(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		if token := b.mqtt.Unsubscribe(b.SetPositionTopic, b.CommandTopic); token.Wait() && token.Error() != nil {
			logrus.Errorf("%s: MQTT topics unsubscribe failed: %s", b.gateway.Name(), token.Error())
		}
	}()

	if token := b.mqtt.Subscribe(b.CommandTopic, 0, b.onCommandHandler()); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "%s: MQTT command topic subscription failed", b.gateway.Name())
	}
	logrus.Infof("%s: MQTT command topic subscribed", b.gateway.Name())
	if token := b.mqtt.Subscribe(b.SetPositionTopic, 0, b.onSetPositionHandler()); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "%s: MQTT position set topic subscription failed", b.gateway.Name())
	}
	logrus.Infof("%s: MQTT position set topic subscribed", b.gateway.Name())

	// Publish the recovered state so attribute readers converge without
	// waiting for the next move.
	angle, category := b.gateway.Position()
	b.publish(angle, category)

	return nil
}

func (b *Bridge) onVentUpdateHandler() vent.UpdateHandler {
	return func(angle int, category vent.Category) {
		b.publish(angle, category)
	}
}

func (b *Bridge) publish(angle int, category vent.Category) {
	if token := b.mqtt.Publish(b.StateTopic, 0, true, category.String()); token.Wait() && token.Error() != nil {
		logrus.Errorf("%s: MQTT state publish failed: %s", b.gateway.Name(), token.Error())
	}
	scale := strconv.Itoa(AngleToScale(angle))
	if token := b.mqtt.Publish(b.PositionTopic, 0, true, scale); token.Wait() && token.Error() != nil {
		logrus.Errorf("%s: MQTT position publish failed: %s", b.gateway.Name(), token.Error())
	}
}

func (b *Bridge) onCommandHandler() paho.MessageHandler {
	return func(c paho.Client, msg paho.Message) {
		var err error
		cmd := string(msg.Payload())
		switch cmd {
		case mqttOpenCmd:
			_, err = b.gateway.SetTarget(vent.AngleOpen)
		case mqttCloseCmd:
			_, err = b.gateway.SetTarget(vent.AngleClosed)
		case mqttStopCmd:
			_, err = b.gateway.Stop()
		default:
			logrus.Errorf("%s: MQTT unsupported %s command received", b.gateway.Name(), cmd)
			return
		}
		if err != nil {
			logrus.Errorf("%s: MQTT %s command failed: %s", b.gateway.Name(), cmd, err)
		}
	}
}

func (b *Bridge) onSetPositionHandler() paho.MessageHandler {
	return func(c paho.Client, msg paho.Message) {
		scale, err := strconv.Atoi(string(msg.Payload()))
		if err != nil {
			logrus.Errorf("%s: MQTT position set: %s", b.gateway.Name(), err)
			return
		}
		if scale < ScaleOpen || scale > ScaleClosed {
			// Raw external input is rejected here, not silently clamped.
			logrus.Errorf("%s: MQTT position set: %d is out of range [%d, %d]", b.gateway.Name(), scale, ScaleOpen, ScaleClosed)
			return
		}
		if _, err := b.gateway.SetTarget(ScaleToAngle(scale)); err != nil {
			logrus.Errorf("%s: MQTT position set failed: %s", b.gateway.Name(), err)
		}
	}
}
