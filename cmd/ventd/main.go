package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/thermovent/ventd/internal/coap"
	"github.com/thermovent/ventd/internal/device"
	"github.com/thermovent/ventd/internal/mqtt"
	"github.com/thermovent/ventd/internal/store"
	"github.com/thermovent/ventd/internal/vent"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors: false,
		FullTimestamp: true,
	})

	configPath := flag.String("config", "config.yaml", "config.yaml file path")
	flag.Parse()

	if err := configLoader.Load(); err != nil {
		logrus.Fatal(err)
	}
	loadConfigFromYamlFile(*configPath)

	level, err := logrus.ParseLevel(Cfg.LogLevel)
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.SetLevel(level)

	logrus.Infof("ventd %s", device.Version)

	ctx, cancel := context.WithCancel(context.Background())

	db, err := store.OpenBolt(Cfg.Store.Path)
	if err != nil {
		logrus.Fatal(err)
	}
	defer db.Close()

	ventStore, err := store.NewBolt(db, "vent")
	if err != nil {
		logrus.Fatal(err)
	}
	deviceStore, err := store.NewBolt(db, "device")
	if err != nil {
		logrus.Fatal(err)
	}

	dev, err := device.New(deviceStore)
	if err != nil {
		logrus.Fatal(err)
	}
	if Cfg.Power.Mode == "sed" {
		dev.Power = device.PowerBattery
		dev.PollPeriodMs = Cfg.Power.PollPeriodMs
	}

	// Recovery happens here: the vent cannot accept commands without its
	// durable position record.
	gateway, err := vent.NewGateway(Cfg.Vent.Name, vent.NewLog(ventStore), driverFromConfig(ctx, Cfg.Vent))
	if err != nil {
		logrus.Fatal(err)
	}

	go gateway.Run(ctx, Cfg.Vent.StepInterval)

	if Cfg.MQTT.Enabled {
		startMQTT(ctx, gateway, dev)
	}

	if Cfg.CoAP.Enabled {
		server := coap.NewServer(gateway, dev)
		go func() {
			if err := server.ListenAndServe(Cfg.CoAP.Listen); err != nil {
				logrus.Fatal(err)
			}
		}()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		oscall := <-c
		log.Printf("system call:%+v", oscall)
		cancel()
	}()

	<-ctx.Done()

	cleanupTime := time.Second
	logrus.Infof("cleanups for %s...", cleanupTime.String())
	time.Sleep(cleanupTime)
}

func startMQTT(ctx context.Context, gateway *vent.Gateway, dev *device.Device) {
	var bridge *mqtt.Bridge
	opts := pahoOptsFromConfig()
	opts.OnConnect = func(m paho.Client) {
		logrus.Info("MQTT broker connected")
		if bridge != nil {
			subscribe(ctx, m, bridge, dev)
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logrus.Errorf("MQTT broker connection lost: %s", err.Error())
	}

	m := paho.NewClient(opts)
	if token := m.Connect(); token.Wait() && token.Error() != nil {
		logrus.Fatal(token.Error())
	}

	bridge = mqtt.NewBridge(m, gateway)
	if err := bridge.SetMetadata(metadataFromDevice(dev)); err != nil {
		logrus.Error(err)
	}
	subscribe(ctx, m, bridge, dev)
}

func subscribe(ctx context.Context, m paho.Client, bridge *mqtt.Bridge, dev *device.Device) {
	if Cfg.HASS.Enabled {
		entity := mqtt.NewHACoverFromBridge(bridge, dev.EUI64())
		if err := mqtt.PublishHAAutoDiscovery(m, Cfg.HASS.TopicPrefix, entity); err != nil {
			logrus.Fatal(err)
		}
	}

	if err := bridge.Subscribe(ctx); err != nil {
		logrus.Error(err)
	}
}

func metadataFromDevice(dev *device.Device) map[string]interface{} {
	metadata := map[string]interface{}{
		"eui64":    dev.EUI64(),
		"firmware": device.Version,
	}
	for k, v := range Cfg.Vent.Metadata {
		metadata[k] = v
	}

	cfg, err := dev.Config()
	if err != nil {
		logrus.Errorf("device: config read failed: %s", err)
		return metadata
	}
	if cfg.Room != "" {
		metadata["room"] = cfg.Room
	}
	if cfg.Floor != "" {
		metadata["floor"] = cfg.Floor
	}

	return metadata
}
