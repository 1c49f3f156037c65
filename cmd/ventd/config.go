package main

import (
	"context"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/racerxdl/go-mcp23017"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/thermovent/ventd/internal/vent"
	"github.com/thermovent/ventd/internal/vent/driver/servo"
)

type cfgSerialServo struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud" default:"9600"`
}

type cfgWiredServo struct {
	Pin      uint8 `yaml:"pin"`
	Mcp23017 struct {
		Bus          uint8 `yaml:"bus" default:"1"`
		DeviceNumber uint8 `yaml:"device_number" default:"0"`
	} `yaml:"mcp23017"`
}

type cfgDriver struct {
	Kind string `yaml:"kind" default:"dumb"`

	Serial cfgSerialServo `yaml:"serial"`
	Wired  cfgWiredServo  `yaml:"wired"`
}

type cfgVent struct {
	Name         string        `yaml:"name" default:"vent"`
	StepInterval time.Duration `yaml:"step_interval" default:"15ms"`

	Driver cfgDriver `yaml:"driver"`

	Metadata map[string]interface{} `yaml:"metadata"`
}

type cfgStore struct {
	Path string `yaml:"path" default:"ventd.db" env:"PATH"`
}

type cfgMQTT struct {
	Enabled  bool   `yaml:"enabled" default:"true" env:"ENABLED"`
	ClientID string `yaml:"client_id" default:"ventd" env:"CLIENT_ID"`
	Broker   string `yaml:"broker" default:"127.0.0.1:1883" env:"BROKER"`
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
}

type cfgHASS struct {
	Enabled     bool   `yaml:"enabled" default:"true" env:"ENABLED"`
	TopicPrefix string `yaml:"topic_prefix" default:"homeassistant" env:"TOPIC_PREFIX"`
}

type cfgCoAP struct {
	Enabled bool   `yaml:"enabled" default:"true" env:"ENABLED"`
	Listen  string `yaml:"listen" default:":5683" env:"LISTEN"`
}

type cfgPower struct {
	Mode         string `yaml:"mode" default:"always_on" env:"MODE"`
	PollPeriodMs int    `yaml:"poll_period_ms" default:"5000" env:"POLL_PERIOD_MS"`
}

var Cfg struct {
	LogLevel string `yaml:"log_level" default:"info" env:"LOG_LEVEL"`

	Store cfgStore `yaml:"store" env:"STORE"`
	MQTT  cfgMQTT  `yaml:"mqtt" env:"MQTT"`
	HASS  cfgHASS  `yaml:"hass" env:"HASS"`
	CoAP  cfgCoAP  `yaml:"coap" env:"COAP"`
	Power cfgPower `yaml:"power" env:"POWER"`

	Vent cfgVent `yaml:"vent"`
}

var configLoader = aconfig.LoaderFor(&Cfg, aconfig.Config{
	EnvPrefix: "VENTD",
})

func loadConfigFromYamlFile(filename string) {
	f, err := os.Open(filename)
	if err != nil {
		logrus.Error(err)
		return
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&Cfg); err != nil {
		logrus.Fatal(err)
		return
	}
}

func pahoOptsFromConfig() *paho.ClientOptions {
	return paho.NewClientOptions().
		SetClientID(Cfg.MQTT.ClientID).
		AddBroker(Cfg.MQTT.Broker).
		SetUsername(Cfg.MQTT.Username).
		SetPassword(Cfg.MQTT.Password).
		SetConnectTimeout(time.Second).
		SetPingTimeout(time.Second).
		SetWriteTimeout(time.Second).
		SetAutoReconnect(true)
}

func driverFromConfig(ctx context.Context, cfg cfgVent) vent.Driver {
	switch cfg.Driver.Kind {
	case "serial":
		driver, err := servo.OpenSerial(cfg.Name, cfg.Driver.Serial.Port, cfg.Driver.Serial.Baud)
		if err != nil {
			logrus.Fatal(err)
		}
		return driver

	case "wired":
		device := mcp23017DeviceFromConfig(ctx, cfg.Driver.Wired)
		pin, err := servo.NewMcp23017Pin(device, cfg.Driver.Wired.Pin)
		if err != nil {
			logrus.Fatal(err)
		}
		driver := servo.NewWired(cfg.Name, pin)
		go func() {
			<-ctx.Done()
			driver.Close()
		}()
		return driver

	case "dumb":
		return &servo.Dumb{Name: cfg.Name}
	}

	logrus.Fatalf("%s is not supported servo driver kind", cfg.Driver.Kind)
	return nil
}

func mcp23017DeviceFromConfig(ctx context.Context, cfg cfgWiredServo) *mcp23017.Device {
	dev, err := mcp23017.Open(cfg.Mcp23017.Bus, cfg.Mcp23017.DeviceNumber)
	if err != nil {
		logrus.Fatal(err)
	}
	go func() {
		<-ctx.Done()
		if err := dev.Close(); err != nil {
			logrus.Errorf("mcp23017: close failed %s", err)
			return
		}

		logrus.Infof("mcp23017: close")
	}()
	if err := dev.Reset(); err != nil {
		logrus.Fatal(err)
	}

	return dev
}
