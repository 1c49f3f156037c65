package coap

import (
	"bytes"

	coap "github.com/plgd-dev/go-coap/v3"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/mux"
	"github.com/sirupsen/logrus"

	"github.com/thermovent/ventd/internal/device"
	"github.com/thermovent/ventd/internal/vent"
)

// Server exposes the vent gateway and device metadata as a CoAP resource
// tree. All position mutations go through the gateway, which serializes
// them against the other protocol front-end.
type Server struct {
	gateway *vent.Gateway
	dev     *device.Device
}

func NewServer(gateway *vent.Gateway, dev *device.Device) *Server {
	return &Server{gateway: gateway, dev: dev}
}

// ListenAndServe blocks serving UDP CoAP on addr.
func (s *Server) ListenAndServe(addr string) error {
	r := mux.NewRouter()
	if err := r.Handle("/vent/position", s.handler(s.ventPosition)); err != nil {
		return err
	}
	if err := r.Handle("/vent/target", s.handler(s.ventTarget)); err != nil {
		return err
	}
	if err := r.Handle("/vent/stop", s.handler(s.ventStop)); err != nil {
		return err
	}
	if err := r.Handle("/device/identity", s.handler(s.deviceIdentity)); err != nil {
		return err
	}
	if err := r.Handle("/device/config", s.handler(s.deviceConfig)); err != nil {
		return err
	}
	if err := r.Handle("/device/health", s.handler(s.deviceHealth)); err != nil {
		return err
	}

	logrus.Infof("coap: listening on %s", addr)
	return coap.ListenAndServe("udp", addr, r)
}

// resourceFunc is a transport-independent resource handler, routed by
// CoAP method code.
type resourceFunc func(method codes.Code, payload []byte) (codes.Code, []byte)

func (s *Server) handler(resource resourceFunc) mux.Handler {
	return mux.HandlerFunc(func(w mux.ResponseWriter, r *mux.Message) {
		var payload []byte
		if body, err := r.ReadBody(); err == nil {
			payload = body
		}

		code, response := resource(r.Code(), payload)
		if err := w.SetResponse(code, message.AppCBOR, bytes.NewReader(response)); err != nil {
			logrus.Errorf("coap: response failed: %s", err)
		}
	})
}

func (s *Server) ventPosition(method codes.Code, _ []byte) (codes.Code, []byte) {
	if method != codes.GET {
		return codes.MethodNotAllowed, nil
	}

	angle, category := s.gateway.Position()
	return content(Position{Angle: angle, State: stateCode(category)})
}

func (s *Server) ventTarget(method codes.Code, payload []byte) (codes.Code, []byte) {
	if method != codes.PUT {
		return codes.MethodNotAllowed, nil
	}

	var req TargetRequest
	if err := decode(payload, &req); err != nil {
		return codes.BadRequest, nil
	}

	clamped := vent.ClampAngle(req.Angle)
	previous, err := s.gateway.SetTarget(clamped)
	if err != nil {
		logrus.Errorf("coap: set target failed: %s", err)
		return codes.InternalServerError, nil
	}

	_, category := s.gateway.Position()
	code, body := content(TargetResponse{
		Angle:         clamped,
		State:         stateCode(category),
		PreviousAngle: previous,
	})
	if code != codes.Content {
		return code, body
	}
	return codes.Changed, body
}

func (s *Server) ventStop(method codes.Code, _ []byte) (codes.Code, []byte) {
	if method != codes.PUT {
		return codes.MethodNotAllowed, nil
	}

	angle, err := s.gateway.Stop()
	if err != nil {
		logrus.Errorf("coap: stop failed: %s", err)
		return codes.InternalServerError, nil
	}

	_, category := s.gateway.Position()
	code, body := content(Position{Angle: angle, State: stateCode(category)})
	if code != codes.Content {
		return code, body
	}
	return codes.Changed, body
}

func (s *Server) deviceIdentity(method codes.Code, _ []byte) (codes.Code, []byte) {
	if method != codes.GET {
		return codes.MethodNotAllowed, nil
	}

	return content(Identity{
		EUI64:           s.dev.EUI64(),
		FirmwareVersion: device.Version,
		UptimeS:         s.dev.UptimeSeconds(),
	})
}

func (s *Server) deviceConfig(method codes.Code, payload []byte) (codes.Code, []byte) {
	switch method {
	case codes.GET:
		return s.readConfig(codes.Content)
	case codes.PUT:
		var cfg Config
		if err := decode(payload, &cfg); err != nil {
			return codes.BadRequest, nil
		}
		update := device.Config{}
		if cfg.Room != nil {
			update.Room = *cfg.Room
		}
		if cfg.Floor != nil {
			update.Floor = *cfg.Floor
		}
		if cfg.Name != nil {
			update.Name = *cfg.Name
		}
		if err := s.dev.SetConfig(update); err != nil {
			logrus.Errorf("coap: config update failed: %s", err)
			return codes.InternalServerError, nil
		}
		return s.readConfig(codes.Changed)
	}
	return codes.MethodNotAllowed, nil
}

func (s *Server) readConfig(ok codes.Code) (codes.Code, []byte) {
	cfg, err := s.dev.Config()
	if err != nil {
		logrus.Errorf("coap: config read failed: %s", err)
		return codes.InternalServerError, nil
	}

	out := Config{}
	if cfg.Room != "" {
		out.Room = &cfg.Room
	}
	if cfg.Floor != "" {
		out.Floor = &cfg.Floor
	}
	if cfg.Name != "" {
		out.Name = &cfg.Name
	}

	code, body := content(out)
	if code != codes.Content {
		return code, body
	}
	return ok, body
}

func (s *Server) deviceHealth(method codes.Code, _ []byte) (codes.Code, []byte) {
	if method != codes.GET {
		return codes.MethodNotAllowed, nil
	}

	h := s.dev.Health()
	out := Health{
		RSSI:         h.RSSI,
		PollPeriodMs: h.PollPeriodMs,
		PowerSource:  uint8(h.Power),
		FreeHeap:     h.FreeHeap,
	}
	if h.BatteryMV > 0 {
		out.BatteryMV = &h.BatteryMV
	}
	return content(out)
}

func content(v interface{}) (codes.Code, []byte) {
	body, err := encode(v)
	if err != nil {
		logrus.Errorf("coap: encode failed: %s", err)
		return codes.InternalServerError, nil
	}
	return codes.Content, body
}
