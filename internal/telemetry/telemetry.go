// Package telemetry keeps the last known vehicle state in a single
// process-wide slot with a push/pull contract. When no real pushes arrive
// and the vehicle is in simulated mode, pulls advance a small demo
// simulation so the dashboard stays alive.
package telemetry

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"
)

// Operating modes as they appear on the wire.
const (
	ModeSimulated = "simu"
	ModeManual    = "manuel"
	ModeAutomatic = "auto"
)

// Point is one 2-D track coordinate, serialized as [x, y].
type Point [2]float64

// State is the full telemetry payload. Pushes rebuild it wholesale: every
// missing key falls back to the default value below, unknown keys are
// dropped by the JSON decoder.
type State struct {
	Timestamp  int64   `json:"timestamp"`
	Mode       string  `json:"mode"` // simu | manuel | auto
	Track      []Point `json:"track"`
	Speed      float64 `json:"speed"`       // km/h
	Distance   float64 `json:"distance"`    // m
	Battery    float64 `json:"battery"`     // %
	Energy     float64 `json:"energy"`      // Wh
	MotorPower float64 `json:"motor_power"` // %
	// Ranging is the forward distance sensor reading in cm. The wire key
	// predates the sensor swap and stayed "telemetry".
	Ranging  float64  `json:"telemetry"`
	Encoders float64  `json:"encoders"` // cumulative ticks
	Alerts   []string `json:"alerts"`

	BatteryVoltage float64 `json:"battery_voltage"` // V
	BatteryTemp    float64 `json:"battery_temp"`    // °C
	Current        float64 `json:"current"`         // A
	MotorSpeed     float64 `json:"motor_speed"`     // km/h
	MotorTemp      float64 `json:"motor_temp"`      // °C
}

// Simulation constants. Demo realism only, not a physical model.
const (
	simInterval = time.Second // minimum age before a pull advances the simulation

	drainPerPowerSecond = 0.0005 // battery % lost per motor-power % per second
	motorChangeChance   = 0.3    // per-tick probability of new random motor values
	maxMotorPower       = 100.0  // %
	maxMotorSpeed       = 30.0   // km/h

	minVoltage = 10.5 // V at 0 % battery
	maxVoltage = 12.6 // V at 100 % battery

	batteryTempBase = 20.0 // °C when full
	batteryTempRise = 0.15 // °C per % discharged
	motorTempBase   = 25.0 // °C idle
	motorTempRise   = 0.4  // °C per motor-power %
	currentPerPower = 0.12 // A per motor-power %

	rangingMin = 10.0  // cm
	rangingMax = 210.0 // cm

	lowBatteryAlert = 15.0 // % below which the low-battery alert is raised
)

// DefaultState returns the payload the slot starts from and that every
// push is rebuilt against.
func DefaultState() State {
	return State{
		Mode:           ModeSimulated,
		Track:          []Point{},
		Battery:        100,
		BatteryVoltage: maxVoltage,
		BatteryTemp:    batteryTempBase,
		MotorTemp:      motorTempBase,
		Alerts:         []string{},
	}
}

// Cache owns the telemetry slot. The composition root creates exactly one
// and hands it to the dashboard handlers; concurrent pushes race with
// last-writer-wins semantics, which is acceptable for a soft-realtime
// display.
type Cache struct {
	mu    sync.Mutex
	state State

	now func() time.Time
	rng *rand.Rand
}

// NewCache initializes the slot with the default payload.
func NewCache() *Cache {
	return &Cache{
		state: DefaultState(),
		now:   time.Now,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Push rebuilds a full payload from the raw JSON body and replaces the
// slot. Missing keys take the default payload's values, unknown keys are
// discarded, and the server stamps the current time. Invalid JSON counts
// as an empty push. Push never fails.
func (c *Cache) Push(raw []byte) State {
	st := DefaultState()
	if json.Valid(raw) {
		// Decoding over the defaults gives the key-wise fallback contract.
		_ = json.Unmarshal(raw, &st)
	}
	if st.Track == nil {
		st.Track = []Point{}
	}
	if st.Alerts == nil {
		st.Alerts = []string{}
	}
	st.Timestamp = c.now().Unix()

	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
	return st
}

// Pull returns the current slot. In simulated mode, a slot older than one
// second is advanced first so an idle demo keeps moving.
func (c *Cache) Pull() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.state.Mode == ModeSimulated {
		if elapsed := now.Sub(time.Unix(c.state.Timestamp, 0)); elapsed > simInterval {
			c.advance(elapsed.Seconds())
			c.state.Timestamp = now.Unix()
		}
	}
	return c.state.clone()
}

// advance runs one simulation tick covering dt seconds. Caller holds mu.
func (c *Cache) advance(dt float64) {
	s := &c.state

	if c.rng.Float64() < motorChangeChance {
		s.MotorPower = c.rng.Float64() * maxMotorPower
		s.MotorSpeed = c.rng.Float64() * maxMotorSpeed
	}

	s.Battery -= s.MotorPower * drainPerPowerSecond * dt
	if s.Battery < 0 {
		s.Battery = 0
	}
	s.BatteryVoltage = minVoltage + s.Battery/100*(maxVoltage-minVoltage)
	s.BatteryTemp = batteryTempBase + (100-s.Battery)*batteryTempRise
	s.MotorTemp = motorTempBase + s.MotorPower*motorTempRise
	s.Current = s.MotorPower * currentPerPower

	s.Speed = s.MotorSpeed
	metres := s.MotorSpeed / 3.6 * dt
	s.Distance += metres
	s.Encoders += metres * 50 // 50 encoder ticks per metre
	s.Energy += s.MotorPower * dt / 3600

	s.Ranging = rangingMin + c.rng.Float64()*(rangingMax-rangingMin)

	if s.Battery < lowBatteryAlert {
		s.Alerts = []string{"batterie faible"}
	} else {
		s.Alerts = []string{}
	}
}

func (s State) clone() State {
	out := s
	out.Track = append([]Point(nil), s.Track...)
	out.Alerts = append([]string(nil), s.Alerts...)
	return out
}
