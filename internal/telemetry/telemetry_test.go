package telemetry

import (
	"math/rand"
	"testing"
	"time"
)

func fixedCache(start time.Time) (*Cache, *time.Time) {
	now := start
	c := NewCache()
	c.now = func() time.Time { return now }
	c.rng = rand.New(rand.NewSource(1))
	c.state = DefaultState()
	c.state.Timestamp = start.Unix()
	return c, &now
}

func TestPushDefaultsAndUnknownKeys(t *testing.T) {
	c, _ := fixedCache(time.Unix(1000, 0))

	st := c.Push([]byte(`{"mode":"manuel","motor_power":42,"invente":true}`))
	if st.Mode != ModeManual {
		t.Fatalf("expected mode manuel got %q", st.Mode)
	}
	if st.MotorPower != 42 {
		t.Fatalf("expected motor_power 42 got %v", st.MotorPower)
	}
	// Missing keys fall back to the defaults, not to zero values.
	if st.Battery != 100 {
		t.Fatalf("expected default battery 100 got %v", st.Battery)
	}
	if st.Timestamp != 1000 {
		t.Fatalf("expected server timestamp 1000 got %d", st.Timestamp)
	}
	if st.Track == nil || st.Alerts == nil {
		t.Fatalf("expected non-nil track and alerts")
	}
}

func TestPushInvalidJSONResetsToDefaults(t *testing.T) {
	c, _ := fixedCache(time.Unix(1000, 0))
	c.Push([]byte(`{"battery":50}`))

	st := c.Push([]byte(`{not json`))
	if st.Battery != 100 || st.Mode != ModeSimulated {
		t.Fatalf("expected defaults after invalid push, got battery=%v mode=%q", st.Battery, st.Mode)
	}
}

func TestPullAdvancesSimulation(t *testing.T) {
	c, now := fixedCache(time.Unix(1000, 0))
	c.state.MotorPower = 50

	*now = now.Add(5 * time.Second)
	st := c.Pull()

	if st.Timestamp != now.Unix() {
		t.Fatalf("expected timestamp refreshed to %d got %d", now.Unix(), st.Timestamp)
	}
	if st.Battery > 100 || st.Battery < 0 {
		t.Fatalf("battery out of range: %v", st.Battery)
	}
	if st.Battery == 100 {
		t.Fatalf("expected battery drained below 100")
	}
	if st.Ranging < rangingMin || st.Ranging > rangingMax {
		t.Fatalf("ranging out of range: %v", st.Ranging)
	}
	if st.BatteryVoltage < minVoltage || st.BatteryVoltage > maxVoltage {
		t.Fatalf("voltage out of range: %v", st.BatteryVoltage)
	}

	// Battery never goes up across successive pulls.
	prev := st.Battery
	for i := 0; i < 10; i++ {
		*now = now.Add(2 * time.Second)
		st = c.Pull()
		if st.Battery > prev {
			t.Fatalf("battery rose from %v to %v", prev, st.Battery)
		}
		prev = st.Battery
	}
}

func TestPullFreshSlotDoesNotAdvance(t *testing.T) {
	c, _ := fixedCache(time.Unix(1000, 0))
	before := c.state
	st := c.Pull()
	if st.Battery != before.Battery || st.Distance != before.Distance {
		t.Fatalf("fresh slot advanced: %+v", st)
	}
}

func TestPullManualModeNeverAdvances(t *testing.T) {
	c, now := fixedCache(time.Unix(1000, 0))
	c.Push([]byte(`{"mode":"manuel","speed":12.5,"battery":80}`))

	*now = now.Add(time.Minute)
	st := c.Pull()
	if st.Speed != 12.5 || st.Battery != 80 {
		t.Fatalf("manual state advanced: speed=%v battery=%v", st.Speed, st.Battery)
	}
}

func TestPullReturnsCopy(t *testing.T) {
	c, _ := fixedCache(time.Unix(1000, 0))
	c.Push([]byte(`{"track":[[1,2],[3,4]],"alerts":["x"]}`))

	st := c.Pull()
	st.Track[0] = Point{9, 9}
	st.Alerts[0] = "modifié"

	again := c.Pull()
	if again.Track[0] != (Point{1, 2}) || again.Alerts[0] != "x" {
		t.Fatalf("pull leaked internal slices: %+v", again)
	}
}

func TestLowBatteryAlert(t *testing.T) {
	c, now := fixedCache(time.Unix(1000, 0))
	c.state.Battery = lowBatteryAlert - 1
	c.state.MotorPower = 10

	*now = now.Add(2 * time.Second)
	st := c.Pull()
	if len(st.Alerts) == 0 {
		t.Fatalf("expected low battery alert")
	}
}
