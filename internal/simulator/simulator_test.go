package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/sanifleet/core/geo"
	"github.com/kilianp07/sanifleet/core/model"
)

func TestGenerateFleet(t *testing.T) {
	center := model.NewCoordinates(-1.2921, 36.8219)
	us := GenerateFleet(FleetConfig{Size: 5, Locations: []string{"CBD", "Westlands"}, Center: center, RadiusKm: 3},
		rand.New(rand.NewSource(1)))
	require.Len(t, us, 5)
	assert.Equal(t, "unit0001", us[0].ID)
	assert.Equal(t, "SN-0005", us[4].SerialNo)
	assert.Equal(t, "CBD", us[0].Location)
	assert.Equal(t, "Westlands", us[1].Location)
	for _, u := range us {
		require.True(t, u.Coordinates.Valid())
		assert.LessOrEqual(t, geo.HaversineKm(center, u.Coordinates), 3.01)
		assert.GreaterOrEqual(t, u.Fill, 0.0)
		assert.Less(t, u.Fill, 70.0)
		assert.GreaterOrEqual(t, u.Battery.Get(), 40.0)
	}
	assert.Nil(t, GenerateFleet(FleetConfig{}, rand.New(rand.NewSource(1))))
}

func TestLoadLocations(t *testing.T) {
	locs, err := LoadLocations([]byte(`["Kibera","Karen"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Kibera", "Karen"}, locs)
	_, err = LoadLocations([]byte(`invalid`))
	assert.Error(t, err)
}

func TestBattery(t *testing.T) {
	b := &Battery{Level: 50, DrainPerHour: 10, ChargePerHour: 40}
	assert.Equal(t, 30.0, b.Drain(2*time.Hour))
	assert.Equal(t, 100.0, b.Charge(2*time.Hour))
	assert.Equal(t, 100.0, b.Drain(-time.Hour))
	b.Level = 5
	assert.Equal(t, 0.0, b.Drain(time.Hour))
}

func TestUnitStep_ServiceAndCharge(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	u := &Unit{ID: "u", Fill: 99, UsagePerHour: 10, Battery: &Battery{Level: 10.5, DrainPerHour: 1, ChargePerHour: 50}}
	now := time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)
	require.True(t, u.Step(now, time.Hour, rng))
	assert.Equal(t, 0.0, u.Fill, "full unit is emptied")
	assert.True(t, u.charging)

	u.Step(now.Add(time.Hour), time.Hour, rng)
	assert.InDelta(t, 59.5, u.Battery.Get(), 1e-9)
	u.Step(now.Add(2*time.Hour), time.Hour, rng)
	assert.Equal(t, 100.0, u.Battery.Get())
	assert.False(t, u.charging)

	s := u.Snapshot()
	assert.Equal(t, "2025-06-11T14:00:00Z", s.LastSeen)
}

func TestUnitStep_Offline(t *testing.T) {
	u := &Unit{ID: "u", Battery: &Battery{Level: 80}, DisconnectRate: 1}
	assert.False(t, u.Step(time.Now(), time.Minute, rand.New(rand.NewSource(1))))
	assert.Empty(t, u.Snapshot().LastSeen)
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs map[string][]byte
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.msgs == nil {
		f.msgs = map[string][]byte{}
	}
	f.msgs[topic] = payload
	return nil
}

func TestRunnerTick(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pub := &fakePublisher{}
	r := &Runner{
		Units:     GenerateFleet(FleetConfig{Size: 3}, rng),
		Publisher: pub,
		Prefix:    "sanifleet/units/",
		Rng:       rng,
		Now:       func() time.Time { return time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC) },
	}
	assert.Equal(t, 3, r.Tick(context.Background(), time.Minute))
	require.Contains(t, pub.msgs, "sanifleet/units/unit0002")

	var u model.Unit
	require.NoError(t, json.Unmarshal(pub.msgs["sanifleet/units/unit0002"], &u))
	assert.Equal(t, "unit0002", u.ID)
	assert.Equal(t, "2025-06-11T12:00:00Z", u.LastSeen)

	pub.err = errors.New("broker down")
	assert.Equal(t, 0, r.Tick(context.Background(), time.Minute))
}

func TestRunnerRun_StopsOnCancel(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pub := &fakePublisher{}
	r := &Runner{Units: GenerateFleet(FleetConfig{Size: 1}, rng), Publisher: pub, Prefix: "p", Interval: 10 * time.Millisecond, Rng: rng}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	time.Sleep(35 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Contains(t, pub.msgs, "p/unit0001")
}
