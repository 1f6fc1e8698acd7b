package systems

import (
	"testing"

	"github.com/pthm-cable/formica/components"
)

func TestAging_RemovesExpiredNonPlayer(t *testing.T) {
	f := newColonyFixture(ResetToZero)
	old := f.addAgent(100, 100, false)
	young := f.addAgent(200, 100, false)
	player := f.addAgent(300, 100, true)

	_, _, _, _, _, _, oldAge, _, _ := f.agent(old)
	oldAge.Current = 59.95
	_, _, _, _, _, _, playerAge, _, _ := f.agent(player)
	playerAge.Current = 59.95

	removed := f.aging.Update(0.1)

	if f.w.Alive(old) {
		t.Error("expired non-player agent still alive")
	}
	if len(removed) != 1 || removed[0] != 1 {
		t.Errorf("removed ids = %v, want [1]", removed)
	}
	if !f.w.Alive(young) {
		t.Error("young agent removed")
	}
	if !f.w.Alive(player) {
		t.Fatal("player agent removed")
	}
	_, _, _, _, _, _, playerAge, _, _ = f.agent(player)
	if playerAge.Current != playerAge.Max {
		t.Errorf("player age = %v, want clamped at %v", playerAge.Current, playerAge.Max)
	}

	// Player survives any number of further ticks.
	for i := 0; i < 100; i++ {
		f.aging.Update(1)
	}
	if !f.w.Alive(player) {
		t.Error("player agent removed after repeated aging")
	}
}

func TestAging_AdvancesByRate(t *testing.T) {
	f := newColonyFixture(ResetToZero)
	f.aging.Rate = 2
	e := f.addAgent(100, 100, false)

	f.aging.Update(0.25)

	_, _, _, _, _, _, age, _, _ := f.agent(e)
	if !approx(float64(age.Current), 0.5, 1e-6) {
		t.Errorf("age = %v, want 0.5", age.Current)
	}
}

func TestAge_Expired(t *testing.T) {
	tests := []struct {
		age  components.Age
		want bool
	}{
		{components.Age{Current: 0, Max: 60}, false},
		{components.Age{Current: 59.99, Max: 60}, false},
		{components.Age{Current: 60, Max: 60}, true},
		{components.Age{Current: 75, Max: 60}, true},
	}
	for _, tt := range tests {
		if got := tt.age.Expired(); got != tt.want {
			t.Errorf("Age%+v.Expired() = %v, want %v", tt.age, got, tt.want)
		}
	}
}
