package helm_test

import (
	"sync"
	"testing"

	"github.com/MrWong99/helmsman/internal/helm"
)

func TestMerge_PresentFieldsReplace(t *testing.T) {
	state := helm.ShipState{RudderAngle: -10, Course: 90, Speed: 50}

	got := helm.Merge(state, helm.StateDelta{
		RudderAngle: intPtr(15),
		Course:      floatPtr(270),
		Speed:       intPtr(-25),
	})

	want := helm.ShipState{RudderAngle: 15, Course: 270, Speed: -25}
	if got != want {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}
}

func TestMerge_AbsentFieldsCarryOver(t *testing.T) {
	state := helm.ShipState{RudderAngle: -10, Course: 90, Speed: 50}

	got := helm.Merge(state, helm.StateDelta{Speed: intPtr(80)})

	want := helm.ShipState{RudderAngle: -10, Course: 90, Speed: 80}
	if got != want {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}
}

func TestMerge_ExplicitZeroIsNotNoChange(t *testing.T) {
	state := helm.ShipState{RudderAngle: 20, Course: 180, Speed: 60}

	// "Rudder amidships" and "all stop" are real orders, not omissions.
	got := helm.Merge(state, helm.StateDelta{RudderAngle: intPtr(0), Speed: intPtr(0)})

	want := helm.ShipState{RudderAngle: 0, Course: 180, Speed: 0}
	if got != want {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}
}

func TestMerge_IsPure(t *testing.T) {
	state := helm.ShipState{Course: 45}
	_ = helm.Merge(state, helm.StateDelta{Course: floatPtr(90)})

	if state.Course != 45 {
		t.Errorf("Merge mutated its input: Course = %v, want 45", state.Course)
	}
}

func TestStateDelta_IsZero(t *testing.T) {
	if !(helm.StateDelta{}).IsZero() {
		t.Error("empty delta should be zero")
	}
	if (helm.StateDelta{RudderAngle: intPtr(0)}).IsZero() {
		t.Error("delta with explicit rudder 0 should not be zero")
	}
	if (helm.StateDelta{Course: floatPtr(0)}).IsZero() {
		t.Error("delta with explicit course 0 should not be zero")
	}
	if (helm.StateDelta{Speed: intPtr(0)}).IsZero() {
		t.Error("delta with explicit speed 0 should not be zero")
	}
}

func TestStateStore_StartsAtZero(t *testing.T) {
	store := helm.NewStateStore()

	if got := store.Current(); got != (helm.ShipState{}) {
		t.Errorf("Current() = %+v, want zero state", got)
	}
}

func TestStateStore_ApplyAndReset(t *testing.T) {
	store := helm.NewStateStore()

	got := store.Apply(helm.StateDelta{RudderAngle: intPtr(-35), Speed: intPtr(110)})
	want := helm.ShipState{RudderAngle: -35, Speed: 110}
	if got != want {
		t.Errorf("Apply() = %+v, want %+v", got, want)
	}
	if cur := store.Current(); cur != want {
		t.Errorf("Current() = %+v, want %+v", cur, want)
	}

	store.Reset()
	if cur := store.Current(); cur != (helm.ShipState{}) {
		t.Errorf("Current() after Reset = %+v, want zero state", cur)
	}
}

func TestStateStore_ConcurrentReads(t *testing.T) {
	store := helm.NewStateStore()
	store.Apply(helm.StateDelta{Course: floatPtr(180)})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := store.Current().Course; got != 180 {
				t.Errorf("Current().Course = %v, want 180", got)
			}
		}()
	}
	wg.Wait()
}
