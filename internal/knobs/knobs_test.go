package knobs

import (
	"math"
	"sync"
	"testing"
)

func TestBankMapsRanges(t *testing.T) {
	r := DefaultRanges()
	r[Attack] = Range{Min: 0.001, Max: 2}
	b := NewBank(r)
	b.Set(Attack, 0.5)
	b.Set(Decay, 0.25)
	b.Set(Sustain, 1)
	b.Set(Release, 0)
	env := b.Envelope()
	if math.Abs(float64(env.Attack)-1.0005) > 1e-5 {
		t.Errorf("attack = %f, want 1.0005", env.Attack)
	}
	if env.Decay != 0.25 {
		t.Errorf("decay = %f, want 0.25", env.Decay)
	}
	if env.Sustain != 1 {
		t.Errorf("sustain = %f, want 1", env.Sustain)
	}
	if env.Release != 0 {
		t.Errorf("release = %f, want 0", env.Release)
	}
}

func TestBankClamps(t *testing.T) {
	b := NewBank(DefaultRanges())
	b.Set(Sustain, 3)
	if v := b.Value(Sustain); v != 1 {
		t.Errorf("value = %f, want 1", v)
	}
	b.Set(Sustain, -1)
	if v := b.Value(Sustain); v != 0 {
		t.Errorf("value = %f, want 0", v)
	}
	b.Set(Sustain, float32(math.NaN()))
	if v := b.Value(Sustain); v != 0 {
		t.Errorf("NaN should clamp to 0, got %f", v)
	}
	b.Set(NumKnobs, 1)
	if v := b.Value(NumKnobs); v != 0 {
		t.Errorf("out-of-range knob = %f, want 0", v)
	}
}

func TestBankSetCC(t *testing.T) {
	b := NewBank(DefaultRanges())
	b.SetCC(Release, 127)
	if v := b.Value(Release); v != 1 {
		t.Errorf("cc 127 = %f, want 1", v)
	}
	b.SetCC(Release, 0)
	if v := b.Value(Release); v != 0 {
		t.Errorf("cc 0 = %f, want 0", v)
	}
}

func TestDefaultCCMap(t *testing.T) {
	m := DefaultCCMap()
	for cc, want := range map[uint8]Knob{73: Attack, 75: Decay, 79: Sustain, 72: Release} {
		if got, ok := m.Lookup(cc); !ok || got != want {
			t.Errorf("cc %d = %v (%v), want %v", cc, got, ok, want)
		}
	}
	if _, ok := m.Lookup(7); ok {
		t.Error("cc 7 should not be mapped")
	}
}

func TestParseKnob(t *testing.T) {
	k, err := ParseKnob(" Sustain ")
	if err != nil || k != Sustain {
		t.Fatalf("ParseKnob = %v, %v", k, err)
	}
	if _, err := ParseKnob("cutoff"); err == nil {
		t.Fatal("expected error for unknown knob")
	}
}

func TestBankConcurrentAccess(t *testing.T) {
	b := NewBank(DefaultRanges())
	var wg sync.WaitGroup
	for k := Attack; k < NumKnobs; k++ {
		wg.Add(1)
		go func(k Knob) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				b.SetCC(k, uint8(i%128))
			}
		}(k)
	}
	for i := 0; i < 1000; i++ {
		env := b.Envelope()
		if env.Sustain < 0 || env.Sustain > 1 {
			t.Fatalf("sustain out of range: %f", env.Sustain)
		}
	}
	wg.Wait()
}

func TestNewBankStartsAtDefaultShape(t *testing.T) {
	b := NewBank(DefaultRanges())
	env := b.Envelope()
	if env.Attack != 1 { // 1.01 s is past the end of the default range
		t.Errorf("attack = %f, want 1", env.Attack)
	}
	if env.Decay != 0.005 || env.Sustain != 0.5 || env.Release != 0.2 {
		t.Errorf("envelope = %+v", env)
	}

	r := DefaultRanges()
	r[Attack] = Range{Min: 0, Max: 4}
	if got := NewBank(r).Envelope().Attack; math.Abs(float64(got)-1.01) > 1e-5 {
		t.Errorf("attack over a wider range = %f, want 1.01", got)
	}
}
