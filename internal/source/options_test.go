package source

import (
	"testing"

	"github.com/sdrforge/gobladerf/bladerf"
	"github.com/sdrforge/gobladerf/internal/logging"
)

func TestConfigureStreamDefaults(t *testing.T) {
	sim := bladerf.NewSim(bladerf.SimConfig{})
	s := newTestSource(t, sim, "")

	if got := s.Channels(); got != 1 {
		t.Fatalf("expected 1 channel by default, got %d", got)
	}
	if got := s.MaxWorkSamples(); got != defaultBufLen {
		t.Fatalf("expected default buffer of %d, got %d", defaultBufLen, got)
	}
	// single packed channel still produces sample pairs
	if got := s.OutputQuantum(); got != 2 {
		t.Fatalf("expected quantum 2, got %d", got)
	}
}

func TestConfigureStreamClampsChannels(t *testing.T) {
	sim := bladerf.NewSim(bladerf.SimConfig{Channels: 1})
	s := newTestSource(t, sim, "channels=4")

	if got := s.Channels(); got != 1 {
		t.Fatalf("expected clamp to the device's 1 channel, got %d", got)
	}
}

func TestConfigureStreamUnknownFormatFallsBack(t *testing.T) {
	sim := bladerf.NewSim(bladerf.SimConfig{})
	s := newTestSource(t, sim, "format=sc8q7")

	// packed8 fallback keeps the pair quantum
	if got := s.OutputQuantum(); got != 2 {
		t.Fatalf("expected packed8 fallback quantum 2, got %d", got)
	}
}

func TestConfigureStreamSC16Quantum(t *testing.T) {
	sim := bladerf.NewSim(bladerf.SimConfig{})
	s := newTestSource(t, sim, "format=sc16q11,channels=1")

	if got := s.OutputQuantum(); got != 1 {
		t.Fatalf("expected quantum 1 for 16-bit single channel, got %d", got)
	}
}

func TestConfigureStreamBuflenRounding(t *testing.T) {
	sim := bladerf.NewSim(bladerf.SimConfig{})
	s := newTestSource(t, sim, "channels=2,buflen=1023")

	if got := s.MaxWorkSamples(); got != 1022 {
		t.Fatalf("expected buffer rounded to 1022, got %d", got)
	}

	if _, err := New(sim, bladerf.ParseArgs("buflen=1"), logging.Discard(), nil); err == nil {
		t.Fatal("expected sub-quantum buffer to be rejected")
	}
}

func TestApplyArgsToleratesMissingBiasTee(t *testing.T) {
	sim := bladerf.NewSim(bladerf.SimConfig{NoBiasTee: true})
	s := newTestSource(t, sim, "biastee=on")

	// the setter path tolerates the same hardware gap
	if err := s.SetBiasTee(0, true); err != nil {
		t.Fatalf("bias-tee on unsupported hardware should warn, got %v", err)
	}
}

func TestApplyArgsUnknownModesFallBack(t *testing.T) {
	sim := bladerf.NewSim(bladerf.SimConfig{})
	// unknown loopback and mux names must not abort initialization
	s := newTestSource(t, sim, "loopback=quantum,rxmux=sideband")

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
}

func TestSetLoopbackRejectsUnknownName(t *testing.T) {
	sim := bladerf.NewSim(bladerf.SimConfig{})
	s := newTestSource(t, sim, "")

	if err := s.SetLoopback("firmware"); err != nil {
		t.Fatalf("known loopback failed: %v", err)
	}
	if err := s.SetLoopback("quantum"); err == nil {
		t.Fatal("expected unknown loopback name to fail")
	}
	if err := s.SetRxMux("12bit"); err != nil {
		t.Fatalf("known rx mux failed: %v", err)
	}
	if err := s.SetRxMux("sideband"); err == nil {
		t.Fatal("expected unknown rx mux name to fail")
	}
}

func TestSettersResolvePortMapping(t *testing.T) {
	sim := bladerf.NewSim(bladerf.SimConfig{})
	s := newTestSource(t, sim, "channels=2")

	if _, err := s.SetFrequency(1, 915e6); err != nil {
		t.Fatalf("set frequency on port 1: %v", err)
	}
	hz, err := s.Frequency(1)
	if err != nil {
		t.Fatalf("frequency on port 1: %v", err)
	}
	if hz != 915e6 {
		t.Fatalf("expected 915 MHz, got %.0f", hz)
	}

	if _, err := s.SetGain(2, 30); err == nil {
		t.Fatal("expected unmapped port to fail")
	}

	bw, err := s.SetBandwidth(0, 4e6)
	if err != nil {
		t.Fatalf("set bandwidth: %v", err)
	}
	if bw != 5e6 {
		t.Fatalf("expected snap to 5 MHz filter, got %.0f", bw)
	}
}

func TestAGCRoundTrip(t *testing.T) {
	sim := bladerf.NewSim(bladerf.SimConfig{})
	s := newTestSource(t, sim, "agc_mode=slow_attack")

	if err := s.SetAGC(0, true); err != nil {
		t.Fatalf("enable agc: %v", err)
	}
	on, err := s.AGC(0)
	if err != nil {
		t.Fatalf("query agc: %v", err)
	}
	if !on {
		t.Fatal("expected automatic gain after SetAGC(true)")
	}

	if err := s.SetAGC(0, false); err != nil {
		t.Fatalf("disable agc: %v", err)
	}
	on, err = s.AGC(0)
	if err != nil {
		t.Fatalf("query agc: %v", err)
	}
	if on {
		t.Fatal("expected manual gain after SetAGC(false)")
	}
}

func TestDCOffsetCorrection(t *testing.T) {
	sim := bladerf.NewSim(bladerf.SimConfig{})
	s := newTestSource(t, sim, "channels=2")

	if err := s.SetDCOffset(0, complex(0.25, -0.5)); err != nil {
		t.Fatalf("set dc offset: %v", err)
	}
	i, err := sim.Correction(0, bladerf.CorrectionDCOffsetI)
	if err != nil {
		t.Fatalf("read trim: %v", err)
	}
	q, err := sim.Correction(0, bladerf.CorrectionDCOffsetQ)
	if err != nil {
		t.Fatalf("read trim: %v", err)
	}
	if i != 512 || q != -1024 {
		t.Fatalf("expected trims 512/-1024, got %d/%d", i, q)
	}

	// off mode resets the trims
	if err := s.SetDCOffsetMode(0, bladerf.CorrectionModeOff); err != nil {
		t.Fatalf("set mode off: %v", err)
	}
	if i, _ = sim.Correction(0, bladerf.CorrectionDCOffsetI); i != 0 {
		t.Fatalf("expected zero trim after off mode, got %d", i)
	}

	// automatic mode is tolerated but changes nothing
	if err := s.SetDCOffsetMode(0, bladerf.CorrectionModeAutomatic); err != nil {
		t.Fatalf("automatic mode should warn, got %v", err)
	}

	if err := s.SetDCOffset(5, 0); err == nil {
		t.Fatal("expected unmapped port to fail")
	}
}

func TestIQBalanceCorrection(t *testing.T) {
	sim := bladerf.NewSim(bladerf.SimConfig{})
	s := newTestSource(t, sim, "")

	if err := s.SetIQBalance(0, complex(0.5, -0.25)); err != nil {
		t.Fatalf("set iq balance: %v", err)
	}
	gain, err := sim.Correction(0, bladerf.CorrectionGain)
	if err != nil {
		t.Fatalf("read trim: %v", err)
	}
	phase, err := sim.Correction(0, bladerf.CorrectionPhase)
	if err != nil {
		t.Fatalf("read trim: %v", err)
	}
	if gain != 2048 || phase != -1024 {
		t.Fatalf("expected trims 2048/-1024, got %d/%d", gain, phase)
	}

	if err := s.SetIQBalanceMode(0, bladerf.CorrectionModeOff); err != nil {
		t.Fatalf("set mode off: %v", err)
	}
	if gain, _ = sim.Correction(0, bladerf.CorrectionGain); gain != 0 {
		t.Fatalf("expected zero trim after off mode, got %d", gain)
	}
	if err := s.SetIQBalanceMode(0, bladerf.CorrectionModeManual); err != nil {
		t.Fatalf("manual mode: %v", err)
	}
}

func TestSetAntennaWhileRunning(t *testing.T) {
	sim := bladerf.NewSim(bladerf.SimConfig{})
	s := newTestSource(t, sim, "buflen=1024")
	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	name, err := s.Antenna(0)
	if err != nil {
		t.Fatalf("antenna query: %v", err)
	}
	if name != "RX1" {
		t.Fatalf("expected RX1 on port 0, got %q", name)
	}

	applied, err := s.SetAntenna(0, "RX2")
	if err != nil {
		t.Fatalf("set antenna: %v", err)
	}
	if applied != "RX2" {
		t.Fatalf("expected RX2 applied, got %q", applied)
	}

	// the stream was paused and resumed around the rewiring
	if got := sim.SyncConfigCalls(); got != 2 {
		t.Fatalf("expected a fresh stream configuration, saw %d", got)
	}
	enabled := sim.EnabledChannels()
	if len(enabled) != 1 || enabled[0] != 1 {
		t.Fatalf("expected only channel 1 enabled, got %v", enabled)
	}

	// and it still produces samples
	n, err := s.Work(outputBuffers(1, 1024), 1024)
	if err != nil {
		t.Fatalf("work after antenna switch: %v", err)
	}
	if n != 1024 {
		t.Fatalf("expected full buffer, got %d", n)
	}

	if _, err := s.SetAntenna(0, "RX9"); err == nil {
		t.Fatal("expected unknown antenna to fail")
	}
}
