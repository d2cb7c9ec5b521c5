package bladerf

// Loopback selects an RF or baseband loopback path for self-test.
type Loopback int

const (
	LoopbackNone Loopback = iota
	LoopbackFirmware
	LoopbackBBTxlpfRxvga2
	LoopbackBBTxlpfRxlpf
	LoopbackBBTxvga1Rxvga2
	LoopbackBBTxvga1Rxlpf
	LoopbackRFLNA1
	LoopbackRFLNA2
	LoopbackRFLNA3
	LoopbackRFICBist
)

var loopbackNames = map[Loopback]string{
	LoopbackNone:           "none",
	LoopbackFirmware:       "firmware",
	LoopbackBBTxlpfRxvga2:  "bb_txlpf_rxvga2",
	LoopbackBBTxlpfRxlpf:   "bb_txlpf_rxlpf",
	LoopbackBBTxvga1Rxvga2: "bb_txvga1_rxvga2",
	LoopbackBBTxvga1Rxlpf:  "bb_txvga1_rxlpf",
	LoopbackRFLNA1:         "rf_lna1",
	LoopbackRFLNA2:         "rf_lna2",
	LoopbackRFLNA3:         "rf_lna3",
	LoopbackRFICBist:       "rfic_bist",
}

func (l Loopback) String() string {
	if s, ok := loopbackNames[l]; ok {
		return s
	}
	return "unknown"
}

// ParseLoopback maps a configuration string to a Loopback. The mapping is
// total: every string yields either a member or an UnknownModeError.
func ParseLoopback(s string) (Loopback, error) {
	for mode, name := range loopbackNames {
		if s == name {
			return mode, nil
		}
	}
	return LoopbackNone, &UnknownModeError{Kind: "loopback", Value: s}
}

// RxMux selects what the receive path feeds into the sample stream.
type RxMux int

const (
	// RxMuxBaseband routes ADC baseband samples, the normal operating mode.
	RxMuxBaseband RxMux = iota
	// RxMux12BitCounter substitutes an incrementing 12-bit test counter.
	RxMux12BitCounter
	// RxMux32BitCounter substitutes an incrementing 32-bit test counter.
	RxMux32BitCounter
	// RxMuxDigitalLoopback routes TX digital samples back into RX.
	RxMuxDigitalLoopback
)

var rxMuxNames = map[RxMux]string{
	RxMuxBaseband:        "baseband",
	RxMux12BitCounter:    "12bit",
	RxMux32BitCounter:    "32bit",
	RxMuxDigitalLoopback: "digital",
}

func (m RxMux) String() string {
	if s, ok := rxMuxNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseRxMux maps a configuration string to an RxMux.
func ParseRxMux(s string) (RxMux, error) {
	for mode, name := range rxMuxNames {
		if s == name {
			return mode, nil
		}
	}
	return RxMuxBaseband, &UnknownModeError{Kind: "rx mux", Value: s}
}

// Sampling selects the sampling clock connection.
type Sampling int

const (
	SamplingInternal Sampling = iota
	SamplingExternal
)

func (s Sampling) String() string {
	switch s {
	case SamplingExternal:
		return "external"
	default:
		return "internal"
	}
}

// ParseSampling maps a configuration string to a Sampling.
func ParseSampling(s string) (Sampling, error) {
	switch s {
	case "internal":
		return SamplingInternal, nil
	case "external":
		return SamplingExternal, nil
	default:
		return SamplingInternal, &UnknownModeError{Kind: "sampling", Value: s}
	}
}

// CorrectionMode selects how a frontend correction parameter is driven.
type CorrectionMode int

const (
	// CorrectionModeOff disables the correction and resets its trims.
	CorrectionModeOff CorrectionMode = iota
	// CorrectionModeManual keeps the last manually applied trims.
	CorrectionModeManual
	// CorrectionModeAutomatic requests hardware-driven correction.
	CorrectionModeAutomatic
)

var correctionModeNames = map[CorrectionMode]string{
	CorrectionModeOff:       "off",
	CorrectionModeManual:    "manual",
	CorrectionModeAutomatic: "automatic",
}

func (m CorrectionMode) String() string {
	if s, ok := correctionModeNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseCorrectionMode maps a configuration string to a CorrectionMode.
func ParseCorrectionMode(s string) (CorrectionMode, error) {
	for mode, name := range correctionModeNames {
		if s == name {
			return mode, nil
		}
	}
	return CorrectionModeOff, &UnknownModeError{Kind: "correction", Value: s}
}

// GainMode selects between manual gain and the hardware AGC profiles.
type GainMode int

const (
	GainModeDefault GainMode = iota
	GainModeManual
	GainModeFastAttack
	GainModeSlowAttack
	GainModeHybrid
)

var gainModeNames = map[GainMode]string{
	GainModeDefault:    "default",
	GainModeManual:     "manual",
	GainModeFastAttack: "fast_attack",
	GainModeSlowAttack: "slow_attack",
	GainModeHybrid:     "hybrid",
}

func (m GainMode) String() string {
	if s, ok := gainModeNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseGainMode maps a configuration string to a GainMode.
func ParseGainMode(s string) (GainMode, error) {
	for mode, name := range gainModeNames {
		if s == name {
			return mode, nil
		}
	}
	return GainModeDefault, &UnknownModeError{Kind: "gain", Value: s}
}

// ParseBiasTee interprets the bias-tee option values accepted on the device
// argument string. Anything other than an explicit enable reads as off.
func ParseBiasTee(s string) bool {
	switch s {
	case "on", "1", "rx", "true":
		return true
	default:
		return false
	}
}
