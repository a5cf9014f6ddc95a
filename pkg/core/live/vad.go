package live

import (
	"sync"
	"time"
)

// EnergyVAD is a local energy-threshold voice gate. A chunk whose RMS energy
// exceeds the threshold counts as voice; chunks within the trailing silence
// window after the last voice are still forwarded so word endings are not
// clipped. Everything else is dropped to bound upstream bandwidth.
type EnergyVAD struct {
	config VADConfig

	mu            sync.Mutex
	lastVoiceTime time.Time
	now           func() time.Time
}

// NewEnergyVAD creates a local VAD with the given configuration.
func NewEnergyVAD(config VADConfig) *EnergyVAD {
	return &EnergyVAD{
		config: config,
		now:    time.Now,
	}
}

// ShouldForward reports whether the chunk should be sent upstream, and
// whether the chunk itself contains voice.
func (v *EnergyVAD) ShouldForward(pcm []byte) (forward, voice bool) {
	energy := CalculateRMSEnergy(pcm)
	voice = energy >= v.config.EnergyThreshold

	v.mu.Lock()
	defer v.mu.Unlock()

	if voice {
		v.lastVoiceTime = v.now()
		return true, true
	}
	if v.lastVoiceTime.IsZero() {
		return false, false
	}

	silence := v.now().Sub(v.lastVoiceTime)
	window := time.Duration(v.config.SilenceDurationMs) * time.Millisecond
	return silence < window, false
}

// Reset clears the voice tracking state, e.g. at turn boundaries.
func (v *EnergyVAD) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastVoiceTime = time.Time{}
}
