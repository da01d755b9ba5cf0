package audio

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Fixed sample rates for the capture and playback ends of a session.
const (
	CaptureSampleRate  = 16000
	PlaybackSampleRate = 24000

	pcmBytesPerSample = 2
)

// RMS computes the root-mean-square level of a float32 frame.
// Returns a value between 0.0 and 1.0.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms > 1.0 {
		rms = 1.0
	}
	return rms
}

// EncodePCM16 converts float32 samples in [-1.0, 1.0] to 16-bit signed
// little-endian PCM. Out-of-range samples are clamped.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*pcmBytesPerSample)
	for i, sample := range samples {
		v := float64(sample)
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		s := int16(v * 32767.0)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// PCMDuration returns the play time of s16le mono PCM at sampleRate.
func PCMDuration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 || len(pcm) == 0 {
		return 0
	}
	samples := len(pcm) / pcmBytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// ParseSampleRate extracts the rate parameter from a PCM mimetype such as
// "audio/pcm;rate=24000". Unparseable input yields fallback.
func ParseSampleRate(mimeType string, fallback int) int {
	for _, param := range strings.Split(mimeType, ";") {
		param = strings.TrimSpace(param)
		if !strings.HasPrefix(param, "rate=") {
			continue
		}
		rate, err := strconv.Atoi(strings.TrimPrefix(param, "rate="))
		if err == nil && rate > 0 {
			return rate
		}
	}
	return fallback
}
