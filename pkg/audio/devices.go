package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"runtime"
	"sync"
)

const micFrameDuration = 20 // milliseconds per capture frame

// FFmpegMic captures the default microphone through an ffmpeg subprocess,
// producing fixed-size float32 mono frames at CaptureSampleRate.
type FFmpegMic struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	buf    []byte
}

// NewFFmpegMic starts ffmpeg and begins reading samples immediately.
func NewFFmpegMic() (*FFmpegMic, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, errors.New("ffmpeg is required for mic capture (install ffmpeg and ensure it is in PATH)")
	}
	args, err := micFFmpegArgs(runtime.GOOS)
	if err != nil {
		return nil, err
	}
	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg mic capture: %w", err)
	}
	frameSamples := CaptureSampleRate * micFrameDuration / 1000
	return &FFmpegMic{
		cmd:    cmd,
		stdout: stdout,
		buf:    make([]byte, frameSamples*4),
	}, nil
}

func micFFmpegArgs(goos string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "avfoundation", "-i", ":0",
			"-ac", "1", "-ar", fmt.Sprintf("%d", CaptureSampleRate),
			"-f", "f32le", "-",
		}, nil
	case "linux":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "pulse", "-i", "default",
			"-ac", "1", "-ar", fmt.Sprintf("%d", CaptureSampleRate),
			"-f", "f32le", "-",
		}, nil
	default:
		return nil, fmt.Errorf("mic capture is not implemented for %s; supported platforms: darwin, linux", goos)
	}
}

// ReadFrame blocks until a full frame of samples arrives.
func (m *FFmpegMic) ReadFrame() ([]float32, error) {
	if m == nil || m.stdout == nil {
		return nil, io.EOF
	}
	if _, err := io.ReadFull(m.stdout, m.buf); err != nil {
		return nil, err
	}
	samples := make([]float32, len(m.buf)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(m.buf[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, nil
}

// Close kills the ffmpeg process; a blocked ReadFrame unblocks with an error.
func (m *FFmpegMic) Close() error {
	if m == nil {
		return nil
	}
	if m.cmd != nil && m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
		_ = m.cmd.Wait()
	}
	return nil
}

// FFplaySpeaker plays s16le mono PCM at PlaybackSampleRate through an
// ffplay subprocess. Flush kills and restarts the process, which is the only
// way to discard audio ffplay has already buffered.
type FFplaySpeaker struct {
	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func NewFFplaySpeaker() (*FFplaySpeaker, error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, errors.New("ffplay is required for playback (install ffmpeg/ffplay and ensure it is in PATH)")
	}
	s := &FFplaySpeaker{}
	if err := s.startLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FFplaySpeaker) startLocked() error {
	s.cmd = exec.Command("ffplay",
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", PlaybackSampleRate),
		"-ac", "1",
		"-i", "pipe:0",
	)
	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open ffplay stdin: %w", err)
	}
	s.cmd.Stdout = io.Discard
	s.cmd.Stderr = io.Discard
	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start ffplay: %w", err)
	}
	s.stdin = stdin
	return nil
}

func (s *FFplaySpeaker) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stdin == nil {
		return errors.New("ffplay stdin is not initialized")
	}
	_, err := s.stdin.Write(pcm)
	return err
}

func (s *FFplaySpeaker) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killLocked()
	return s.startLocked()
}

func (s *FFplaySpeaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killLocked()
	return nil
}

func (s *FFplaySpeaker) killLocked() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
	s.stdin = nil
}
