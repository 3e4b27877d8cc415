// Command dxmonitor sonifies a list of classified candidate signals by
// playing one audible chirp per candidate: a tone at an audio-range
// frequency standing in for the candidate's RF offset from the tuned
// channel center, swept over its reported drift the way an operator
// listening to a SETI receiver's audio output would hear a drifting
// carrier. It is the Go counterpart of the teacher's gen_tone tool,
// retargeted from AFSK calibration tones to candidate audification and
// from the teacher's C audio_open/gen_tone_init C path to the portable
// gordonklaus/portaudio binding.
package main

import (
	"math"
	"os"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/opensonata/dxcore/internal/logging"
)

const sampleRateHz = 44100

// audioRecord is the minimal YAML shape dxmonitor reads: one entry per
// candidate to sonify, carrying just the fields needed to generate a
// tone (a full model.CandidateSignal's classification/PFA fields don't
// affect what gets played).
type audioRecord struct {
	FreqOffsetHz float64 `yaml:"freqOffsetHz"`
	DriftHzPerS  float64 `yaml:"driftHzPerSec"`
	DurationSec  float64 `yaml:"durationSec"`
	Amplitude    float64 `yaml:"amplitude"`
}

func main() {
	candidateFile := pflag.StringP("candidates", "c", "candidates.yaml", "YAML file listing candidate tones to play.")
	baseToneHz := pflag.Float64P("base-tone-hz", "b", 600, "Audio frequency standing in for zero RF offset.")
	logLevel := pflag.StringP("log-level", "l", "info", "Log level: debug, info, warn, error.")
	pflag.Parse()

	lg := logging.New(parseLevel(*logLevel))

	records, err := loadRecords(*candidateFile)
	if err != nil {
		lg.Fatal("loading candidate file", "err", err)
	}
	if len(records) == 0 {
		lg.Warn("no candidates to play", "file", *candidateFile)
		return
	}

	if err := portaudio.Initialize(); err != nil {
		lg.Fatal("initializing portaudio", "err", err)
	}
	defer portaudio.Terminate()

	for i, rec := range records {
		lg.Info("playing candidate", "index", i, "freqOffsetHz", rec.FreqOffsetHz, "driftHzPerSec", rec.DriftHzPerS)
		if err := playChirp(*baseToneHz+rec.FreqOffsetHz, rec.DriftHzPerS, rec.DurationSec, rec.Amplitude); err != nil {
			lg.Error("playback error", "index", i, "err", err)
		}
	}
}

// playChirp opens the default output stream and writes one buffer's
// worth of samples at a time, phase-accumulating a tone that sweeps
// linearly from startHz by driftHzPerSec over durationSec.
func playChirp(startHz, driftHzPerSec, durationSec, amplitude float64) error {
	if amplitude <= 0 {
		amplitude = 0.3
	}
	if durationSec <= 0 {
		durationSec = 1
	}

	const framesPerBuffer = 512
	buf := make([]float32, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, sampleRateHz, framesPerBuffer, &buf)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	totalSamples := int(durationSec * sampleRateHz)
	var phase float64
	for n := 0; n < totalSamples; n += framesPerBuffer {
		for i := range buf {
			t := float64(n+i) / sampleRateHz
			freq := startHz + driftHzPerSec*t
			phase += 2 * math.Pi * freq / sampleRateHz
			buf[i] = float32(amplitude * math.Sin(phase))
		}
		if err := stream.Write(); err != nil {
			return err
		}
	}
	return nil
}

func loadRecords(path string) ([]audioRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var records []audioRecord
	if err := yaml.NewDecoder(f).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

func parseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
