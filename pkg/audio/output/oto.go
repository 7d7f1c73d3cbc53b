// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams the sample buffer through an oto player reading from the consumer
package output

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
	"github.com/fastmic/fastmic-go/pkg/audio"
	"github.com/fastmic/fastmic-go/pkg/audio/ring"
)

// oto allows a single context per process
var (
	otoOnce     sync.Once
	otoCtx      *oto.Context
	otoErr      error
	otoRate     int
	otoChannels int
)

func sharedOtoContext(sampleRate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("%w: failed to create oto context: %v", ErrDevice, err)
			return
		}
		<-ready
		otoCtx, otoRate, otoChannels = ctx, sampleRate, channels
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoRate != sampleRate || otoChannels != channels {
		log.Printf("Warning: oto context already running at %dHz %dch, ignoring %dHz %dch",
			otoRate, otoChannels, sampleRate, channels)
	}
	return otoCtx, nil
}

// Oto is a playback stream on the shared oto context
type Oto struct {
	player   *oto.Player
	reader   *consumerReader
	consumer *ring.Consumer
	info     StreamInfo

	closeOnce sync.Once
}

func openOto(cfg Config, consumer *ring.Consumer) (Session, error) {
	ctx, err := sharedOtoContext(cfg.SampleRate, cfg.Channels)
	if err != nil {
		return nil, err
	}

	reader := &consumerReader{next: consumer.Next, channels: otoChannels}
	player := ctx.NewPlayer(reader)
	player.Play()

	o := &Oto{
		player:   player,
		reader:   reader,
		consumer: consumer,
		info: StreamInfo{
			Device:     "default",
			Format:     audio.FormatS16,
			Channels:   otoChannels,
			SampleRate: otoRate,
		},
	}

	log.Printf("Audio output started: %dHz, %d channels (oto)", o.info.SampleRate, o.info.Channels)
	return o, nil
}

// Stop pauses the player
func (o *Oto) Stop() error {
	o.reader.stopped.Store(true)
	o.player.Pause()
	if err := o.player.Err(); err != nil {
		return fmt.Errorf("%w: error pausing stream: %v", ErrStream, err)
	}
	return nil
}

// Close releases the player; the shared context stays alive
func (o *Oto) Close() error {
	var err error
	o.closeOnce.Do(func() {
		o.reader.stopped.Store(true)
		if cerr := o.player.Close(); cerr != nil {
			err = fmt.Errorf("%w: %v", ErrStream, cerr)
		}
	})
	return err
}

// Underruns reports how often the reader played silence
func (o *Oto) Underruns() uint64 {
	return o.consumer.Underruns()
}

// Info describes the opened stream
func (o *Oto) Info() StreamInfo {
	return o.info
}

// consumerReader exposes the consumer as an endless S16LE stream
type consumerReader struct {
	next     func() int16
	channels int
	stopped  atomic.Bool
}

// Read fills whole frames only; once stopped it yields silence without popping
func (r *consumerReader) Read(p []byte) (int, error) {
	frame := audio.FormatS16.BytesPerSample() * r.channels
	n := len(p) - len(p)%frame
	if r.stopped.Load() {
		clear(p[:n])
		return n, nil
	}
	audio.FillFrames(p[:n], audio.FormatS16, r.channels, r.next)
	return n, nil
}
