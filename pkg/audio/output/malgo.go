// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo with a pull callback draining the sample buffer
package output

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/fastmic/fastmic-go/pkg/audio"
	"github.com/fastmic/fastmic-go/pkg/audio/ring"
	"github.com/gen2brain/malgo"
)

// Malgo is a playback stream on a miniaudio device
type Malgo struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	consumer *ring.Consumer
	next     func() int16
	info     StreamInfo

	stopped   atomic.Bool
	closeOnce sync.Once
}

func openMalgo(cfg Config, consumer *ring.Consumer) (Session, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize malgo context: %v", ErrDevice, err)
	}

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		freeContext(ctx)
		return nil, fmt.Errorf("%w: failed to enumerate playback devices: %v", ErrDevice, err)
	}

	entries := make([]DeviceEntry, len(infos))
	for i := range infos {
		entries[i] = DeviceEntry{Name: infos[i].Name(), IsDefault: infos[i].IsDefault != 0}
	}

	idx, err := SelectDevice(entries, cfg.DeviceName)
	if err != nil {
		freeContext(ctx)
		return nil, err
	}

	// Zero format, channels and rate select the device's own configuration
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatUnknown
	deviceConfig.Playback.Channels = 0
	deviceConfig.SampleRate = 0
	deviceConfig.Alsa.NoMMap = 1

	deviceName := "default"
	if idx >= 0 {
		deviceConfig.Playback.DeviceID = infos[idx].ID.Pointer()
		deviceName = cleanName(entries[idx].Name)
	}

	m := &Malgo{
		malgoCtx: ctx,
		consumer: consumer,
		next:     consumer.Next,
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: m.dataCallback,
	})
	if err != nil {
		freeContext(ctx)
		return nil, fmt.Errorf("%w: failed to initialize playback device %q: %v", ErrDevice, deviceName, err)
	}

	format := fromMalgoFormat(device.PlaybackFormat())
	if format == audio.FormatUnknown {
		device.Uninit()
		freeContext(ctx)
		return nil, fmt.Errorf("%w: unsupported sample format %d on %q", ErrDevice, device.PlaybackFormat(), deviceName)
	}

	m.device = device
	m.info = StreamInfo{
		Device:     deviceName,
		Format:     format,
		Channels:   int(device.PlaybackChannels()),
		SampleRate: int(device.SampleRate()),
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		freeContext(ctx)
		return nil, fmt.Errorf("%w: failed to start device %q: %v", ErrDevice, deviceName, err)
	}

	log.Printf("Audio output started: %s, %dHz, %d channels, %s (malgo)",
		m.info.Device, m.info.SampleRate, m.info.Channels, m.info.Format)

	return m, nil
}

// dataCallback runs on the audio thread: no locks, no allocation
func (m *Malgo) dataCallback(pOutput, _ []byte, _ uint32) {
	if m.stopped.Load() {
		clear(pOutput)
		return
	}
	audio.FillFrames(pOutput, m.info.Format, m.info.Channels, m.next)
}

// Stop pauses the device
func (m *Malgo) Stop() error {
	m.stopped.Store(true)
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("%w: error pausing stream: %v", ErrStream, err)
	}
	return nil
}

// Close uninitializes the device and the malgo context
func (m *Malgo) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.stopped.Store(true)
		m.device.Uninit()
		if uerr := m.malgoCtx.Uninit(); uerr != nil {
			err = fmt.Errorf("%w: malgo context uninit: %v", ErrStream, uerr)
		}
		m.malgoCtx.Free()
	})
	return err
}

// Underruns reports how often the callback played silence
func (m *Malgo) Underruns() uint64 {
	return m.consumer.Underruns()
}

// Info describes the opened stream
func (m *Malgo) Info() StreamInfo {
	return m.info
}

func freeContext(ctx *malgo.AllocatedContext) {
	if err := ctx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	ctx.Free()
}

// fromMalgoFormat maps a device format onto the sample encoders
func fromMalgoFormat(format malgo.FormatType) audio.SampleFormat {
	switch format {
	case malgo.FormatF32:
		return audio.FormatF32
	case malgo.FormatS16:
		return audio.FormatS16
	case malgo.FormatS24:
		return audio.FormatS24
	case malgo.FormatS32:
		return audio.FormatS32
	case malgo.FormatU8:
		return audio.FormatU8
	default:
		return audio.FormatUnknown
	}
}
