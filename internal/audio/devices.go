package audio

import (
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/samuelpmahan/audio-viz/internal/config"
)

// PortAudio entry points behind replaceable function variables so device
// handling stays testable on machines with no audio hardware.
var (
	paLibInitialize             = portaudio.Initialize
	paLibTerminate              = portaudio.Terminate
	paLibDevicesFunc            = portaudio.Devices
	paLibDefaultInputDeviceFunc = portaudio.DefaultInputDevice

	paDevicesFunc = paDevices
)

// Initialize sets up the PortAudio subsystem. Must be called before any
// device or stream operation and paired with Terminate.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate shuts the PortAudio subsystem down.
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// Device is the host-independent view of one audio device. ID is the index
// used by the --device flag and the picker.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   time.Duration
	HighInputLatency  time.Duration
}

// Kind labels the device by its channel counts.
func (d Device) Kind() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return "None"
	}
}

// HostDevices returns every device PortAudio reports, in ID order.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			LowInputLatency:   info.DefaultLowInputLatency,
			HighInputLatency:  info.DefaultHighInputLatency,
		}
	}
	return devices, nil
}

// InputDevice resolves a device ID to a capture device. The default ID
// (config.DefaultDeviceID) selects the system default input; any other ID
// must index an input-capable device.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	if deviceID == config.DefaultDeviceID {
		device, err := paLibDefaultInputDeviceFunc()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve default input device: %w", err)
		}
		return device, nil
	}

	if deviceID < 0 || deviceID >= len(infos) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	if infos[deviceID].MaxInputChannels == 0 {
		return nil, fmt.Errorf("device %d (%s) does not support input", deviceID, infos[deviceID].Name)
	}
	return infos[deviceID], nil
}

// ListDevices prints every device with its type, channel counts, default
// sample rate and latency range. This backs the `list` subcommand.
func ListDevices() error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}

	fmt.Printf("\nAvailable Audio Devices\n\n")
	for _, d := range devices {
		fmt.Printf("[%d] %s (%s)\n", d.ID, d.Name, d.Kind())
		fmt.Printf("    Input channels: %d, Output channels: %d\n", d.MaxInputChannels, d.MaxOutputChannels)
		fmt.Printf("    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		fmt.Printf("    Latency: Low=%.2fms, High=%.2fms\n",
			d.LowInputLatency.Seconds()*1000,
			d.HighInputLatency.Seconds()*1000)
		fmt.Println()
	}
	return nil
}

// paDevices wraps the library call and normalizes a nil device list to an
// empty slice.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
