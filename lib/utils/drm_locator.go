package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	SysClassDRM = "/sys/class/drm"
	DevDRI      = "/dev/dri"
)

// ErrNoRenderNode means "auto" found nothing to use, which is expected on
// hosts without a GPU.
var ErrNoRenderNode = errors.New("no DRM render node found")

type DeviceType int

const (
	RenderNode DeviceType = iota
	PrimaryNode
)

type DRMDevice struct {
	Type   DeviceType
	Path   string
	Vendor string
	Driver string
}

type DRMDeviceCollection struct {
	Devices []*DRMDevice
}

func (c DRMDeviceCollection) GetFirst(devType DeviceType) *DRMDevice {
	sort.Slice(c.Devices, func(i, j int) bool {
		return c.Devices[i].Path < c.Devices[j].Path
	})
	for _, dev := range c.Devices {
		if dev.Type == devType {
			return dev
		}
	}
	return nil
}

// LocateDRMDevices lists the DRM nodes that sysRoot (normally
// SysClassDRM) knows about, with their paths under devRoot.
func LocateDRMDevices(sysRoot, devRoot string) (*DRMDeviceCollection, error) {
	items, err := os.ReadDir(sysRoot)
	if err != nil {
		return nil, err
	}

	result := &DRMDeviceCollection{make([]*DRMDevice, 0)}

	for _, item := range items {
		name := item.Name()
		var devType DeviceType
		switch {
		case strings.HasPrefix(name, "renderD"):
			devType = RenderNode
		case strings.HasPrefix(name, "card") && !strings.Contains(name, "-"):
			// card0-HDMI-A-1 and friends are connectors
			devType = PrimaryNode
		default:
			continue
		}

		dev := &DRMDevice{
			Type: devType,
			Path: filepath.Join(devRoot, name),
		}
		vendor, err := os.ReadFile(filepath.Join(sysRoot, name, "device", "vendor"))
		if err == nil {
			dev.Vendor = strings.TrimSpace(string(vendor))
		}
		driver, err := os.Readlink(filepath.Join(sysRoot, name, "device", "driver"))
		if err == nil {
			dev.Driver = filepath.Base(driver)
		}
		result.Devices = append(result.Devices, dev)
	}
	return result, nil
}

func CheckCharDevice(path string) error {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fmt.Errorf("could not stat %s: %w", path, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFCHR {
		return fmt.Errorf("%s is not a character device", path)
	}
	return nil
}

// FindRenderNode returns the first render node for "auto", and checks
// that any other path is a character device.
func FindRenderNode(device string) (*DRMDevice, error) {
	return findRenderNode(device, SysClassDRM, DevDRI)
}

func findRenderNode(device, sysRoot, devRoot string) (*DRMDevice, error) {
	if device != "auto" {
		if err := CheckCharDevice(device); err != nil {
			return nil, err
		}
		return &DRMDevice{Type: RenderNode, Path: device}, nil
	}

	devices, err := LocateDRMDevices(sysRoot, devRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: could not list DRM devices: %w", ErrNoRenderNode, err)
	}
	dev := devices.GetFirst(RenderNode)
	if dev == nil {
		return nil, fmt.Errorf("%w in %s", ErrNoRenderNode, sysRoot)
	}
	if err := CheckCharDevice(dev.Path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoRenderNode, err)
	}
	return dev, nil
}
