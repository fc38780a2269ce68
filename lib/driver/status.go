package driver

import "fmt"

type Status int32

const (
	StatusSuccess                Status = 0x00
	StatusOperationFailed        Status = 0x01
	StatusAllocationFailed       Status = 0x02
	StatusInvalidDisplay         Status = 0x03
	StatusInvalidConfig          Status = 0x04
	StatusInvalidContext         Status = 0x05
	StatusInvalidSurface         Status = 0x06
	StatusInvalidBuffer          Status = 0x07
	StatusInvalidImage           Status = 0x08
	StatusInvalidSubpicture      Status = 0x09
	StatusAttrNotSupported       Status = 0x0a
	StatusMaxNumExceeded         Status = 0x0b
	StatusUnsupportedProfile     Status = 0x0c
	StatusUnsupportedEntrypoint  Status = 0x0d
	StatusUnsupportedRTFormat    Status = 0x0e
	StatusUnsupportedBufferType  Status = 0x0f
	StatusSurfaceBusy            Status = 0x10
	StatusFlagNotSupported       Status = 0x11
	StatusInvalidParameter       Status = 0x12
	StatusResolutionNotSupported Status = 0x13
	StatusUnimplemented          Status = 0x14
	StatusInvalidImageFormat     Status = 0x16
	StatusUnknown                Status = -1
)

var statusNames = map[Status]string{
	StatusSuccess:                "success",
	StatusOperationFailed:        "operation failed",
	StatusAllocationFailed:       "resource allocation failed",
	StatusInvalidDisplay:         "invalid display",
	StatusInvalidConfig:          "invalid config",
	StatusInvalidContext:         "invalid context",
	StatusInvalidSurface:         "invalid surface",
	StatusInvalidBuffer:          "invalid buffer",
	StatusInvalidImage:           "invalid image",
	StatusInvalidSubpicture:      "invalid subpicture",
	StatusAttrNotSupported:       "attribute not supported",
	StatusMaxNumExceeded:         "maximum number exceeded",
	StatusUnsupportedProfile:     "unsupported profile",
	StatusUnsupportedEntrypoint:  "unsupported entrypoint",
	StatusUnsupportedRTFormat:    "unsupported render target format",
	StatusUnsupportedBufferType:  "unsupported buffer type",
	StatusSurfaceBusy:            "surface busy",
	StatusFlagNotSupported:       "flag not supported",
	StatusInvalidParameter:       "invalid parameter",
	StatusResolutionNotSupported: "resolution not supported",
	StatusUnimplemented:          "unimplemented",
	StatusInvalidImageFormat:     "invalid image format",
	StatusUnknown:                "unknown error",
}

func (s Status) Error() string {
	if name, ok := statusNames[s]; ok {
		return "driver: " + name
	}
	return fmt.Sprintf("driver: status 0x%x", int32(s))
}
