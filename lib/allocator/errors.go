package allocator

import (
	"errors"
	"fmt"

	"github.com/fosdem/vaframes/lib/driver"
	"github.com/fosdem/vaframes/lib/fourcc"
)

var (
	ErrNullArgument      = errors.New("null argument")
	ErrUnsupportedFormat = fourcc.ErrUnsupportedFormat
	ErrUnsupported       = errors.New("unsupported")
	ErrMemoryAlloc       = errors.New("memory allocation failed")
	ErrInvalidHandle     = errors.New("invalid memory handle")
	ErrLockMemory        = errors.New("could not lock memory")
	ErrInvalidState      = errors.New("invalid state")
	ErrNotInitialized    = errors.New("not initialized")
	ErrInvalidParam      = errors.New("invalid parameter")
	ErrUnknown           = errors.New("unknown error")
)

// statusError translates a driver status into the allocator's errors.
// The driver status stays in the chain.
func statusError(err error) error {
	if err == nil {
		return nil
	}
	var st driver.Status
	if !errors.As(err, &st) {
		return fmt.Errorf("%w: %w", ErrUnknown, err)
	}

	var kind error
	switch st {
	case driver.StatusSuccess:
		return nil
	case driver.StatusAllocationFailed:
		kind = ErrMemoryAlloc
	case driver.StatusAttrNotSupported,
		driver.StatusUnsupportedProfile,
		driver.StatusUnsupportedEntrypoint,
		driver.StatusUnsupportedRTFormat,
		driver.StatusUnsupportedBufferType,
		driver.StatusFlagNotSupported,
		driver.StatusResolutionNotSupported:
		kind = ErrUnsupported
	case driver.StatusInvalidDisplay,
		driver.StatusInvalidConfig,
		driver.StatusInvalidContext,
		driver.StatusInvalidSurface,
		driver.StatusInvalidBuffer,
		driver.StatusInvalidImage,
		driver.StatusInvalidSubpicture:
		kind = ErrNotInitialized
	case driver.StatusInvalidParameter:
		kind = ErrInvalidParam
	default:
		kind = ErrUnknown
	}
	return fmt.Errorf("%w: %w", kind, err)
}
