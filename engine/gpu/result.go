package gpu

import "fmt"

// Result is a device status code. The numeric values follow the Vulkan VkResult
// enumeration so backends built on either API can report statuses without translation.
// Result implements error; Success is never returned as a non-nil error by a Device.
type Result int32

const (
	Success                   Result = 0
	NotReady                  Result = 1
	Timeout                   Result = 2
	ErrorOutOfHostMemory      Result = -1
	ErrorOutOfDeviceMemory    Result = -2
	ErrorInitializationFailed Result = -3
	ErrorDeviceLost           Result = -4
	ErrorUnknown              Result = -13
	ErrorInvalidHandle        Result = -1000072003
	ErrorValidationFailed     Result = -1000011001
	ErrorSurfaceLost          Result = -1000000000
	Suboptimal                Result = 1000001003
	ErrorOutOfDate            Result = -1000001004
)

func (r Result) Error() string {
	return r.String()
}

func (r Result) String() string {
	switch r {
	case Success:
		return "SUCCESS"
	case NotReady:
		return "NOT READY"
	case Timeout:
		return "TIMEOUT"
	case ErrorOutOfHostMemory:
		return "OUT OF HOST MEMORY"
	case ErrorOutOfDeviceMemory:
		return "OUT OF DEVICE MEMORY"
	case ErrorInitializationFailed:
		return "INITIALIZATION FAILED"
	case ErrorDeviceLost:
		return "DEVICE LOST"
	case ErrorUnknown:
		return "UNKNOWN"
	case ErrorInvalidHandle:
		return "INVALID HANDLE"
	case ErrorValidationFailed:
		return "VALIDATION FAILED"
	case ErrorSurfaceLost:
		return "SURFACE LOST"
	case Suboptimal:
		return "SUBOPTIMAL"
	case ErrorOutOfDate:
		return "OUT OF DATE"
	default:
		return fmt.Sprintf("RESULT(%d)", int32(r))
	}
}

// Transient reports whether r is one of the two statuses a frame loop recovers from
// by rebuilding the swapchain: a stale chain or a suboptimal one.
//
// Returns:
//   - bool: true for Suboptimal and ErrorOutOfDate
func (r Result) Transient() bool {
	return r == Suboptimal || r == ErrorOutOfDate
}
