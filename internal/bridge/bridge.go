package bridge

// Platform values reported by NativeBridge.Platform.
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformDesktop = "desktop"
)

// NativeBridge is implemented by the native side (Swift/Kotlin, or the
// desktop shell). gomobile exposes this as an interface that native code can
// satisfy.
//
// Rules for gomobile compatibility:
//   - methods may only use primitive types, strings, []byte, or other
//     gomobile-bound types as parameters and return values
//   - no variadic parameters
//   - errors are returned as a second return value
type NativeBridge interface {
	// Platform returns one of the Platform constants.
	Platform() string

	// Share opens the native share sheet. Empty arguments are omitted by
	// the caller's platform-specific field selection.
	Share(url string, title string, message string, subject string, dialogTitle string) error

	// Haptic plays a named feedback pattern.
	Haptic(pattern string) error

	// Alert shows a one-shot notice to the user.
	Alert(message string) error
}
