package platform

// AppName is reported to the notification server as the sending application.
const AppName = "defectmark"

// Options configures how a notification is displayed on the host platform.
type Options struct {
	// IconPath points to an image shown next to the message when the
	// notification server supports it.
	IconPath string
	// Timeout is the display time in milliseconds; zero uses the server default.
	Timeout int32
}
