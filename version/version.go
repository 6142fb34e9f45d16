package version

// will be replaced with the release version when using goreleaser
// go build -ldflags "-X github.com/voiceassistant/assistant/version.version=1.1.0"
var version = "0.0.0"

// AssistantVersion returns the version the running binary was built with
func AssistantVersion() string {
	return version
}
