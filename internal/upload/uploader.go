// Package upload appends record lines to the remote log. The append call is
// synchronous and atomic from the caller's perspective: connection handling
// and partial-write recovery are this package's responsibility.
package upload

import "context"

// Uploader is the remote-append contract consumed by the duty cycle.
type Uploader interface {
	SetServer(host string, port int)
	SetCredentials(user, pass string)

	// Upload appends payload to basePath/filename. If the file does not
	// exist and createHeaderIfAbsent is true, it is created with a header
	// row first.
	Upload(ctx context.Context, basePath, filename, payload string, createHeaderIfAbsent bool) error
}
