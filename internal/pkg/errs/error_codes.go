/*
Package errs provides the application error type and its code constants.

Codes identify a failure both in server logs and on the wire: HTTP error bodies and
WebSocket "error" events carry the same numeric code.
*/
package errs

// 1xxx: request handling
const (
	// ErrInvalidJSONFormat indicates a body or frame that is not valid JSON for its event.
	ErrInvalidJSONFormat = 1003

	// ErrFormParseFailed indicates failure to parse multipart form data.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrUnsupportedEvent indicates a WebSocket frame naming an event the server does not accept.
	ErrUnsupportedEvent = 1008
)

// 2xxx: chat content
const (
	// ErrInvalidUsername indicates a display name that is empty or longer than the limit.
	ErrInvalidUsername = 2001

	// ErrMessageEmpty indicates a text message with no content.
	ErrMessageEmpty = 2202

	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length.
	ErrMessageContentTooLong = 2201

	// ErrMessageTypeInvalid indicates a chat message type other than text or image.
	ErrMessageTypeInvalid = 2203

	// ErrImageURLInvalid indicates an image message whose URL was not issued by this server.
	ErrImageURLInvalid = 2204
)

// 4xxx: uploads
const (
	// ErrNoFileUploaded indicates a multipart request without the image field.
	ErrNoFileUploaded = 4001

	// ErrFileSizeTooLarge indicates a file above the upload size limit.
	ErrFileSizeTooLarge = 4002

	// ErrFileTypeNotAllowed indicates a declared content type that is not an image.
	ErrFileTypeNotAllowed = 4003
)

// 5xxx: internal
const (
	// ErrUnknown represents an unclassified server error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates that persisting an upload failed.
	ErrFileStorageFailed = 5001
)
