package errs

import "net/http"

// errorMap holds the message and HTTP status for every code.
// Entries without a Status are client errors and default to 400.
var errorMap = map[int]CustomError{
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Malformed payload."},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Message: "Failed to process uploaded data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large."},
	ErrUnsupportedEvent:      {Code: ErrUnsupportedEvent, Message: "Unsupported event: %s."},

	ErrInvalidUsername:       {Code: ErrInvalidUsername, Message: "Username must be between 1 and %d characters."},
	ErrMessageEmpty:          {Code: ErrMessageEmpty, Message: "Message is empty."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrMessageTypeInvalid:    {Code: ErrMessageTypeInvalid, Message: "Invalid message type."},
	ErrImageURLInvalid:       {Code: ErrImageURLInvalid, Message: "Invalid image."},

	ErrNoFileUploaded:     {Code: ErrNoFileUploaded, Message: "No file was uploaded."},
	ErrFileSizeTooLarge:   {Code: ErrFileSizeTooLarge, Message: "File exceeds the %dMB limit."},
	ErrFileTypeNotAllowed: {Code: ErrFileTypeNotAllowed, Message: "Only image files can be uploaded."},

	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusInternalServerError},
}
