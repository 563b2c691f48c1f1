// Package zoom creates scheduled Zoom meetings through the Zoom REST API.
//
// Meetings are submitted with the caller's local wall-clock start time and
// IANA zone and a duration derived from the requested interval. A fixed
// safety-oriented settings policy is applied to every meeting: waiting room
// enabled, host and participant video off, no join before host.
package zoom
