// Package googlecal creates Google Meet meetings by inserting a calendar
// event with an attached conference request on the authenticated user's
// primary calendar.
//
// Event times are submitted as local wall-clock strings plus the IANA zone
// the caller resolved, never as UTC instants. Each insert carries a unique
// conference request ID so a retried call cannot create a duplicate
// conference.
package googlecal
