// Package mux is the final pipeline stage: it muxes the dubbed track back
// into the source container, hands the result to the organizer, writes the
// job summary, and announces completion.
package mux
