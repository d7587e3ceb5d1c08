// Package session owns the active command channel and presents a
// single connect/send/disconnect surface to application logic.
//
// A Controller hashes the user's secret, builds the channel the
// configuration selects (local loopback or remote peer-to-peer), and
// passes transport errors through unchanged so callers can render
// accurate status text. It never falls back from one channel kind to
// the other; a failed connect is surfaced and the caller decides.
package session
