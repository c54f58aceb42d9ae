// Package query implements a status-query client for GoldSrc and Source
// engine game servers (the A2S protocol over UDP). It resolves untrusted
// host/port input, drives the info and player-list exchanges including the
// challenge handshake, and reports every failure as typed data rather than
// an error escaping to the caller.
package query

import "fmt"

// ServerType describes how the queried server is hosted.
type ServerType string

// Server type values decoded from the info response.
const (
	ServerTypeDedicated ServerType = "dedicated"
	ServerTypeListen    ServerType = "listen"
	ServerTypeUnknown   ServerType = "unknown"
)

// OS is the operating system the queried server runs on.
type OS string

// Operating system values decoded from the info response.
const (
	OSWindows OS = "windows"
	OSLinux   OS = "linux"
	OSMac     OS = "mac"
	OSUnknown OS = "unknown"
)

// PlayerEntry is a single connected player as reported by A2S_PLAYER.
// Name comes straight off the wire and may be empty or contain arbitrary
// bytes; it is not sanitized here.
type PlayerEntry struct {
	Name     string  `json:"name"`
	Score    int32   `json:"score"`
	Duration float64 `json:"duration"`
}

// ServerInfo is the normalized payload of a successful query. It is built
// fresh per query and never mutated afterwards.
type ServerInfo struct {
	Hostname          string     `json:"hostname"`
	Map               string     `json:"map"`
	CurrentPlayers    int        `json:"current_players"`
	MaxPlayers        int        `json:"max_players"`
	Game              string     `json:"game"`
	ServerType        ServerType `json:"server_type"`
	OS                OS         `json:"os"`
	PasswordProtected bool       `json:"password_protected"`
	VACEnabled        bool       `json:"vac_enabled"`

	// Ping is the wall-clock duration of the info round trip in
	// milliseconds, rounded to two decimals.
	Ping float64 `json:"ping"`

	// PlayerList is nil when the player-list exchange failed or was not
	// answered; an empty server that did answer gets an empty slice.
	PlayerList []PlayerEntry `json:"player_list,omitempty"`
}

// ErrorKind classifies a failed query.
type ErrorKind string

// Failure classes, in the priority order they are detected.
const (
	ErrInvalidInput      ErrorKind = "invalid_input"
	ErrResolution        ErrorKind = "resolution_error"
	ErrTimeout           ErrorKind = "timeout"
	ErrConnectionRefused ErrorKind = "connection_refused"
	ErrNetwork           ErrorKind = "network_error"
	ErrUnexpected        ErrorKind = "unexpected"
)

// ErrorDetail describes why a query failed.
type ErrorDetail struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Error implements the error interface so details can travel through
// error-returning internals before being folded into a QueryOutcome.
func (e *ErrorDetail) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// QueryOutcome is the discriminated result of one fetch. Exactly one of
// Data and Error is set; callers branch on Success and never need to
// recover a fault raised out of the client.
type QueryOutcome struct {
	Success bool         `json:"success"`
	Data    *ServerInfo  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// Target is one host/port pair in a batch request, prior to resolution.
type Target struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// String renders the target in the "host:port" form used as a batch key.
func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// BatchResult maps "host:port" keys to their individual outcomes.
type BatchResult map[string]QueryOutcome

func succeed(info *ServerInfo) QueryOutcome {
	return QueryOutcome{Success: true, Data: info}
}

func failWith(detail *ErrorDetail) QueryOutcome {
	return QueryOutcome{Success: false, Error: detail}
}

func errorDetail(kind ErrorKind, format string, args ...any) *ErrorDetail {
	return &ErrorDetail{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
