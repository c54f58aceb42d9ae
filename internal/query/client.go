package query

import (
	"errors"
	"fmt"
	"math"
	"net"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// Client defaults. The timeout floor keeps a misconfigured widget from
// spinning on sub-RTT deadlines against distant servers.
const (
	DefaultTimeout    = 3 * time.Second
	MinTimeout        = 500 * time.Millisecond
	DefaultBufferSize = 1400
)

// Client performs A2S status queries. It carries configuration only; no
// socket or connection state survives between calls, so a single Client is
// safe for concurrent use.
type Client struct {
	// Timeout bounds each individual send/receive round trip, not the
	// whole query. A challenge-gated info exchange may take up to twice
	// this long.
	Timeout time.Duration

	// BufferSize is the receive buffer per datagram.
	BufferSize uint16
}

// New returns a Client with the given per-operation timeout. Zero means
// DefaultTimeout; anything below the floor is raised to MinTimeout.
func New(timeout time.Duration) *Client {
	switch {
	case timeout == 0:
		timeout = DefaultTimeout
	case timeout < MinTimeout:
		timeout = MinTimeout
	}

	return &Client{Timeout: timeout, BufferSize: DefaultBufferSize}
}

// Fetch queries a single game server and reports the outcome as data.
// Resolution, transport, and parse faults are all classified into the
// ErrorDetail taxonomy; this method never panics and never returns an
// error. The player-list exchange is best-effort: its failure leaves
// PlayerList nil without affecting Success.
func (c *Client) Fetch(host string, port int) QueryOutcome {
	ep, err := ResolveEndpoint(host, port)
	if err != nil {
		return failWith(classify(err))
	}

	conn, err := net.Dial("udp4", ep.Addr())
	if err != nil {
		return failWith(classify(err))
	}
	defer func() { _ = conn.Close() }()

	start := time.Now()
	payload, err := c.request(conn, infoRequest, typeInfoSource, typeInfoGoldSrc)
	ping := time.Since(start)
	if err != nil {
		return failWith(classify(err))
	}

	info, err := parseInfo(payload)
	if err != nil {
		return failWith(classify(err))
	}
	info.Ping = math.Round(ping.Seconds()*1000*100) / 100
	info.PlayerList = c.fetchPlayers(conn, ep)

	return succeed(info)
}

// fetchPlayers runs the A2S_PLAYER exchange on the already-open socket.
// Failures are deliberately swallowed: server identity is the primary
// datum and player enumeration is supplementary, so a missing or broken
// player response degrades to a nil list. The suppression is logged so it
// stays visible at debug level.
func (c *Client) fetchPlayers(conn net.Conn, ep Endpoint) []PlayerEntry {
	payload, err := c.request(conn, playerRequest, typePlayerResponse)
	if err != nil {
		log.Debug().Err(err).Str("server", ep.Addr()).Msg("Player list query failed, omitting players")
		return nil
	}

	players, err := parsePlayers(payload)
	if err != nil {
		log.Debug().Err(err).Str("server", ep.Addr()).Msg("Player list unparseable, omitting players")
		return nil
	}

	return players
}

// request performs one protocol exchange, transparently answering a
// challenge. build produces the request for a given challenge token (nil
// first), want lists the acceptable response types. At most two round
// trips are issued; a server that keeps demanding challenges is treated as
// broken rather than retried.
func (c *Client) request(conn net.Conn, build func(challenge []byte) []byte, want ...byte) ([]byte, error) {
	payload, err := c.roundTrip(conn, build(nil))
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 && payload[0] == typeChallenge {
		if len(payload) < 5 {
			return nil, fmt.Errorf("%w: short challenge", errMalformed)
		}
		payload, err = c.roundTrip(conn, build(payload[1:5]))
		if err != nil {
			return nil, err
		}
		if len(payload) > 0 && payload[0] == typeChallenge {
			return nil, fmt.Errorf("%w: server re-issued a challenge", errMalformed)
		}
	}

	for _, w := range want {
		if len(payload) > 0 && payload[0] == w {
			return payload, nil
		}
	}

	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", errMalformed)
	}
	return nil, fmt.Errorf("%w: unexpected response type 0x%02x", errMalformed, payload[0])
}

// roundTrip sends one request and reads one logical response, reassembling
// GoldSrc split packets. The per-operation deadline covers the send and
// every fragment read.
func (c *Client) roundTrip(conn net.Conn, req []byte) ([]byte, error) {
	if err := conn.SetDeadline(time.Now().Add(c.Timeout)); err != nil {
		return nil, err
	}
	if _, err := conn.Write(req); err != nil {
		return nil, err
	}

	buf := make([]byte, int(c.BufferSize))
	fragments := map[int][]byte{}
	total := 0

	for {
		n, err := conn.Read(buf)
		if err != nil {
			return nil, err
		}
		pkt := append([]byte(nil), buf[:n]...)

		header, err := packetHeader(pkt)
		if err != nil {
			return nil, err
		}

		switch header {
		case headerSingle:
			return pkt[4:], nil

		case headerSplit:
			sp, err := parseSplit(pkt)
			if err != nil {
				return nil, err
			}
			fragments[sp.index] = sp.payload
			total = sp.total
			if len(fragments) < total {
				continue
			}
			return assembleFragments(fragments, total)

		default:
			return nil, fmt.Errorf("%w: unknown header 0x%08x", errMalformed, uint32(header))
		}
	}
}

// assembleFragments joins a complete split response; the joined data is a
// regular single-packet datagram whose header is stripped.
func assembleFragments(fragments map[int][]byte, total int) ([]byte, error) {
	var joined []byte
	for i := 0; i < total; i++ {
		part, ok := fragments[i]
		if !ok {
			return nil, fmt.Errorf("%w: missing fragment %d/%d", errMalformed, i, total)
		}
		joined = append(joined, part...)
	}

	header, err := packetHeader(joined)
	if err != nil {
		return nil, err
	}
	if header != headerSingle {
		return nil, fmt.Errorf("%w: reassembled packet has header 0x%08x", errMalformed, uint32(header))
	}

	return joined[4:], nil
}

// classify maps a fault from the exchange onto the error taxonomy. Checks
// run in priority order: already-classified details pass through, then
// timeouts, then connection refusal, then any other transport fault;
// whatever is left (parse errors included) is Unexpected but keeps its
// message for diagnostics.
func classify(err error) *ErrorDetail {
	var detail *ErrorDetail
	if errors.As(err, &detail) {
		return detail
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errorDetail(ErrTimeout, "no response within the configured timeout, server may be offline")
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return errorDetail(ErrConnectionRefused, "connection refused, nothing is listening on that address")
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errorDetail(ErrNetwork, "network error: %v", err)
	}

	return errorDetail(ErrUnexpected, "failed to query server: %v", err)
}
