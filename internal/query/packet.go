package query

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// A2S packet type bytes following the 0xFFFFFFFF single-packet header.
const (
	typeInfoRequest    = 'T' // A2S_INFO request
	typeInfoSource     = 'I' // Source-format info response
	typeInfoGoldSrc    = 'm' // legacy GoldSrc-format info response
	typeChallenge      = 'A' // challenge token, echo it back
	typePlayerRequest  = 'U' // A2S_PLAYER request
	typePlayerResponse = 'D'
)

// Datagram headers, little-endian int32.
const (
	headerSingle = -1 // 0xFFFFFFFF
	headerSplit  = -2 // 0xFFFFFFFE, GoldSrc fragmentation
)

const infoQueryString = "Source Engine Query\x00"

var errMalformed = errors.New("malformed response packet")

// infoRequest builds an A2S_INFO request. The challenge is appended when
// the server demanded one; nil on the first attempt.
func infoRequest(challenge []byte) []byte {
	req := make([]byte, 0, 4+1+len(infoQueryString)+len(challenge))
	req = append(req, 0xFF, 0xFF, 0xFF, 0xFF, typeInfoRequest)
	req = append(req, infoQueryString...)
	return append(req, challenge...)
}

// playerRequest builds an A2S_PLAYER request. The first attempt carries the
// conventional 0xFFFFFFFF placeholder challenge.
func playerRequest(challenge []byte) []byte {
	if challenge == nil {
		challenge = []byte{0xFF, 0xFF, 0xFF, 0xFF}
	}
	req := make([]byte, 0, 4+1+len(challenge))
	req = append(req, 0xFF, 0xFF, 0xFF, 0xFF, typePlayerRequest)
	return append(req, challenge...)
}

// splitPacket is a decoded GoldSrc fragment header.
type splitPacket struct {
	index   int
	total   int
	payload []byte
}

// packetHeader reports the datagram class or an error for garbage input.
func packetHeader(pkt []byte) (int32, error) {
	if len(pkt) < 5 {
		return 0, fmt.Errorf("%w: %d bytes", errMalformed, len(pkt))
	}
	return int32(binary.LittleEndian.Uint32(pkt)), nil
}

// parseSplit decodes a GoldSrc split-packet fragment. The number byte packs
// the fragment index in the upper nibble and the fragment count in the
// lower one.
func parseSplit(pkt []byte) (splitPacket, error) {
	if len(pkt) < 10 {
		return splitPacket{}, fmt.Errorf("%w: truncated split packet", errMalformed)
	}

	num := pkt[8]
	sp := splitPacket{
		index:   int(num >> 4),
		total:   int(num & 0x0F),
		payload: pkt[9:],
	}
	if sp.total == 0 || sp.index >= sp.total {
		return splitPacket{}, fmt.Errorf("%w: split packet %d/%d", errMalformed, sp.index, sp.total)
	}

	return sp, nil
}

// parseInfo decodes an info response payload (type byte included) in either
// the Source or the legacy GoldSrc layout. Ping and PlayerList are left for
// the client to fill in.
func parseInfo(payload []byte) (*ServerInfo, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty info payload", errMalformed)
	}

	switch payload[0] {
	case typeInfoSource:
		return parseSourceInfo(payload[1:])
	case typeInfoGoldSrc:
		return parseGoldSrcInfo(payload[1:])
	default:
		return nil, fmt.Errorf("%w: unexpected info response type 0x%02x", errMalformed, payload[0])
	}
}

// parseSourceInfo handles the modern response layout that patched GoldSrc
// servers reply with as well. Fields past the VAC flag are ignored.
func parseSourceInfo(body []byte) (*ServerInfo, error) {
	r := newFieldReader(body)

	_, err := r.readByte() // protocol version
	if err != nil {
		return nil, err
	}

	info := &ServerInfo{}
	if info.Hostname, err = r.readString(); err != nil {
		return nil, err
	}
	if info.Map, err = r.readString(); err != nil {
		return nil, err
	}
	if _, err = r.readString(); err != nil { // game folder
		return nil, err
	}
	if info.Game, err = r.readString(); err != nil {
		return nil, err
	}
	if _, err = r.readUint16(); err != nil { // app ID
		return nil, err
	}

	players, err := r.readByte()
	if err != nil {
		return nil, err
	}
	maxPlayers, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if _, err = r.readByte(); err != nil { // bots
		return nil, err
	}

	srvType, err := r.readByte()
	if err != nil {
		return nil, err
	}
	env, err := r.readByte()
	if err != nil {
		return nil, err
	}
	visibility, err := r.readByte()
	if err != nil {
		return nil, err
	}
	vac, err := r.readByte()
	if err != nil {
		return nil, err
	}

	info.CurrentPlayers = int(players)
	info.MaxPlayers = int(maxPlayers)
	info.ServerType = serverTypeFromCode(srvType)
	info.OS = osFromCode(env)
	info.PasswordProtected = visibility == 1
	info.VACEnabled = vac == 1

	return info, nil
}

// parseGoldSrcInfo handles the pre-Steam-update layout still spoken by old
// HLDS installations.
func parseGoldSrcInfo(body []byte) (*ServerInfo, error) {
	r := newFieldReader(body)

	_, err := r.readString() // server address as seen by itself
	if err != nil {
		return nil, err
	}

	info := &ServerInfo{}
	if info.Hostname, err = r.readString(); err != nil {
		return nil, err
	}
	if info.Map, err = r.readString(); err != nil {
		return nil, err
	}
	if _, err = r.readString(); err != nil { // game folder
		return nil, err
	}
	if info.Game, err = r.readString(); err != nil {
		return nil, err
	}

	players, err := r.readByte()
	if err != nil {
		return nil, err
	}
	maxPlayers, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if _, err = r.readByte(); err != nil { // protocol version
		return nil, err
	}

	srvType, err := r.readByte()
	if err != nil {
		return nil, err
	}
	env, err := r.readByte()
	if err != nil {
		return nil, err
	}
	visibility, err := r.readByte()
	if err != nil {
		return nil, err
	}

	// Mod block precedes the VAC flag in the legacy layout.
	mod, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if mod == 1 {
		if err = r.skipModBlock(); err != nil {
			return nil, err
		}
	}

	vac, err := r.readByte()
	if err != nil {
		return nil, err
	}

	info.CurrentPlayers = int(players)
	info.MaxPlayers = int(maxPlayers)
	info.ServerType = serverTypeFromCode(srvType)
	info.OS = osFromCode(env)
	info.PasswordProtected = visibility == 1
	info.VACEnabled = vac == 1

	return info, nil
}

// parsePlayers decodes an A2S_PLAYER response payload (type byte included).
// Nameless entries, which GoldSrc servers emit for connecting clients, are
// dropped.
func parsePlayers(payload []byte) ([]PlayerEntry, error) {
	if len(payload) == 0 || payload[0] != typePlayerResponse {
		return nil, fmt.Errorf("%w: not a player response", errMalformed)
	}

	r := newFieldReader(payload[1:])
	count, err := r.readByte()
	if err != nil {
		return nil, err
	}

	players := make([]PlayerEntry, 0, count)
	for i := 0; i < int(count); i++ {
		if _, err := r.readByte(); err != nil { // index, always zero on GoldSrc
			return nil, err
		}
		name, err := r.readString()
		if err != nil {
			return nil, err
		}
		score, err := r.readInt32()
		if err != nil {
			return nil, err
		}
		duration, err := r.readFloat32()
		if err != nil {
			return nil, err
		}

		if name == "" {
			continue
		}
		players = append(players, PlayerEntry{
			Name:     name,
			Score:    score,
			Duration: float64(duration),
		})
	}

	return players, nil
}

func serverTypeFromCode(code byte) ServerType {
	switch code {
	case 'd', 'D':
		return ServerTypeDedicated
	case 'l', 'L':
		return ServerTypeListen
	default:
		return ServerTypeUnknown
	}
}

func osFromCode(code byte) OS {
	switch code {
	case 'w', 'W':
		return OSWindows
	case 'l', 'L':
		return OSLinux
	case 'm', 'M', 'o', 'O':
		return OSMac
	default:
		return OSUnknown
	}
}

// fieldReader pulls little-endian protocol fields off a response body and
// turns short reads into errMalformed.
type fieldReader struct {
	r *bytes.Reader
}

func newFieldReader(body []byte) *fieldReader {
	return &fieldReader{r: bytes.NewReader(body)}
}

func (f *fieldReader) readByte() (byte, error) {
	b, err := f.r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: truncated field", errMalformed)
	}
	return b, nil
}

// readString consumes bytes up to and including a NUL terminator.
func (f *fieldReader) readString() (string, error) {
	var sb bytes.Buffer
	for {
		b, err := f.r.ReadByte()
		if err != nil {
			return "", fmt.Errorf("%w: unterminated string", errMalformed)
		}
		if b == 0 {
			return sb.String(), nil
		}
		sb.WriteByte(b)
	}
}

func (f *fieldReader) readUint16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(f.r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: truncated field", errMalformed)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func (f *fieldReader) readInt32() (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(f.r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: truncated field", errMalformed)
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func (f *fieldReader) readFloat32() (float32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(f.r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: truncated field", errMalformed)
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[:])), nil
}

// skipModBlock consumes the optional GoldSrc mod description that sits
// between the visibility and VAC flags.
func (f *fieldReader) skipModBlock() error {
	if _, err := f.readString(); err != nil { // mod website
		return err
	}
	if _, err := f.readString(); err != nil { // download link
		return err
	}
	if _, err := f.readByte(); err != nil { // NUL pad
		return err
	}
	if _, err := f.readInt32(); err != nil { // mod version
		return err
	}
	if _, err := f.readInt32(); err != nil { // download size
		return err
	}
	if _, err := f.readByte(); err != nil { // multiplayer-only flag
		return err
	}
	_, err := f.readByte() // custom-dll flag
	return err
}
