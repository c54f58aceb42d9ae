package query

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSourceInfo assembles a Source-format info payload (type byte first)
// the way a patched CS 1.6 server answers.
func buildSourceInfo(name, mapName, game string, players, maxPlayers byte, srvType, env byte, visibility, vac byte) []byte {
	p := []byte{typeInfoSource, 48}
	p = append(p, name...)
	p = append(p, 0)
	p = append(p, mapName...)
	p = append(p, 0)
	p = append(p, "cstrike"...)
	p = append(p, 0)
	p = append(p, game...)
	p = append(p, 0)
	p = append(p, 10, 0) // app ID 10, little endian
	p = append(p, players, maxPlayers, 0, srvType, env, visibility, vac)
	return p
}

// buildGoldSrcInfo assembles the legacy 0x6D layout without a mod block.
func buildGoldSrcInfo(name, mapName, game string, players, maxPlayers byte, srvType, env byte, visibility, vac byte) []byte {
	p := []byte{typeInfoGoldSrc}
	p = append(p, "192.0.2.1:27015"...)
	p = append(p, 0)
	p = append(p, name...)
	p = append(p, 0)
	p = append(p, mapName...)
	p = append(p, 0)
	p = append(p, "cstrike"...)
	p = append(p, 0)
	p = append(p, game...)
	p = append(p, 0)
	p = append(p, players, maxPlayers, 47, srvType, env, visibility, 0 /* mod */, vac, 0 /* bots */)
	return p
}

func buildPlayers(entries []PlayerEntry) []byte {
	p := []byte{typePlayerResponse, byte(len(entries))}
	for _, e := range entries {
		p = append(p, 0) // index
		p = append(p, e.Name...)
		p = append(p, 0)
		p = binary.LittleEndian.AppendUint32(p, uint32(e.Score))
		p = binary.LittleEndian.AppendUint32(p, math.Float32bits(float32(e.Duration)))
	}
	return p
}

func TestParseSourceInfo(t *testing.T) {
	payload := buildSourceInfo("Fragtopia #1", "de_dust2", "Counter-Strike", 12, 32, 'd', 'l', 1, 1)

	info, err := parseInfo(payload)
	require.NoError(t, err)

	assert.Equal(t, "Fragtopia #1", info.Hostname)
	assert.Equal(t, "de_dust2", info.Map)
	assert.Equal(t, "Counter-Strike", info.Game)
	assert.Equal(t, 12, info.CurrentPlayers)
	assert.Equal(t, 32, info.MaxPlayers)
	assert.Equal(t, ServerTypeDedicated, info.ServerType)
	assert.Equal(t, OSLinux, info.OS)
	assert.True(t, info.PasswordProtected)
	assert.True(t, info.VACEnabled)
	assert.Nil(t, info.PlayerList)
}

func TestParseGoldSrcInfo(t *testing.T) {
	payload := buildGoldSrcInfo("Old School HLDS", "cs_assault", "Counter-Strike", 3, 16, 'l', 'w', 0, 0)

	info, err := parseInfo(payload)
	require.NoError(t, err)

	assert.Equal(t, "Old School HLDS", info.Hostname)
	assert.Equal(t, "cs_assault", info.Map)
	assert.Equal(t, 3, info.CurrentPlayers)
	assert.Equal(t, 16, info.MaxPlayers)
	assert.Equal(t, ServerTypeListen, info.ServerType)
	assert.Equal(t, OSWindows, info.OS)
	assert.False(t, info.PasswordProtected)
	assert.False(t, info.VACEnabled)
}

func TestParseInfoUnknownCodes(t *testing.T) {
	// Unrecognized server-type and OS codes must degrade to unknown, not fail.
	payload := buildSourceInfo("srv", "de_aztec", "cs", 40, 32, 'x', 'q', 0, 0)

	info, err := parseInfo(payload)
	require.NoError(t, err)

	assert.Equal(t, ServerTypeUnknown, info.ServerType)
	assert.Equal(t, OSUnknown, info.OS)
	// Over-capacity counts pass through unclamped.
	assert.Equal(t, 40, info.CurrentPlayers)
	assert.Equal(t, 32, info.MaxPlayers)
}

func TestParseInfoTruncated(t *testing.T) {
	full := buildSourceInfo("srv", "de_dust2", "cs", 1, 2, 'd', 'l', 0, 0)

	for cut := 1; cut < len(full); cut += 3 {
		_, err := parseInfo(full[:cut])
		assert.Error(t, err, "cut at %d", cut)
	}
}

func TestParseInfoWrongType(t *testing.T) {
	_, err := parseInfo([]byte{0x42, 1, 2, 3})
	assert.ErrorIs(t, err, errMalformed)

	_, err = parseInfo(nil)
	assert.ErrorIs(t, err, errMalformed)
}

func TestParsePlayers(t *testing.T) {
	want := []PlayerEntry{
		{Name: "pro100", Score: 24, Duration: 1523.5},
		{Name: "camper", Score: -3, Duration: 12},
	}

	got, err := parsePlayers(buildPlayers(want))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "pro100", got[0].Name)
	assert.Equal(t, int32(24), got[0].Score)
	assert.InDelta(t, 1523.5, got[0].Duration, 0.01)
	assert.Equal(t, int32(-3), got[1].Score)
}

func TestParsePlayersDropsNameless(t *testing.T) {
	payload := buildPlayers([]PlayerEntry{
		{Name: "", Score: 0, Duration: 1},
		{Name: "joiner", Score: 5, Duration: 60},
	})

	got, err := parsePlayers(payload)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "joiner", got[0].Name)
}

func TestParsePlayersTruncated(t *testing.T) {
	full := buildPlayers([]PlayerEntry{{Name: "x", Score: 1, Duration: 1}})
	_, err := parsePlayers(full[:len(full)-2])
	assert.ErrorIs(t, err, errMalformed)
}

func TestInfoRequestShape(t *testing.T) {
	req := infoRequest(nil)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, typeInfoRequest}, req[:5])
	assert.Equal(t, "Source Engine Query\x00", string(req[5:]))

	challenged := infoRequest([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	assert.Equal(t, req, challenged[:len(req)])
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, challenged[len(req):])
}

func TestPlayerRequestShape(t *testing.T) {
	req := playerRequest(nil)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, typePlayerRequest, 0xFF, 0xFF, 0xFF, 0xFF}, req)

	challenged := playerRequest([]byte{1, 2, 3, 4})
	assert.Equal(t, []byte{1, 2, 3, 4}, challenged[5:])
}

func TestParseSplit(t *testing.T) {
	pkt := []byte{0xFE, 0xFF, 0xFF, 0xFF, 9, 0, 0, 0, 0x12, 'h', 'i'}
	sp, err := parseSplit(pkt)
	require.NoError(t, err)
	assert.Equal(t, 1, sp.index)
	assert.Equal(t, 2, sp.total)
	assert.Equal(t, []byte("hi"), sp.payload)

	_, err = parseSplit([]byte{0xFE, 0xFF, 0xFF, 0xFF, 9, 0, 0, 0, 0x20}) // index 2 of 0
	assert.ErrorIs(t, err, errMalformed)
}

func TestAssembleFragments(t *testing.T) {
	whole := buildSourceInfo("split", "de_train", "cs", 0, 16, 'd', 'l', 0, 0)
	framed := append([]byte{0xFF, 0xFF, 0xFF, 0xFF}, whole...)

	mid := len(framed) / 2
	payload, err := assembleFragments(map[int][]byte{0: framed[:mid], 1: framed[mid:]}, 2)
	require.NoError(t, err)
	assert.Equal(t, whole, payload)

	_, err = assembleFragments(map[int][]byte{0: framed[:mid]}, 2)
	assert.ErrorIs(t, err, errMalformed)
}
