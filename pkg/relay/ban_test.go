package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-relay/server/pkg/wire"
)

func TestBanListChecksPreloadedEntries(t *testing.T) {
	id := testID(9)
	bl := NewBanList([]wire.ID{id}, []string{"10.0.0.1"})

	assert.True(t, bl.IsPlayerBanned(id))
	assert.True(t, bl.IsIPBanned("10.0.0.1"))
	assert.False(t, bl.IsPlayerBanned(testID(10)))
	assert.False(t, bl.IsIPBanned("10.0.0.2"))
}

func TestBanListBanAddsAtRuntime(t *testing.T) {
	bl := NewBanList(nil, nil)
	id := testID(11)
	assert.False(t, bl.IsPlayerBanned(id))

	bl.BanPlayer(id)
	bl.BanIP("192.168.1.1")

	assert.True(t, bl.IsPlayerBanned(id))
	assert.True(t, bl.IsIPBanned("192.168.1.1"))
}
