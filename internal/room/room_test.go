// internal/room/room_test.go
package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skrawlhq/skrawl/internal/cache"
	"github.com/skrawlhq/skrawl/internal/game"
	"github.com/skrawlhq/skrawl/internal/models"
	"github.com/skrawlhq/skrawl/internal/words"
)

func newTestRoom() *Room {
	r := NewRoom("TEST42", words.NewBank(nil), nil)
	// Keep rounds from resolving under the tests' feet.
	r.RoundDuration = time.Hour
	r.TickInterval = time.Hour
	return r
}

func newTestConn(name string) *Conn {
	return &Conn{
		ID:       uuid.New(),
		Username: name,
		RoomCode: "TEST42",
		Cancel:   func() {},
		OutChan:  make(chan interface{}, 128),
	}
}

// drain empties a connection's out channel.
func drain(c *Conn) []interface{} {
	var out []interface{}
	for {
		select {
		case msg := <-c.OutChan:
			out = append(out, msg)
		default:
			return out
		}
	}
}

// typeOf extracts the wire event type from either envelope shape.
func typeOf(msg interface{}) string {
	switch m := msg.(type) {
	case map[string]interface{}:
		if t, ok := m["type"].(string); ok {
			return t
		}
	case game.Event:
		return string(m.Type)
	}
	return ""
}

func countType(msgs []interface{}, eventType string) int {
	n := 0
	for _, m := range msgs {
		if typeOf(m) == eventType {
			n++
		}
	}
	return n
}

func TestJoinRosterOrderAndHost(t *testing.T) {
	r := newTestRoom()

	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := r.Join(name, newTestConn(name))
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"alice", "bob", "carol"}, r.Roster())
	assert.Equal(t, "alice", r.Host())

	_, err := r.Join("bob", newTestConn("bob"))
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Equal(t, []string{"alice", "bob", "carol"}, r.Roster(), "rejected join must not disturb the roster")

	_, err = r.Join("   ", nil)
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestReservedSeatAttachesOnce(t *testing.T) {
	r := newTestRoom()

	roster, err := r.Join("alice", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, roster)

	// HTTP re-join under the same name is a duplicate.
	_, err = r.Join("alice", nil)
	assert.ErrorIs(t, err, ErrDuplicateName)

	// The socket attaches to the reserved seat without a second user-joined.
	conn := newTestConn("alice")
	_, err = r.Join("alice", conn)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, r.Roster())

	// A second socket for the same name is rejected; the holder keeps it.
	_, err = r.Join("alice", newTestConn("alice"))
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestJoinReplaysCanvasToLateJoiner(t *testing.T) {
	r := newTestRoom()
	_, err := r.Join("alice", newTestConn("alice"))
	require.NoError(t, err)

	require.NoError(t, r.AppendStroke("alice", models.Stroke{X: 1, Y: 2, Action: models.StrokeBegin}))
	require.NoError(t, r.AppendStroke("alice", models.Stroke{X: 3, Y: 4, Action: models.StrokeDraw}))

	late := newTestConn("bob")
	_, err = r.Join("bob", late)
	require.NoError(t, err)

	msgs := drain(late)
	require.NotEmpty(t, msgs)
	state, ok := msgs[0].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "canvas-state", state["type"])
	strokes, ok := state["strokes"].([]models.Stroke)
	require.True(t, ok)
	assert.Len(t, strokes, 2)
	assert.Equal(t, models.StrokeBegin, strokes[0].Action)
}

func TestResetTruncatesCanvas(t *testing.T) {
	r := newTestRoom()
	_, err := r.Join("alice", newTestConn("alice"))
	require.NoError(t, err)

	require.NoError(t, r.AppendStroke("alice", models.Stroke{X: 1, Y: 1, Action: models.StrokeBegin}))
	require.NoError(t, r.AppendStroke("alice", models.Stroke{X: 2, Y: 2, Action: models.StrokeDraw}))
	require.NoError(t, r.AppendStroke("alice", models.Stroke{Action: models.StrokeReset}))

	assert.Empty(t, r.StrokeSnapshot())
}

func TestStrokeRelayExcludesSender(t *testing.T) {
	r := newTestRoom()
	alice := newTestConn("alice")
	bob := newTestConn("bob")
	_, err := r.Join("alice", alice)
	require.NoError(t, err)
	_, err = r.Join("bob", bob)
	require.NoError(t, err)
	drain(alice)
	drain(bob)

	require.NoError(t, r.AppendStroke("alice", models.Stroke{X: 5, Y: 6, Action: models.StrokeBegin}))

	assert.Equal(t, 1, countType(drain(bob), "beginPath"))
	assert.Equal(t, 0, countType(drain(alice), "beginPath"), "strokes echo to everyone but the originator")
}

func TestLeavePromotesHostAndBroadcasts(t *testing.T) {
	r := newTestRoom()
	conns := map[string]*Conn{}
	for _, name := range []string{"alice", "bob", "carol"} {
		conns[name] = newTestConn(name)
		_, err := r.Join(name, conns[name])
		require.NoError(t, err)
	}
	drain(conns["bob"])

	r.Leave("alice")

	assert.Equal(t, []string{"bob", "carol"}, r.Roster())
	assert.Equal(t, "bob", r.Host())
	assert.Equal(t, 1, countType(drain(conns["bob"]), "user-left"))

	// Second leave is a no-op.
	r.Leave("alice")
	assert.Equal(t, []string{"bob", "carol"}, r.Roster())
}

func TestOnEmptyFiresAfterLastLeave(t *testing.T) {
	r := newTestRoom()
	var emptied []string
	r.OnEmpty = func(code string) { emptied = append(emptied, code) }

	_, err := r.Join("alice", newTestConn("alice"))
	require.NoError(t, err)
	_, err = r.Join("bob", newTestConn("bob"))
	require.NoError(t, err)

	r.Leave("alice")
	assert.Empty(t, emptied)
	r.Leave("bob")
	assert.Equal(t, []string{"TEST42"}, emptied)
}

func TestStartGameChecks(t *testing.T) {
	r := newTestRoom()
	_, err := r.Join("alice", newTestConn("alice"))
	require.NoError(t, err)

	assert.ErrorIs(t, r.StartGame("bob"), ErrNotHost)
	assert.Nil(t, r.Session(), "failed start must not leave a session behind")
	assert.ErrorIs(t, r.StartGame("alice"), ErrNotEnoughPlayers)

	_, err = r.Join("bob", newTestConn("bob"))
	require.NoError(t, err)

	require.NoError(t, r.StartGame("alice"))
	require.NotNil(t, r.Session())
	assert.ErrorIs(t, r.StartGame("alice"), ErrGameInProgress)
}

func TestAbortGameChecks(t *testing.T) {
	r := newTestRoom()
	_, err := r.Join("alice", newTestConn("alice"))
	require.NoError(t, err)
	_, err = r.Join("bob", newTestConn("bob"))
	require.NoError(t, err)

	assert.ErrorIs(t, r.AbortGame("alice"), ErrNoActiveSession)
	require.NoError(t, r.StartGame("alice"))
	assert.ErrorIs(t, r.AbortGame("bob"), ErrNotHost)

	require.NoError(t, r.AbortGame("alice"))
	assert.Nil(t, r.Session(), "session clears once the game ends")
}

func TestNonDrawerStrokeRejected(t *testing.T) {
	r := newTestRoom()
	alice := newTestConn("alice")
	bob := newTestConn("bob")
	_, err := r.Join("alice", alice)
	require.NoError(t, err)
	_, err = r.Join("bob", bob)
	require.NoError(t, err)

	require.NoError(t, r.StartGame("alice"))
	drawer := r.Session().Drawer()
	require.NotEmpty(t, drawer)
	other := "alice"
	if drawer == "alice" {
		other = "bob"
	}
	drain(alice)
	drain(bob)

	err = r.AppendStroke(other, models.Stroke{X: 1, Y: 1, Action: models.StrokeBegin})
	assert.ErrorIs(t, err, ErrNotDrawer)
	assert.Empty(t, r.StrokeSnapshot(), "rejected strokes never reach the surface")
	assert.Equal(t, 0, countType(drain(alice), "beginPath"))
	assert.Equal(t, 0, countType(drain(bob), "beginPath"))

	require.NoError(t, r.AppendStroke(drawer, models.Stroke{X: 1, Y: 1, Action: models.StrokeBegin}))
	assert.Len(t, r.StrokeSnapshot(), 1)
}

func TestStrokeFromNonMemberRejected(t *testing.T) {
	r := newTestRoom()
	_, err := r.Join("alice", newTestConn("alice"))
	require.NoError(t, err)

	err = r.AppendStroke("mallory", models.Stroke{X: 1, Y: 1, Action: models.StrokeBegin})
	assert.ErrorIs(t, err, ErrNotMember)
	assert.Empty(t, r.StrokeSnapshot())
}

func TestJournalPreservesAcceptanceOrder(t *testing.T) {
	r := newTestRoom()
	var mu sync.Mutex
	var seqs []int
	r.journalEnabled = true
	r.publishJournal = func(_ context.Context, rec cache.RoomEventRecord) error {
		mu.Lock()
		defer mu.Unlock()
		seqs = append(seqs, rec.Seq)
		return nil
	}

	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := r.Join(name, newTestConn(name))
		require.NoError(t, err)
	}
	r.SubmitChat("alice", "hello", time.Now())
	r.Leave("carol")

	// 3 joins + 1 chat + 1 leave.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seqs) == 5
	}, 2*time.Second, 10*time.Millisecond, "journal worker should drain the queue")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3, 4, 5}, seqs, "records reach the queue in acceptance order")
}

func TestRoundStartClearsCanvas(t *testing.T) {
	r := newTestRoom()
	_, err := r.Join("alice", newTestConn("alice"))
	require.NoError(t, err)
	_, err = r.Join("bob", newTestConn("bob"))
	require.NoError(t, err)

	require.NoError(t, r.AppendStroke("alice", models.Stroke{X: 1, Y: 1, Action: models.StrokeBegin}))
	require.NotEmpty(t, r.StrokeSnapshot())

	require.NoError(t, r.StartGame("alice"))
	assert.Empty(t, r.StrokeSnapshot(), "round start wipes the free-draw canvas")
}

func TestSubmitChatRelaysVerbatim(t *testing.T) {
	r := newTestRoom()
	alice := newTestConn("alice")
	bob := newTestConn("bob")
	_, err := r.Join("alice", alice)
	require.NoError(t, err)
	_, err = r.Join("bob", bob)
	require.NoError(t, err)
	drain(alice)
	drain(bob)

	r.SubmitChat("alice", "hello there", time.Now())
	r.SubmitChat("alice", "   ", time.Now())

	msgs := drain(bob)
	require.Equal(t, 1, countType(msgs, "message"), "blank lines are dropped")
	env := msgs[0].(map[string]interface{})
	chat := env["message"].(models.ChatMessage)
	assert.Equal(t, "alice", chat.Username)
	assert.Equal(t, "hello there", chat.Message)

	assert.Equal(t, 1, countType(drain(alice), "message"), "chat echoes to the sender too")
}

func TestCorrectGuessConsumedBySession(t *testing.T) {
	r := newTestRoom()
	alice := newTestConn("alice")
	bob := newTestConn("bob")
	_, err := r.Join("alice", alice)
	require.NoError(t, err)
	_, err = r.Join("bob", bob)
	require.NoError(t, err)

	require.NoError(t, r.StartGame("alice"))
	sess := r.Session()
	require.NotNil(t, sess)
	drawer := sess.Drawer()
	guesser := "alice"
	if drawer == "alice" {
		guesser = "bob"
	}

	// The drawer's private assignment carries the real word.
	drawerConn := alice
	if drawer == "bob" {
		drawerConn = bob
	}
	var word string
	for _, msg := range drain(drawerConn) {
		if ev, ok := msg.(game.Event); ok && ev.Type == game.EventDrawerAssigned {
			word = ev.CurrentWord
		}
	}
	require.NotEmpty(t, word)
	drain(alice)
	drain(bob)

	r.SubmitChat(guesser, word, time.Now())

	msgs := drain(drawerConn)
	assert.GreaterOrEqual(t, countType(msgs, "correct-guess"), 1)
	for _, msg := range msgs {
		switch m := msg.(type) {
		case map[string]interface{}:
			if chat, ok := m["message"].(models.ChatMessage); ok {
				assert.NotEqual(t, word, chat.Message, "correct guess text must not be relayed")
			}
		case game.Event:
			if m.Message != nil {
				assert.NotEqual(t, word, m.Message.Message, "correct guess text must not be relayed")
			}
		}
	}
	assert.Equal(t, game.CorrectGuessScore, sess.Scores()[guesser])
}
