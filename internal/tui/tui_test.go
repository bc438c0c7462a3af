package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceview/internal/events"
	"spaceview/internal/layout"
	"spaceview/internal/trash"
	"spaceview/internal/tree"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeProvider) Scan(ctx context.Context, path string, depth int) (*tree.RawNode, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return fixtureTree(), nil
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain executes a command tree and collects every message it produces.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// readyModel is a model with a completed scan of /data on a 120x40
// window, animation snapped so clicks resolve immediately.
func readyModel(t *testing.T, o Options) model {
	t.Helper()
	if o.Provider == nil {
		o.Provider = &fakeProvider{}
	}
	if o.StartPath == "" {
		o.StartPath = "/data"
	}
	if o.Mode == "" {
		o.Mode = layout.ModeTreemap
	}
	m := newModel(o)

	mm, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = mm.(model)
	mm, _ = m.Update(scanDoneMsg{seq: m.scanSeq, path: o.StartPath, raw: fixtureTree()})
	m = mm.(model)

	require.NotNil(t, m.frame, "scene should be built once size and data exist")
	require.False(t, m.scanning)

	m.anim.Interrupt()
	m.res.SetLocked(false)
	return m
}

func TestDefaultsFillEmptyOptions(t *testing.T) {
	m := newModel(Options{Provider: &fakeProvider{}})
	assert.Equal(t, layout.ModeSunburst, m.mode)
	assert.Equal(t, "/", m.path)
	assert.True(t, m.scanning)
	assert.Equal(t, -1, m.hovered)
}

func TestScanResultBuildsScene(t *testing.T) {
	m := readyModel(t, Options{})
	assert.Equal(t, "/data", m.path)
	assert.Equal(t, layout.ModeTreemap, m.frame.Mode)
	assert.NotEmpty(t, m.frame.Shapes)
	assert.Equal(t, 0, m.frame.Root)
}

func TestStaleScanResultIsDropped(t *testing.T) {
	m := readyModel(t, Options{})

	mm, _ := m.Update(keyRunes("r"))
	m = mm.(model)
	require.True(t, m.scanning)
	seq := m.scanSeq

	mm, _ = m.Update(scanDoneMsg{seq: seq - 1, path: "/elsewhere", raw: fixtureTree()})
	m = mm.(model)
	assert.True(t, m.scanning, "a superseded result must not end the newer scan")
	assert.Equal(t, "/data", m.path)
}

func TestScanFailureKeepsOldScene(t *testing.T) {
	m := readyModel(t, Options{})
	oldFrame := m.frame

	mm, _ := m.Update(keyRunes("r"))
	m = mm.(model)
	mm, _ = m.Update(scanDoneMsg{seq: m.scanSeq, path: m.path, err: errors.New("walk blew up")})
	m = mm.(model)

	assert.False(t, m.scanning)
	assert.Error(t, m.err)
	assert.Same(t, oldFrame, m.frame, "the last good frame stays on screen")
	assert.Contains(t, m.status, "scan failed")
}

func TestModeKeysRebuildWithTransition(t *testing.T) {
	m := readyModel(t, Options{})

	mm, _ := m.Update(keyRunes("3"))
	m = mm.(model)

	assert.Equal(t, layout.ModeCirclePack, m.mode)
	assert.Equal(t, layout.ModeCirclePack, m.frame.Mode)
	assert.True(t, m.anim.Running(time.Now()), "mode switches animate in")
}

func TestSwitchingToCurrentModeIsNoop(t *testing.T) {
	m := readyModel(t, Options{})
	before := m.frame

	mm, cmd := m.Update(keyRunes("2"))
	m = mm.(model)

	assert.Same(t, before, m.frame)
	assert.Nil(t, cmd)
}

func TestEnterDrillsIntoHoveredDirectory(t *testing.T) {
	m := readyModel(t, Options{})
	id, ok := m.hier.Find("/data/media")
	require.True(t, ok)
	m.hovered = id
	m.hoverPath = "/data/media"

	mm, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = mm.(model)
	require.True(t, m.scanning)
	require.NotNil(t, cmd)

	mm, _ = m.Update(scanDoneMsg{seq: m.scanSeq, path: "/data/media", hist: histPush, raw: fixtureTree()})
	m = mm.(model)

	assert.Equal(t, "/data/media", m.path)
	assert.Equal(t, []string{"/data"}, m.history)
	assert.Equal(t, -1, m.hovered, "hover resets across navigations")
}

func TestAscendPopsHistoryOnSuccess(t *testing.T) {
	m := readyModel(t, Options{})
	m.history = []string{"/data"}
	m.path = "/data/media"

	mm, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = mm.(model)
	require.True(t, m.scanning)

	mm, _ = m.Update(scanDoneMsg{seq: m.scanSeq, path: "/data", hist: histPop, raw: fixtureTree()})
	m = mm.(model)

	assert.Equal(t, "/data", m.path)
	assert.Empty(t, m.history)
}

func TestAscendWithoutHistoryWalksToParent(t *testing.T) {
	m := readyModel(t, Options{})

	mm, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = mm.(model)
	require.True(t, m.scanning)

	mm, _ = m.Update(scanDoneMsg{seq: m.scanSeq, path: "/", raw: fixtureTree()})
	m = mm.(model)
	assert.Equal(t, "/", m.path)

	// At the top there is nowhere left to go.
	mm, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = mm.(model)
	assert.False(t, m.scanning)
	assert.Contains(t, m.status, "filesystem root")
}

func TestMouseMotionHoversShape(t *testing.T) {
	m := readyModel(t, Options{})
	mediaID, ok := m.hier.Find("/data/media")
	require.True(t, ok)
	s := m.frame.ShapeFor(mediaID)
	require.NotNil(t, s)

	col := int(s.X + s.W/2)
	row := int((s.Y + s.H/2) / cellAspect)
	mm, _ := m.Update(tea.MouseMsg{
		X: col, Y: row + headerRows,
		Action: tea.MouseActionMotion, Button: tea.MouseButtonNone,
	})
	m = mm.(model)

	require.GreaterOrEqual(t, m.hovered, 0)
	assert.Contains(t, m.chain, mediaID, "hover resolves media or something inside it")
	assert.NotEmpty(t, m.hoverPath)
}

func TestLeftClickNavigatesDirectory(t *testing.T) {
	m := readyModel(t, Options{})
	mediaID, ok := m.hier.Find("/data/media")
	require.True(t, ok)
	s := m.frame.ShapeFor(mediaID)
	require.NotNil(t, s)

	// Aim at the media title strip: inside media, above its children.
	col := int(s.X + s.W/2)
	row := int((s.Y + 7) / cellAspect)
	mm, _ := m.Update(tea.MouseMsg{
		X: col, Y: row + headerRows,
		Action: tea.MouseActionPress, Button: tea.MouseButtonLeft,
	})
	m = mm.(model)

	assert.True(t, m.scanning, "clicking a directory starts the drill-in scan")
}

func TestClicksHeldDuringTransition(t *testing.T) {
	m := readyModel(t, Options{})
	m.res.SetLocked(true)

	mediaID, _ := m.hier.Find("/data/media")
	s := m.frame.ShapeFor(mediaID)
	col := int(s.X + s.W/2)
	row := int((s.Y + 7) / cellAspect)

	mm, _ := m.Update(tea.MouseMsg{
		X: col, Y: row + headerRows,
		Action: tea.MouseActionPress, Button: tea.MouseButtonLeft,
	})
	m = mm.(model)
	assert.False(t, m.scanning, "locked scenes drop clicks")
}

func TestWheelZoomsAndResetRestores(t *testing.T) {
	m := readyModel(t, Options{})

	mm, _ := m.Update(tea.MouseMsg{X: 20, Y: 10, Button: tea.MouseButtonWheelUp})
	m = mm.(model)
	assert.Greater(t, m.vp.Scale, 1.0)

	mm, _ = m.Update(keyRunes("0"))
	m = mm.(model)
	assert.Equal(t, 1.0, m.vp.Scale)
	assert.Zero(t, m.vp.OffsetX)
}

func TestPanKeysShiftTheCamera(t *testing.T) {
	m := readyModel(t, Options{})

	mm, _ := m.Update(keyRunes("l"))
	m = mm.(model)
	assert.Equal(t, -panStep, m.vp.OffsetX, "looking right shifts content left")

	mm, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = mm.(model)
	assert.Equal(t, panStep, m.vp.OffsetY)
}

func TestDeleteFlowConfirmsBeforeActing(t *testing.T) {
	var (
		mu        sync.Mutex
		deleted   []string
		permanent []bool
	)
	invalidated := 0
	m := readyModel(t, Options{
		Delete: func(ctx context.Context, path string, perm bool) (trash.Result, error) {
			mu.Lock()
			defer mu.Unlock()
			deleted = append(deleted, path)
			permanent = append(permanent, perm)
			return trash.Result{Success: true, Method: trash.MethodTrash, Message: "moved to trash"}, nil
		},
		Invalidate: func() { invalidated++ },
	})

	id, ok := m.hier.Find("/data/notes.txt")
	require.True(t, ok)
	m.hovered = id
	m.hoverPath = "/data/notes.txt"

	// d opens the modal with the safe button focused.
	mm, _ := m.Update(keyRunes("d"))
	m = mm.(model)
	require.NotNil(t, m.confirm)
	assert.False(t, m.confirm.permanent)
	assert.Equal(t, 1, m.confirm.focus)

	// Escape cancels without touching anything.
	mm, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = mm.(model)
	require.Nil(t, m.confirm)
	assert.Empty(t, deleted)

	// Reopen, move focus to delete, apply with enter.
	mm, _ = m.Update(keyRunes("d"))
	m = mm.(model)
	mm, _ = m.Update(keyRunes("h"))
	m = mm.(model)
	require.Equal(t, 0, m.confirm.focus)

	mm, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = mm.(model)
	require.Nil(t, m.confirm)
	require.True(t, m.deleting)

	var done *deleteDoneMsg
	for _, msg := range drain(cmd) {
		if d, ok := msg.(deleteDoneMsg); ok {
			done = &d
		}
	}
	require.NotNil(t, done, "the delete command must report back")
	assert.Equal(t, []string{"/data/notes.txt"}, deleted)
	assert.Equal(t, []bool{false}, permanent)

	mm, _ = m.Update(*done)
	m = mm.(model)
	assert.False(t, m.deleting)
	assert.True(t, m.scanning, "a successful delete rescans the view")
	assert.Equal(t, 1, invalidated)
}

func TestPurgeKeyAsksForPermanentDelete(t *testing.T) {
	m := readyModel(t, Options{
		Delete: func(ctx context.Context, path string, perm bool) (trash.Result, error) {
			return trash.Result{Success: true, Method: trash.MethodPermanent}, nil
		},
	})
	id, ok := m.hier.Find("/data/media")
	require.True(t, ok)
	m.hovered = id

	mm, _ := m.Update(keyRunes("D"))
	m = mm.(model)
	require.NotNil(t, m.confirm)
	assert.True(t, m.confirm.permanent)
}

func TestDeleteWithoutHookExplainsItself(t *testing.T) {
	m := readyModel(t, Options{})
	id, _ := m.hier.Find("/data/notes.txt")
	m.hovered = id

	mm, _ := m.Update(keyRunes("d"))
	m = mm.(model)
	assert.Nil(t, m.confirm)
	assert.Contains(t, m.status, "not wired")
}

func TestFailedDeleteSurfacesError(t *testing.T) {
	m := readyModel(t, Options{
		Delete: func(ctx context.Context, path string, perm bool) (trash.Result, error) {
			return trash.Result{}, trash.ErrProtected
		},
	})
	id, _ := m.hier.Find("/data/media")
	m.hovered = id

	mm, _ := m.Update(keyRunes("d"))
	m = mm.(model)
	mm, _ = m.Update(keyRunes("y"))
	m = mm.(model)
	require.True(t, m.deleting)

	mm, _ = m.Update(deleteDoneMsg{path: "/data/media", err: trash.ErrProtected})
	m = mm.(model)
	assert.False(t, m.deleting)
	assert.False(t, m.scanning, "refused deletes do not rescan")
	assert.Contains(t, m.status, "delete failed")
}

func TestFilesystemEventsMarkViewStale(t *testing.T) {
	ch := make(chan events.Event, 1)
	m := readyModel(t, Options{Events: ch})

	mm, cmd := m.Update(fsEventMsg(events.Event{Type: events.TypeModified, Path: "/var/log/syslog"}))
	m = mm.(model)
	assert.False(t, m.stale, "changes outside the view are ignored")
	assert.NotNil(t, cmd, "the event pump re-arms")

	mm, _ = m.Update(fsEventMsg(events.Event{Type: events.TypeCreated, Path: "/data/media/new.iso"}))
	m = mm.(model)
	assert.True(t, m.stale)

	// A completed rescan clears the hint.
	mm, _ = m.Update(keyRunes("r"))
	m = mm.(model)
	mm, _ = m.Update(scanDoneMsg{seq: m.scanSeq, path: "/data", raw: fixtureTree()})
	m = mm.(model)
	assert.False(t, m.stale)
}

func TestHelpOverlayTogglesAndSwallowsKeys(t *testing.T) {
	m := readyModel(t, Options{})

	mm, _ := m.Update(keyRunes("?"))
	m = mm.(model)
	require.True(t, m.showHelp)

	// Mode keys must not leak through the overlay.
	mm, _ = m.Update(keyRunes("3"))
	m = mm.(model)
	assert.Equal(t, layout.ModeTreemap, m.mode)
	assert.True(t, m.showHelp)

	mm, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = mm.(model)
	assert.False(t, m.showHelp)
}

func TestViewRendersChrome(t *testing.T) {
	m := readyModel(t, Options{})
	out := m.View()
	assert.Contains(t, out, "spaceview")
	assert.Contains(t, out, "/data")

	id, _ := m.hier.Find("/data/media")
	m.hovered = id
	m.confirm = &confirmPrompt{path: "/data/media", name: "media", size: 400, focus: 1}
	assert.Contains(t, m.View(), "Move to trash?")
}

func TestUnderneath(t *testing.T) {
	assert.True(t, underneath("/data", "/data"))
	assert.True(t, underneath("/data", "/data/media/movie.mkv"))
	assert.False(t, underneath("/data", "/database"))
	assert.False(t, underneath("/data", ""))
	assert.True(t, underneath("/", "/anything"))
}
