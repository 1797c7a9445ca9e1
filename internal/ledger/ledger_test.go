package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/zinc-sig/tally/internal/retry"
)

var testDay = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func newTestLedger(t *testing.T, dir string, tests ...string) *Ledger {
	t.Helper()
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)

	l, err := New(Options{
		Dir: dir,
		Fields: Fields{
			Number:   "number",
			Origin:   "hostname",
			Unit:     "tag",
			Status:   "pass",
			Duration: "runtime",
		},
		Tests:    tests,
		MapWait:  fastPolicy,
		LockWait: fastPolicy,
		Now:      func() time.Time { return testDay },
		Log:      log,
	})
	require.NoError(t, err)
	return l
}

func cellValue(t *testing.T, path, sheet, cell string) string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	v, err := f.GetCellValue(sheet, cell)
	require.NoError(t, err)
	return v
}

func TestWorkbookPath(t *testing.T) {
	// 23:30 at UTC-5 is already the next UTC day
	local := time.Date(2026, 10, 14, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	assert.Equal(t, filepath.Join("ledgers", "15-10-26.xlsx"), WorkbookPath("ledgers", local))
}

func TestCommitScenario(t *testing.T) {
	dir := t.TempDir()
	l := newTestLedger(t, dir, "t1", "t2")
	ctx := context.Background()

	first := NewRecord("bench-1", "UNIT42", map[string]Status{"t1": StatusPass, "t2": StatusFail}, 1500*time.Millisecond)
	c1, err := l.Commit(ctx, "UNIT42", first)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "14-10-26.xlsx"), c1.Workbook)
	assert.Equal(t, filepath.Join(dir, "UNIT42_cell_map.json"), c1.MapFile)
	assert.Equal(t, 3, c1.Row)
	assert.Equal(t, 1, c1.Sequence)
	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, BlockFail, c1.Block)
	assert.True(t, c1.Created)

	// pass block A..G, separator H, fail block I..O
	book := c1.Workbook
	assert.Equal(t, "PASS", cellValue(t, book, "UNIT42", "A1"))
	assert.Equal(t, "FAIL", cellValue(t, book, "UNIT42", "I1"))
	assert.Equal(t, "t2", cellValue(t, book, "UNIT42", "O2"))
	assert.Equal(t, "1", cellValue(t, book, "UNIT42", "I3"))
	assert.Equal(t, "bench-1", cellValue(t, book, "UNIT42", "J3"))
	assert.Equal(t, "UNIT42", cellValue(t, book, "UNIT42", "K3"))
	assert.Equal(t, "fail", cellValue(t, book, "UNIT42", "L3"))
	assert.Equal(t, "1.5s", cellValue(t, book, "UNIT42", "M3"))
	assert.Equal(t, "pass", cellValue(t, book, "UNIT42", "N3"))
	assert.Equal(t, "fail", cellValue(t, book, "UNIT42", "O3"))
	assert.Equal(t, "", cellValue(t, book, "UNIT42", "A3"))
	assert.Equal(t, "", cellValue(t, book, "UNIT42", "D3"))

	second := NewRecord("bench-1", "UNIT42", map[string]Status{"t1": StatusPass, "t2": StatusPass}, time.Second)
	c2, err := l.Commit(ctx, "UNIT42", second)
	require.NoError(t, err)

	assert.Equal(t, 4, c2.Row)
	assert.Equal(t, 2, c2.Sequence)
	assert.Equal(t, BlockPass, c2.Block)
	assert.False(t, c2.Created)
	assert.Equal(t, "2", cellValue(t, book, "UNIT42", "A4"))
	assert.Equal(t, "pass", cellValue(t, book, "UNIT42", "D4"))
	assert.Equal(t, "", cellValue(t, book, "UNIT42", "I4"))
	assert.Equal(t, "", cellValue(t, book, "UNIT42", "L4"))

	third := NewRecord("bench-2", "UNIT42", map[string]Status{"t1": StatusFail, "t2": StatusFail}, time.Second)
	c3, err := l.Commit(ctx, "UNIT42", third)
	require.NoError(t, err)
	assert.Equal(t, 5, c3.Row)
	assert.Equal(t, 3, c3.Sequence)
}

func TestCommitPersistsWidths(t *testing.T) {
	dir := t.TempDir()
	l := newTestLedger(t, dir, "t1")

	rec := NewRecord("a-very-long-hostname.example.com", "U", map[string]Status{"t1": StatusPass}, time.Second)
	c, err := l.Commit(context.Background(), "U", rec)
	require.NoError(t, err)

	m, err := ReadMap(c.MapFile)
	require.NoError(t, err)
	assert.Equal(t, len("a-very-long-hostname.example.com"), m.Pass["hostname"].LongestString)
	// the fail block never saw the value
	assert.Equal(t, len("hostname"), m.Fail["hostname"].LongestString)

	f, err := excelize.OpenFile(c.Workbook)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	width, err := f.GetColWidth("U", m.Pass["hostname"].Location)
	require.NoError(t, err)
	assert.Equal(t, columnWidth(len("a-very-long-hostname.example.com")), width)

	// a shorter value later does not shrink anything
	short := NewRecord("h", "U", map[string]Status{"t1": StatusPass}, time.Second)
	_, err = l.Commit(context.Background(), "U", short)
	require.NoError(t, err)
	m2, err := ReadMap(c.MapFile)
	require.NoError(t, err)
	assert.Equal(t, m.Pass["hostname"].LongestString, m2.Pass["hostname"].LongestString)
}

func TestCommitSecondSheet(t *testing.T) {
	dir := t.TempDir()
	l := newTestLedger(t, dir, "t1")
	ctx := context.Background()

	_, err := l.Commit(ctx, "ALPHA", NewRecord("h", "ALPHA", map[string]Status{"t1": StatusPass}, 0))
	require.NoError(t, err)
	c, err := l.Commit(ctx, "BETA", NewRecord("h", "BETA", map[string]Status{"t1": StatusFail}, 0))
	require.NoError(t, err)
	assert.True(t, c.Created)
	assert.Equal(t, 3, c.Row)

	f, err := excelize.OpenFile(c.Workbook)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.ElementsMatch(t, []string{"ALPHA", "BETA"}, f.GetSheetList())

	v, err := f.GetCellValue("ALPHA", "D3")
	require.NoError(t, err)
	assert.Equal(t, "pass", v)

	assert.FileExists(t, MapPath(dir, "ALPHA"))
	assert.FileExists(t, MapPath(dir, "BETA"))
}

func TestCommitMalformedMap(t *testing.T) {
	dir := t.TempDir()
	l := newTestLedger(t, dir, "t1")
	ctx := context.Background()

	_, err := l.Commit(ctx, "U", NewRecord("h", "U", map[string]Status{"t1": StatusPass}, 0))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(MapPath(dir, "U"), []byte("garbage"), 0o644))
	_, err = l.Commit(ctx, "U", NewRecord("h", "U", map[string]Status{"t1": StatusPass}, 0))
	assert.ErrorIs(t, err, ErrMalformedMap)

	// the broken map is left for the operator
	data, err := os.ReadFile(MapPath(dir, "U"))
	require.NoError(t, err)
	assert.Equal(t, "garbage", string(data))
}

func TestCommitMissingMapTimesOut(t *testing.T) {
	dir := t.TempDir()
	l := newTestLedger(t, dir, "t1")
	l.mapWait.Timeout = 50 * time.Millisecond
	ctx := context.Background()

	_, err := l.Commit(ctx, "U", NewRecord("h", "U", map[string]Status{"t1": StatusPass}, 0))
	require.NoError(t, err)
	require.NoError(t, os.Remove(MapPath(dir, "U")))

	_, err = l.Commit(ctx, "U", NewRecord("h", "U", map[string]Status{"t1": StatusPass}, 0))
	assert.ErrorIs(t, err, retry.ErrTimeout)
	assert.ErrorIs(t, err, ErrMissingMap)
}

func TestCommitWaitsForMapWithoutLocks(t *testing.T) {
	dir := t.TempDir()
	log, hook := test.NewNullLogger()
	l, err := New(Options{
		Dir:      dir,
		Tests:    []string{"t1"},
		MapWait:  fastPolicy,
		LockWait: fastPolicy,
		Now:      func() time.Time { return testDay },
		Log:      log,
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = l.Commit(ctx, "U", NewRecord("h", "U", map[string]Status{"t1": StatusPass}, 0))
	require.NoError(t, err)
	mapPath := MapPath(dir, "U")
	m, err := ReadMap(mapPath)
	require.NoError(t, err)
	require.NoError(t, os.Remove(mapPath))

	// Restores the map once the commit is waiting, which needs both locks.
	restored := make(chan error, 1)
	go func() {
		deadline := time.Now().Add(fastPolicy.Timeout)
		for !waitingForMap(hook) {
			if time.Now().After(deadline) {
				restored <- errors.New("commit never waited for the map")
				return
			}
			time.Sleep(time.Millisecond)
		}
		locks, err := acquireLocks(ctx, fastPolicy, log, WorkbookPath(dir, testDay), mapPath)
		if err != nil {
			restored <- err
			return
		}
		err = SaveMap(mapPath, m)
		_ = locks.release()
		restored <- err
	}()

	c, err := l.Commit(ctx, "U", NewRecord("h", "U", map[string]Status{"t1": StatusFail}, 0))
	require.NoError(t, <-restored)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Row)
	assert.Equal(t, 2, c.Sequence)
}

func waitingForMap(hook *test.Hook) bool {
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Waiting for map file" {
			return true
		}
	}
	return false
}

func TestCommitChangedTests(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	_, err := newTestLedger(t, dir, "t1").Commit(ctx, "U", NewRecord("h", "U", map[string]Status{"t1": StatusPass}, 0))
	require.NoError(t, err)

	l := newTestLedger(t, dir, "t1", "t2")
	_, err = l.Commit(ctx, "U", NewRecord("h", "U", map[string]Status{"t1": StatusPass, "t2": StatusPass}, 0))
	assert.ErrorIs(t, err, ErrLayoutMismatch)
}

func TestCommitRejectsInvalidRecord(t *testing.T) {
	l := newTestLedger(t, t.TempDir(), "t1", "t2")
	_, err := l.Commit(context.Background(), "U", NewRecord("h", "U", map[string]Status{"t1": StatusPass}, 0))
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestCommitWaitsForLock(t *testing.T) {
	dir := t.TempDir()
	l := newTestLedger(t, dir, "t1")
	l.lockWait.Timeout = 50 * time.Millisecond

	book := WorkbookPath(dir, testDay)
	held := flock.New(book + LockSuffix)
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)

	_, err = l.Commit(context.Background(), "U", NewRecord("h", "U", map[string]Status{"t1": StatusPass}, 0))
	assert.ErrorIs(t, err, retry.ErrTimeout)
	assert.NoFileExists(t, book)

	require.NoError(t, held.Unlock())
	l.lockWait.Timeout = time.Second
	c, err := l.Commit(context.Background(), "U", NewRecord("h", "U", map[string]Status{"t1": StatusPass}, 0))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Row)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Options{Tests: []string{"t1"}})
	assert.Error(t, err)

	_, err = New(Options{Dir: "x"})
	assert.Error(t, err)

	_, err = New(Options{Dir: "x", Tests: []string{"pass"}})
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = New(Options{Dir: "x", Tests: []string{"t1"}, StartColumn: "XFC"})
	assert.ErrorIs(t, err, ErrColumnOverflow)
}
