package services

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/cargaslack/carga/database"
	"github.com/cargaslack/carga/pkg/sheets"
	"github.com/cargaslack/carga/repository"
	"github.com/cargaslack/carga/ws"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testEnv struct {
	db     *database.DB
	users  repository.UserRepository
	sites  repository.SiteRepository
	squads repository.SquadRepository
	logs   repository.LogRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	require.NoError(t, err)

	db, err := database.New(filepath.Join(t.TempDir(), "carga.db"), migrations, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &testEnv{
		db:     db,
		users:  repository.NewSQLiteUserRepo(db.Conn),
		sites:  repository.NewSQLiteSiteRepo(db.Conn),
		squads: repository.NewSQLiteSquadRepo(db.Conn),
		logs:   repository.NewSQLiteLogRepo(db.Conn),
	}
}

// fakeReader serves fixed workbooks by URL.
type fakeReader struct {
	books map[string]*sheets.Workbook
	err   error
}

func (f *fakeReader) Workbook(_ context.Context, sheetURL string) (*sheets.Workbook, error) {
	if f.err != nil {
		return nil, f.err
	}
	wb, ok := f.books[sheetURL]
	if !ok {
		return nil, sheets.ErrEmptySheet
	}
	return wb, nil
}

func (f *fakeReader) Fetch(ctx context.Context, sheetURL string) (*sheets.Workbook, error) {
	return f.Workbook(ctx, sheetURL)
}

type post struct {
	webhook string
	text    string
}

type fakeNotifier struct {
	mu    sync.Mutex
	posts []post
	err   error
}

func (f *fakeNotifier) Post(_ context.Context, webhookURL, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, post{webhook: webhookURL, text: text})
	return f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []ws.Event
}

func (f *fakePublisher) BroadcastToAll(event ws.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakePublisher) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Op
	}
	return out
}

type sentMail struct {
	to, username, password string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) SendGeneratedPassword(_ context.Context, toEmail, username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{toEmail, username, password})
	return nil
}

var nop = zap.NewNop()

func intp(i int) *int { return &i }

func strp(s string) *string { return &s }
