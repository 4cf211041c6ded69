package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-pdfchat-client/internal/constant"
	"ai-pdfchat-client/internal/dto"
	"ai-pdfchat-client/internal/entity"
	"ai-pdfchat-client/internal/pkg/apperr"
	"ai-pdfchat-client/internal/pkg/logger"
	"ai-pdfchat-client/internal/repository/memory"
	"ai-pdfchat-client/pkg/chat/ledger"
	"ai-pdfchat-client/pkg/chat/session"
	"ai-pdfchat-client/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves both the session directory and the answering service.
type fakeBackend struct {
	mu sync.Mutex

	sessions  []dto.SessionResponse
	nextId    int
	createErr error

	saved   []*dto.SaveMessageRequest
	saveErr error

	uploadErr map[string]error
	calls     []string

	streamReqs []*dto.StreamRequest
	openStream func(ctx context.Context, req *dto.StreamRequest) (io.ReadCloser, error)
}

func (f *fakeBackend) ListSessions(_ context.Context) ([]dto.SessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dto.SessionResponse(nil), f.sessions...), nil
}

func (f *fakeBackend) CreateSession(_ context.Context) (*dto.SessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextId++
	s := dto.SessionResponse{SessionId: fmt.Sprintf("s-%d", f.nextId), Name: "Chat 01/05/2024 10:00:00"}
	f.sessions = append([]dto.SessionResponse{s}, f.sessions...)
	return &s, nil
}

func (f *fakeBackend) RenameSession(_ context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "rename:"+name)
	return nil
}

func (f *fakeBackend) DeleteSession(_ context.Context, _ string) error { return nil }

func (f *fakeBackend) SaveMessage(_ context.Context, req *dto.SaveMessageRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, req)
	return f.saveErr
}

func (f *fakeBackend) Upload(_ context.Context, sessionId string, file entity.PendingUpload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "upload:"+file.Name)
	if sessionId == constant.NewSessionID {
		return errors.New("upload against placeholder session")
	}
	return f.uploadErr[file.Name]
}

func (f *fakeBackend) OpenStream(ctx context.Context, req *dto.StreamRequest) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "stream")
	f.streamReqs = append(f.streamReqs, req)
	open := f.openStream
	f.mu.Unlock()
	return open(ctx, req)
}

func (f *fakeBackend) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) streamCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streamReqs)
}

func staticStream(frames ...string) func(context.Context, *dto.StreamRequest) (io.ReadCloser, error) {
	return func(context.Context, *dto.StreamRequest) (io.ReadCloser, error) {
		var b strings.Builder
		for _, f := range frames {
			b.WriteString("data: " + f + "\n\n")
		}
		return io.NopCloser(strings.NewReader(b.String())), nil
	}
}

// pipeStream hands the write side to the test; cancelling the run closes it.
func pipeStream(writers chan<- *io.PipeWriter) func(context.Context, *dto.StreamRequest) (io.ReadCloser, error) {
	return func(ctx context.Context, _ *dto.StreamRequest) (io.ReadCloser, error) {
		pr, pw := io.Pipe()
		go func() {
			<-ctx.Done()
			pr.CloseWithError(ctx.Err())
		}()
		writers <- pw
		return pr, nil
	}
}

type failingReader struct {
	data string
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("connection reset by peer")
}

func (r *failingReader) Close() error { return nil }

type countingComposer struct {
	mu      sync.Mutex
	input   string
	uploads []entity.PendingUpload
	cleared int
}

func (c *countingComposer) set(input string, uploads ...entity.PendingUpload) {
	c.mu.Lock()
	c.input, c.uploads = input, uploads
	c.mu.Unlock()
}

func (c *countingComposer) Snapshot() (string, []entity.PendingUpload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input, c.uploads
}

func (c *countingComposer) Clear() {
	c.mu.Lock()
	c.input, c.uploads = "", nil
	c.cleared++
	c.mu.Unlock()
}

func (c *countingComposer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleared
}

// slowCreateBackend holds CreateSession until the test releases it.
type slowCreateBackend struct {
	*fakeBackend
	entered chan struct{}
	release chan struct{}
}

func (b *slowCreateBackend) CreateSession(ctx context.Context) (*dto.SessionResponse, error) {
	close(b.entered)
	<-b.release
	return b.fakeBackend.CreateSession(context.WithoutCancel(ctx))
}

type harness struct {
	ctrl     *Controller
	backend  *fakeBackend
	store    *session.Store
	ledger   *ledger.Ledger
	composer *countingComposer
	recorder *events.Recorder
}

func newHarness(t *testing.T, backend *fakeBackend) *harness {
	t.Helper()
	return newHarnessWith(t, backend, backend)
}

// newHarnessWith lets api wrap backend to change the session directory.
func newHarnessWith(t *testing.T, api session.Remote, backend *fakeBackend) *harness {
	t.Helper()
	sc := session.NewContext(memory.NewClientStateRepository())
	require.NoError(t, sc.Init(context.Background()))

	store := session.NewStore(api, sc, logger.NewNopLogger())
	l := ledger.New()
	composer := &countingComposer{}
	recorder := events.NewRecorder()

	return &harness{
		ctrl:     NewController(store, l, backend, composer, recorder, logger.NewNopLogger()),
		backend:  backend,
		store:    store,
		ledger:   l,
		composer: composer,
		recorder: recorder,
	}
}

func notifications(t *testing.T, r *events.Recorder) []dto.Notification {
	t.Helper()
	var out []dto.Notification
	for _, e := range r.OfType(constant.EventNotification) {
		var n dto.Notification
		require.NoError(t, events.DecodePayload(e, "notification", &n))
		out = append(out, n)
	}
	return out
}

func TestSend_TextOnlyStreamsAndFinalizes(t *testing.T) {
	h := newHarness(t, &fakeBackend{openStream: staticStream(`{"answer":"Hel"}`, `{"answer":"lo"}`)})

	err := h.ctrl.Send(context.Background(), Turn{Text: "  Say hello  "})
	require.NoError(t, err)

	msgs := h.ledger.Snapshot()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Say hello", msgs[0].Content)
	assert.True(t, msgs[0].IsUser())
	assert.Equal(t, "Hello", msgs[1].Content)
	assert.False(t, msgs[1].IsStreaming)
	assert.Equal(t, Idle, h.ctrl.Phase())
	assert.Equal(t, 1, h.composer.count())

	active := h.store.Active()
	assert.NotEqual(t, constant.NewSessionID, active.Id)
	count := 0
	for _, s := range h.store.Sessions() {
		if s.Id == active.Id {
			count++
		}
	}
	assert.Equal(t, 1, count)

	require.Len(t, h.backend.saved, 2)
	assert.Equal(t, constant.ChatMessageSenderUser, h.backend.saved[0].Sender)
	assert.Equal(t, "Hello", h.backend.saved[1].Content)
	assert.Equal(t, active.Id, h.backend.saved[1].SessionId)

	req := h.backend.streamReqs[0]
	assert.Equal(t, "Say hello", req.Input.Question)
	assert.Equal(t, active.Id, req.Config.Configurable.SessionId)
	assert.NotNil(t, req.Input.ChatHistory)

	// user, placeholder, two fragments, final
	assert.Len(t, h.recorder.OfType(constant.EventMessageUpdated), 5)
}

func TestSend_FragmentsAreVisibleOneByOne(t *testing.T) {
	writers := make(chan *io.PipeWriter, 1)
	h := newHarness(t, &fakeBackend{openStream: pipeStream(writers)})

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Send(context.Background(), Turn{Text: "q"}) }()

	pw := <-writers
	_, err := io.WriteString(pw, "data: {\"answer\":\"one \"}\n")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		last, ok := h.ledger.Last()
		return ok && last.Content == "one " && last.IsStreaming
	}, time.Second, 5*time.Millisecond)
	assert.True(t, h.ctrl.Phase().IsGenerating())

	_, err = io.WriteString(pw, "data: {\"answer\":\"two\"}\n")
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	require.NoError(t, <-done)

	last, _ := h.ledger.Last()
	assert.Equal(t, "one two", last.Content)
	assert.False(t, h.ctrl.Phase().IsGenerating())
}

func TestSend_RejectedWhileBusy(t *testing.T) {
	writers := make(chan *io.PipeWriter, 1)
	h := newHarness(t, &fakeBackend{openStream: pipeStream(writers)})

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Send(context.Background(), Turn{Text: "first"}) }()
	pw := <-writers

	before := h.ledger.Len()
	activeBefore := h.store.Active()

	err := h.ctrl.Send(context.Background(), Turn{Text: "second"})
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, before, h.ledger.Len())
	assert.Equal(t, activeBefore, h.store.Active())
	assert.ErrorIs(t, h.ctrl.Regenerate(context.Background()), ErrBusy)

	require.NoError(t, pw.Close())
	require.NoError(t, <-done)
}

func TestSend_EmptyTurnIsRejected(t *testing.T) {
	h := newHarness(t, &fakeBackend{openStream: staticStream()})
	assert.ErrorIs(t, h.ctrl.Send(context.Background(), Turn{Text: " \n\t"}), ErrEmptyTurn)
	assert.Zero(t, h.ledger.Len())
	assert.Zero(t, h.composer.count())
	assert.Empty(t, h.backend.callLog())
}

func TestSend_StreamFailsAfterPartialFrame(t *testing.T) {
	h := newHarness(t, &fakeBackend{
		openStream: func(context.Context, *dto.StreamRequest) (io.ReadCloser, error) {
			return &failingReader{data: "data: {\"answer\":\"Hi\"}\n"}, nil
		},
	})

	err := h.ctrl.Send(context.Background(), Turn{Text: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrStream)

	last, ok := h.ledger.Last()
	require.True(t, ok)
	assert.Equal(t, constant.ErrorMessageMarker, last.Content)
	assert.False(t, last.IsStreaming)
	assert.False(t, h.ctrl.Phase().IsGenerating())
	assert.False(t, h.ctrl.Phase().IsProcessingFiles())

	notes := notifications(t, h.recorder)
	require.NotEmpty(t, notes)
	assert.True(t, notes[len(notes)-1].Destructive)
	assert.Equal(t, "Answer interrupted", notes[len(notes)-1].Title)

	// Only the user message was persisted.
	require.Len(t, h.backend.saved, 1)
}

func TestSend_StreamOpenFails(t *testing.T) {
	h := newHarness(t, &fakeBackend{
		openStream: func(context.Context, *dto.StreamRequest) (io.ReadCloser, error) {
			return nil, apperr.NewRemoteError("open stream", 500, "internal")
		},
	})

	err := h.ctrl.Send(context.Background(), Turn{Text: "q"})
	assert.ErrorIs(t, err, apperr.ErrRemote)

	last, _ := h.ledger.Last()
	assert.Equal(t, constant.ErrorMessageMarker, last.Content)
	assert.Equal(t, Idle, h.ctrl.Phase())
}

func TestSend_SessionCreationFailureAbortsWithoutSideEffects(t *testing.T) {
	h := newHarness(t, &fakeBackend{
		createErr:  fmt.Errorf("%w: dial tcp", apperr.ErrNetwork),
		openStream: staticStream(`{"answer":"x"}`),
	})

	err := h.ctrl.Send(context.Background(), Turn{Text: "hello"})
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.Zero(t, h.ledger.Len())
	assert.Zero(t, h.composer.count())
	assert.Empty(t, h.backend.saved)
	assert.Zero(t, h.backend.streamCount())
	assert.True(t, h.store.Active().IsPlaceholder())
	assert.Equal(t, Idle, h.ctrl.Phase())

	notes := notifications(t, h.recorder)
	require.Len(t, notes, 1)
	assert.Equal(t, "Failed to create session", notes[0].Title)
}

func TestSend_UploadOnlyNamesSessionBeforeSummary(t *testing.T) {
	backend := &fakeBackend{}
	h := newHarness(t, backend)

	var nameAtStreamOpen string
	backend.openStream = func(ctx context.Context, req *dto.StreamRequest) (io.ReadCloser, error) {
		nameAtStreamOpen = h.store.Active().Name
		return staticStream(`{"answer":"The report covers Q1."}`)(ctx, req)
	}

	err := h.ctrl.Send(context.Background(), Turn{
		Uploads: []entity.PendingUpload{{Name: "report.pdf", MimeType: constant.PDFMimeType}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Document Analysis report.pdf", nameAtStreamOpen)
	assert.Equal(t, "Document Analysis report.pdf", h.store.Active().Name)
	assert.Equal(t, h.store.Active().Id, h.store.Sessions()[0].Id)
	assert.Equal(t, constant.SummaryPrompt, backend.streamReqs[0].Input.Question)

	msgs := h.ledger.Snapshot()
	require.Len(t, msgs, 2)
	assert.Equal(t, "", msgs[0].Content)
	require.Len(t, msgs[0].Attachments, 1)
	assert.Equal(t, "report.pdf", msgs[0].Attachments[0].Name)
	assert.Equal(t, "The report covers Q1.", msgs[1].Content)
}

func TestSend_FilesWithTextUploadSequentiallyBeforeStream(t *testing.T) {
	backend := &fakeBackend{openStream: staticStream(`{"answer":"ok"}`)}
	h := newHarness(t, backend)

	err := h.ctrl.Send(context.Background(), Turn{
		Text: "Compare them",
		Uploads: []entity.PendingUpload{
			{Name: "a.pdf", MimeType: constant.PDFMimeType},
			{Name: "b.pdf", MimeType: constant.PDFMimeType},
		},
	})
	require.NoError(t, err)

	var order []string
	for _, call := range backend.callLog() {
		if !strings.HasPrefix(call, "rename:") {
			order = append(order, call)
		}
	}
	assert.Equal(t, []string{"upload:a.pdf", "upload:b.pdf", "stream"}, order)
	assert.Equal(t, "Compare them", backend.streamReqs[0].Input.Question)
}

func TestSend_UploadFailureNeverOpensStream(t *testing.T) {
	backend := &fakeBackend{
		openStream: staticStream(`{"answer":"never"}`),
		uploadErr:  map[string]error{"b.pdf": apperr.NewRemoteError("upload", 413, "too large")},
	}
	h := newHarness(t, backend)

	err := h.ctrl.Send(context.Background(), Turn{
		Text: "Compare them",
		Uploads: []entity.PendingUpload{
			{Name: "a.pdf"}, {Name: "b.pdf"}, {Name: "c.pdf"},
		},
	})
	assert.ErrorIs(t, err, apperr.ErrRemote)
	assert.Zero(t, backend.streamCount())
	assert.NotContains(t, backend.callLog(), "upload:c.pdf")

	// The user message stays; no placeholder was created.
	assert.Equal(t, 1, h.ledger.Len())
	assert.Equal(t, 1, h.composer.count())
	assert.Equal(t, Idle, h.ctrl.Phase())
	assert.False(t, h.ctrl.Phase().IsProcessingFiles())
}

func TestSend_PersistenceFailureIsBestEffort(t *testing.T) {
	h := newHarness(t, &fakeBackend{
		saveErr:    errors.New("db down"),
		openStream: staticStream(`{"answer":"fine"}`),
	})

	require.NoError(t, h.ctrl.Send(context.Background(), Turn{Text: "q"}))
	last, _ := h.ledger.Last()
	assert.Equal(t, "fine", last.Content)
	assert.Empty(t, notifications(t, h.recorder))
}

func TestSend_ReferencesLastWriteWins(t *testing.T) {
	h := newHarness(t, &fakeBackend{openStream: staticStream(
		`{"answer":"a","references":[{"text":"x","page":1,"source":"r.pdf"},{"text":"y","page":2,"source":"r.pdf"}]}`,
		`{"answer":"b","references":[]}`,
	)})

	require.NoError(t, h.ctrl.Send(context.Background(), Turn{Text: "q"}))

	last, _ := h.ledger.Last()
	assert.Equal(t, "ab", last.Content)
	assert.Empty(t, last.References)
	assert.Empty(t, h.backend.saved[1].References)
}

func TestSend_ReferencesPersistedWithAnswer(t *testing.T) {
	h := newHarness(t, &fakeBackend{openStream: staticStream(
		`{"answer":"a","references":[{"text":"x","page":3,"source":"r.pdf"}]}`,
		`{"answer":"b"}`,
	)})

	require.NoError(t, h.ctrl.Send(context.Background(), Turn{Text: "q"}))
	require.Len(t, h.backend.saved, 2)
	require.Len(t, h.backend.saved[1].References, 1)
	assert.Equal(t, 3, h.backend.saved[1].References[0].Page)
}

func TestSend_TextTurnNamesUnnamedSessionFromAnswer(t *testing.T) {
	h := newHarness(t, &fakeBackend{openStream: staticStream(`{"answer":"Revenue grew\nDetails follow"}`)})

	require.NoError(t, h.ctrl.Send(context.Background(), Turn{Text: "How did revenue do?"}))
	assert.Equal(t, "Revenue grew", h.store.Active().Name)
}

func TestRegenerate_NoAnswerIsNoop(t *testing.T) {
	h := newHarness(t, &fakeBackend{openStream: staticStream(`{"answer":"x"}`)})

	assert.ErrorIs(t, h.ctrl.Regenerate(context.Background()), ErrNothingToRegenerate)
	assert.Zero(t, h.ledger.Len())
	assert.Empty(t, h.backend.callLog())
}

func TestRegenerate_ReplacesLastAnswer(t *testing.T) {
	backend := &fakeBackend{openStream: staticStream(`{"answer":"first"}`)}
	h := newHarness(t, backend)
	require.NoError(t, h.ctrl.Send(context.Background(), Turn{Text: "question"}))

	backend.mu.Lock()
	backend.openStream = staticStream(`{"answer":"second"}`)
	backend.mu.Unlock()

	require.NoError(t, h.ctrl.Regenerate(context.Background()))

	msgs := h.ledger.Snapshot()
	require.Len(t, msgs, 2)
	assert.Equal(t, "question", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, "question", backend.streamReqs[1].Input.Question)
	assert.Equal(t, 1, h.composer.count(), "an empty composer is left alone")
}

func TestRegenerate_SendsComposerInput(t *testing.T) {
	backend := &fakeBackend{openStream: staticStream(`{"answer":"first"}`)}
	h := newHarness(t, backend)
	require.NoError(t, h.ctrl.Send(context.Background(), Turn{Text: "question"}))
	sessionId := h.store.Active().Id

	backend.mu.Lock()
	backend.openStream = staticStream(`{"answer":"rephrased answer"}`)
	backend.mu.Unlock()
	h.composer.set("  ask it differently ")

	require.NoError(t, h.ctrl.Regenerate(context.Background()))

	msgs := h.ledger.Snapshot()
	require.Len(t, msgs, 3)
	assert.Equal(t, "question", msgs[0].Content)
	assert.Equal(t, "ask it differently", msgs[1].Content)
	assert.True(t, msgs[1].IsUser())
	assert.Equal(t, "rephrased answer", msgs[2].Content)

	assert.Equal(t, "ask it differently", backend.streamReqs[1].Input.Question)
	assert.Equal(t, sessionId, h.store.Active().Id, "no new session")
	assert.Equal(t, 2, h.composer.count(), "composer is cleared once the turn is committed")
	assert.Equal(t, Idle, h.ctrl.Phase())
}

func TestSend_CancelledCreateDoesNotActivateSession(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	backend := &fakeBackend{openStream: staticStream(`{"answer":"late"}`)}
	h := newHarnessWith(t, &slowCreateBackend{fakeBackend: backend, entered: entered, release: release}, backend)

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Send(context.Background(), Turn{Text: "q"}) }()

	<-entered
	require.True(t, h.ctrl.Abandon())
	other := []entity.ChatMessage{{Id: "1", Sender: constant.ChatMessageSenderUser, Content: "history of b"}}
	h.ledger.ReplaceAll(other)
	close(release)

	require.NoError(t, <-done)
	assert.True(t, h.store.Active().IsPlaceholder(), "abandoned create must not take over")
	msgs := h.ledger.Snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, "history of b", msgs[0].Content)
	assert.Zero(t, backend.streamCount())
	assert.Empty(t, h.recorder.OfType(constant.EventSessionChanged))
}

func TestStop_CancelsStreamAndKeepsPartialText(t *testing.T) {
	writers := make(chan *io.PipeWriter, 1)
	h := newHarness(t, &fakeBackend{openStream: pipeStream(writers)})

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Send(context.Background(), Turn{Text: "q"}) }()

	pw := <-writers
	_, err := io.WriteString(pw, "data: {\"answer\":\"partial \"}\n")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		last, ok := h.ledger.Last()
		return ok && last.Content == "partial "
	}, time.Second, 5*time.Millisecond)

	assert.True(t, h.ctrl.Stop(context.Background()))
	assert.Equal(t, Idle, h.ctrl.Phase())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("send did not return after stop")
	}

	last, _ := h.ledger.Last()
	assert.Equal(t, "partial", last.Content)
	assert.False(t, last.IsStreaming)

	notes := notifications(t, h.recorder)
	require.NotEmpty(t, notes)
	assert.Equal(t, "Generation stopped", notes[len(notes)-1].Title)
	assert.False(t, h.ctrl.Stop(context.Background()), "stop while idle is a no-op")
}

func TestAbandon_StaleStreamIsDiscarded(t *testing.T) {
	writers := make(chan *io.PipeWriter, 1)
	h := newHarness(t, &fakeBackend{openStream: pipeStream(writers)})

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Send(context.Background(), Turn{Text: "q"}) }()
	<-writers

	assert.Eventually(t, func() bool { return h.ctrl.Phase() == Streaming }, time.Second, 5*time.Millisecond)

	other := []entity.ChatMessage{{Id: "1", Sender: constant.ChatMessageSenderUser, Content: "from session B"}}
	require.True(t, h.ctrl.Abandon())
	h.ledger.ReplaceAll(other)

	require.NoError(t, <-done)
	assert.Equal(t, other[0].Content, h.ledger.Snapshot()[0].Content)
	assert.Equal(t, 1, h.ledger.Len())
	assert.Empty(t, notifications(t, h.recorder))
}

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{Idle, EnsuringSession, true},
		{Idle, Streaming, true},
		{Idle, Ingesting, false},
		{Idle, Idle, false},
		{EnsuringSession, Ingesting, true},
		{EnsuringSession, Streaming, true},
		{Ingesting, Streaming, true},
		{Ingesting, Finalizing, false},
		{Streaming, Finalizing, true},
		{Streaming, Ingesting, false},
		{Finalizing, Idle, true},
		{Finalizing, Streaming, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, canTransition(tt.from, tt.to))
		})
	}

	assert.True(t, Streaming.IsGenerating())
	assert.True(t, Finalizing.IsGenerating())
	assert.False(t, Ingesting.IsGenerating())
	assert.True(t, Ingesting.IsProcessingFiles())
}
