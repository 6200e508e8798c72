package intake

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"linkkeeper/internal/alert"
	"linkkeeper/internal/storage"
)

type sentPrompt struct {
	id     string
	prompt LinkPrompt
}

type fakeChat struct {
	mu            sync.Mutex
	next          int
	selectErr     error
	texts         []string
	prompts       []sentPrompt
	disclosures   []string
	selects       [][]string
	batchConfirms []string
	delConfirms   []string
	deleted       []string
	disabled      []string
	reactions     []string
}

func (f *fakeChat) newID() string {
	f.next++
	return fmt.Sprintf("m%d", f.next)
}

func (f *fakeChat) SendText(_ context.Context, _, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, content)
	return f.newID(), nil
}

func (f *fakeChat) SendLinkPrompt(_ context.Context, _ string, prompt LinkPrompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID()
	f.prompts = append(f.prompts, sentPrompt{id: id, prompt: prompt})
	return id, nil
}

func (f *fakeChat) SendDisclosure(_ context.Context, _, _ string, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID()
	f.disclosures = append(f.disclosures, id)
	return id, nil
}

func (f *fakeChat) SendLinkSelect(_ context.Context, _ string, urls []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selectErr != nil {
		return "", f.selectErr
	}
	f.selects = append(f.selects, urls)
	return f.newID(), nil
}

func (f *fakeChat) SendBatchConfirm(_ context.Context, _ string, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID()
	f.batchConfirms = append(f.batchConfirms, id)
	return id, nil
}

func (f *fakeChat) SendDeleteConfirm(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID()
	f.delConfirms = append(f.delConfirms, id)
	return id, nil
}

func (f *fakeChat) DeleteMessage(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeChat) DisableComponents(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled = append(f.disabled, messageID)
	return nil
}

func (f *fakeChat) React(_ context.Context, _, _, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, emoji)
	return nil
}

func (f *fakeChat) lastPrompt(t *testing.T) sentPrompt {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		t.Fatal("no link prompt was sent")
	}
	return f.prompts[len(f.prompts)-1]
}

func (f *fakeChat) lastSelectID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("m%d", f.next)
}

type fakeAdvisor struct {
	calls int
}

func (a *fakeAdvisor) Verdict(context.Context, string) string {
	a.calls++
	return "Keep\nLooks useful, Safe."
}

func testOptions() Options {
	return Options{
		BurstThreshold:  5,
		BurstWindow:     3 * time.Second,
		AutoExpire:      false,
		ExpireAfter:     5 * time.Second,
		ConfirmTimeout:  4 * time.Second,
		SelectLimit:     25,
		GuildPendingCap: 200,
		SeenCap:         1000,
		ReviewCooldown:  5 * time.Second,
	}
}

func newTestPipeline(t *testing.T, opts Options) (*Pipeline, *fakeChat, *fakeAdvisor, *storage.Store) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	chat := &fakeChat{}
	advisor := &fakeAdvisor{}
	alerts := alert.NewNotifier(zap.NewNop(), time.Minute)
	return NewPipeline(opts, chat, advisor, store, alerts, zap.NewNop()), chat, advisor, store
}

func message(id, content string) Message {
	return Message{
		GuildID:    "g1",
		ChannelID:  "c1",
		MessageID:  id,
		AuthorID:   "u1",
		AuthorName: "alice",
		Content:    content,
	}
}

func pendingCount(t *testing.T, store *storage.Store) int {
	t.Helper()
	entries, err := store.ListPendingForUser(context.Background(), "g1", "u1")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	return len(entries)
}

func TestIdempotentGate(t *testing.T) {
	p, chat, _, store := newTestPipeline(t, testOptions())
	ctx := context.Background()

	msg := message("msg-1", "check this out https://example.com/notes")
	p.HandleMessage(ctx, msg)
	p.HandleMessage(ctx, msg)

	if len(chat.prompts) != 1 {
		t.Fatalf("prompts sent = %d, want 1", len(chat.prompts))
	}
	if got := pendingCount(t, store); got != 1 {
		t.Fatalf("pending rows = %d, want 1", got)
	}
}

func TestBotAndLinklessMessagesIgnored(t *testing.T) {
	p, chat, _, _ := newTestPipeline(t, testOptions())
	ctx := context.Background()

	bot := message("msg-1", "https://example.com/a")
	bot.Bot = true
	p.HandleMessage(ctx, bot)
	p.HandleMessage(ctx, message("msg-2", "no links here"))
	p.HandleMessage(ctx, message("msg-3", "just a picture https://example.com/cat.png"))

	if len(chat.prompts) != 0 {
		t.Fatalf("prompts sent = %d, want 0", len(chat.prompts))
	}
}

func TestSingleLinkSave(t *testing.T) {
	p, chat, advisor, store := newTestPipeline(t, testOptions())
	ctx := context.Background()

	p.HandleMessage(ctx, message("msg-1", "check this out https://example.com/notes"))

	sent := chat.lastPrompt(t)
	if sent.prompt.URL != "https://example.com/notes" || sent.prompt.AuthorID != "u1" {
		t.Fatalf("unexpected prompt: %+v", sent.prompt)
	}
	if advisor.calls != 1 {
		t.Fatalf("advisor calls = %d, want 1", advisor.calls)
	}
	if got := p.Registry().Count("g1"); got != 1 {
		t.Fatalf("guild counter = %d, want 1", got)
	}

	if err := p.HandleSave(ctx, sent.id, "u1", "alice"); err != nil {
		t.Fatalf("save: %v", err)
	}

	if got := pendingCount(t, store); got != 0 {
		t.Fatalf("pending rows after save = %d, want 0", got)
	}
	if got := p.Registry().Count("g1"); got != 0 {
		t.Fatalf("guild counter after save = %d, want 0", got)
	}
	slot, ok := p.Registry().TakeCategorySlot("u1")
	if !ok || slot.URL != "https://example.com/notes" {
		t.Fatalf("to-categorize slot = %+v ok=%v", slot, ok)
	}
}

func TestNonAuthorRejected(t *testing.T) {
	p, chat, _, store := newTestPipeline(t, testOptions())
	ctx := context.Background()

	p.HandleMessage(ctx, message("msg-1", "https://example.com/a"))
	sent := chat.lastPrompt(t)

	if err := p.HandleSave(ctx, sent.id, "intruder", "bob"); err != ErrNotAuthor {
		t.Fatalf("err = %v, want ErrNotAuthor", err)
	}
	if got := pendingCount(t, store); got != 1 {
		t.Fatalf("pending rows = %d, want 1 (no state change)", got)
	}
	if !p.Registry().HasPrompt(sent.id) {
		t.Fatal("prompt should still be live")
	}
}

func TestIgnoreWithConfirmation(t *testing.T) {
	p, chat, _, store := newTestPipeline(t, testOptions())
	ctx := context.Background()

	p.HandleMessage(ctx, message("msg-1", "https://example.com/a"))
	sent := chat.lastPrompt(t)

	if err := p.HandleIgnore(ctx, sent.id, "u1"); err != nil {
		t.Fatalf("ignore: %v", err)
	}
	if len(chat.delConfirms) != 1 {
		t.Fatalf("delete confirms sent = %d, want 1", len(chat.delConfirms))
	}
	confirmID := chat.delConfirms[0]

	if err := p.HandleConfirmDelete(ctx, confirmID, "u1"); err != nil {
		t.Fatalf("confirm delete: %v", err)
	}
	if got := pendingCount(t, store); got != 0 {
		t.Fatalf("pending rows = %d, want 0", got)
	}
	if got := p.Registry().Count("g1"); got != 0 {
		t.Fatalf("guild counter = %d, want 0", got)
	}
	// Origin message, prompt and dialog are all deleted.
	want := map[string]bool{"msg-1": true, sent.id: true, confirmID: true}
	for _, id := range chat.deleted {
		delete(want, id)
	}
	if len(want) != 0 {
		t.Fatalf("messages not deleted: %v", want)
	}
}

func TestCancelDeleteKeepsPrompt(t *testing.T) {
	p, chat, _, store := newTestPipeline(t, testOptions())
	ctx := context.Background()

	p.HandleMessage(ctx, message("msg-1", "https://example.com/a"))
	sent := chat.lastPrompt(t)
	if err := p.HandleIgnore(ctx, sent.id, "u1"); err != nil {
		t.Fatalf("ignore: %v", err)
	}
	if err := p.HandleCancelDelete(ctx, chat.delConfirms[0], "u1"); err != nil {
		t.Fatalf("cancel delete: %v", err)
	}

	if !p.Registry().HasPrompt(sent.id) {
		t.Fatal("prompt should survive a cancelled delete")
	}
	if got := pendingCount(t, store); got != 1 {
		t.Fatalf("pending rows = %d, want 1", got)
	}
}

func TestBurstRoutesToBatch(t *testing.T) {
	p, chat, _, store := newTestPipeline(t, testOptions())
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		p.HandleMessage(ctx, message(fmt.Sprintf("msg-%d", i), fmt.Sprintf("https://example.com/%d", i)))
	}

	// Events 1-5 are per-link prompts, the 6th exceeds the threshold and
	// is queued silently.
	if len(chat.prompts) != 5 {
		t.Fatalf("prompts sent = %d, want 5", len(chat.prompts))
	}
	if got := pendingCount(t, store); got != 6 {
		t.Fatalf("pending rows = %d, want 6", got)
	}
	if len(chat.reactions) != 1 || chat.reactions[0] != batchQueuedEmoji {
		t.Fatalf("reactions = %v, want one filing reaction", chat.reactions)
	}
	bucket := p.Registry().TakeBatch("g1", "u1")
	if len(bucket) != 1 || bucket[0].URL != "https://example.com/6" {
		t.Fatalf("batch bucket = %+v", bucket)
	}
}

func TestMultiLinkSelection(t *testing.T) {
	p, chat, _, store := newTestPipeline(t, testOptions())
	ctx := context.Background()

	p.HandleMessage(ctx, message("msg-1", "a https://example.com/1 b https://example.com/2 c https://example.com/3"))

	if len(chat.disclosures) != 1 {
		t.Fatalf("disclosures = %d, want 1", len(chat.disclosures))
	}
	if err := p.HandleDisclosureYes(ctx, chat.disclosures[0], "u1"); err != nil {
		t.Fatalf("disclosure yes: %v", err)
	}
	if len(chat.selects) != 1 || len(chat.selects[0]) != 3 {
		t.Fatalf("select options = %v, want 3 urls", chat.selects)
	}

	selectID := chat.lastSelectID()
	// Selection values are candidate positions, here links 1 and 3.
	selected := []string{"0", "2"}
	if err := p.HandleSelect(ctx, selectID, "u1", selected); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(chat.batchConfirms) != 1 {
		t.Fatalf("batch confirms = %d, want 1", len(chat.batchConfirms))
	}

	if err := p.HandleBatchConfirm(ctx, chat.batchConfirms[0], "u1"); err != nil {
		t.Fatalf("batch confirm: %v", err)
	}
	if got := pendingCount(t, store); got != 2 {
		t.Fatalf("pending rows = %d, want 2", got)
	}
	if got := p.Registry().Count("g1"); got != 2 {
		t.Fatalf("guild counter = %d, want 2", got)
	}

	progress := 0
	for _, text := range chat.texts {
		if strings.Contains(text, "use /category") {
			progress++
		}
	}
	if progress != 2 {
		t.Fatalf("progress messages = %d, want 2", progress)
	}

	// Only the last batch item survives to categorization.
	slot, ok := p.Registry().TakeCategorySlot("u1")
	if !ok || slot.URL != "https://example.com/3" || slot.DurableID == 0 {
		t.Fatalf("to-categorize slot = %+v ok=%v", slot, ok)
	}
}

func TestSelectKeepsDuplicateOccurrences(t *testing.T) {
	p, chat, _, store := newTestPipeline(t, testOptions())
	ctx := context.Background()

	long := "https://example.com/" + strings.Repeat("x", 140)
	p.HandleMessage(ctx, message("msg-1", "https://example.com/a https://example.com/a "+long))

	if err := p.HandleDisclosureYes(ctx, chat.disclosures[0], "u1"); err != nil {
		t.Fatalf("disclosure yes: %v", err)
	}
	// Each occurrence is its own candidate, overlong URLs included.
	if len(chat.selects) != 1 || len(chat.selects[0]) != 3 {
		t.Fatalf("select candidates = %v, want 3", chat.selects)
	}

	if err := p.HandleSelect(ctx, chat.lastSelectID(), "u1", []string{"0", "1"}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := p.HandleBatchConfirm(ctx, chat.batchConfirms[0], "u1"); err != nil {
		t.Fatalf("batch confirm: %v", err)
	}

	entries, err := store.ListPendingForUser(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("pending rows = %d, want 2 (both occurrences)", len(entries))
	}
	for _, entry := range entries {
		if entry.URL != "https://example.com/a" {
			t.Fatalf("pending url = %q, want both duplicate picks", entry.URL)
		}
	}
}

func TestSelectIgnoresUnknownValues(t *testing.T) {
	p, chat, _, store := newTestPipeline(t, testOptions())
	ctx := context.Background()

	p.HandleMessage(ctx, message("msg-1", "https://example.com/1 https://example.com/2"))
	if err := p.HandleDisclosureYes(ctx, chat.disclosures[0], "u1"); err != nil {
		t.Fatalf("disclosure yes: %v", err)
	}
	if err := p.HandleSelect(ctx, chat.lastSelectID(), "u1", []string{"7", "junk"}); err != nil {
		t.Fatalf("select: %v", err)
	}

	if len(chat.batchConfirms) != 0 {
		t.Fatalf("batch confirms = %d, want 0", len(chat.batchConfirms))
	}
	if got := pendingCount(t, store); got != 0 {
		t.Fatalf("pending rows = %d, want 0", got)
	}
}

func TestSelectSendFailureReported(t *testing.T) {
	p, chat, _, _ := newTestPipeline(t, testOptions())
	ctx := context.Background()

	p.HandleMessage(ctx, message("msg-1", "https://example.com/1 https://example.com/2"))
	chat.selectErr = fmt.Errorf("request entity too large")

	if err := p.HandleDisclosureYes(ctx, chat.disclosures[0], "u1"); err != nil {
		t.Fatalf("disclosure yes: %v", err)
	}

	noticed := false
	for _, text := range chat.texts {
		if strings.Contains(text, "link picker") {
			noticed = true
		}
	}
	if !noticed {
		t.Fatal("failed select send was not reported to the channel")
	}
	if _, ok := p.Registry().PeekFlow(chat.disclosures[0]); ok {
		t.Fatal("flow should be gone after the failed send")
	}
}

func TestDisclosureNoDiscardsAll(t *testing.T) {
	p, chat, _, store := newTestPipeline(t, testOptions())
	ctx := context.Background()

	p.HandleMessage(ctx, message("msg-1", "https://example.com/1 https://example.com/2"))
	if err := p.HandleDisclosureNo(ctx, chat.disclosures[0], "u1"); err != nil {
		t.Fatalf("disclosure no: %v", err)
	}

	if got := pendingCount(t, store); got != 0 {
		t.Fatalf("pending rows = %d, want 0", got)
	}
	if got := p.Registry().Count("g1"); got != 0 {
		t.Fatalf("guild counter = %d, want 0", got)
	}
}

func TestBurstOverflowPastSelectCap(t *testing.T) {
	p, chat, _, store := newTestPipeline(t, testOptions())
	ctx := context.Background()

	var sb strings.Builder
	for i := 1; i <= 30; i++ {
		fmt.Fprintf(&sb, "https://example.com/%d ", i)
	}
	p.HandleMessage(ctx, message("msg-1", sb.String()))

	// 5 overflow links are queued durably before the disclosure step.
	if got := pendingCount(t, store); got != 5 {
		t.Fatalf("pending rows = %d, want 5", got)
	}
	noticed := false
	for _, text := range chat.texts {
		if strings.Contains(text, "/pendinglinks") {
			noticed = true
		}
	}
	if !noticed {
		t.Fatal("overflow notice was not sent")
	}
	if err := p.HandleDisclosureYes(ctx, chat.disclosures[0], "u1"); err != nil {
		t.Fatalf("disclosure yes: %v", err)
	}
	if len(chat.selects[0]) != 25 {
		t.Fatalf("select options = %d, want 25", len(chat.selects[0]))
	}
	if bucket := p.Registry().TakeBatch("g1", "u1"); len(bucket) != 5 {
		t.Fatalf("batch bucket = %d entries, want 5", len(bucket))
	}
}

func TestCapacityCap(t *testing.T) {
	opts := testOptions()
	opts.GuildPendingCap = 1
	p, chat, _, store := newTestPipeline(t, opts)
	ctx := context.Background()

	p.HandleMessage(ctx, message("msg-1", "https://example.com/1"))
	p.HandleMessage(ctx, message("msg-2", "https://example.com/2"))

	if got := pendingCount(t, store); got != 1 {
		t.Fatalf("pending rows = %d, want 1", got)
	}
	if got := p.Registry().Count("g1"); got != 1 {
		t.Fatalf("guild counter = %d, want 1 (stays at cap)", got)
	}
	if len(chat.prompts) != 1 {
		t.Fatalf("prompts sent = %d, want 1", len(chat.prompts))
	}
	noticed := false
	for _, text := range chat.texts {
		if strings.Contains(text, "try again later") {
			noticed = true
		}
	}
	if !noticed {
		t.Fatal("capacity notice was not sent")
	}
}

func TestSaveVsExpireFinalizesOnce(t *testing.T) {
	p, chat, _, store := newTestPipeline(t, testOptions())
	ctx := context.Background()

	p.HandleMessage(ctx, message("msg-1", "https://example.com/a"))
	sent := chat.lastPrompt(t)

	if err := p.HandleSave(ctx, sent.id, "u1", "alice"); err != nil {
		t.Fatalf("save: %v", err)
	}
	// The expiry path loses the race and must no-op.
	p.expirePrompt(sent.id)

	if got := p.Registry().Count("g1"); got != 0 {
		t.Fatalf("guild counter = %d, want 0 (released exactly once)", got)
	}
	if got := pendingCount(t, store); got != 0 {
		t.Fatalf("pending rows = %d, want 0", got)
	}
	if _, ok := p.Registry().TakeCategorySlot("u1"); !ok {
		t.Fatal("save should have won the race")
	}
}

func TestAutoExpiry(t *testing.T) {
	opts := testOptions()
	opts.AutoExpire = true
	opts.ExpireAfter = 30 * time.Millisecond
	p, chat, _, store := newTestPipeline(t, opts)
	ctx := context.Background()

	p.HandleMessage(ctx, message("msg-1", "https://example.com/a"))
	sent := chat.lastPrompt(t)

	time.Sleep(150 * time.Millisecond)

	if p.Registry().HasPrompt(sent.id) {
		t.Fatal("prompt should have expired")
	}
	if got := pendingCount(t, store); got != 0 {
		t.Fatalf("pending rows = %d, want 0", got)
	}
	if got := p.Registry().Count("g1"); got != 0 {
		t.Fatalf("guild counter = %d, want 0", got)
	}
}

func TestReviewPending(t *testing.T) {
	p, chat, advisor, _ := newTestPipeline(t, testOptions())
	ctx := context.Background()

	// 6 quick links: 5 prompted live, the 6th lands in the batch bucket.
	for i := 1; i <= 6; i++ {
		p.HandleMessage(ctx, message(fmt.Sprintf("msg-%d", i), fmt.Sprintf("https://example.com/%d", i)))
	}

	prompted, err := p.ReviewPending(ctx, "g1", "c1", "u1")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	// Only the bucketed link lacks a live prompt.
	if prompted != 1 {
		t.Fatalf("prompted = %d, want 1", prompted)
	}
	if len(chat.prompts) != 6 {
		t.Fatalf("total prompts = %d, want 6", len(chat.prompts))
	}
	// A re-prompt carries a fresh advisory verdict like a first-pass prompt.
	if sent := chat.lastPrompt(t); sent.prompt.Verdict == "" {
		t.Fatal("review prompt is missing the advisory verdict")
	}
	if advisor.calls != 6 {
		t.Fatalf("advisor calls = %d, want 6", advisor.calls)
	}

	if _, err := p.ReviewPending(ctx, "g1", "c1", "u1"); err != ErrRateLimited {
		t.Fatalf("second review err = %v, want ErrRateLimited", err)
	}
}

func TestCategorize(t *testing.T) {
	p, chat, _, store := newTestPipeline(t, testOptions())
	ctx := context.Background()

	p.HandleMessage(ctx, message("msg-1", "https://example.com/notes"))
	sent := chat.lastPrompt(t)
	if err := p.HandleSave(ctx, sent.id, "u1", "alice"); err != nil {
		t.Fatalf("save: %v", err)
	}

	url, err := p.Categorize(ctx, "u1", "golang")
	if err != nil {
		t.Fatalf("categorize: %v", err)
	}
	if url != "https://example.com/notes" {
		t.Fatalf("categorized url = %q", url)
	}

	links, err := store.ListSavedLinks(ctx, "g1", "golang")
	if err != nil {
		t.Fatalf("list saved: %v", err)
	}
	if len(links) != 1 || links[0].Author != "alice" {
		t.Fatalf("saved links = %+v", links)
	}

	if _, err := p.Categorize(ctx, "u1", "again"); err != ErrNothingToCategorize {
		t.Fatalf("second categorize err = %v, want ErrNothingToCategorize", err)
	}
}

func TestGuardCounterInvariant(t *testing.T) {
	r := NewRegistry(2)

	r.Release("g") // clamped, nothing acquired yet
	if got := r.Count("g"); got != 0 {
		t.Fatalf("count after stray release = %d, want 0", got)
	}

	if !r.TryAcquire("g") || !r.TryAcquire("g") {
		t.Fatal("acquires under cap should succeed")
	}
	if r.TryAcquire("g") {
		t.Fatal("acquire at cap should fail")
	}
	if got := r.Count("g"); got != 2 {
		t.Fatalf("count = %d, want 2 (rejected acquire must not mutate)", got)
	}

	r.Release("g")
	r.Release("g")
	r.Release("g")
	if got := r.Count("g"); got != 0 {
		t.Fatalf("count = %d, want 0 (never negative)", got)
	}
}

func TestRehydrateCounters(t *testing.T) {
	p, _, _, store := newTestPipeline(t, testOptions())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.AddPendingLink(ctx, storage.PendingLink{
			GuildID: "g1", UserID: "u1", ChannelID: "c1",
			OriginalMessageID: fmt.Sprintf("old-%d", i),
			URL:               fmt.Sprintf("https://example.com/%d", i),
			CreatedAt:         time.Now(),
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	if err := p.RehydrateCounters(ctx); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if got := p.Registry().Count("g1"); got != 3 {
		t.Fatalf("counter = %d, want 3", got)
	}
}
