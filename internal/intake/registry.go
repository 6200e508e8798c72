package intake

import (
	"sync"
	"time"
)

// Prompt is the in-memory side of a pending link, keyed by the id of the
// decision message shown to the author.
type Prompt struct {
	DurableID         int64
	GuildID           string
	UserID            string
	ChannelID         string
	OriginalMessageID string
	URL               string

	timer *time.Timer
}

// DeleteConfirm is a live "are you sure" dialog, keyed by its own message
// id and pointing back at the prompt it belongs to.
type DeleteConfirm struct {
	PromptMessageID string
	ChannelID       string
	UserID          string

	timer *time.Timer
}

// Flow is a multi-link confirmation in progress. It is rekeyed to each new
// UI message as the user advances through disclosure, select and confirm.
type Flow struct {
	GuildID           string
	UserID            string
	UserName          string
	ChannelID         string
	OriginalMessageID string
	URLs              []string
	Selected          []string

	timer *time.Timer
}

// CategorySlot holds the link a user just saved, awaiting a category name.
// One slot per user; a second save overwrites the first.
type CategorySlot struct {
	GuildID   string
	URL       string
	Author    string
	DurableID int64
}

// BatchEntry is a link queued to a user's batch bucket during a burst.
type BatchEntry struct {
	DurableID int64
	URL       string
}

// Registry owns all in-memory workflow state. Callbacks hold only message
// ids and look their records up here, so no state lives in closures.
type Registry struct {
	mu           sync.Mutex
	cap          int
	prompts      map[string]*Prompt
	confirms     map[string]*DeleteConfirm
	flows        map[string]*Flow
	toCategorize map[string]CategorySlot
	batches      map[string][]BatchEntry
	counts       map[string]int
	reviewing    map[string]struct{}
}

func NewRegistry(guildCap int) *Registry {
	return &Registry{
		cap:          guildCap,
		prompts:      make(map[string]*Prompt),
		confirms:     make(map[string]*DeleteConfirm),
		flows:        make(map[string]*Flow),
		toCategorize: make(map[string]CategorySlot),
		batches:      make(map[string][]BatchEntry),
		counts:       make(map[string]int),
		reviewing:    make(map[string]struct{}),
	}
}

func (r *Registry) AddPrompt(messageID string, p *Prompt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts[messageID] = p
}

// ArmPromptExpiry schedules fn once after d, tied to the prompt so
// TakePrompt cancels it. No-op if the prompt is already gone.
func (r *Registry) ArmPromptExpiry(messageID string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.prompts[messageID]; ok {
		p.timer = time.AfterFunc(d, fn)
	}
}

// TakePrompt removes and returns the prompt, stopping its expiry timer.
// The second return is false when another path already finalized it.
func (r *Registry) TakePrompt(messageID string) (*Prompt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prompts[messageID]
	if !ok {
		return nil, false
	}
	delete(r.prompts, messageID)
	if p.timer != nil {
		p.timer.Stop()
	}
	return p, true
}

func (r *Registry) PeekPrompt(messageID string) (*Prompt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prompts[messageID]
	return p, ok
}

func (r *Registry) HasPrompt(messageID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.prompts[messageID]
	return ok
}

func (r *Registry) AddConfirm(messageID string, c *DeleteConfirm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirms[messageID] = c
}

func (r *Registry) ArmConfirmDismiss(messageID string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.confirms[messageID]; ok {
		c.timer = time.AfterFunc(d, fn)
	}
}

func (r *Registry) TakeConfirm(messageID string) (*DeleteConfirm, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.confirms[messageID]
	if !ok {
		return nil, false
	}
	delete(r.confirms, messageID)
	if c.timer != nil {
		c.timer.Stop()
	}
	return c, true
}

func (r *Registry) PeekConfirm(messageID string) (*DeleteConfirm, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.confirms[messageID]
	return c, ok
}

func (r *Registry) AddFlow(messageID string, f *Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[messageID] = f
}

func (r *Registry) ArmFlowTimeout(messageID string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.flows[messageID]; ok {
		f.timer = time.AfterFunc(d, fn)
	}
}

func (r *Registry) TakeFlow(messageID string) (*Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[messageID]
	if !ok {
		return nil, false
	}
	delete(r.flows, messageID)
	if f.timer != nil {
		f.timer.Stop()
	}
	return f, true
}

func (r *Registry) PeekFlow(messageID string) (*Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[messageID]
	return f, ok
}

func (r *Registry) SetCategorySlot(userID string, slot CategorySlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toCategorize[userID] = slot
}

func (r *Registry) TakeCategorySlot(userID string) (CategorySlot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.toCategorize[userID]
	if ok {
		delete(r.toCategorize, userID)
	}
	return slot, ok
}

func (r *Registry) AddBatchEntry(guildID, userID string, entry BatchEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := guildID + "|" + userID
	r.batches[key] = append(r.batches[key], entry)
}

func (r *Registry) TakeBatch(guildID, userID string) []BatchEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := guildID + "|" + userID
	entries := r.batches[key]
	delete(r.batches, key)
	return entries
}

// TryAcquire reserves one pending slot for the guild. A rejected acquire
// leaves the counter untouched.
func (r *Registry) TryAcquire(guildID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts[guildID] >= r.cap {
		return false
	}
	r.counts[guildID]++
	return true
}

// Release frees one pending slot. Clamped at zero because multiple cleanup
// paths may race to finalize the same record.
func (r *Registry) Release(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts[guildID] > 0 {
		r.counts[guildID]--
	}
}

func (r *Registry) Count(guildID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[guildID]
}

// SetCount seeds a guild counter from the durable store at startup.
func (r *Registry) SetCount(guildID string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n > r.cap {
		n = r.cap
	}
	r.counts[guildID] = n
}

// StartReview marks a user's pending review as in progress. Returns false
// if one is already running for that user.
func (r *Registry) StartReview(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviewing[userID]; ok {
		return false
	}
	r.reviewing[userID] = struct{}{}
	return true
}

func (r *Registry) EndReview(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reviewing, userID)
}
