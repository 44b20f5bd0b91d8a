package bot

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milebot/internal/config"
	"milebot/internal/model"
	"milebot/internal/service/conversation"
	"milebot/internal/telegram"
)

type memStateRepo struct {
	rows map[int64]*model.ConversationState
}

func (r *memStateRepo) Get(ctx context.Context, userID int64) (*model.ConversationState, error) {
	return r.rows[userID], nil
}

func (r *memStateRepo) Upsert(ctx context.Context, state *model.ConversationState) error {
	state.UpdatedAt = time.Now()
	r.rows[state.UserID] = state
	return nil
}

func (r *memStateRepo) Delete(ctx context.Context, userID int64) error {
	delete(r.rows, userID)
	return nil
}

// sentLog records the request bodies the fake Bot API received.
type sentLog struct {
	mu    sync.Mutex
	items []string
}

func (l *sentLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, s)
}

func (l *sentLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.items...)
}

// newDialogueFixture builds a bot with a fake Bot API behind it, just
// enough to drive the conversation transitions.
func newDialogueFixture(t *testing.T) (*Bot, *memStateRepo, *sentLog) {
	t.Helper()

	sent := &sentLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		sent.add(string(body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":1}}}`))
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Telegram.APIURL = server.URL
	cfg.Telegram.Token = "test-token"
	cfg.Telegram.SendRPS = 100
	cfg.Telegram.SendBurst = 10
	cfg.CircuitBreak.MinRequestCount = 100
	cfg.CircuitBreak.FailureRatio = 0.9

	repo := &memStateRepo{rows: make(map[int64]*model.ConversationState)}
	b := &Bot{
		client: telegram.NewClient(cfg),
		cfg:    cfg,
		conv:   conversation.NewService(repo, 0),
	}
	return b, repo, sent
}

func TestStartProposalFlowLeavesUserInFlow(t *testing.T) {
	b, repo, _ := newDialogueFixture(t)
	ctx := context.Background()

	ad := &model.Ad{ID: 111, Kind: model.AdKindSell, Airline: "latam", Quantity: 20000, PricePerK: 25, Status: model.AdStatusActive}
	require.NoError(t, b.startProposalFlow(ctx, 7, 7, ad))

	row := repo.rows[7]
	require.NotNil(t, row)
	assert.Equal(t, model.StateProposalReview, row.State)
	require.NotNil(t, row.Scratch.Proposal)
	assert.Equal(t, int64(111), row.Scratch.Proposal.AdID)

	inFlow, err := b.conv.IsInFlow(ctx, 7)
	require.NoError(t, err)
	assert.True(t, inFlow)
}

// A confirm button from one ad must not spend the draft of another:
// group posts keep old buttons clickable long after the draft moved on.
func TestFinishProposalRejectsMismatchedAd(t *testing.T) {
	b, repo, sent := newDialogueFixture(t)
	ctx := context.Background()

	repo.rows[7] = &model.ConversationState{
		UserID: 7,
		State:  model.StateProposalReview,
		Scratch: model.Scratch{
			Proposal: &model.ProposalDraft{AdID: 111, Quantity: 20000, PricePerK: 25},
		},
	}

	// b.proposals is nil, reaching Create would panic the test
	require.NoError(t, b.finishProposal(ctx, 7, 7, "ana", 999))

	assert.NotContains(t, repo.rows, int64(7), "mismatched confirm must reset the conversation")
	msgs := sent.all()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "outra proposta")
}
