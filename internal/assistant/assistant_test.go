package assistant

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/souschef/internal/apperr"
	"github.com/starford/souschef/internal/models"
	"github.com/starford/souschef/internal/testutil"
)

// replyRecorder captures reply requests.
type replyRecorder struct {
	mu   sync.Mutex
	msgs []string
	ch   chan string
}

func newReplyRecorder() *replyRecorder { return &replyRecorder{ch: make(chan string, 8)} }

func (r *replyRecorder) Reply(_ context.Context, instructions string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, instructions)
	r.mu.Unlock()
	r.ch <- instructions
}

func newAssistant(t *testing.T) (*Assistant, *testutil.Stack, *replyRecorder) {
	t.Helper()
	st := testutil.NewStack(t, testutil.Scripted(testutil.LasagnaJSON))
	replies := newReplyRecorder()
	a := New(Deps{
		Index:    st.Manager,
		Engine:   st.Engine,
		Session:  st.Session,
		Timers:   st.Timers,
		Shopping: st.Shopping,
		Emitter:  st.Display,
		Replier:  replies,
		Logger:   testutil.Logger(),
	})
	return a, st, replies
}

func TestSearchWithoutCookbook(t *testing.T) {
	a, _, _ := newAssistant(t)
	r := a.SearchCookbook(context.Background(), "pasta")
	if r.Success || r.Found {
		t.Errorf("result = %+v", r)
	}
	if r.Kind != apperr.KindUnavailable.String() {
		t.Errorf("kind = %q", r.Kind)
	}
	if d := r.Data.(SearchData); d.HasCookbook {
		t.Error("has_cookbook should be false")
	}
}

func TestSearchFound(t *testing.T) {
	a, st, _ := newAssistant(t)
	st.Build(t, map[string]string{"lasagna.md": testutil.LasagnaDoc})

	r := a.SearchCookbook(context.Background(), "lasagna ricotta")
	if !r.Success || !r.Found {
		t.Fatalf("result = %+v", r)
	}
	d := r.Data.(SearchData)
	if !strings.HasPrefix(d.Content, "[Source 1]: ") || len(d.Sources) != 1 {
		t.Errorf("data = %+v", d)
	}

	r = a.SearchRecipes(context.Background(), "beef, ricotta")
	if !r.Found {
		t.Errorf("recipes result = %+v", r)
	}
}

func TestAugmentTurnKeywordGate(t *testing.T) {
	a, st, _ := newAssistant(t)
	if _, ok := a.AugmentTurn(context.Background(), "how do I bake lasagna"); ok {
		t.Error("augmented without an index")
	}
	st.Build(t, map[string]string{"lasagna.md": testutil.LasagnaDoc})

	ctxText, ok := a.AugmentTurn(context.Background(), "How do I bake the lasagna?")
	if !ok || !strings.HasPrefix(ctxText, "[Retrieved from cookbook]: [Source 1]: ") {
		t.Errorf("augment = %q, %v", ctxText, ok)
	}
	if _, ok := a.AugmentTurn(context.Background(), "thanks, that's great"); ok {
		t.Error("augmented a turn without cooking keywords")
	}
}

func TestCookingFlow(t *testing.T) {
	a, st, _ := newAssistant(t)
	ctx := context.Background()

	if r := a.GeneratePlan(ctx, "Lasagna"); r.Success || r.Kind != apperr.KindUnavailable.String() {
		t.Errorf("plan without cookbook = %+v", r)
	}

	st.Build(t, map[string]string{"lasagna.md": testutil.LasagnaDoc})
	r := a.GeneratePlan(ctx, "Lasagna")
	if !r.Success {
		t.Fatalf("GeneratePlan = %+v", r)
	}
	if r.Message != "I've found the recipe for Lasagna. It has 6 steps. Shall we start cooking?" {
		t.Errorf("message = %q", r.Message)
	}

	if r := a.NextStep(ctx); r.Success {
		t.Error("next before start should fail")
	}
	r = a.StartCooking(ctx)
	if r.Message != "Great! Let's get started. Step 1: Brown the beef." {
		t.Errorf("start message = %q", r.Message)
	}
	if r := a.PreviousStep(ctx); r.Success || r.Message != "We're already at the first step." {
		t.Errorf("previous at first = %+v", r)
	}

	r = a.GoToStep(ctx, 4)
	if !r.Success || !strings.HasPrefix(r.Message, "Step 4: Layer") || !strings.Contains(r.Message, "Tip: Finish with sauce.") {
		t.Errorf("goto = %+v", r)
	}
	if r := a.GoToStep(ctx, 9); r.Success || r.Kind != apperr.KindInvalidTransition.String() {
		t.Errorf("goto out of range = %+v", r)
	}
	if r := a.PreviousStep(ctx); r.Message != "Back to Step 3: Mix the ricotta." {
		t.Errorf("previous = %q", r.Message)
	}

	for i := 0; i < 3; i++ {
		a.NextStep(ctx)
	}
	if r := a.NextStep(ctx); !r.Data.(StepData).Complete || r.Message != "That was the last step! Enjoy your meal!" {
		t.Errorf("final next = %+v", r)
	}
	if r := a.NextStep(ctx); r.Success {
		t.Error("next after complete should fail")
	}
}

func TestHandleUIEvents(t *testing.T) {
	a, st, replies := newAssistant(t)
	ctx := context.Background()
	st.Build(t, map[string]string{"lasagna.md": testutil.LasagnaDoc})

	r := a.HandleUIEvent(ctx, UIEvent{Type: "request_recipe", Title: "Lasagna"})
	if !r.Success {
		t.Fatalf("request_recipe = %+v", r)
	}
	select {
	case msg := <-replies.ch:
		if !strings.Contains(msg, "Lasagna") {
			t.Errorf("reply = %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no reply request")
	}

	a.StartCooking(ctx)
	one := 1
	r = a.HandleUIEvent(ctx, UIEvent{Type: "ui_step_change", Action: "next", StepIndex: &one})
	if !r.Success || r.Data.(StepData).StepIndex != 1 {
		t.Errorf("ui next = %+v", r)
	}
	// A voice "next" already moved the cursor; the display's click arrives late.
	a.NextStep(ctx)
	two := 2
	r = a.HandleUIEvent(ctx, UIEvent{Type: "ui_step_change", Action: "next", StepIndex: &two})
	if r.Data.(StepData).StepIndex != 2 {
		t.Errorf("echo moved cursor: %+v", r)
	}

	if r := a.HandleUIEvent(ctx, UIEvent{Type: "dance"}); r.Kind != apperr.KindInvalidInput.String() {
		t.Errorf("unknown event = %+v", r)
	}
	if r := a.HandleUIEvent(ctx, UIEvent{Type: "request_recipe"}); r.Success {
		t.Error("request_recipe without title should fail")
	}
}

func TestReloadCookbookAsyncReplies(t *testing.T) {
	a, st, replies := newAssistant(t)
	testutil.WriteDoc(t, st.Dir, "soup.txt", "Simmer the stock for an hour.")

	r := a.ReloadCookbookAsync(context.Background())
	if !r.Success {
		t.Fatalf("result = %+v", r)
	}
	select {
	case msg := <-replies.ch:
		if !strings.Contains(msg, "Acknowledge") {
			t.Errorf("reply = %q", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reply after reload")
	}
	if !st.Manager.IsAvailable() {
		t.Error("index not built")
	}
	if _, ok := st.Recorder.Last("index.status"); !ok {
		t.Error("no index.status event")
	}
}

func TestReloadCookbookAsyncFailureApologizes(t *testing.T) {
	a, _, replies := newAssistant(t)
	a.ReloadCookbookAsync(context.Background())
	select {
	case msg := <-replies.ch:
		if !strings.Contains(msg, "Apologize") {
			t.Errorf("reply = %q", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reply after failed reload")
	}
}

func TestReloadAndClearCookbook(t *testing.T) {
	a, st, _ := newAssistant(t)
	ctx := context.Background()

	if r := a.ReloadCookbook(ctx); r.Success || r.Message != "no documents" {
		t.Errorf("reload empty = %+v", r)
	}
	testutil.WriteDoc(t, st.Dir, "soup.txt", "Simmer the stock.")
	if r := a.ReloadCookbook(ctx); !r.Success || r.Message != "1 items indexed" {
		t.Errorf("reload = %+v", r)
	}

	r := a.ClearCookbook(ctx, true)
	if !r.Success || r.Message != "index cleared, 1 documents deleted" {
		t.Errorf("clear = %+v", r)
	}
	if r := a.ClearCookbook(ctx, false); !r.Success || r.Message != "index already empty" {
		t.Errorf("second clear = %+v", r)
	}
	metas, _ := st.Store.List()
	if len(metas) != 0 {
		t.Errorf("documents left: %v", metas)
	}
}

func TestKitchenOperations(t *testing.T) {
	a, st, _ := newAssistant(t)
	ctx := context.Background()

	if r := a.SetTimer(ctx, 1, ""); r.Message != "Timer set for 1 minute" {
		t.Errorf("timer = %q", r.Message)
	}
	if r := a.SetTimer(ctx, 20, "pasta"); r.Message != "Timer set for 20 minutes: pasta" {
		t.Errorf("timer = %q", r.Message)
	}
	a.ClearTimers(ctx)

	if r := a.AddToShoppingList(ctx, "eggs|Dairy|🥚|12, butter"); r.Message != "Added eggs, butter to your shopping list!" {
		t.Errorf("add = %q", r.Message)
	}
	if r := a.AddToShoppingList(ctx, "Eggs"); r.Message != "Updated quantities for existing items!" {
		t.Errorf("merge = %q", r.Message)
	}
	if r := a.AddToShoppingList(ctx, " , "); r.Success {
		t.Error("empty add should fail")
	}
	if r := a.RemoveFromShoppingList(ctx, "caviar"); r.Success {
		t.Error("removing a missing item should fail")
	}
	r := a.RemoveFromShoppingList(ctx, "butter")
	if !r.Success || len(r.Data.(ShoppingData).Items) != 1 {
		t.Errorf("remove = %+v", r)
	}
	a.ClearShoppingList(ctx)

	status := a.Status(ctx).Data.(StatusData)
	if len(status.Shopping) != 0 || status.Session.Mode != models.ModeIdle || status.Index.Available {
		t.Errorf("status = %+v", status)
	}

	want := []string{"timer.start", "timer.start", "timer.clear_all", "shopping_list.update", "shopping_list.update", "shopping_list.update", "shopping_list.update", "shopping_list.clear"}
	if got := strings.Join(st.Recorder.Names(), ","); got != strings.Join(want, ",") {
		t.Errorf("events = %s", got)
	}
}

func TestCookbookReloadedAfterClearStaysSilent(t *testing.T) {
	a, st, replies := newAssistant(t)
	a.CookbookReloaded(st.Manager.Status(), nil)
	select {
	case msg := <-replies.ch:
		t.Errorf("unexpected reply %q", msg)
	default:
	}
	if _, ok := st.Recorder.Last("index.status"); !ok {
		t.Error("no index.status event")
	}
}
