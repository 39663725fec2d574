package temporal

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/testsuite"

	"note-enhancer/internal/domain"
	"note-enhancer/internal/enhance"
)

type activityTrace struct {
	mu sync.Mutex

	startedOrder   []string
	completedOrder []string

	loadIn     *LoadNoteInput
	generateIn *GenerateInput
	snapshotIn *SnapshotNoteInput
	applyIn    *ApplyEnhancementInput
	applyOut   *ApplyEnhancementOutput
	recordIn   *RecordOutcomeInput
}

func (t *activityTrace) recordStarted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedOrder = append(t.startedOrder, name)
}

func (t *activityTrace) recordCompleted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completedOrder = append(t.completedOrder, name)
}

var _ = Describe("NoteEnhancementWorkflow blackbox happy path", func() {
	It("enhances a note, snapshots the previous content, and records the outcome", func() {
		var suite testsuite.WorkflowTestSuite
		env := suite.NewTestWorkflowEnvironment()

		noteID := "note-happy-blackbox-1"
		original := "i has went to the store yesterday and buyed some food for the party"
		store := newFakeStore(domain.Note{
			ID:      noteID,
			UserID:  domain.DefaultUserID,
			Title:   "Errands",
			Content: original,
		})
		revisions := newFakeRevisions()
		llm := &stubLLM{responses: []string{
			`Here is the corrected text: "I went to the store yesterday and bought some food for the party."`,
		}}
		acts := &Activities{
			Store:          store,
			Revisions:      revisions,
			LLM:            llm,
			OpenAIModel:    "test-model",
			OpenAITimeout:  5 * time.Second,
			OpenAIMaxRetry: 1,
		}

		trace := &activityTrace{}

		env.SetOnActivityStartedListener(func(info *activity.Info, _ context.Context, args converter.EncodedValues) {
			trace.recordStarted(info.ActivityType.Name)

			trace.mu.Lock()
			defer trace.mu.Unlock()
			switch info.ActivityType.Name {
			case "LoadNoteActivity":
				var in LoadNoteInput
				_ = args.Get(&in)
				trace.loadIn = &in
			case "GenerateActivity":
				var in GenerateInput
				_ = args.Get(&in)
				trace.generateIn = &in
			case "SnapshotNoteActivity":
				var in SnapshotNoteInput
				_ = args.Get(&in)
				trace.snapshotIn = &in
			case "ApplyEnhancementActivity":
				var in ApplyEnhancementInput
				_ = args.Get(&in)
				trace.applyIn = &in
			case "RecordOutcomeActivity":
				var in RecordOutcomeInput
				_ = args.Get(&in)
				trace.recordIn = &in
			}
		})

		env.SetOnActivityCompletedListener(func(info *activity.Info, result converter.EncodedValue, _ error) {
			trace.recordCompleted(info.ActivityType.Name)

			if info.ActivityType.Name == "ApplyEnhancementActivity" {
				var out ApplyEnhancementOutput
				_ = result.Get(&out)
				trace.mu.Lock()
				trace.applyOut = &out
				trace.mu.Unlock()
			}
		})

		env.RegisterWorkflow(NoteEnhancementWorkflow)
		env.RegisterActivity(acts.LoadNoteActivity)
		env.RegisterActivity(acts.GenerateActivity)
		env.RegisterActivity(acts.SnapshotNoteActivity)
		env.RegisterActivity(acts.ApplyEnhancementActivity)
		env.RegisterActivity(acts.RecordOutcomeActivity)

		By("triggering the workflow execution")
		env.ExecuteWorkflow(NoteEnhancementWorkflow, WorkflowInput{
			NoteID:    noteID,
			UserID:    domain.DefaultUserID,
			Operation: domain.OperationImproveGrammar,
		})

		By("validating workflow completes successfully")
		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).ToNot(HaveOccurred())

		var wfResult WorkflowResult
		Expect(env.GetWorkflowResult(&wfResult)).To(Succeed())
		Expect(wfResult.NoteID).To(Equal(noteID))
		Expect(wfResult.Status).To(Equal(domain.OutcomeEnhanced))
		Expect(wfResult.Outcome.Kind).To(Equal(enhance.OutcomeEnhanced))
		Expect(wfResult.Outcome.Text).To(Equal("I went to the store yesterday and bought some food for the party."))
		Expect(wfResult.RevisionID).To(Equal("rev-1"))
		Expect(wfResult.Note).ToNot(BeNil())
		Expect(wfResult.Note.Content).To(Equal(wfResult.Outcome.Text))

		By("validating each activity input for the happy path")
		expectedOrder := []string{
			"LoadNoteActivity",
			"GenerateActivity",
			"SnapshotNoteActivity",
			"ApplyEnhancementActivity",
			"RecordOutcomeActivity",
		}
		Expect(trace.startedOrder).To(Equal(expectedOrder))
		Expect(trace.completedOrder).To(Equal(expectedOrder))

		Expect(trace.loadIn).ToNot(BeNil())
		Expect(trace.loadIn.NoteID).To(Equal(noteID))
		Expect(trace.loadIn.UserID).To(Equal(domain.DefaultUserID))

		Expect(trace.generateIn).ToNot(BeNil())
		Expect(trace.generateIn.Prompt).To(Equal(enhance.DefaultEngine().BuildPrompt(original, domain.OperationImproveGrammar)))
		Expect(trace.generateIn.Prompt).To(ContainSubstring(`"` + original + `"`))

		Expect(trace.snapshotIn).ToNot(BeNil())
		Expect(trace.snapshotIn.Content).To(Equal(original))

		Expect(trace.applyIn).ToNot(BeNil())
		Expect(trace.applyIn.EnhancedFrom).To(Equal(original))
		Expect(trace.applyIn.NewContent).To(Equal(wfResult.Outcome.Text))
		Expect(trace.applyOut).ToNot(BeNil())
		Expect(trace.applyOut.Applied).To(BeTrue())

		Expect(trace.recordIn).ToNot(BeNil())
		Expect(trace.recordIn.Outcome).To(Equal(domain.OutcomeEnhanced))
		Expect(trace.recordIn.Detail).To(Equal("revision rev-1"))

		By("validating persisted side effects from activities and workflow")
		store.mu.Lock()
		stored := store.notes[noteID]
		store.mu.Unlock()
		Expect(stored.Content).To(Equal("I went to the store yesterday and bought some food for the party."))
		Expect(revisions.snapshot[noteID]).To(Equal([]string{original}))
		Expect(store.outcomes(noteID)).To(Equal([]domain.OutcomeStatus{domain.OutcomeEnhanced}))
		Expect(llm.callCount()).To(Equal(1))
	})
})
