//go:build system

package system_test

import (
	"context"
	"net/http"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"note-enhancer/internal/domain"
	"note-enhancer/internal/enhance"
	appTemporal "note-enhancer/internal/temporal"
)

var _ = Describe("System blackbox note enhancement", Ordered, func() {
	var cfg systemTestConfig
	var apiBaseURL string

	BeforeAll(func() {
		if os.Getenv("RUN_BLACKBOX_SYSTEM_TEST") != "1" {
			Skip("set RUN_BLACKBOX_SYSTEM_TEST=1 to run real blackbox system test")
		}

		cfg = loadSystemTestConfig()
		apiBaseURL = cfg.APIBaseURL

		repoRoot, err := findRepoRoot()
		Expect(err).ToNot(HaveOccurred())

		By("verifying required docker compose services (including worker) are already running")
		Expect(requireComposeServicesRunning(repoRoot, cfg.ComposeServices)).To(Succeed())

		By("failing fast if infrastructure is unreachable")
		Expect(preflight(cfg)).To(Succeed())
		Expect(applyMigrations(repoRoot, cfg.PostgresDSN)).To(Succeed())
	})

	It("rejects an ineligible note without calling the generation service", func() {
		note, err := createNote(apiBaseURL, cfg.UserID, "Scratch", "asdfgh")
		Expect(err).ToNot(HaveOccurred())

		resp, status, err := enhanceNote(apiBaseURL, cfg.UserID, note.ID, domain.OperationExpand)
		Expect(err).ToNot(HaveOccurred())
		Expect(status).To(Equal(http.StatusOK))
		Expect(resp.Status).To(Equal(domain.OutcomeRejected))
		Expect(resp.Outcome).ToNot(BeNil())
		Expect(resp.Outcome.Reason).To(Equal(enhance.ReasonRandom))

		temporalClient, err := dialTemporal(cfg)
		Expect(err).ToNot(HaveOccurred())
		defer temporalClient.Close()

		trace, err := collectActivityTrace(context.Background(), temporalClient, resp.WorkflowID)
		Expect(err).ToNot(HaveOccurred())
		Expect(trace.ScheduledOrder).To(Equal([]string{"LoadNoteActivity", "RecordOutcomeActivity"}))
	})

	It("creates a note over HTTP and runs an enhancement via a real worker", func() {
		original := "i has went to the store yesterday and buyed some food for the party"
		note, err := createNote(apiBaseURL, cfg.UserID, "Errands", original)
		Expect(err).ToNot(HaveOccurred())
		Expect(note.ID).ToNot(BeEmpty())

		By("requesting an enhancement exactly like the UI")
		resp, status, err := enhanceNote(apiBaseURL, cfg.UserID, note.ID, domain.OperationImproveGrammar)
		Expect(err).ToNot(HaveOccurred())
		Expect(status).To(BeElementOf(http.StatusOK, http.StatusAccepted, http.StatusConflict))
		Expect(resp.WorkflowID).ToNot(BeEmpty())

		By("polling the enhancement status until the workflow completes")
		Eventually(func() domain.EnhancementStage {
			st, statusErr := getEnhanceStatus(apiBaseURL, cfg.UserID, note.ID)
			Expect(statusErr).ToNot(HaveOccurred())
			Expect(st.Stage).ToNot(Equal(domain.StageFailed))
			return st.Stage
		}, cfg.WorkflowCompletionTimeout, cfg.WorkflowPollInterval).Should(Equal(domain.StageCompleted))

		finalStatus, err := getEnhanceStatus(apiBaseURL, cfg.UserID, note.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(finalStatus.Outcome).To(BeElementOf(domain.OutcomeEnhanced, domain.OutcomeSuggestion))

		By("validating activity inputs from Temporal workflow history")
		temporalClient, err := dialTemporal(cfg)
		Expect(err).ToNot(HaveOccurred())
		defer temporalClient.Close()

		trace, err := collectActivityTrace(context.Background(), temporalClient, resp.WorkflowID)
		Expect(err).ToNot(HaveOccurred())
		Expect(trace.ScheduledOrder[:2]).To(Equal([]string{"LoadNoteActivity", "GenerateActivity"}))
		Expect(trace.ScheduledOrder[len(trace.ScheduledOrder)-1]).To(Equal("RecordOutcomeActivity"))

		generateIn := trace.Inputs["GenerateActivity"].(appTemporal.GenerateInput)
		Expect(generateIn.NoteID).To(Equal(note.ID))
		Expect(generateIn.Prompt).To(ContainSubstring(`"` + original + `"`))

		current, _, err := doJSON[domain.Note](http.MethodGet, apiBaseURL+"/v1/notes/"+note.ID, cfg.UserID, nil)
		Expect(err).ToNot(HaveOccurred())
		revisions, _, err := doJSON[listResponse[domain.Revision]](http.MethodGet, apiBaseURL+"/v1/notes/"+note.ID+"/revisions", cfg.UserID, nil)
		Expect(err).ToNot(HaveOccurred())

		if finalStatus.Outcome == domain.OutcomeEnhanced {
			Expect(trace.ScheduledOrder).To(ContainElements("SnapshotNoteActivity", "ApplyEnhancementActivity"))
			Expect(current.Content).ToNot(Equal(original))
			Expect(revisions.Items).To(HaveLen(1))
		} else {
			Expect(current.Content).To(Equal(original))
			Expect(revisions.Items).To(BeEmpty())
		}

		By("verifying the enhancement log in Postgres")
		outcomes, err := listEnhancementOutcomes(cfg.PostgresDSN, note.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(outcomes).To(Equal([]domain.OutcomeStatus{finalStatus.Outcome}))
	})
})
