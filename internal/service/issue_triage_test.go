package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/service"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/triage"
)

type recordingGovernance struct {
	calls        []string
	addLabelsErr error
	removeErr    error
	commentErr   error
	comments     []string
}

func (g *recordingGovernance) AddLabels(_ context.Context, _ string, _ int, labels []string) error {
	g.calls = append(g.calls, "AddLabels:"+labels[0])
	return g.addLabelsErr
}

func (g *recordingGovernance) RemoveLabel(_ context.Context, _ string, _ int, label string) error {
	g.calls = append(g.calls, "RemoveLabel:"+label)
	return g.removeErr
}

func (g *recordingGovernance) CreateComment(_ context.Context, _ string, _ int, body string) error {
	g.calls = append(g.calls, "CreateComment")
	g.comments = append(g.comments, body)
	return g.commentErr
}

func (g *recordingGovernance) LogValidatedIssue(context.Context, string, int) error {
	g.calls = append(g.calls, "LogValidatedIssue")
	return nil
}

type stubAnalyzer struct {
	result triage.Result
	inputs []triage.AnalyzeIssueWithAiInput
}

func (a *stubAnalyzer) Analyze(_ context.Context, input triage.AnalyzeIssueWithAiInput) triage.Result {
	a.inputs = append(a.inputs, input)
	return a.result
}

var _ = Describe("IssueTriageService", func() {
	var (
		ctx        context.Context
		governance *recordingGovernance
		analyzer   *stubAnalyzer
		svc        service.IssueTriageService
		event      domain.IssueEvent
	)

	BeforeEach(func() {
		ctx = context.Background()
		governance = &recordingGovernance{}
		analyzer = &stubAnalyzer{result: triage.Result{Status: triage.StatusCompleted}}
		svc = service.NewIssueTriageService(governance, analyzer, "triage/needs-info")
		event = domain.IssueEvent{
			Provider:           domain.ProviderGitHub,
			DeliveryID:         "d1",
			Action:             domain.IssueActionOpened,
			RepositoryFullName: "acme/app",
			Issue: domain.Issue{
				Number: 5,
				Title:  "Export drops the header row",
				Body:   "Exporting any report to CSV loses the header row.",
				Author: "octocat",
			},
		}
	})

	Context("with a valid issue", func() {
		It("logs the validation and runs AI triage", func() {
			result, err := svc.Triage(ctx, event)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Integrity.Valid).To(BeTrue())
			Expect(result.AI).To(HaveValue(Equal(triage.Result{Status: triage.StatusCompleted})))
			Expect(governance.calls).To(Equal([]string{"LogValidatedIssue"}))
			Expect(analyzer.inputs).To(ConsistOf(triage.AnalyzeIssueWithAiInput{
				Action:             domain.IssueActionOpened,
				RepositoryFullName: "acme/app",
				Issue:              event.Issue,
			}))
		})

		It("removes a stale needs-info label first", func() {
			event.Issue.Labels = []string{"triage/needs-info"}

			_, err := svc.Triage(ctx, event)
			Expect(err).NotTo(HaveOccurred())
			Expect(governance.calls).To(Equal([]string{"RemoveLabel:triage/needs-info", "LogValidatedIssue"}))
		})

		It("skips AI triage when it is disabled", func() {
			svc = service.NewIssueTriageService(governance, nil, "triage/needs-info")

			result, err := svc.Triage(ctx, event)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.AI).To(BeNil())
		})

		It("surfaces label removal failures", func() {
			event.Issue.Labels = []string{"triage/needs-info"}
			governance.removeErr = errors.New("forbidden")

			_, err := svc.Triage(ctx, event)
			Expect(err).To(MatchError(ContainSubstring("removing needs-info label")))
			Expect(analyzer.inputs).To(BeEmpty())
		})
	})

	Context("with an incomplete issue", func() {
		BeforeEach(func() {
			event.Issue.Body = "broken"
		})

		It("asks for more information without calling the AI", func() {
			result, err := svc.Triage(ctx, event)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Integrity.Valid).To(BeFalse())
			Expect(result.AI).To(BeNil())
			Expect(governance.calls).To(Equal([]string{"AddLabels:triage/needs-info", "CreateComment"}))
			Expect(governance.comments[0]).To(HavePrefix(triage.IntegrityCommentMarker))
			Expect(analyzer.inputs).To(BeEmpty())
		})

		It("does not comment again once the label is present", func() {
			event.Issue.Labels = []string{"triage/needs-info"}

			_, err := svc.Triage(ctx, event)
			Expect(err).NotTo(HaveOccurred())
			Expect(governance.calls).To(BeEmpty())
		})

		It("surfaces governance failures", func() {
			governance.addLabelsErr = errors.New("forbidden")

			_, err := svc.Triage(ctx, event)
			Expect(err).To(MatchError(ContainSubstring("adding needs-info label")))
		})
	})

	It("does not triage unsupported actions", func() {
		event.Action = domain.IssueActionClosed

		result, err := svc.Triage(ctx, event)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Integrity).To(BeNil())
		Expect(result.AI).To(HaveValue(Equal(triage.Result{Status: triage.StatusSkipped, Reason: triage.ReasonUnsupportedAction})))
		Expect(governance.calls).To(BeEmpty())
	})
})
