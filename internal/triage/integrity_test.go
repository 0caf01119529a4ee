package triage_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/triage"
)

var _ = Describe("ValidateIssueIntegrity", func() {
	valid := domain.Issue{
		Number: 1,
		Title:  "Export to CSV drops the header row",
		Body:   "Exporting any report to CSV produces a file without the header row.",
		Author: "octocat",
	}

	It("accepts a complete issue", func() {
		Expect(triage.ValidateIssueIntegrity(valid)).To(Equal(triage.IntegrityReport{Valid: true}))
	})

	DescribeTable("rejects incomplete issues",
		func(mutate func(*domain.Issue), problem string) {
			issue := valid
			mutate(&issue)

			report := triage.ValidateIssueIntegrity(issue)

			Expect(report.Valid).To(BeFalse())
			Expect(report.Problems).To(ContainElement(ContainSubstring(problem)))
		},
		Entry("short title", func(i *domain.Issue) { i.Title = "  Crash  " }, "title is too short"),
		Entry("placeholder title", func(i *domain.Issue) { i.Title = "Question" }, "placeholder"),
		Entry("short body", func(i *domain.Issue) { i.Body = "broken" }, "description is too short"),
		Entry("blank body", func(i *domain.Issue) { i.Body = "   \n " }, "description is too short"),
		Entry("missing author", func(i *domain.Issue) { i.Author = "" }, "no author"),
	)

	It("renders a marked comment listing every problem", func() {
		report := triage.ValidateIssueIntegrity(domain.Issue{Title: "bug"})
		body := triage.IntegrityComment(report)

		Expect(body).To(HavePrefix(triage.IntegrityCommentMarker))
		Expect(report.Problems).To(HaveLen(3))
		for _, problem := range report.Problems {
			Expect(body).To(ContainSubstring(problem))
		}
	})
})
