package mapper_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/mapper"
)

func gitlabIssuePayload(objectKind, action string) []byte {
	return []byte(fmt.Sprintf(`{
		"object_kind": %q,
		"user": {"username": "jdoe"},
		"project": {"path_with_namespace": "acme/platform/app"},
		"object_attributes": {
			"iid": 17,
			"title": "Pipeline badge is stale",
			"description": "The badge still shows failed after a green run.",
			"state": "opened",
			"action": %q,
			"url": "https://gitlab.example.com/acme/platform/app/-/issues/17"
		},
		"labels": [{"title": "kind/bug"}]
	}`, objectKind, action))
}

var _ = Describe("GitLabEventMapper", func() {
	var (
		gitlabMapper mapper.EventMapper
		ctx          context.Context
		headers      map[string]string
	)

	BeforeEach(func() {
		gitlabMapper = mapper.NewGitLabEventMapper()
		ctx = context.Background()
		headers = map[string]string{
			"X-Gitlab-Event":      "Issue Hook",
			"X-Gitlab-Event-Uuid": "9a7c1f3e-0000-4000-8000-000000000001",
		}
	})

	It("maps an issue hook", func() {
		event, err := gitlabMapper.Map(ctx, gitlabIssuePayload("issue", "open"), headers)
		Expect(err).NotTo(HaveOccurred())

		Expect(event).To(Equal(&domain.IssueEvent{
			Provider:           domain.ProviderGitLab,
			DeliveryID:         "9a7c1f3e-0000-4000-8000-000000000001",
			Action:             domain.IssueActionOpened,
			RepositoryFullName: "acme/platform/app",
			Issue: domain.Issue{
				Number: 17,
				Title:  "Pipeline badge is stale",
				Body:   "The badge still shows failed after a green run.",
				Labels: []string{"kind/bug"},
				Author: "jdoe",
				State:  "opened",
				URL:    "https://gitlab.example.com/acme/platform/app/-/issues/17",
			},
		}))
	})

	DescribeTable("maps issue actions",
		func(action string, want domain.IssueAction) {
			event, err := gitlabMapper.Map(ctx, gitlabIssuePayload("issue", action), headers)
			Expect(err).NotTo(HaveOccurred())
			Expect(event.Action).To(Equal(want))
		},
		Entry("open", "open", domain.IssueActionOpened),
		Entry("update", "update", domain.IssueActionEdited),
		Entry("reopen", "reopen", domain.IssueActionReopened),
		Entry("close", "close", domain.IssueActionClosed),
	)

	It("falls back to the Idempotency-Key header", func() {
		event, err := gitlabMapper.Map(ctx, gitlabIssuePayload("issue", "open"), map[string]string{"Idempotency-Key": "retry-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(event.DeliveryID).To(Equal("retry-1"))
	})

	DescribeTable("ignores deliveries it does not triage",
		func(objectKind, action string) {
			_, err := gitlabMapper.Map(ctx, gitlabIssuePayload(objectKind, action), headers)
			Expect(err).To(MatchError(mapper.ErrUnsupportedEvent))
		},
		Entry("note hook", "note", "create"),
		Entry("merge request hook", "merge_request", "open"),
		Entry("unknown issue action", "issue", "move"),
	)

	It("rejects issues without an IID", func() {
		_, err := gitlabMapper.Map(ctx, []byte(`{"object_kind": "issue", "object_attributes": {"action": "open"}, "project": {"path_with_namespace": "a/b"}}`), headers)
		Expect(err).To(MatchError(mapper.ErrInvalidPayload))
	})

	It("rejects malformed JSON", func() {
		_, err := gitlabMapper.Map(ctx, []byte(`not json`), headers)
		Expect(err).To(MatchError(mapper.ErrInvalidPayload))
	})
})
