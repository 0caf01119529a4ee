package issue_tracker_test

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/go-github/v58/github"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/service/issue_tracker"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/triage"
)

type mockIssuesService struct {
	addLabelsFn     func(owner, repo string, number int, labels []string) error
	removeLabelFn   func(owner, repo string, number int, label string) (*github.Response, error)
	createCommentFn func(owner, repo string, number int, body string) error
	listCommentsFn  func(opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error)
	listByRepoFn    func(opts *github.IssueListByRepoOptions) ([]*github.Issue, *github.Response, error)
}

func (m *mockIssuesService) AddLabelsToIssue(_ context.Context, owner, repo string, number int, labels []string) ([]*github.Label, *github.Response, error) {
	if m.addLabelsFn != nil {
		return nil, nil, m.addLabelsFn(owner, repo, number, labels)
	}
	return nil, nil, nil
}

func (m *mockIssuesService) RemoveLabelForIssue(_ context.Context, owner, repo string, number int, label string) (*github.Response, error) {
	if m.removeLabelFn != nil {
		return m.removeLabelFn(owner, repo, number, label)
	}
	return nil, nil
}

func (m *mockIssuesService) CreateComment(_ context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error) {
	if m.createCommentFn != nil {
		return nil, nil, m.createCommentFn(owner, repo, number, comment.GetBody())
	}
	return nil, nil, nil
}

func (m *mockIssuesService) ListComments(_ context.Context, _, _ string, _ int, opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error) {
	if m.listCommentsFn != nil {
		return m.listCommentsFn(opts)
	}
	return nil, &github.Response{}, nil
}

func (m *mockIssuesService) ListByRepo(_ context.Context, _, _ string, opts *github.IssueListByRepoOptions) ([]*github.Issue, *github.Response, error) {
	if m.listByRepoFn != nil {
		return m.listByRepoFn(opts)
	}
	return nil, &github.Response{}, nil
}

type mockRepositoriesService struct {
	repository *github.Repository
	err        error
}

func (m *mockRepositoriesService) Get(context.Context, string, string) (*github.Repository, *github.Response, error) {
	return m.repository, nil, m.err
}

func comment(login, body string) *github.IssueComment {
	return &github.IssueComment{Body: github.String(body), User: &github.User{Login: github.String(login)}}
}

var _ = Describe("GitHubTracker", func() {
	var (
		ctx     context.Context
		issues  *mockIssuesService
		repos   *mockRepositoriesService
		tracker *issue_tracker.GitHubTracker
	)

	BeforeEach(func() {
		ctx = context.Background()
		issues = &mockIssuesService{}
		repos = &mockRepositoriesService{}
		tracker = issue_tracker.NewGitHubTrackerWithServices(issues, repos)
	})

	Describe("AddLabels", func() {
		It("splits the repository name", func() {
			var gotOwner, gotRepo string
			var gotLabels []string
			issues.addLabelsFn = func(owner, repo string, number int, labels []string) error {
				gotOwner, gotRepo, gotLabels = owner, repo, labels
				Expect(number).To(Equal(7))
				return nil
			}

			Expect(tracker.AddLabels(ctx, "acme/app", 7, []string{"kind/bug"})).To(Succeed())
			Expect(gotOwner).To(Equal("acme"))
			Expect(gotRepo).To(Equal("app"))
			Expect(gotLabels).To(Equal([]string{"kind/bug"}))
		})

		It("rejects malformed repository names", func() {
			Expect(tracker.AddLabels(ctx, "acme", 7, []string{"x"})).To(MatchError(issue_tracker.ErrInvalidRepository))
		})

		It("wraps API errors", func() {
			issues.addLabelsFn = func(string, string, int, []string) error { return errors.New("forbidden") }
			Expect(tracker.AddLabels(ctx, "acme/app", 7, []string{"x"})).To(MatchError(ContainSubstring("forbidden")))
		})
	})

	Describe("RemoveLabel", func() {
		It("treats a missing label as removed", func() {
			notFound := &http.Response{StatusCode: http.StatusNotFound}
			issues.removeLabelFn = func(string, string, int, string) (*github.Response, error) {
				return &github.Response{Response: notFound}, &github.ErrorResponse{Response: notFound, Message: "Label does not exist"}
			}

			Expect(tracker.RemoveLabel(ctx, "acme/app", 7, "kind/feature")).To(Succeed())
		})

		It("returns other failures", func() {
			issues.removeLabelFn = func(string, string, int, string) (*github.Response, error) {
				return &github.Response{Response: &http.Response{StatusCode: http.StatusForbidden}}, errors.New("forbidden")
			}

			Expect(tracker.RemoveLabel(ctx, "acme/app", 7, "kind/feature")).To(HaveOccurred())
		})
	})

	It("creates comments", func() {
		var got string
		issues.createCommentFn = func(_, _ string, _ int, body string) error {
			got = body
			return nil
		}

		Expect(tracker.CreateComment(ctx, "acme/app", 7, "Possible duplicate of #3")).To(Succeed())
		Expect(got).To(Equal("Possible duplicate of #3"))
	})

	Describe("FindRecentIssues", func() {
		It("returns issues without pull requests, up to the limit", func() {
			var gotOpts *github.IssueListByRepoOptions
			issues.listByRepoFn = func(opts *github.IssueListByRepoOptions) ([]*github.Issue, *github.Response, error) {
				gotOpts = opts
				return []*github.Issue{
					{Number: github.Int(12), Title: github.String("newest"), State: github.String("open"),
						Labels: []*github.Label{{Name: github.String("kind/bug")}}},
					{Number: github.Int(11), Title: github.String("a pull request"),
						PullRequestLinks: &github.PullRequestLinks{URL: github.String("https://api.github.com/pulls/11")}},
					{Number: github.Int(10), Title: github.String("older"), State: github.String("closed")},
					{Number: github.Int(9), Title: github.String("oldest"), State: github.String("closed")},
				}, &github.Response{}, nil
			}

			recent, err := tracker.FindRecentIssues(ctx, triage.FindRecentIssuesParams{RepositoryFullName: "acme/app", Limit: 2})
			Expect(err).NotTo(HaveOccurred())

			Expect(recent).To(Equal([]domain.RecentIssueSummary{
				{Number: 12, Title: "newest", State: "open", Labels: []string{"kind/bug"}},
				{Number: 10, Title: "older", State: "closed", Labels: []string{}},
			}))
			Expect(gotOpts.State).To(Equal("all"))
			Expect(gotOpts.Direction).To(Equal("desc"))
			Expect(gotOpts.PerPage).To(Equal(4))
		})

		It("wraps API errors", func() {
			issues.listByRepoFn = func(*github.IssueListByRepoOptions) ([]*github.Issue, *github.Response, error) {
				return nil, nil, errors.New("rate limited")
			}

			_, err := tracker.FindRecentIssues(ctx, triage.FindRecentIssuesParams{RepositoryFullName: "acme/app", Limit: 5})
			Expect(err).To(MatchError(ContainSubstring("rate limited")))
		})
	})

	Describe("HasIssueCommentWithPrefix", func() {
		var pages [][]*github.IssueComment

		BeforeEach(func() {
			pages = [][]*github.IssueComment{
				{comment("alice", "me too"), comment("someone", "<!-- marker --> copied")},
				{comment("sentinel-bot", "\n<!-- marker -->\nHello")},
			}
			issues.listCommentsFn = func(opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error) {
				page := max(opts.Page, 1)
				resp := &github.Response{}
				if page < len(pages) {
					resp.NextPage = page + 1
				}
				return pages[page-1], resp, nil
			}
		})

		It("pages until it finds a matching comment from the author", func() {
			found, err := tracker.HasIssueCommentWithPrefix(ctx, triage.HasCommentWithPrefixParams{
				RepositoryFullName: "acme/app", IssueNumber: 7, BodyPrefix: "<!-- marker -->", AuthorLogin: "sentinel-bot",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
		})

		It("matches any author when none is given", func() {
			pages = pages[:1]

			found, err := tracker.HasIssueCommentWithPrefix(ctx, triage.HasCommentWithPrefixParams{
				RepositoryFullName: "acme/app", IssueNumber: 7, BodyPrefix: "<!-- marker -->",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
		})

		It("reports false when no comment matches", func() {
			found, err := tracker.HasIssueCommentWithPrefix(ctx, triage.HasCommentWithPrefixParams{
				RepositoryFullName: "acme/app", IssueNumber: 7, BodyPrefix: "<!-- other -->",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})
	})

	It("reads the repository context", func() {
		repos.repository = &github.Repository{
			FullName:    github.String("acme/app"),
			Description: github.String("Acme desktop app"),
			Topics:      []string{"electron", "desktop"},
		}

		repoContext, err := tracker.FindRepositoryContext(ctx, "acme/app")
		Expect(err).NotTo(HaveOccurred())
		Expect(repoContext).To(Equal(&domain.RepositoryContext{
			FullName:    "acme/app",
			Description: "Acme desktop app",
			Topics:      []string{"electron", "desktop"},
		}))
	})
})
