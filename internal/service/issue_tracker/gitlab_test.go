package issue_tracker_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/darkneiss/ai-pr-sentinel-sub000/core/config"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/service/issue_tracker"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/triage"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// fakeGitLab serves canned responses keyed by "METHOD escaped-path".
type fakeGitLab struct {
	mu        sync.Mutex
	requests  []recordedRequest
	responses map[string]func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeGitLab) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Query: r.URL.RawQuery}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &rec.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	handler, ok := f.responses[r.Method+" "+rec.Path]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"404 Not Found"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	handler(w, r)
}

// RequestsTo returns the recorded requests for one route.
func (f *fakeGitLab) RequestsTo(method, path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []recordedRequest
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			matched = append(matched, r)
		}
	}
	return matched
}

func respondJSON(status int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

var _ = Describe("GitLabTracker", func() {
	const (
		project   = "acme/platform/app"
		issuePath = "/api/v4/projects/acme%2Fplatform%2Fapp/issues/17"
	)

	var (
		ctx     context.Context
		fake    *fakeGitLab
		tracker *issue_tracker.GitLabTracker
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = &fakeGitLab{responses: map[string]func(http.ResponseWriter, *http.Request){}}
		server := httptest.NewServer(fake)
		DeferCleanup(server.Close)

		var err error
		tracker, err = issue_tracker.NewGitLabTracker("glpat-test", server.URL)
		Expect(err).NotTo(HaveOccurred())
	})

	It("adds labels through an issue update", func() {
		fake.responses["PUT "+issuePath] = respondJSON(http.StatusOK, `{"iid": 17}`)

		Expect(tracker.AddLabels(ctx, project, 17, []string{"kind/bug", "triage/monitor"})).To(Succeed())

		requests := fake.RequestsTo("PUT", issuePath)
		Expect(requests).To(HaveLen(1))
		Expect(requests[0].Body).To(HaveKeyWithValue("add_labels", "kind/bug,triage/monitor"))
	})

	It("removes labels through an issue update", func() {
		fake.responses["PUT "+issuePath] = respondJSON(http.StatusOK, `{"iid": 17}`)

		Expect(tracker.RemoveLabel(ctx, project, 17, "kind/feature")).To(Succeed())
		Expect(fake.RequestsTo("PUT", issuePath)[0].Body).To(HaveKeyWithValue("remove_labels", "kind/feature"))
	})

	It("treats a missing issue as an already removed label", func() {
		Expect(tracker.RemoveLabel(ctx, project, 17, "kind/feature")).To(Succeed())
	})

	It("surfaces rejected writes", func() {
		fake.responses["POST "+issuePath+"/notes"] = respondJSON(http.StatusForbidden, `{"message":"403 Forbidden"}`)

		Expect(tracker.CreateComment(ctx, project, 17, "hello")).To(MatchError(ContainSubstring("creating gitlab note")))
	})

	It("creates notes", func() {
		fake.responses["POST "+issuePath+"/notes"] = respondJSON(http.StatusCreated, `{"id": 1, "body": "hello"}`)

		Expect(tracker.CreateComment(ctx, project, 17, "hello")).To(Succeed())
		Expect(fake.RequestsTo("POST", issuePath+"/notes")[0].Body).To(HaveKeyWithValue("body", "hello"))
	})

	It("lists recent issues newest first up to the limit", func() {
		issuesPath := "/api/v4/projects/acme%2Fplatform%2Fapp/issues"
		fake.responses["GET "+issuesPath] = respondJSON(http.StatusOK, `[
			{"iid": 20, "title": "newest", "state": "opened", "labels": ["kind/bug"]},
			{"iid": 19, "title": "older", "state": "closed", "labels": []},
			{"iid": 18, "title": "oldest", "state": "closed", "labels": []}
		]`)

		recent, err := tracker.FindRecentIssues(ctx, triage.FindRecentIssuesParams{RepositoryFullName: project, Limit: 2})
		Expect(err).NotTo(HaveOccurred())

		Expect(recent).To(HaveLen(2))
		Expect(recent[0]).To(Equal(domain.RecentIssueSummary{Number: 20, Title: "newest", State: "opened", Labels: []string{"kind/bug"}}))
		Expect(recent[1].Number).To(Equal(19))

		query := fake.RequestsTo("GET", issuesPath)[0].Query
		Expect(query).To(ContainSubstring("order_by=created_at"))
		Expect(query).To(ContainSubstring("sort=desc"))
	})

	Describe("HasIssueCommentWithPrefix", func() {
		BeforeEach(func() {
			fake.responses["GET "+issuePath+"/notes"] = func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("page") == "2" {
					_, _ = w.Write([]byte(`[{"id": 3, "body": "<!-- marker -->\nHello", "author": {"username": "sentinel-bot"}}]`))
					return
				}
				w.Header().Set("X-Next-Page", "2")
				_, _ = w.Write([]byte(`[
					{"id": 1, "body": "<!-- marker --> added label", "system": true, "author": {"username": "sentinel-bot"}},
					{"id": 2, "body": "thanks", "author": {"username": "jdoe"}}
				]`))
			}
		})

		It("pages through notes and skips system notes", func() {
			found, err := tracker.HasIssueCommentWithPrefix(ctx, triage.HasCommentWithPrefixParams{
				RepositoryFullName: project, IssueNumber: 17, BodyPrefix: "<!-- marker -->", AuthorLogin: "sentinel-bot",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(fake.RequestsTo("GET", issuePath+"/notes")).To(HaveLen(2))
		})

		It("filters by author", func() {
			found, err := tracker.HasIssueCommentWithPrefix(ctx, triage.HasCommentWithPrefixParams{
				RepositoryFullName: project, IssueNumber: 17, BodyPrefix: "<!-- marker -->", AuthorLogin: "jdoe",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})
	})

	It("reads the project context", func() {
		fake.responses["GET /api/v4/projects/acme%2Fplatform%2Fapp"] = respondJSON(http.StatusOK,
			`{"path_with_namespace": "acme/platform/app", "description": "Platform app", "topics": ["go", "platform"]}`)

		repoContext, err := tracker.FindRepositoryContext(ctx, project)
		Expect(err).NotTo(HaveOccurred())
		Expect(repoContext).To(Equal(&domain.RepositoryContext{
			FullName:    "acme/platform/app",
			Description: "Platform app",
			Topics:      []string{"go", "platform"},
		}))
	})
})

var _ = Describe("New", func() {
	It("rejects unknown providers", func() {
		_, err := issue_tracker.New(configFor("bitbucket"))
		Expect(err).To(MatchError(triage.ErrUnsupportedProvider))
	})

	It("builds a GitLab tracker", func() {
		tracker, err := issue_tracker.New(configFor("gitlab"))
		Expect(err).NotTo(HaveOccurred())
		Expect(tracker).To(BeAssignableToTypeOf(&issue_tracker.GitLabTracker{}))
	})

	It("defaults to GitHub", func() {
		tracker, err := issue_tracker.New(configFor(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(tracker).To(BeAssignableToTypeOf(&issue_tracker.GitHubTracker{}))
	})
})

func configFor(provider string) config.TrackerConfig {
	return config.TrackerConfig{Provider: provider, Token: "token"}
}
