package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/darkneiss/ai-pr-sentinel-sub000/core/config"
)

var managedKeys = []string{
	"SENTINEL_ENV",
	"TRACKER_TOKEN",
	"TRACKER_PROVIDER",
	"WEBHOOK_SECRET",
	"WEBHOOK_REQUIRE_SIGNATURE",
	"WEBHOOK_DELIVERY_TTL",
	"TRIAGE_AI_ENABLED",
	"TRIAGE_HOSTILE_KEYWORDS",
	"LLM_API_KEY",
	"LLM_PROVIDER",
	"LLM_TIMEOUT",
	"LOG_LEVEL",
	"OTEL_TRACES_SAMPLER_RATIO",
}

func setEnv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
}

var _ = Describe("Load", func() {
	BeforeEach(func() {
		for _, key := range managedKeys {
			Expect(os.Unsetenv(key)).To(Succeed())
		}
		DeferCleanup(func() {
			for _, key := range managedKeys {
				_ = os.Unsetenv(key)
			}
		})
		setEnv("SENTINEL_ENV", "test")
		setEnv("TRACKER_TOKEN", "token")
	})

	It("applies defaults", func() {
		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Tracker.Provider).To(Equal(config.ProviderGitHub))
		Expect(cfg.Webhook.DeliveryTTL).To(Equal(24 * time.Hour))
		Expect(cfg.Triage.ClassificationThreshold).To(Equal(0.8))
		Expect(cfg.Triage.SentimentThreshold).To(Equal(0.8))
		Expect(cfg.Triage.Labels.Bug).To(Equal("kind/bug"))
		Expect(cfg.Triage.Labels.Monitor).To(Equal("triage/monitor"))
		Expect(cfg.Triage.RecentIssuesLimit).To(Equal(5))
		Expect(cfg.Webhook.SignatureEnabled()).To(BeFalse())
	})

	It("fails fast when signatures are required without a secret", func() {
		setEnv("WEBHOOK_REQUIRE_SIGNATURE", "true")

		_, err := config.Load()
		Expect(err).To(MatchError(ContainSubstring("WEBHOOK_SECRET")))
	})

	It("accepts required signatures when a secret is configured", func() {
		setEnv("WEBHOOK_REQUIRE_SIGNATURE", "true")
		setEnv("WEBHOOK_SECRET", "s3cret")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Webhook.SignatureEnabled()).To(BeTrue())
	})

	It("floors the delivery TTL at one second", func() {
		setEnv("WEBHOOK_DELIVERY_TTL", "10ms")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Webhook.DeliveryTTL).To(Equal(time.Second))
	})

	It("reads millisecond durations", func() {
		setEnv("LLM_TIMEOUT", "2500")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LLM.Timeout).To(Equal(2500 * time.Millisecond))
	})

	It("splits the hostile keyword list", func() {
		setEnv("TRIAGE_HOSTILE_KEYWORDS", "garbage, useless ,,idiot")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Triage.HostileKeywords).To(Equal([]string{"garbage", "useless", "idiot"}))
	})

	It("requires an LLM key when AI triage is enabled", func() {
		setEnv("TRIAGE_AI_ENABLED", "true")

		_, err := config.Load()
		Expect(err).To(MatchError(ContainSubstring("LLM_API_KEY")))
	})

	It("rejects unknown tracker providers", func() {
		setEnv("TRACKER_PROVIDER", "bitbucket")

		_, err := config.Load()
		Expect(err).To(MatchError(ContainSubstring("TRACKER_PROVIDER")))
	})

	It("requires a tracker token", func() {
		Expect(os.Unsetenv("TRACKER_TOKEN")).To(Succeed())

		_, err := config.Load()
		Expect(err).To(MatchError(ContainSubstring("TRACKER_TOKEN")))
	})

	It("rejects unknown log levels", func() {
		setEnv("LOG_LEVEL", "verbose")

		_, err := config.Load()
		Expect(err).To(MatchError(ContainSubstring("LOG_LEVEL")))
	})

	It("samples every trace by default and rejects ratios outside [0,1]", func() {
		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.OTel.SampleRatio).To(Equal(1.0))

		setEnv("OTEL_TRACES_SAMPLER_RATIO", "1.5")
		_, err = config.Load()
		Expect(err).To(MatchError(ContainSubstring("OTEL_TRACES_SAMPLER_RATIO")))
	})
})
