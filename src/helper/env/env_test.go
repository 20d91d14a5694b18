package env_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cineasts/src/helper/env"
)

var _ = Describe("env", func() {
	When("the variable is set", func() {
		It("parses every supported type", func() {
			// ARRANGE
			GinkgoT().Setenv("CINEASTS_NAME", "cineasts")
			GinkgoT().Setenv("CINEASTS_BROKERS", "kafka-1:9092, ,kafka-2:9092")
			GinkgoT().Setenv("CINEASTS_BATCH", "50")
			GinkgoT().Setenv("CINEASTS_DEBUG", "true")
			GinkgoT().Setenv("CINEASTS_TTL", "90s")

			// ASSERT
			Expect(env.GetString("CINEASTS_NAME", "other")).To(Equal("cineasts"))
			Expect(env.MustGetString("CINEASTS_NAME")).To(Equal("cineasts"))
			Expect(env.GetStrings("CINEASTS_BROKERS")).To(Equal([]string{"kafka-1:9092", "kafka-2:9092"}))
			Expect(env.GetInt("CINEASTS_BATCH", 1)).To(Equal(50))
			Expect(env.MustGetInt("CINEASTS_BATCH")).To(Equal(50))
			Expect(env.GetBool("CINEASTS_DEBUG")).To(BeTrue())
			Expect(env.GetDuration("CINEASTS_TTL", time.Minute)).To(Equal(90 * time.Second))
		})
	})

	When("the variable is missing or malformed", func() {
		It("falls back to the default", func() {
			GinkgoT().Setenv("CINEASTS_BATCH", "fifty")
			GinkgoT().Setenv("CINEASTS_TTL", "soon")

			Expect(env.GetString("CINEASTS_MISSING", "fallback")).To(Equal("fallback"))
			Expect(env.GetStrings("CINEASTS_MISSING", "a", "b")).To(Equal([]string{"a", "b"}))
			Expect(env.GetInt("CINEASTS_BATCH", 10)).To(Equal(10))
			Expect(env.GetBool("CINEASTS_MISSING", true)).To(BeTrue())
			Expect(env.GetDuration("CINEASTS_TTL", time.Minute)).To(Equal(time.Minute))
		})

		It("panics on required variables", func() {
			GinkgoT().Setenv("CINEASTS_BATCH", "fifty")

			Expect(func() { env.MustGetString("CINEASTS_MISSING") }).To(PanicWith("CINEASTS_MISSING can't be empty"))
			Expect(func() { env.MustGetInt("CINEASTS_BATCH") }).To(Panic())
		})
	})
})
