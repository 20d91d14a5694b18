package consumers_test

import (
	"context"
	"encoding/json"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cineasts/src/adapters/kafka/consumers"
	"cineasts/src/domain"
	"cineasts/src/domain/entities"
	"cineasts/src/infra/kafka"
)

type rateCall struct {
	Login   string
	MovieID string
	Stars   int
	Comment string
}

// fakeRater devolve o erro configurado para o filme, ou sucesso.
type fakeRater struct {
	calls  []rateCall
	errFor map[string]error
}

func (f *fakeRater) Rate(ctx context.Context, login, movieID string, stars int, comment string) (entities.Rating, error) {
	f.calls = append(f.calls, rateCall{login, movieID, stars, comment})
	if err := f.errFor[movieID]; err != nil {
		return entities.Rating{}, err
	}
	return entities.Rating{Login: login, MovieID: movieID, Stars: stars, Comment: comment}, nil
}

func ratingMessage(login, movieID string, stars int) kafka.Message {
	value, _ := json.Marshal(consumers.KafkaRatingMessage{Login: login, MovieID: movieID, Stars: stars, Comment: "via kafka"})
	return kafka.Message{Key: login, Value: value}
}

var _ = Describe("RatingsConsumer", func() {
	var (
		ctx      context.Context
		rater    *fakeRater
		consumer *consumers.RatingsConsumer
	)

	BeforeEach(func() {
		ctx = context.Background()
		rater = &fakeRater{errFor: map[string]error{}}
		consumer = consumers.NewRatingsConsumer(newTestLogger(), rater)
	})

	It("applies every rating of the batch in order", func() {
		// ACT
		err := consumer.HandleMessages(ctx, []kafka.Message{
			ratingMessage("micha", "603", 5),
			ratingMessage("luanne", "600", 4),
		})

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(rater.calls).To(Equal([]rateCall{
			{"micha", "603", 5, "via kafka"},
			{"luanne", "600", 4, "via kafka"},
		}))
	})

	It("skips messages that can never be applied", func() {
		// ARRANGE
		rater.errFor["999"] = fmt.Errorf("ogm.Get - Movie %q: %w", "999", domain.ErrEntityNotFound)
		rater.errFor["604"] = fmt.Errorf("Catalog.Rate - %w: stars must be at most 5", domain.ErrValidation)

		// ACT
		err := consumer.HandleMessages(ctx, []kafka.Message{
			{Key: "broken", Value: []byte("{not json")},
			ratingMessage("micha", "999", 5),
			ratingMessage("micha", "604", 9),
			ratingMessage("micha", "603", 5),
		})

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(rater.calls).To(HaveLen(3))
	})

	It("returns storage failures so the batch is retried", func() {
		rater.errFor["603"] = domain.NewStorageError("memgraph.Begin", context.DeadlineExceeded)

		err := consumer.HandleMessages(ctx, []kafka.Message{ratingMessage("micha", "603", 5)})

		Expect(err).To(MatchError(domain.ErrStorage))
	})

	It("ignores an empty batch", func() {
		Expect(consumer.HandleMessages(ctx, nil)).To(Succeed())
		Expect(rater.calls).To(BeEmpty())
	})
})
