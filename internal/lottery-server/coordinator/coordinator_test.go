package coordinator

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/lottery-agency-poc/internal/lottery-server/repo"
	"github.com/radieske/lottery-agency-poc/pkg/lottery"
)

// countingStore conta quantos scans completos foram feitos
type countingStore struct {
	repo.Store
	scans   atomic.Int32
	scanErr error
}

func (s *countingStore) ScanAll(ctx context.Context) ([]lottery.Bet, error) {
	s.scans.Add(1)
	if s.scanErr != nil {
		return nil, s.scanErr
	}
	return s.Store.ScanAll(ctx)
}

func newCoordinator(t *testing.T, required int, hooks Hooks) (*Coordinator, *countingStore) {
	t.Helper()
	store := &countingStore{Store: repo.NewMemory()}
	return New(zap.NewNop(), store, lottery.LuckyNumber(7), required, hooks), store
}

func bet(agency int, doc string, number int) lottery.Bet {
	return lottery.Bet{Agency: agency, Document: doc, FirstName: "Ana", LastName: "Paz", Birthdate: "2000-01-01", Number: number}
}

func TestTwoAgencyScenario(t *testing.T) {
	t.Parallel()

	c, _ := newCoordinator(t, 2, Hooks{})
	ctx := context.Background()

	require.NoError(t, c.StoreBets(ctx, []lottery.Bet{bet(1, "A", 7)}))
	require.NoError(t, c.StoreBets(ctx, []lottery.Bet{bet(2, "B", 7)}))

	var wg sync.WaitGroup
	for _, agency := range []int{1, 2} {
		wg.Add(1)
		go func(agency int) {
			defer wg.Done()
			assert.NoError(t, c.ReportFinished(ctx, agency))
		}(agency)
	}
	wg.Wait()

	w1, err := c.WinnersFor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, w1)

	w2, err := c.WinnersFor(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, w2)
}

func TestWinnersForBlocksUntilLastReport(t *testing.T) {
	t.Parallel()

	c, _ := newCoordinator(t, 3, Hooks{})
	ctx := context.Background()

	require.NoError(t, c.StoreBets(ctx, []lottery.Bet{bet(1, "A", 7)}))

	reported := make(chan error, 2)
	for _, agency := range []int{1, 2} {
		go func(agency int) { reported <- c.ReportFinished(ctx, agency) }(agency)
	}

	require.Eventually(t, func() bool { return c.Finished() == 2 }, time.Second, 5*time.Millisecond)

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err := c.WinnersFor(short, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, c.Drawn())
	assert.Empty(t, reported)

	require.NoError(t, c.ReportFinished(ctx, 3))
	assert.True(t, c.Drawn())
	require.NoError(t, <-reported)
	require.NoError(t, <-reported)

	w, err := c.WinnersFor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, w)
}

func TestDrawComputedExactlyOnce(t *testing.T) {
	t.Parallel()

	const agencies = 20
	var draws atomic.Int32
	c, store := newCoordinator(t, agencies, Hooks{OnDraw: func(Draw) { draws.Add(1) }})
	ctx := context.Background()

	var wg sync.WaitGroup
	for agency := 1; agency <= agencies; agency++ {
		wg.Add(1)
		go func(agency int) {
			defer wg.Done()
			assert.NoError(t, c.StoreBets(ctx, []lottery.Bet{bet(agency, "doc", 7)}))
			assert.NoError(t, c.ReportFinished(ctx, agency))
			_, err := c.WinnersFor(ctx, agency)
			assert.NoError(t, err)
		}(agency)
	}
	wg.Wait()

	// reports tardios não disparam um novo scan
	require.NoError(t, c.ReportFinished(ctx, 1))
	require.NoError(t, c.ReportFinished(ctx, agencies+1))

	assert.Equal(t, int32(1), store.scans.Load())
	assert.Equal(t, int32(1), draws.Load())
}

func TestPartitionIndependentOfSubmissionOrder(t *testing.T) {
	t.Parallel()

	var bets []lottery.Bet
	want := map[int][]string{1: {}, 2: {}, 3: {}}
	for i := 0; i < 300; i++ {
		agency := i%3 + 1
		doc := string(rune('a'+i%26)) + string(rune('0'+i/26))
		number := i % 10
		bets = append(bets, bet(agency, doc, number))
		if number == 7 {
			want[agency] = append(want[agency], doc)
		}
	}

	for seed := int64(1); seed <= 5; seed++ {
		c, _ := newCoordinator(t, 3, Hooks{})
		ctx := context.Background()

		shuffled := append([]lottery.Bet(nil), bets...)
		rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		for start := 0; start < len(shuffled); start += 17 {
			end := min(start+17, len(shuffled))
			require.NoError(t, c.StoreBets(ctx, shuffled[start:end]))
		}

		var wg sync.WaitGroup
		for agency := 1; agency <= 3; agency++ {
			wg.Add(1)
			go func(agency int) {
				defer wg.Done()
				assert.NoError(t, c.ReportFinished(ctx, agency))
			}(agency)
		}
		wg.Wait()

		for agency, docs := range want {
			got, err := c.WinnersFor(ctx, agency)
			require.NoError(t, err)
			assert.ElementsMatch(t, docs, got, "agency %d seed %d", agency, seed)
		}
	}
}

func TestWinnersForIsIdempotent(t *testing.T) {
	t.Parallel()

	c, store := newCoordinator(t, 1, Hooks{})
	ctx := context.Background()

	require.NoError(t, c.StoreBets(ctx, []lottery.Bet{bet(1, "A", 7), bet(1, "B", 3), bet(1, "C", 7), bet(1, "A", 7)}))
	require.NoError(t, c.ReportFinished(ctx, 1))

	first, err := c.WinnersFor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, first)

	first[0] = "mutated"
	for i := 0; i < 5; i++ {
		again, err := c.WinnersFor(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "C"}, again)
	}
	assert.Equal(t, int32(1), store.scans.Load())

	none, err := c.WinnersFor(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDuplicateReportDoesNotCountTwice(t *testing.T) {
	t.Parallel()

	c, _ := newCoordinator(t, 2, Hooks{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.ReportFinished(ctx, 1), context.DeadlineExceeded)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel2()
	assert.ErrorIs(t, c.ReportFinished(ctx2, 1), context.DeadlineExceeded)

	assert.Equal(t, 1, c.Finished())
	assert.False(t, c.Drawn())
}

func TestReportWithoutAgencyDoesNotCount(t *testing.T) {
	t.Parallel()

	c, _ := newCoordinator(t, 2, Hooks{})
	ctx := context.Background()

	assert.ErrorIs(t, c.ReportFinished(ctx, 0), ErrUnknownAgency)
	assert.ErrorIs(t, c.ReportFinished(ctx, 0), ErrUnknownAgency)
	assert.ErrorIs(t, c.ReportFinished(ctx, -3), ErrUnknownAgency)
	assert.Zero(t, c.Finished())
	assert.False(t, c.Drawn())

	// a agência que ainda não terminou continua podendo enviar apostas
	require.NoError(t, c.StoreBets(ctx, []lottery.Bet{bet(2, "B", 7)}))

	done := make(chan error, 1)
	go func() { done <- c.ReportFinished(ctx, 1) }()
	require.NoError(t, c.ReportFinished(ctx, 2))
	require.NoError(t, <-done)

	winners, err := c.WinnersFor(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, winners)
}

func TestFinishedHookSeesIncreasingCounts(t *testing.T) {
	t.Parallel()

	const agencies = 20
	var (
		mu   sync.Mutex
		seen []int
	)
	c, _ := newCoordinator(t, agencies, Hooks{OnFinished: func(n int) {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
	}})
	ctx := context.Background()

	var wg sync.WaitGroup
	for agency := 1; agency <= agencies; agency++ {
		wg.Add(1)
		go func(agency int) {
			defer wg.Done()
			assert.NoError(t, c.ReportFinished(ctx, agency))
		}(agency)
	}
	wg.Wait()

	want := make([]int, agencies)
	for i := range want {
		want[i] = i + 1
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, seen)
}

func TestScanFailureReleasesWaiters(t *testing.T) {
	t.Parallel()

	c, store := newCoordinator(t, 2, Hooks{OnDraw: func(Draw) { t.Error("OnDraw must not run on failure") }})
	store.scanErr = errors.New("disk gone")
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.ReportFinished(ctx, 1) }()

	err := c.ReportFinished(ctx, 2)
	assert.ErrorContains(t, err, "disk gone")
	assert.ErrorContains(t, <-done, "disk gone")

	_, err = c.WinnersFor(ctx, 1)
	assert.ErrorContains(t, err, "disk gone")
	assert.Equal(t, int32(1), store.scans.Load())
}

func TestStoreBetsAfterDraw(t *testing.T) {
	t.Parallel()

	var stored atomic.Int32
	c, _ := newCoordinator(t, 1, Hooks{OnStored: func(n int) { stored.Add(int32(n)) }})
	ctx := context.Background()

	require.NoError(t, c.StoreBets(ctx, []lottery.Bet{bet(1, "A", 7), bet(1, "B", 7)}))
	require.NoError(t, c.ReportFinished(ctx, 1))

	assert.ErrorIs(t, c.StoreBets(ctx, []lottery.Bet{bet(1, "C", 7)}), ErrDrawCompleted)
	assert.Equal(t, int32(2), stored.Load())
}

func TestDrawHookReceivesResult(t *testing.T) {
	t.Parallel()

	got := make(chan Draw, 1)
	c, _ := newCoordinator(t, 2, Hooks{OnDraw: func(d Draw) { got <- d }})
	ctx := context.Background()

	require.NoError(t, c.StoreBets(ctx, []lottery.Bet{bet(1, "A", 7), bet(2, "B", 1)}))
	go func() { _ = c.ReportFinished(ctx, 1) }()
	require.NoError(t, c.ReportFinished(ctx, 2))

	d := <-got
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, 2, d.TotalBets)
	assert.Equal(t, map[int][]string{1: {"A"}, 2: {}}, d.Winners)
	assert.False(t, d.DrawnAt.IsZero())
}
