package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StormyOasis/linsta-sub001/internal/metrics"
)

type recorder struct {
	repairs []Repair
}

func (r *recorder) AddRepair(_ context.Context, rep Repair) error {
	r.repairs = append(r.repairs, rep)
	return nil
}

type observer struct {
	outcomes []string
	failed   []string
}

func (o *observer) SagaFinished(_, outcome string) { o.outcomes = append(o.outcomes, outcome) }
func (o *observer) UndoFailed(_, step string)      { o.failed = append(o.failed, step) }

func step(name string, trace *[]string, doErr, undoErr error) Step {
	return Step{
		Name: name,
		Do: func(context.Context) error {
			*trace = append(*trace, "do:"+name)
			return doErr
		},
		Undo: func(context.Context) error {
			*trace = append(*trace, "undo:"+name)
			return undoErr
		},
		Repair: func() Repair { return Repair{Kind: "kind." + name, Target: name} },
	}
}

func TestSaga_CompensatesInReverseOrder(t *testing.T) {
	ctx := context.Background()
	rec, obs := &recorder{}, &observer{}
	s := NewCoordinator(rec, obs).Start("post.create")

	var trace []string
	require.NoError(t, s.Run(ctx, step("storage", &trace, nil, nil)))
	require.NoError(t, s.Run(ctx, step("index", &trace, nil, nil)))
	err := s.Run(ctx, step("graph", &trace, errors.New("boom"), nil))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph: boom")
	assert.Equal(t, []string{"do:storage", "do:index", "do:graph", "undo:index", "undo:storage"}, trace)
	assert.Empty(t, rec.repairs)
	assert.Equal(t, []string{metrics.OutcomeCompensated}, obs.outcomes)
}

func TestSaga_FailedUndoQueuesRepair(t *testing.T) {
	ctx := context.Background()
	rec, obs := &recorder{}, &observer{}
	s := NewCoordinator(rec, obs).Start("post.create")

	var trace []string
	require.NoError(t, s.Run(ctx, step("storage", &trace, nil, nil)))
	require.NoError(t, s.Run(ctx, step("index", &trace, nil, errors.New("es down"))))
	require.Error(t, s.Run(ctx, step("graph", &trace, errors.New("boom"), nil)))

	require.Len(t, rec.repairs, 1)
	assert.Equal(t, Repair{Kind: "kind.index", Target: "index"}, rec.repairs[0])
	assert.Contains(t, trace, "undo:storage")
	assert.Equal(t, []string{"index"}, obs.failed)
	assert.Equal(t, []string{metrics.OutcomeRepairQueued}, obs.outcomes)
}

func TestSaga_CompleteDisablesAbort(t *testing.T) {
	ctx := context.Background()
	obs := &observer{}
	s := NewCoordinator(nil, obs).Start("profile.update")

	var trace []string
	require.NoError(t, s.Run(ctx, step("index", &trace, nil, nil)))
	s.Complete()
	s.Abort(ctx)

	assert.Equal(t, []string{"do:index"}, trace)
	assert.Equal(t, []string{metrics.OutcomeCommitted}, obs.outcomes)
	assert.Error(t, s.Run(ctx, step("late", &trace, nil, nil)))
}

func TestSaga_AbortRunsWithCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewCoordinator(nil, nil).Start("signup")

	var undoErr error
	require.NoError(t, s.Run(ctx, Step{
		Name: "index",
		Do:   func(context.Context) error { return nil },
		Undo: func(ctx context.Context) error {
			undoErr = ctx.Err()
			return nil
		},
	}))
	cancel()
	s.Abort(ctx)

	assert.NoError(t, undoErr)
}
