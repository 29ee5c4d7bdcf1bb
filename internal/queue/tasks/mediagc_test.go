package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/muralkit/engine/internal/services"
	appErr "github.com/muralkit/engine/pkg/errors"
)

type mockMediaGCService struct {
	mock.Mock
}

func (m *mockMediaGCService) Run(ctx context.Context, cfg services.GCConfig) (*services.GCReport, error) {
	args := m.Called(ctx, cfg)
	if v := args.Get(0); v != nil {
		return v.(*services.GCReport), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestMediaGCTaskHandler_HandleMediaGC(t *testing.T) {
	report := &services.GCReport{
		DryRun:     true,
		TTLDays:    7,
		Scanned:    3,
		Candidates: []string{"media/a"},
		Deleted:    []string{},
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
	}

	t.Run("empty payload defaults to dry run with configured ttl", func(t *testing.T) {
		gcSvc := &mockMediaGCService{}
		handler := NewMediaGCTaskHandler(gcSvc, 7)

		task := asynq.NewTask(TypeMediaGC, []byte(`{}`))

		gcSvc.On("Run", mock.Anything, mock.MatchedBy(func(cfg services.GCConfig) bool {
			return cfg.TTLDays == 7 && cfg.Effective()
		})).Return(report, nil).Once()

		err := handler.HandleMediaGC(context.Background(), task)
		require.NoError(t, err)
		mock.AssertExpectationsForObjects(t, gcSvc)
	})

	t.Run("payload ttl and dry_run=false pass through", func(t *testing.T) {
		gcSvc := &mockMediaGCService{}
		handler := NewMediaGCTaskHandler(gcSvc, 7)

		task := asynq.NewTask(TypeMediaGC, []byte(`{"ttl_days":30,"dry_run":false}`))

		gcSvc.On("Run", mock.Anything, mock.MatchedBy(func(cfg services.GCConfig) bool {
			return cfg.TTLDays == 30 && !cfg.Effective()
		})).Return(&services.GCReport{TTLDays: 30, Deleted: []string{"media/a"}}, nil).Once()

		err := handler.HandleMediaGC(context.Background(), task)
		require.NoError(t, err)
		mock.AssertExpectationsForObjects(t, gcSvc)
	})

	t.Run("run failure fails the task for retry", func(t *testing.T) {
		gcSvc := &mockMediaGCService{}
		handler := NewMediaGCTaskHandler(gcSvc, 7)

		task := asynq.NewTask(TypeMediaGC, []byte(`{}`))
		gcSvc.On("Run", mock.Anything, mock.Anything).
			Return(nil, appErr.New(appErr.CodeUnavailable, "storage down")).Once()

		err := handler.HandleMediaGC(context.Background(), task)
		require.Error(t, err)
	})

	t.Run("malformed payload fails the task", func(t *testing.T) {
		gcSvc := &mockMediaGCService{}
		handler := NewMediaGCTaskHandler(gcSvc, 7)

		task := asynq.NewTask(TypeMediaGC, []byte(`{"ttl_days":"soon"}`))
		err := handler.HandleMediaGC(context.Background(), task)
		require.Error(t, err)
		gcSvc.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})
}
